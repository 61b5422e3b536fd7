// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// DefaultFrameArenaChunk is the chunk size used by NewFrameArena(0).
const DefaultFrameArenaChunk = 64 << 10

// FrameArena is a bump allocator for per-frame scratch bytes, such as the
// constant blobs passes push just before they run. Memory handed out is
// valid until the next Reset.
//
// A graph owns one FrameArena; the renderer may share one across frames
// through WithFrameArena and reset it after each frame.
type FrameArena struct {
	chunkSize int
	chunks    [][]byte
	cur       int
	off       int
	allocated int
}

// NewFrameArena creates an arena that grows in chunks of chunkSize bytes.
// A non-positive chunkSize selects DefaultFrameArenaChunk.
func NewFrameArena(chunkSize int) *FrameArena {
	if chunkSize <= 0 {
		chunkSize = DefaultFrameArenaChunk
	}
	return &FrameArena{chunkSize: chunkSize}
}

// Alloc returns n zeroed bytes.
func (a *FrameArena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	a.allocated += n
	if n > a.chunkSize {
		// Oversized requests get their own chunk, kept out of the rotation.
		return make([]byte, n)
	}
	for a.cur < len(a.chunks) {
		c := a.chunks[a.cur]
		if a.off+n <= len(c) {
			b := c[a.off : a.off+n : a.off+n]
			a.off += n
			clear(b)
			return b
		}
		a.cur++
		a.off = 0
	}
	c := make([]byte, a.chunkSize)
	a.chunks = append(a.chunks, c)
	a.cur = len(a.chunks) - 1
	a.off = n
	return c[:n:n]
}

// Copy returns a copy of b in arena memory.
func (a *FrameArena) Copy(b []byte) []byte {
	dst := a.Alloc(len(b))
	copy(dst, b)
	return dst
}

// Reset makes all memory available again. Slices returned before Reset
// must not be used afterwards.
func (a *FrameArena) Reset() {
	a.cur = 0
	a.off = 0
	a.allocated = 0
}

// Allocated returns the bytes handed out since the last Reset.
func (a *FrameArena) Allocated() int { return a.allocated }
