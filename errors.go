// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// Graph errors.
var (
	// ErrInvalidAccessType is wrapped by the AccessError a pass declaration
	// panics with when the access type is outside the accessor's category.
	ErrInvalidAccessType = errors.New("framegraph: invalid access type")

	// ErrOverlappingNoSyncWrite is wrapped by the panic raised when two
	// unsynchronized ranged writes to the same buffer overlap.
	ErrOverlappingNoSyncWrite = errors.New("framegraph: overlapping unsynchronized writes")

	// ErrRangeOutOfBounds is wrapped by the panic raised when a ranged write
	// does not fit its buffer.
	ErrRangeOutOfBounds = errors.New("framegraph: range out of bounds")

	// ErrPassFinished is raised when a PassBuilder is used after Finish.
	ErrPassFinished = errors.New("framegraph: pass already finished")

	// ErrForeignHandle is raised when a handle from another graph is used.
	ErrForeignHandle = errors.New("framegraph: handle does not belong to this graph")

	// ErrPendingResource is returned when a resource is still waiting for
	// the swapchain image at a point where it must be concrete.
	ErrPendingResource = errors.New("framegraph: resource in pending state")

	// ErrTemporalKeyConflict classifies temporal lookups that were refused:
	// the key was already taken this frame or held the other resource kind.
	ErrTemporalKeyConflict = errors.New("framegraph: temporal key conflict")

	// ErrNoExecutionParams is returned when a graph is compiled before
	// RegisterExecutionParams.
	ErrNoExecutionParams = errors.New("framegraph: execution params not registered")

	// ErrGraphNotCompiled is returned when execution starts before Compile.
	ErrGraphNotCompiled = errors.New("framegraph: graph not compiled")

	// ErrNotExecuting is returned by recording calls made outside the
	// BeginExecute ... ReleaseResources window.
	ErrNotExecuting = errors.New("framegraph: graph is not executing")

	// ErrPipelineNotReady is returned when a pass binds a pipeline the
	// pipeline cache has not compiled.
	ErrPipelineNotReady = errors.New("framegraph: pipeline not ready")

	// ErrResourceKind is returned when a registry lookup finds a resource of
	// a different kind than requested.
	ErrResourceKind = errors.New("framegraph: wrong resource kind")

	// ErrDynamicConstantsOverflow is returned when a frame pushes more
	// constants than one ring half can hold.
	ErrDynamicConstantsOverflow = errors.New("framegraph: dynamic constants overflow")

	// ErrPipelineKind is raised when a simple pass ends with a command its
	// pipeline kind cannot run, such as Dispatch on a raster pass.
	ErrPipelineKind = errors.New("framegraph: command does not match pipeline kind")
)

// AccessError reports an access type used with an accessor that does not
// accept it. Pass declarations panic with *AccessError.
type AccessError struct {
	Op     string
	Pass   string
	Access gpucore.AccessType
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("framegraph: %s in pass %q: invalid access type: %d (%v)", e.Op, e.Pass, uint8(e.Access), e.Access)
}

// Unwrap returns ErrInvalidAccessType.
func (e *AccessError) Unwrap() error { return ErrInvalidAccessType }
