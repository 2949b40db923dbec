// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"errors"
	"fmt"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// Kind coarsely classifies an AllocError so callers can branch on failure
// class without string-matching (spec.md §7).
type Kind int

const (
	// KindInvalidArgument covers zero size, misaligned alignment, mutually
	// exclusive flags, an invalid pool/heap index, or an invalid usage enum.
	KindInvalidArgument Kind = iota
	// KindOutOfDeviceMemory covers budget/limit exhaustion, a NeverAllocate
	// block list with no room, or the driver returning out-of-device-memory
	// on block creation.
	KindOutOfDeviceMemory
	// KindOutOfHostMemory is returned verbatim by the driver.
	KindOutOfHostMemory
	// KindFeatureNotPresent means no memory type matches the requirements
	// and usage combination.
	KindFeatureNotPresent
	// KindDriverError wraps any other driver failure.
	KindDriverError
	// KindInvalidState covers freeing an already-disposed/lost handle when
	// not idempotent, destroying a non-empty pool, or disposing an
	// allocator with live pools or dedicated allocations.
	KindInvalidState
	// KindUnsupported is returned by the stubbed defragmentation entry
	// points (spec.md §9).
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindOutOfDeviceMemory:
		return "OutOfDeviceMemory"
	case KindOutOfHostMemory:
		return "OutOfHostMemory"
	case KindFeatureNotPresent:
		return "FeatureNotPresent"
	case KindDriverError:
		return "DriverError"
	case KindInvalidState:
		return "InvalidState"
	case KindUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// AllocError is the error type every exported vkmem operation returns on
// failure. Kind lets callers branch coarsely; the wrapped sentinel (via
// errors.Is) lets them branch precisely.
type AllocError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *AllocError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vkmem: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("vkmem: %s: %s", e.Op, e.Kind)
}

func (e *AllocError) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, sentinel error) *AllocError {
	return &AllocError{Kind: kind, Op: op, Err: sentinel}
}

// Sentinel errors wrapped by AllocError, in the teacher's package-level
// var-table style (hal/vulkan/memory/allocator.go, buddy.go).
var (
	ErrZeroSize              = errors.New("vkmem: allocation size must be non-zero")
	ErrInvalidAlignment      = errors.New("vkmem: alignment must be a power of two")
	ErrIncompatibleFlags     = errors.New("vkmem: mutually exclusive allocation flags requested")
	ErrInvalidPool           = errors.New("vkmem: pool does not belong to this allocator")
	ErrInvalidHeapIndex      = errors.New("vkmem: heap index out of range")
	ErrNoSuitableMemoryType  = errors.New("vkmem: no memory type satisfies the requirements")
	ErrBudgetExceeded        = errors.New("vkmem: allocation would exceed the configured heap budget")
	ErrBlockListExhausted    = errors.New("vkmem: block list cannot grow (NeverAllocate or max_blocks reached)")
	ErrPoolNotEmpty          = errors.New("vkmem: pool must be empty before it can be destroyed")
	ErrAllocatorHasLivePools = errors.New("vkmem: allocator has live pools or dedicated allocations")
	ErrHandleAlreadyFreed    = errors.New("vkmem: handle was already freed")
	ErrDefragUnsupported     = errors.New("vkmem: defragmentation is not implemented")
)

// wrapDriver classifies a non-success driver.Result into the matching Kind.
// Out-of-device-memory wraps ErrBlockListExhausted with the code in the
// message; every other code is kept as an errors.As-able DriverError.
func wrapDriver(op string, result driver.Result) *AllocError {
	switch result {
	case driver.ErrorOutOfDeviceMemory:
		return newErr(op, KindOutOfDeviceMemory, fmt.Errorf("%w: %s", ErrBlockListExhausted, result))
	case driver.ErrorOutOfHostMemory:
		return &AllocError{Kind: KindOutOfHostMemory, Op: op, Err: &driver.DriverError{Op: op, Result: result}}
	default:
		return &AllocError{Kind: KindDriverError, Op: op, Err: &driver.DriverError{Op: op, Result: result}}
	}
}
