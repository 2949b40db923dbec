// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"errors"
	"testing"
)

func TestDefragmentationEntryPointsReturnUnsupported(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	if _, err := a.BeginDefragmentation(DefragmentationInfo{}); !errors.Is(err, ErrDefragUnsupported) {
		t.Fatalf("BeginDefragmentation error = %v, want ErrDefragUnsupported", err)
	}
	if err := a.BeginDefragmentationPass(nil); !errors.Is(err, ErrDefragUnsupported) {
		t.Fatalf("BeginDefragmentationPass error = %v, want ErrDefragUnsupported", err)
	}
	if _, err := a.EndDefragmentationPass(nil); !errors.Is(err, ErrDefragUnsupported) {
		t.Fatalf("EndDefragmentationPass error = %v, want ErrDefragUnsupported", err)
	}
	if _, err := a.EndDefragmentation(nil); !errors.Is(err, ErrDefragUnsupported) {
		t.Fatalf("EndDefragmentation error = %v, want ErrDefragUnsupported", err)
	}
}
