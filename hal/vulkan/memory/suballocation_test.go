// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import "testing"

func TestSuballocationsConflict(t *testing.T) {
	tests := []struct {
		name string
		a, b SuballocationType
		want bool
	}{
		{"free never conflicts with buffer", SuballocationFree, SuballocationBuffer, false},
		{"free never conflicts with image", SuballocationFree, SuballocationImageOptimal, false},
		{"buffer and buffer do not conflict", SuballocationBuffer, SuballocationBuffer, false},
		{"buffer and linear image conflict", SuballocationBuffer, SuballocationImageLinear, true},
		{"optimal image and buffer conflict", SuballocationImageOptimal, SuballocationBuffer, true},
		{"same image tiling does not conflict", SuballocationImageLinear, SuballocationImageLinear, false},
		{"different image tilings conflict", SuballocationImageLinear, SuballocationImageOptimal, true},
		{"unknown conflicts with buffer", SuballocationUnknown, SuballocationBuffer, true},
		{"unknown conflicts with itself", SuballocationUnknown, SuballocationUnknown, true},
		{"unknown never conflicts with free", SuballocationUnknown, SuballocationFree, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := suballocationsConflict(tt.a, tt.b); got != tt.want {
				t.Errorf("suballocationsConflict(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := suballocationsConflict(tt.b, tt.a); got != tt.want {
				t.Errorf("suballocationsConflict(%v, %v) (swapped) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestSuballocationTypeString(t *testing.T) {
	if SuballocationImageOptimal.String() != "ImageOptimal" {
		t.Errorf("String() = %q, want ImageOptimal", SuballocationImageOptimal.String())
	}
	if SuballocationType(99).String() != "Invalid" {
		t.Errorf("String() of out-of-range type = %q, want Invalid", SuballocationType(99).String())
	}
}
