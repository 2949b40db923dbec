// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simdriver

import "unsafe"

// ptrOf returns the address of b's backing storage, or of the one-past-end
// position when b is empty (mirroring the slice pointer rules Map callers
// rely on: offset == size is a valid, zero-length mapped view).
func ptrOf(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return unsafe.Pointer(unsafe.SliceData(b))
	}
	return unsafe.Pointer(&b[0])
}
