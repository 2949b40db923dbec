// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package simdriver is an in-process stand-in for hal/vulkan/driver.Driver,
// used by tests, benchmarks and cmd/allocdemo on machines without a real
// Vulkan loader. It plays the same role hal/noop plays for the teacher's
// backend: no GPU, but real enough behavior that callers exercise the same
// code paths they would against hardware.
//
// Device memory is backed by anonymously mmap'd pages on unix so that
// Map/Unmap/Flush/Invalidate touch real memory instead of fabricated
// pointers; other platforms fall back to a make([]byte, ...) allocation.
package simdriver
