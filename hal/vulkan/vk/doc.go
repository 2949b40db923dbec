// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package vk is a minimal Pure Go Vulkan binding for the allocator's memory,
// buffer and image entry points, built on goffi for FFI calls. It loads
// libvulkan at runtime and calls through vkGetInstanceProcAddr/
// vkGetDeviceProcAddr the same way a full binding would, but only carries
// the function pointers and struct layouts hal/vulkan/driver.Driver needs.
//
// # goffi Calling Convention
//
// goffi expects args[] to contain pointers to WHERE argument values are
// stored, not the values themselves. For pointer-typed Vulkan parameters
// (the common case here: every vkXxxInfo argument is a pointer) this means
// passing a pointer to the local variable holding the pointer:
//
//	infoPtr := unsafe.Pointer(info)
//	args[i] = unsafe.Pointer(&infoPtr) // pointer TO the pointer
package vk
