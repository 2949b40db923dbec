// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package resource is the thin create-and-bind glue between a raw
// driver.Driver and the memory allocator: create the VkBuffer/VkImage,
// query its memory requirements, run it through memory.Allocator.Allocate,
// then bind. Any failure past resource creation rolls back what succeeded
// so a caller never leaks a driver object or a live allocation.
package resource
