// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build unix

package simdriver

import "golang.org/x/sys/unix"

// mmapPage backs a simulated device allocation with a real anonymous
// mapping, so mapped pointers behave like mapped device memory instead of
// like ordinary Go heap slices (no GC relocation, real page faults).
type mmapPage struct {
	data []byte
}

func newPage(size uint64) (*mmapPage, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &mmapPage{data: data}, nil
}

func (p *mmapPage) Bytes() []byte {
	return p.data
}

func (p *mmapPage) Close() error {
	if p.data == nil {
		return nil
	}
	err := unix.Munmap(p.data)
	p.data = nil
	return err
}
