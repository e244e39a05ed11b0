// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package osutil contains low-level memory helpers for the agent.
package osutil

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CreateLockedBuffer maps an anonymous shared region of the requested size
// and locks it into memory. The payload buffer registered with the host must
// never be paged out: the host writes into it by guest physical address.
func CreateLockedBuffer(size int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap payload buffer of size %v: %w", size, err)
	}
	if err := unix.Mlock(mem); err != nil {
		unix.Munmap(mem)
		return nil, fmt.Errorf("failed to mlock payload buffer: %w", err)
	}
	clear(mem)
	return mem, nil
}

// CloseLockedBuffer destroys a mapping created by CreateLockedBuffer.
func CloseLockedBuffer(mem []byte) error {
	return unix.Munmap(mem)
}
