// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build !amd64

package nyx

// QEMU-Nyx snapshots only x86-64 guests, so on other arches RawTransport
// exists merely so that the package compiles (tests use fake transports).
func hypercall(cmd, arg uintptr) uintptr {
	panic("nyx: hypercalls are only available on amd64 guests")
}
