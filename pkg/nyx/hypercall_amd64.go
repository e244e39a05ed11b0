// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package nyx

// hypercall issues a kAFL hypercall: vmcall with rax=HypercallRaxID,
// rbx=cmd, rcx=arg. Implemented in hypercall_amd64.s.
func hypercall(cmd, arg uintptr) uintptr
