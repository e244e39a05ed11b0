// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"testing"
)

func TestLockedBuffer(t *testing.T) {
	const size = 1 << 16
	mem, err := CreateLockedBuffer(size)
	if err != nil {
		t.Fatal(err)
	}
	if len(mem) != size {
		t.Fatalf("got %v bytes, want %v", len(mem), size)
	}
	for i := range mem {
		mem[i] = byte(i)
	}
	if err := CloseLockedBuffer(mem); err != nil {
		t.Fatal(err)
	}
}
