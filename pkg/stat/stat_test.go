// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"testing"
)

func TestCounter(t *testing.T) {
	v := New("test counter", "test")
	v.Add(1)
	v.Add(41)
	if got := v.Val(); got != 42 {
		t.Fatalf("got %v, want 42", got)
	}
	found := false
	for _, ui := range Collect() {
		if ui.Name == "test counter" {
			found = true
			if ui.V != 42 {
				t.Fatalf("collected %v, want 42", ui.V)
			}
		}
	}
	if !found {
		t.Fatal("counter not collected")
	}
}

func TestExternal(t *testing.T) {
	n := 7
	v := New("test external", "test", func() int { return n })
	if got := v.Val(); got != 7 {
		t.Fatalf("got %v, want 7", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Add on external stat did not panic")
		}
	}()
	v.Add(1)
}

func TestDistribution(t *testing.T) {
	v := New("test distribution", "test", Distribution{})
	for i := 1; i <= 100; i++ {
		v.Add(i)
	}
	mean := v.Val()
	if mean < 40 || mean > 60 {
		t.Fatalf("mean of 1..100: got %v", mean)
	}
}
