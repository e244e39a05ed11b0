// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package covermap

import (
	"os"
	"strconv"
	"testing"
)

func TestCreate(t *testing.T) {
	m, err := Create(65536, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if m.Size() != 65536 {
		t.Fatalf("size: got %v, want 65536", m.Size())
	}
	for i, b := range m.Region() {
		if b != 0 {
			t.Fatalf("byte %v not zero after create: %v", i, b)
		}
	}
	if got, _ := strconv.Atoi(os.Getenv(EnvShmID)); got != m.ID() {
		t.Fatalf("%v: got %v, want %v", EnvShmID, got, m.ID())
	}
	if got, _ := strconv.Atoi(os.Getenv(EnvMapSize)); got != m.Size() {
		t.Fatalf("%v: got %v, want %v", EnvMapSize, got, m.Size())
	}
}

func TestCreateBadSize(t *testing.T) {
	if _, err := Create(0, 0); err == nil {
		t.Fatal("zero-sized map creation succeeded")
	}
}

func TestResetIdempotent(t *testing.T) {
	m, err := Create(4096, 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	mem := m.Region()
	for i := range mem {
		mem[i] = 0xff
	}
	m.Reset()
	m.Reset()
	for i, b := range mem {
		want := byte(0)
		if i == 0 {
			want = sentinelLive
		}
		if b != want {
			t.Fatalf("byte %v after double reset: got %v, want %v", i, b, want)
		}
	}
}

func TestScenarioRegion(t *testing.T) {
	m, err := Create(4096, 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	sc := m.ScenarioRegion()
	if len(sc) != 1024 {
		t.Fatalf("scenario region: got %v bytes, want 1024", len(sc))
	}
	sc[0] = 42
	if m.Region()[4096] != 42 {
		t.Fatal("scenario region is not offset by the target size")
	}
}

func TestAttachSeesWrites(t *testing.T) {
	m, err := Create(4096, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	mem, err := Attach(m.ID(), m.Size())
	if err != nil {
		t.Fatal(err)
	}
	m.Region()[100] = 7
	if mem[100] != 7 {
		t.Fatal("attached mapping does not share memory with the creator")
	}
}
