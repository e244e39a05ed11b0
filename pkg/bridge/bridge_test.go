// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package bridge

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fuzzamoto/fuzzamoto-go/pkg/covermap"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/log"
)

func newTestMap(t *testing.T, size int) *covermap.Map {
	t.Helper()
	m, err := covermap.Create(size, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestInitFromEnv(t *testing.T) {
	m := newTestMap(t, 65536)
	b, attached := InitFromEnv()
	if !attached {
		t.Fatal("failed to attach to published segment")
	}
	if b.MapSize() != m.Size() {
		t.Fatalf("map size: got %v, want %v", b.MapSize(), m.Size())
	}
}

func TestInitFromEnvUnset(t *testing.T) {
	t.Setenv(covermap.EnvShmID, "")
	b, attached := InitFromEnv()
	if attached || b != nil {
		t.Fatal("attached without environment")
	}
	// Disabled bridge must be inert, not crash.
	b.RegisterCounters(make([]byte, 16))
	b.CopyCounters(make([]byte, 16))
}

func TestCopyCounters(t *testing.T) {
	m := newTestMap(t, 65536)
	b, attached := InitFromEnv()
	if !attached {
		t.Fatal("failed to attach")
	}
	counters := make([]byte, 4096)
	for i := range counters {
		counters[i] = byte(i%255) + 1
	}
	b.CopyCounters(counters)
	if !bytes.Equal(m.Region()[:4096], counters) {
		t.Fatal("counters not copied into the shared map")
	}
}

func TestCopyCountersTruncation(t *testing.T) {
	m := newTestMap(t, 65536)
	b, attached := InitFromEnv()
	if !attached {
		t.Fatal("failed to attach")
	}
	var warnings []string
	log.SetSink(func(msg string) {
		if strings.Contains(msg, "truncated") {
			warnings = append(warnings, msg)
		}
	})
	defer log.SetSink(nil)

	counters := make([]byte, 131072)
	for i := range counters {
		counters[i] = 0xaa
	}
	b.CopyCounters(counters)
	b.CopyCounters(counters)
	for i, v := range m.Region() {
		if v != 0xaa {
			t.Fatalf("map byte %v not copied: %v", i, v)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("got %v truncation warnings, want exactly 1: %q", len(warnings), warnings)
	}
}

func TestDumpMapSizeMode(t *testing.T) {
	newTestMap(t, 4096)
	t.Setenv(covermap.EnvDumpMapSize, "1")
	exited := -1
	osExit = func(code int) { exited = code }
	defer func() { osExit = os.Exit }()

	b, _ := InitFromEnv()
	b.RegisterCounters(make([]byte, 12345))
	if exited != 0 {
		t.Fatalf("diagnostic mode did not exit, status %v", exited)
	}
}
