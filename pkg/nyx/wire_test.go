// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package nyx

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHostConfigDecode(t *testing.T) {
	buf := make([]byte, hostConfigSize)
	binary.LittleEndian.PutUint32(buf[0:], HostMagic)
	binary.LittleEndian.PutUint32(buf[4:], HostVersion)
	binary.LittleEndian.PutUint32(buf[8:], 65536)
	binary.LittleEndian.PutUint32(buf[12:], 0x1000)
	binary.LittleEndian.PutUint32(buf[16:], 1<<20)
	binary.LittleEndian.PutUint32(buf[20:], 7)
	got := decodeHostConfig(buf)
	want := HostConfig{
		HostMagic:         HostMagic,
		HostVersion:       HostVersion,
		BitmapSize:        65536,
		IjonBitmapSize:    0x1000,
		PayloadBufferSize: 1 << 20,
		WorkerID:          7,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("host config mismatch (-want +got):\n%v", diff)
	}
}

func TestAgentConfigEncode(t *testing.T) {
	cfg := &AgentConfig{
		AgentMagic:         AgentMagic,
		AgentVersion:       AgentVersion,
		AgentTracing:       1,
		AgentNonReloadMode: 1,
		TraceBufferVaddr:   0xdeadbeef0000,
		CoverageBitmapSize: 65536,
	}
	buf := make([]byte, agentConfigSize)
	encodeAgentConfig(cfg, buf)
	// The struct is packed on the wire: the u64 trace buffer address
	// sits at offset 12, not at a natural 16-byte alignment.
	if got := binary.LittleEndian.Uint64(buf[12:]); got != cfg.TraceBufferVaddr {
		t.Errorf("trace buffer vaddr: got 0x%x", got)
	}
	if got := binary.LittleEndian.Uint32(buf[28:]); got != 65536 {
		t.Errorf("coverage bitmap size: got %v", got)
	}
	if buf[11] != 1 {
		t.Errorf("non-reload mode byte not set")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	data := []byte("fuzz input bytes")
	PutPayload(buf, data)
	got := ParsePayload(buf)
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip: got %q, want %q", got, data)
	}
}

func TestPayloadOversizedLength(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf, 1<<30) // host-declared size exceeds the buffer
	got := ParsePayload(buf)
	if len(got) != len(buf)-PayloadHdrSize {
		t.Fatalf("clamped payload length: got %v, want %v", len(got), len(buf)-PayloadHdrSize)
	}
}

func TestNullTerminated(t *testing.T) {
	if got := nullTerminated([]byte("abc")); got[len(got)-1] != 0 {
		t.Fatalf("missing terminator: %q", got)
	}
	in := []byte{'a', 0}
	if got := nullTerminated(in); len(got) != 2 {
		t.Fatalf("double terminated: %q", got)
	}
}
