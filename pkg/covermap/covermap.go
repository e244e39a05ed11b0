// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package covermap owns the shared memory region used for edge coverage.
//
// When the agent tracks coverage for both the target and the scenario
// process, a single large map combines the two:
//
//	[ ... TARGET MAP ... | ... SCENARIO MAP ... ]
//
// The map is shared with the target via the __AFL_SHM_ID env variable and
// scenario instrumentation writes into the region offset by the target size.
// Byte 0 of the whole region is a liveness sentinel, non-zero while an
// iteration is live; the host uses it for hang detection.
package covermap

import (
	"fmt"
	"os"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/fuzzamoto/fuzzamoto-go/pkg/log"
)

// Environment variable contract shared with the host tooling and with
// foreign (AFL-style) instrumentation linked into the target.
const (
	EnvShmID       = "__AFL_SHM_ID"
	EnvMapSize     = "AFL_MAP_SIZE"
	EnvDumpMapSize = "AFL_DUMP_MAP_SIZE"
)

const sentinelLive = 1

// Map is the coverage shared memory region.
// Size is fixed after creation and never reallocated: growth is by
// re-handshake, not resize.
type Map struct {
	shmID      int
	mem        []byte
	targetSize int
}

// Create makes a new SysV shared memory segment of targetSize+scenarioSize
// bytes, zero-fills it and publishes its id and total size through the env
// contract. The segment travels by id, so the IPC key is irrelevant and we
// use IPC_PRIVATE.
func Create(targetSize, scenarioSize int) (*Map, error) {
	total := targetSize + scenarioSize
	if targetSize <= 0 || total <= 0 {
		return nil, fmt.Errorf("covermap: bad size %v+%v", targetSize, scenarioSize)
	}
	shmID, err := unix.SysvShmGet(unix.IPC_PRIVATE, total, unix.IPC_CREAT|0o666)
	if err != nil {
		return nil, fmt.Errorf("covermap: failed to create shared memory segment of size %v: %w", total, err)
	}
	mem, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		unix.SysvShmCtl(shmID, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("covermap: failed to attach to shared memory segment %v: %w", shmID, err)
	}
	os.Setenv(EnvShmID, strconv.Itoa(shmID))
	os.Setenv(EnvMapSize, strconv.Itoa(total))
	m := &Map{
		shmID:      shmID,
		mem:        mem,
		targetSize: targetSize,
	}
	clear(m.mem)
	log.Logf(1, "covermap: created segment %v, target %v + scenario %v bytes", shmID, targetSize, scenarioSize)
	return m, nil
}

// Attach maps an already-existing segment created by another process.
// Creation is exclusively Create's responsibility.
func Attach(shmID, size int) ([]byte, error) {
	mem, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("covermap: failed to attach to shared memory segment %v: %w", shmID, err)
	}
	if size > 0 && size < len(mem) {
		mem = mem[:size]
	}
	return mem, nil
}

// Reset zero-fills the region and re-arms the liveness sentinel.
// Must be called between fuzzing iterations.
//
// Racy by contract: callers must guarantee that no other thread is executing
// instrumented code while the map is being cleared. Concurrent writers do not
// corrupt anything beyond the coverage of the affected iteration.
func (m *Map) Reset() {
	clear(m.mem)
	m.mem[0] = sentinelLive
}

// SetSentinel marks an iteration as live without clearing the map.
func (m *Map) SetSentinel() {
	m.mem[0] = sentinelLive
}

// Region returns the whole shared region.
func (m *Map) Region() []byte { return m.mem }

// ScenarioRegion returns the scenario segment appended after the target
// segment, empty if the map was created without one.
func (m *Map) ScenarioRegion() []byte { return m.mem[m.targetSize:] }

func (m *Map) TargetSize() int { return m.targetSize }

func (m *Map) Size() int { return len(m.mem) }

func (m *Map) ID() int { return m.shmID }

// Base returns the virtual address of the region, as advertised to the host
// in the agent configuration.
func (m *Map) Base() uint64 {
	return uint64(uintptr(unsafe.Pointer(&m.mem[0])))
}

// Close detaches and removes the segment. Only used by tests and tools,
// in a real fuzzing run the map lives for the whole process.
func (m *Map) Close() error {
	err1 := unix.SysvShmDetach(m.mem)
	_, err2 := unix.SysvShmCtl(m.shmID, unix.IPC_RMID, nil)
	m.mem = nil
	if err1 != nil {
		return err1
	}
	return err2
}
