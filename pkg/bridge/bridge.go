// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package bridge copies externally-collected coverage counters into the
// shared coverage map, for runtimes that cannot write through the native
// instrumentation hooks (e.g. Go targets built with libfuzzer-style 8-bit
// counters). The bridge only ever attaches to an existing segment: creation
// is exclusively the coverage map manager's responsibility.
package bridge

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/fuzzamoto/fuzzamoto-go/pkg/covermap"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/log"
)

// Bridge is safe for use from multiple threads; map writes are serialized.
type Bridge struct {
	mu     sync.Mutex
	mem    []byte
	warned bool
}

var osExit = os.Exit // for tests

// InitFromEnv attaches to the coverage segment published through the env
// contract. Missing or broken configuration is not an error: coverage is
// simply disabled for the run and the target executes normally.
func InitFromEnv() (*Bridge, bool) {
	shmStr := os.Getenv(covermap.EnvShmID)
	if shmStr == "" {
		log.Logf(0, "bridge: %v not set, coverage tracking disabled", covermap.EnvShmID)
		return nil, false
	}
	shmID, err := strconv.Atoi(shmStr)
	if err != nil || shmID < 0 {
		log.Logf(0, "bridge: invalid %v value %q, coverage tracking disabled", covermap.EnvShmID, shmStr)
		return nil, false
	}
	size := 0
	if sizeStr := os.Getenv(covermap.EnvMapSize); sizeStr != "" {
		size, _ = strconv.Atoi(sizeStr)
	}
	mem, err := covermap.Attach(shmID, size)
	if err != nil {
		log.Logf(0, "bridge: %v, coverage tracking disabled", err)
		return nil, false
	}
	log.Logf(1, "bridge: coverage map attached (size: %v)", len(mem))
	return &Bridge{mem: mem}, true
}

// RegisterCounters is called once the foreign counter region is known.
// In diagnostic mode (the dump-size env variable is set) it prints the
// counter region size and exits immediately; tooling uses this to pre-size
// the coverage map before the real fuzzing run.
func (b *Bridge) RegisterCounters(counters []byte) {
	if os.Getenv(covermap.EnvDumpMapSize) != "" {
		fmt.Printf("%d\n", len(counters))
		osExit(0)
	}
	if b == nil {
		return
	}
	if len(counters) > len(b.mem) {
		log.Logf(0, "bridge: counter region (%v) exceeds map size (%v), coverage will be truncated",
			len(counters), len(b.mem))
	}
}

// CopyCounters copies min(len(counters), map size) bytes of the foreign
// counter region into the shared map. Oversized counter regions are
// truncated silently: partial coverage is preferred over failure. Exactly
// one truncation warning is logged per bridge.
func (b *Bridge) CopyCounters(counters []byte) {
	if b == nil || len(counters) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := copy(b.mem, counters)
	if n < len(counters) && !b.warned {
		b.warned = true
		log.Logf(0, "bridge: truncated counter copy: %v of %v bytes", n, len(counters))
	}
}

// MapSize returns the size of the attached map, 0 when not attached.
func (b *Bridge) MapSize() int {
	if b == nil {
		return 0
	}
	return len(b.mem)
}
