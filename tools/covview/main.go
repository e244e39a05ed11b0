// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// covview attaches to a live coverage segment and prints a summary.
// Useful for eyeballing whether a target actually produces coverage:
//
//	covview -shmid $(printenv __AFL_SHM_ID) -size $(printenv AFL_MAP_SIZE)
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fuzzamoto/fuzzamoto-go/pkg/covermap"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/tool"
)

func main() {
	var (
		flagShmID = flag.Int("shmid", -1, "shared memory segment id (defaults to "+covermap.EnvShmID+")")
		flagSize  = flag.Int("size", 0, "map size in bytes (defaults to "+covermap.EnvMapSize+")")
	)
	flag.Parse()
	shmID := *flagShmID
	if shmID < 0 {
		shmID, _ = strconv.Atoi(os.Getenv(covermap.EnvShmID))
	}
	size := *flagSize
	if size == 0 {
		size, _ = strconv.Atoi(os.Getenv(covermap.EnvMapSize))
	}
	if shmID <= 0 {
		tool.Failf("no segment id: pass -shmid or set %v", covermap.EnvShmID)
	}
	mem, err := covermap.Attach(shmID, size)
	if err != nil {
		tool.Fail(err)
	}
	covered := 0
	for _, b := range mem[1:] {
		if b != 0 {
			covered++
		}
	}
	fmt.Printf("segment:  %v\n", shmID)
	fmt.Printf("size:     %v bytes\n", len(mem))
	fmt.Printf("live:     %v (sentinel byte %v)\n", mem[0] != 0, mem[0])
	fmt.Printf("covered:  %v edges (%.2f%%)\n", covered, float64(covered)*100/float64(len(mem)-1))
}
