// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package agent implements the in-process fuzzing agent: the handshake with
// the host environment and the snapshot/fuzz-input state machine driven by
// control-channel calls.
package agent

import (
	"github.com/fuzzamoto/fuzzamoto-go/pkg/covermap"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/log"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/nyx"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/osutil"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/stat"
)

// Options configures the agent at handshake time.
type Options struct {
	// TargetMapSize is the build-time size of the target coverage segment.
	// 0 means unknown, in which case the host-declared bitmap size is used.
	TargetMapSize int
	// ScenarioMapSize extends the map by the counter region of foreign
	// (AFL-style) instrumentation linked into the scenario, 0 if none.
	ScenarioMapSize int
	// TimeoutDetection asks the host to detect hanging iterations.
	TimeoutDetection bool
	// DumpPayloads asks the host to dump every payload to its workdir.
	DumpPayloads bool
}

// Agent drives one fuzzing target through host-controlled iterations.
// All methods must be called from the thread executing the target: the
// control channel is synchronous and the host owns all scheduling.
type Agent struct {
	tr          nyx.Transport
	cover       *covermap.Map
	maxInput    int
	payload     []byte
	snapshotted bool
}

var (
	statExecs = stat.New("execs", "number of fuzzing iterations started",
		stat.Rate{}, stat.Prometheus("fuzzamoto_execs_total"))
	statSkips = stat.New("skips", "number of discarded iterations",
		stat.Prometheus("fuzzamoto_skips_total"))
	statInputBytes = stat.New("input bytes", "distribution of fuzz input sizes",
		stat.Distribution{})
)

// New performs the handshake with the host and creates the coverage map.
// Called exactly once per process lifetime; the handshake is not idempotent.
// Setup failures (incompatible host, shared memory allocation) are fatal:
// they are reported through the host's side channel and the process never
// returns from the abort.
func New(tr nyx.Transport, opts Options) *Agent {
	a := &Agent{tr: tr}
	log.SetSink(func(msg string) {
		tr.Printf("%s\n", msg)
	})

	host := tr.GetHostConfig()
	if host.HostMagic != nyx.HostMagic {
		tr.Abort("host magic mismatch - you are probably using an outdated version of QEMU-Nyx")
	}
	if host.HostVersion != nyx.HostVersion {
		tr.Abort("host version mismatch - you are probably using an outdated version of QEMU-Nyx")
	}
	tr.Printf("[capabilities] host_config.bitmap_size: 0x%x\n", host.BitmapSize)
	tr.Printf("[capabilities] host_config.ijon_bitmap_size: 0x%x\n", host.IjonBitmapSize)
	tr.Printf("[capabilities] host_config.payload_buffer_size: 0x%x\n", host.PayloadBufferSize)

	targetSize := opts.TargetMapSize
	if targetSize == 0 {
		tr.Printf("[warn] target map size not set, using host supplied size: %v\n", host.BitmapSize)
		targetSize = int(host.BitmapSize)
	}
	if opts.ScenarioMapSize != 0 {
		tr.Printf("[init] scenario instrumentation active, extending the map by %v bytes\n",
			opts.ScenarioMapSize)
	}
	cover, err := covermap.Create(targetSize, opts.ScenarioMapSize)
	if err != nil {
		tr.Abort(err.Error())
	}
	a.cover = cover

	cfg := &nyx.AgentConfig{
		AgentMagic:         nyx.AgentMagic,
		AgentVersion:       nyx.AgentVersion,
		AgentTracing:       1,
		AgentNonReloadMode: 1,
		TraceBufferVaddr:   cover.Base(),
		CoverageBitmapSize: uint32(cover.Size()),
	}
	if opts.TimeoutDetection {
		cfg.AgentTimeoutDetection = 1
	}
	if opts.DumpPayloads {
		cfg.DumpPayloads = 1
	}
	tr.SetAgentConfig(cfg)

	a.maxInput = int(host.PayloadBufferSize)
	return a
}

// MaxInputSize returns the host-declared maximum size of a fuzz input.
func (a *Agent) MaxInputSize() int {
	return a.maxInput
}

// CoverMap returns the shared coverage map.
func (a *Agent) CoverMap() *covermap.Map {
	return a.cover
}

// AcquireInput obtains the next fuzz input from the host and copies it into
// dst, returning the number of bytes copied: min of the host-declared input
// length and len(dst). An oversized input is truncated, not an error.
//
// The first call registers the payload buffer and captures the execution
// snapshot; every later iteration re-enters the program at that point, so
// the buffer is mapped and registered exactly once per VM lifetime.
func (a *Agent) AcquireInput(dst []byte) int {
	if a.payload == nil {
		buf, err := osutil.CreateLockedBuffer(a.maxInput)
		if err != nil {
			a.tr.Abort(err.Error())
		}
		a.payload = buf
		a.tr.RegisterPayload(buf)
		a.tr.Printf("[init] payload buffer mapped (size: 0x%x)\n", a.maxInput)
	}
	a.cover.Reset()
	if !a.snapshotted {
		a.tr.Printf("[init] taking snapshot\n")
		a.tr.SubmitMode(nyx.Mode64)
		a.snapshotted = true
	}
	// Blocks until the host acknowledges the restore point; iteration N+1
	// resumes right here after Release/Skip.
	a.tr.FastAcquire()
	a.cover.SetSentinel()

	n := copy(dst, nyx.ParsePayload(a.payload))
	statExecs.Add(1)
	statInputBytes.Add(n)
	return n
}

// Skip discards the current iteration: resets the coverage map so that it is
// not scored and restores the snapshot. Callers must guarantee no other
// thread is executing instrumented code (see covermap.Reset).
func (a *Agent) Skip() {
	statSkips.Add(1)
	a.cover.Reset()
	a.tr.Release()
}

// Release ends a normal iteration: restores the snapshot, preserving the
// current coverage map contents for scoring.
func (a *Agent) Release() {
	a.tr.Release()
}

// Fail reports msg to the host as an explicit failure and does not return.
// Usable from any state. The message is additionally printed to the host
// console, since some fuzzer frontends only capture the console stream.
func (a *Agent) Fail(msg string) {
	a.tr.Printf("%s\n", msg)
	a.tr.PanicExtended([]byte(msg))
	// The host terminates the VM; never return to the caller.
	for {
	}
}

// DumpFileToHost ships an artifact file to the host's working directory.
func (a *Agent) DumpFileToHost(name string, data []byte) {
	a.tr.DumpFile(name, data)
}

// LogStats flushes the current metric values to the agent log.
func (a *Agent) LogStats() {
	for _, ui := range stat.Collect() {
		log.Logf(2, "%v: %v", ui.Name, ui.Value)
	}
}
