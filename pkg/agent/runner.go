// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package agent

import (
	"io"
	"os"

	"github.com/fuzzamoto/fuzzamoto-go/pkg/log"
	"github.com/fuzzamoto/fuzzamoto-go/pkg/nyx"
)

// Runner abstracts a test case runner so that scenarios run unchanged under
// the host environment and during local crash reproduction.
type Runner interface {
	// GetFuzzInput returns the next fuzz input.
	GetFuzzInput() []byte
	// Fail reports the last test case as a failure and does not return.
	Fail(msg string)
	// Skip discards the last test case.
	Skip()
	// Release finishes the last test case normally.
	Release()
}

// NyxRunner runs test cases under the host environment through the agent.
type NyxRunner struct {
	agent *Agent
	buf   []byte
}

// NewNyxRunner performs the handshake over tr and returns a host-driven runner.
func NewNyxRunner(tr nyx.Transport, opts Options) *NyxRunner {
	a := New(tr, opts)
	return &NyxRunner{
		agent: a,
		buf:   make([]byte, a.MaxInputSize()),
	}
}

func (r *NyxRunner) Agent() *Agent {
	return r.agent
}

func (r *NyxRunner) GetFuzzInput() []byte {
	n := r.agent.AcquireInput(r.buf)
	return r.buf[:n]
}

func (r *NyxRunner) Fail(msg string) {
	r.agent.LogStats()
	r.agent.Fail(msg)
}

func (r *NyxRunner) Skip() {
	r.agent.Skip()
}

func (r *NyxRunner) Release() {
	r.agent.Release()
}

// LocalRunner reproduces a single test case outside the host environment.
// The input is read from the file named by the FUZZAMOTO_INPUT env variable,
// or from stdin if it is not set.
type LocalRunner struct{}

func (LocalRunner) GetFuzzInput() []byte {
	if path := os.Getenv("FUZZAMOTO_INPUT"); path != "" {
		log.Logf(0, "reading input from %v", path)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Logf(0, "failed to read input: %v", err)
			return nil
		}
		return data
	}
	log.Logf(0, "reading input from stdin")
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil
	}
	return data
}

func (LocalRunner) Fail(msg string) {
	log.Logf(0, "FAIL: %v", msg)
}

func (LocalRunner) Skip() {
	log.Logf(0, "skipping test case")
}

func (LocalRunner) Release() {
}
