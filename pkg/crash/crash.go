// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package crash converts abnormal termination of the target - panics, failed
// assertions and, optionally, fault signals - into a diagnostic report sent
// through the control channel (if a host is present) or printed before the
// process terminates. The handler never returns to the faulting code path.
//
// When the target is built with a sanitizer, configure it with
// log_path=<path> and abort_on_error=1 so that the sanitizer report ends up
// in the per-pid log file this package ingests.
package crash

import (
	"fmt"
	"os"
)

// Reporter is the subset of the control channel used by the crash path.
// A nil Reporter means no host is present: the report is printed and the
// process exits with a non-zero status.
type Reporter interface {
	PanicExtended(msg []byte)
	Printf(format string, args ...interface{})
}

type Options struct {
	// Reporter is the control channel to the host, nil outside a VM.
	Reporter Reporter
	// SanitizerLogPath is the sanitizer log_path option value; the actual
	// file read is <SanitizerLogPath>.<pid>. Empty disables ingestion.
	SanitizerLogPath string
	// Backtrace enables the symbolized backtrace section in reports.
	// Do not combine with sanitizer builds: the sanitizer report already
	// contains a better backtrace.
	Backtrace bool
	// CatchSignals intercepts fault signals delivered to the process and
	// denies later attempts by the target to register its own handlers
	// for them.
	CatchSignals bool
}

// Handler is the process-wide fault sink. The crash path assumes a single
// fault at a time; the Log is not thread-safe.
type Handler struct {
	opts Options
	log  *Log

	// Terminal actions, overridable by tests. Neither returns in production.
	exit func(code int)
	halt func()
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		opts: opts,
		log:  NewLog(defaultLogCapacity),
		exit: os.Exit,
		halt: func() {
			// The host restores or tears down the VM, just don't come back.
			for {
			}
		},
	}
	return h
}

// Install activates signal interception if configured. Panic and assert
// interception needs no installation: defer HandlePanic around target code.
func (h *Handler) Install() {
	h.logf("[info] initializing crash handler...")
	if h.opts.CatchSignals {
		h.installSignals()
	}
	h.logf("[info] crash handler initialized")
}

// HandlePanic is deferred around target execution; it converts a Go panic
// into a crash report. Go surfaces synchronous faults in Go code (nil
// derefs, out-of-bounds) as panics, so this is also the fault path for them.
func (h *Handler) HandlePanic() {
	if r := recover(); r != nil {
		h.panicWithBacktrace(fmt.Sprintf("panic: %v", r))
	}
}

// Abort reports an explicit abort, the equivalent of abort(3) in the target.
func (h *Handler) Abort() {
	h.panicWithBacktrace("abort")
}

// Assert reports a failed assertion unless cond holds.
func (h *Handler) Assert(cond bool, expr string) {
	if cond {
		return
	}
	h.panicWithBacktrace(fmt.Sprintf("assertion failed: %q", expr))
}

// panicWithBacktrace assembles the report: sanitizer output first, then the
// optional backtrace section with the triggering reason, then reports.
func (h *Handler) panicWithBacktrace(reason string) {
	h.appendSanitizerLog()
	if h.opts.Backtrace {
		appendBacktrace(h.log, reason, 2)
	}
	h.report()
}

func (h *Handler) report() {
	if h.opts.Reporter != nil {
		h.opts.Reporter.PanicExtended(h.log.Bytes())
		h.halt()
		return
	}
	os.Stderr.WriteString(h.log.String() + "\n")
	h.exit(1)
}

// appendSanitizerLog ingests the sanitizer-produced log file of the current
// process, if any.
func (h *Handler) appendSanitizerLog() {
	if h.opts.SanitizerLogPath == "" {
		return
	}
	path := fmt.Sprintf("%s.%d", h.opts.SanitizerLogPath, os.Getpid())
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return
	}
	h.log.Append(string(data))
}

func (h *Handler) logf(format string, args ...interface{}) {
	if h.opts.Reporter != nil {
		h.opts.Reporter.Printf(format+"\n", args...)
	}
}
