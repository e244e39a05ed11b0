// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package crash

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/fuzzamoto/fuzzamoto-go/pkg/log"
)

// Fault-class signals the handler manages. While interception is active the
// target cannot register its own handlers for these (see Notify).
var managedSignals = []os.Signal{
	unix.SIGSEGV,
	unix.SIGFPE,
	unix.SIGBUS,
	unix.SIGILL,
	unix.SIGABRT,
	unix.SIGTRAP,
	unix.SIGSYS,
}

var intercepting atomic.Bool

func (h *Handler) installSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, managedSignals...)
	intercepting.Store(true)
	go func() {
		sig := <-ch
		h.handleSignal(sig)
	}()
	h.logf("[info] all signal handlers installed")
}

func (h *Handler) handleSignal(sig os.Signal) {
	h.panicWithBacktrace(fmt.Sprintf("caught signal: %v", sig))
}

// Notify is the signal registration entry point for target code. It behaves
// like signal.Notify, except that fault-class signals managed by an active
// crash handler are silently denied so the target cannot unregister or
// shadow the crash path.
func Notify(c chan<- os.Signal, sigs ...os.Signal) {
	allowed := sigs
	if intercepting.Load() {
		allowed = nil
		for _, sig := range sigs {
			if managed(sig) {
				log.Logf(0, "[warning] target attempts to install own handler for signal %v (ignoring)", sig)
				continue
			}
			allowed = append(allowed, sig)
		}
	}
	if len(allowed) != 0 {
		signal.Notify(c, allowed...)
	}
}

func managed(sig os.Signal) bool {
	for _, m := range managedSignals {
		if sig == m {
			return true
		}
	}
	return false
}
