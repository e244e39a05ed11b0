// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package crash

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

const maxBacktraceFrames = 50

// appendBacktrace renders a bounded, symbolized backtrace of the calling
// goroutine into the crash log, including the triggering reason and a marker
// when the frame bound was hit.
func appendBacktrace(l *Log, reason string, skip int) {
	var pcs [maxBacktraceFrames]uintptr
	n := runtime.Callers(skip+2, pcs[:])

	l.Append("====== BACKTRACE ======\n")
	if n == maxBacktraceFrames {
		l.Append("(backtrace may be truncated)\n")
	}
	if reason != "" {
		l.Append(fmt.Sprintf("Reason: %s\n", reason))
	}
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		name := frame.Function
		if name == "" {
			name = "???"
		}
		// Frames coming from linked non-Go code carry mangled names.
		if strings.HasPrefix(name, "_Z") {
			if d, err := demangle.ToString(name); err == nil {
				name = d
			}
		}
		l.Append(fmt.Sprintf("%s (%s:%d)\n", name, frame.File, frame.Line))
		if !more {
			break
		}
	}
}
