// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package crash

// Log is the diagnostic text accumulated for a single crash occurrence.
// The buffer is preallocated at full capacity: the crash path must not grow
// memory, a fault handler can run with an already-corrupted allocator.
// The buffer always stays null-terminated (the last byte is reserved),
// appends beyond capacity are clamped.
type Log struct {
	buf       []byte
	n         int
	truncated bool
}

const defaultLogCapacity = 1 << 20

func NewLog(capacity int) *Log {
	if capacity < 2 {
		capacity = 2
	}
	return &Log{buf: make([]byte, capacity)}
}

func (l *Log) Append(s string) {
	room := len(l.buf) - 1 - l.n // last byte stays the terminator
	if len(s) > room {
		s = s[:room]
		l.truncated = true
	}
	copy(l.buf[l.n:], s)
	l.n += len(s)
}

// Bytes returns the accumulated text without the terminator.
func (l *Log) Bytes() []byte { return l.buf[:l.n] }

func (l *Log) String() string { return string(l.buf[:l.n]) }

func (l *Log) Len() int { return l.n }

// Truncated reports whether an append was clamped to capacity.
func (l *Log) Truncated() bool { return l.truncated }
