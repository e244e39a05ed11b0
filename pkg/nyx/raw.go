// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package nyx

import (
	"fmt"
	"runtime"
	"unsafe"
)

// hprintf payloads are capped on the QEMU-Nyx side.
const printfMaxSize = 0x1000

// RawTransport issues real kAFL hypercalls (vmcall instructions).
// It only works when running inside a QEMU-Nyx VM; anywhere else the
// hypercalls are undefined instructions.
type RawTransport struct{}

func (RawTransport) GetHostConfig() HostConfig {
	var buf [hostConfigSize]byte
	hypercall(CmdGetHostConfig, uintptr(unsafe.Pointer(&buf[0])))
	return decodeHostConfig(buf[:])
}

func (RawTransport) SetAgentConfig(cfg *AgentConfig) {
	var buf [agentConfigSize]byte
	encodeAgentConfig(cfg, buf[:])
	hypercall(CmdSetAgentConfig, uintptr(unsafe.Pointer(&buf[0])))
}

func (RawTransport) RegisterPayload(buf []byte) {
	hypercall(CmdGetPayload, uintptr(unsafe.Pointer(&buf[0])))
	runtime.KeepAlive(buf)
}

func (RawTransport) SubmitMode(mode uint64) {
	hypercall(CmdUserSubmitMode, uintptr(mode))
}

func (RawTransport) FastAcquire() {
	hypercall(CmdUserFastAcquire, 0)
}

func (RawTransport) Release() {
	hypercall(CmdRelease, 0)
}

func (RawTransport) PanicExtended(msg []byte) {
	msg = nullTerminated(msg)
	hypercall(CmdPanicExtended, uintptr(unsafe.Pointer(&msg[0])))
	runtime.KeepAlive(msg)
}

func (RawTransport) Abort(msg string) {
	buf := nullTerminated([]byte(msg))
	hypercall(CmdUserAbort, uintptr(unsafe.Pointer(&buf[0])))
	runtime.KeepAlive(buf)
	// The host tears the VM down, the hypercall must not return.
	for {
	}
}

func (RawTransport) Printf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	if len(s) >= printfMaxSize {
		s = s[:printfMaxSize-1]
	}
	buf := nullTerminated([]byte(s))
	hypercall(CmdPrintf, uintptr(unsafe.Pointer(&buf[0])))
	runtime.KeepAlive(buf)
}

func (RawTransport) DumpFile(name string, data []byte) {
	nameBuf := nullTerminated([]byte(name))
	var dataPtr uint64
	if len(data) > 0 {
		dataPtr = uint64(uintptr(unsafe.Pointer(&data[0])))
	}
	var hdr [dumpFileHdrSize]byte
	encodeDumpFileHdr(uint64(uintptr(unsafe.Pointer(&nameBuf[0]))),
		dataPtr, uint64(len(data)), false, hdr[:])
	hypercall(CmdDumpFile, uintptr(unsafe.Pointer(&hdr[0])))
	runtime.KeepAlive(nameBuf)
	runtime.KeepAlive(data)
}

func nullTerminated(b []byte) []byte {
	if n := len(b); n != 0 && b[n-1] == 0 {
		return b
	}
	return append(b, 0)
}
