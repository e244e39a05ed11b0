// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package nyx implements the agent side of the kAFL/Nyx control channel.
// Every call into the host is a synchronous hypercall that does not return
// until the host has acted (snapshot taken, state restored, etc.).
// There is no cancellation and no timeout on the agent side: scheduling of
// the next iteration is solely owned by the host.
package nyx

// Hypercall numbers understood by QEMU-Nyx.
const (
	HypercallRaxID = 0x1f // rax identifier tagging a vmcall as a kAFL hypercall

	CmdGetPayload      = 1
	CmdRelease         = 4
	CmdPanic           = 8
	CmdPrintf          = 13
	CmdUserSubmitMode  = 17
	CmdUserFastAcquire = 18
	CmdUserAbort       = 20
	CmdPanicExtended   = 32
	CmdGetHostConfig   = 35
	CmdSetAgentConfig  = 36
	CmdDumpFile        = 37
)

// Argument for CmdUserSubmitMode.
const (
	Mode64 = 0
	Mode32 = 1
)

// Magic/version constants exchanged during the handshake.
// Mismatch on either side means an incompatible QEMU-Nyx build and is fatal.
const (
	HostMagic    = 0x4878794e
	HostVersion  = 2
	AgentMagic   = 0x4178794e
	AgentVersion = 1
)

// HostConfig is the host-supplied half of the handshake.
// Read-only to the agent.
type HostConfig struct {
	HostMagic         uint32
	HostVersion       uint32
	BitmapSize        uint32
	IjonBitmapSize    uint32
	PayloadBufferSize uint32
	WorkerID          uint32
}

// AgentConfig is the agent-supplied half of the handshake.
// Constructed once, sent once, never mutated after.
type AgentConfig struct {
	AgentMagic            uint32
	AgentVersion          uint32
	AgentTimeoutDetection uint8
	AgentTracing          uint8
	AgentIjonTracing      uint8
	AgentNonReloadMode    uint8
	TraceBufferVaddr      uint64
	IjonTraceBufferVaddr  uint64
	CoverageBitmapSize    uint32
	InputBufferSize       uint32
	DumpPayloads          uint8
}

// Transport is the control channel into the host environment.
// The real implementation (RawTransport) issues vmcall instructions,
// tests substitute an in-process fake.
type Transport interface {
	// GetHostConfig requests the host configuration record.
	GetHostConfig() HostConfig
	// SetAgentConfig sends the agent configuration record.
	SetAgentConfig(cfg *AgentConfig)
	// RegisterPayload registers buf as the payload buffer the host writes
	// fuzz inputs into. buf must stay mapped for the rest of the process.
	RegisterPayload(buf []byte)
	// SubmitMode tells the host the execution mode of the snapshot (Mode64/Mode32).
	SubmitMode(mode uint64)
	// FastAcquire establishes the fast state-restore point. The first call
	// captures a full execution snapshot; on restore, control returns from
	// this very call.
	FastAcquire()
	// Release restores the snapshot. Does not return to the caller in a
	// meaningful way: execution resumes after FastAcquire.
	Release()
	// PanicExtended reports a crash with the given diagnostic text.
	PanicExtended(msg []byte)
	// Abort reports a fatal agent-side setup error and terminates execution.
	Abort(msg string)
	// Printf prints to the host's console (hprintf side channel).
	Printf(format string, args ...interface{})
	// DumpFile ships an artifact file to the host's working directory.
	DumpFile(name string, data []byte)
}
