// Copyright 2025 fuzzamoto project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package nyx

import (
	"encoding/binary"
)

// Wire sizes of the handshake records. The C structs on the host side are
// packed, so uint64 fields are not naturally aligned and we marshal by hand
// instead of casting.
const (
	hostConfigSize  = 24
	agentConfigSize = 37
	dumpFileHdrSize = 25
)

func decodeHostConfig(buf []byte) HostConfig {
	return HostConfig{
		HostMagic:         binary.LittleEndian.Uint32(buf[0:]),
		HostVersion:       binary.LittleEndian.Uint32(buf[4:]),
		BitmapSize:        binary.LittleEndian.Uint32(buf[8:]),
		IjonBitmapSize:    binary.LittleEndian.Uint32(buf[12:]),
		PayloadBufferSize: binary.LittleEndian.Uint32(buf[16:]),
		WorkerID:          binary.LittleEndian.Uint32(buf[20:]),
	}
}

func encodeAgentConfig(cfg *AgentConfig, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], cfg.AgentMagic)
	binary.LittleEndian.PutUint32(buf[4:], cfg.AgentVersion)
	buf[8] = cfg.AgentTimeoutDetection
	buf[9] = cfg.AgentTracing
	buf[10] = cfg.AgentIjonTracing
	buf[11] = cfg.AgentNonReloadMode
	binary.LittleEndian.PutUint64(buf[12:], cfg.TraceBufferVaddr)
	binary.LittleEndian.PutUint64(buf[20:], cfg.IjonTraceBufferVaddr)
	binary.LittleEndian.PutUint32(buf[28:], cfg.CoverageBitmapSize)
	binary.LittleEndian.PutUint32(buf[32:], cfg.InputBufferSize)
	buf[36] = cfg.DumpPayloads
}

func encodeDumpFileHdr(namePtr, dataPtr, size uint64, appendMode bool, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:], namePtr)
	binary.LittleEndian.PutUint64(buf[8:], dataPtr)
	binary.LittleEndian.PutUint64(buf[16:], size)
	buf[24] = 0
	if appendMode {
		buf[24] = 1
	}
}

// PayloadHdrSize is the size of the length prefix the host writes at the
// start of the payload buffer: a u32 size field followed by size bytes of data.
const PayloadHdrSize = 4

// ParsePayload splits a host-written payload buffer into its declared length
// and data. The declared length is clamped to what the buffer can actually
// hold, a hostile/oversized size field must not read out of bounds.
func ParsePayload(buf []byte) []byte {
	if len(buf) < PayloadHdrSize {
		return nil
	}
	size := int(binary.LittleEndian.Uint32(buf))
	if max := len(buf) - PayloadHdrSize; size > max {
		size = max
	}
	return buf[PayloadHdrSize : PayloadHdrSize+size]
}

// PutPayload writes the length prefix and data into buf the way the host
// does. Used by tests and the local reproduction runner.
func PutPayload(buf, data []byte) {
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[PayloadHdrSize:], data)
}
