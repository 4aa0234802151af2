// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import (
	"encoding/binary"
	"fmt"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/ipcerr"
)

// Shared memory transport layout.
const (
	smtChannelStatus = 0x04
	smtFlags         = 0x10
	smtLength        = 0x14
	smtMsgHeader     = 0x18
	smtPayload       = 0x1c

	// SMTHeaderSize is the space taken before the payload.
	SMTHeaderSize = smtPayload

	smtStatusFree  = 1 << 0
	smtStatusError = 1 << 1
	smtFlagIntr    = 1 << 0
)

// SharedMemory is the message area shared with the platform firmware.
// The agent writes a request into it, rings the doorbell and reads the
// response from the same place once the platform marks it free again.
type SharedMemory struct {
	mem  pl320.MemProvider
	base uintptr
	size uintptr
}

// NewSharedMemory describes size bytes at base. Both must be word aligned.
func NewSharedMemory(mem pl320.MemProvider, base, size uintptr) (*SharedMemory, error) {
	if base%4 != 0 || size%4 != 0 || size < SMTHeaderSize+4 {
		return nil, fmt.Errorf("shared memory %#x+%#x: %w", base, size, ipcerr.ErrInvalidArgument)
	}
	return &SharedMemory{mem: mem, base: base, size: size}, nil
}

// Capacity is the largest payload the area holds.
func (s *SharedMemory) Capacity() int {
	return int(s.size - SMTHeaderSize)
}

func (s *SharedMemory) read(off uintptr) uint32 {
	return s.mem.MustRead32(s.base + off)
}

func (s *SharedMemory) write(off uintptr, v uint32) {
	s.mem.MustWrite32(s.base+off, v)
}

func (s *SharedMemory) writePayload(p []byte) {
	var w [4]byte
	for off := 0; off < len(p); off += 4 {
		w = [4]byte{}
		copy(w[:], p[off:])
		s.write(smtPayload+uintptr(off), binary.LittleEndian.Uint32(w[:]))
	}
}

func (s *SharedMemory) readPayload(n int) []byte {
	p := make([]byte, (n+3)&^3)
	for off := 0; off < n; off += 4 {
		binary.LittleEndian.PutUint32(p[off:], s.read(smtPayload+uintptr(off)))
	}
	return p[:n]
}

// WriteRequest places a request. The area must be free and payload must fit.
func (s *SharedMemory) WriteRequest(h Header, payload []byte) error {
	if len(payload) > s.Capacity() {
		return fmt.Errorf("request of %d bytes exceeds %d: %w", len(payload), s.Capacity(), ipcerr.ErrInvalidArgument)
	}
	st := s.read(smtChannelStatus)
	if st&smtStatusFree == 0 {
		return fmt.Errorf("shared memory still owned by platform: %w", ipcerr.ErrResourceBusy)
	}
	s.write(smtChannelStatus, st&^(smtStatusFree|smtStatusError))
	// Completion is polled, the platform must not raise a completion interrupt.
	s.write(smtFlags, 0)
	s.write(smtLength, uint32(4+len(payload)))
	s.write(smtMsgHeader, h.Pack())
	s.writePayload(payload)
	return nil
}

// ReadResponse fetches a response of at most limit payload bytes.
func (s *SharedMemory) ReadResponse(limit int) (Header, []byte, error) {
	st := s.read(smtChannelStatus)
	if st&smtStatusFree == 0 {
		return Header{}, nil, fmt.Errorf("response not released by platform: %w", ipcerr.ErrNoData)
	}
	if st&smtStatusError != 0 {
		return Header{}, nil, &StatusError{Status: StatusCommsError}
	}
	l := int(s.read(smtLength))
	if l < 4 || l-4 > limit || l-4 > s.Capacity() {
		return Header{}, nil, fmt.Errorf("response length %d for %d byte buffer: %w", l, limit, ipcerr.ErrInvalidArgument)
	}
	h := UnpackHeader(s.read(smtMsgHeader))
	return h, s.readPayload(l - 4), nil
}

// Clear drops a latched channel error before the next message.
func (s *SharedMemory) Clear() {
	s.write(smtChannelStatus, s.read(smtChannelStatus)&^smtStatusError)
}

// Reset marks the area free, as the platform does at boot.
func (s *SharedMemory) Reset() {
	s.write(smtChannelStatus, smtStatusFree)
}

// ReadRequest is the platform side of WriteRequest.
func (s *SharedMemory) ReadRequest() (Header, []byte, error) {
	st := s.read(smtChannelStatus)
	if st&smtStatusFree != 0 {
		return Header{}, nil, fmt.Errorf("no request pending: %w", ipcerr.ErrNoData)
	}
	l := int(s.read(smtLength))
	if l < 4 || l-4 > s.Capacity() {
		return Header{}, nil, fmt.Errorf("request length %d: %w", l, ipcerr.ErrInvalidArgument)
	}
	return UnpackHeader(s.read(smtMsgHeader)), s.readPayload(l - 4), nil
}

// WriteResponse is the platform side of ReadResponse. A failed response
// sets the channel error bit instead of carrying a payload.
func (s *SharedMemory) WriteResponse(h Header, payload []byte, failed bool) error {
	if len(payload) > s.Capacity() {
		return fmt.Errorf("response of %d bytes exceeds %d: %w", len(payload), s.Capacity(), ipcerr.ErrInvalidArgument)
	}
	st := uint32(smtStatusFree)
	if failed {
		st |= smtStatusError
	} else {
		s.write(smtLength, uint32(4+len(payload)))
		s.write(smtMsgHeader, h.Pack())
		s.writePayload(payload)
	}
	s.write(smtChannelStatus, st)
	return nil
}

// InterruptRequested reports whether the agent asked for a completion interrupt.
func (s *SharedMemory) InterruptRequested() bool {
	return s.read(smtFlags)&smtFlagIntr != 0
}
