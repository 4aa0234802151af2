// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scmi implements the agent side of the Arm System Control and
// Management Interface over a PL320 mailbox channel and a shared memory
// area, plus the base, reset, clock and hailo vendor commands.
package scmi

import "fmt"

// ProtocolID names a command family.
type ProtocolID uint8

const (
	ProtocolBase  ProtocolID = 0x10
	ProtocolClock ProtocolID = 0x14
	ProtocolReset ProtocolID = 0x16
	ProtocolHailo ProtocolID = 0x81
)

var protocolNames = map[ProtocolID]string{
	ProtocolBase:  "base",
	ProtocolClock: "clock",
	ProtocolReset: "reset",
	ProtocolHailo: "hailo",
}

func (p ProtocolID) String() string {
	if n, ok := protocolNames[p]; ok {
		return n
	}
	return fmt.Sprintf("protocol(%#x)", uint8(p))
}

// MessageID is a command within a protocol.
type MessageID uint8

// Messages common to every protocol.
const (
	MsgProtocolVersion MessageID = 0x0
)

// Base protocol messages.
const (
	MsgBaseDiscoverVendor                MessageID = 0x3
	MsgBaseDiscoverImplementationVersion MessageID = 0x5
)

// Clock protocol messages.
const (
	MsgClockConfigSet MessageID = 0x7
)

// Reset protocol messages.
const (
	MsgReset MessageID = 0x4
)

// Hailo vendor protocol messages.
const (
	MsgHailoConfigureEthDelay MessageID = 0x4
	MsgHailoSetEthRmiiMode    MessageID = 0x5
	MsgHailoGetBootInfo       MessageID = 0x6
)

// MessageType is the kind of message carried in a header.
type MessageType uint8

const (
	TypeCommand      MessageType = 0
	TypeDelayedReply MessageType = 2
	TypeNotification MessageType = 3
)

const (
	headerIDMask     = 0xff
	headerTypeShift  = 8
	headerTypeMask   = 0x3
	headerProtoShift = 10
	headerProtoMask  = 0xff
	headerTokenShift = 18
	headerTokenMask  = 0x3ff
	maxToken         = headerTokenMask
)

// Header is the first word of every message.
type Header struct {
	ID       MessageID
	Type     MessageType
	Protocol ProtocolID
	Token    uint16
}

// Pack encodes h as it travels on the wire.
func (h Header) Pack() uint32 {
	return uint32(h.ID)&headerIDMask |
		(uint32(h.Type)&headerTypeMask)<<headerTypeShift |
		(uint32(h.Protocol)&headerProtoMask)<<headerProtoShift |
		(uint32(h.Token)&headerTokenMask)<<headerTokenShift
}

// UnpackHeader decodes a wire header.
func UnpackHeader(v uint32) Header {
	return Header{
		ID:       MessageID(v & headerIDMask),
		Type:     MessageType(v >> headerTypeShift & headerTypeMask),
		Protocol: ProtocolID(v >> headerProtoShift & headerProtoMask),
		Token:    uint16(v >> headerTokenShift & headerTokenMask),
	}
}

func (h Header) String() string {
	return fmt.Sprintf("%v msg %#x token %d", h.Protocol, uint8(h.ID), h.Token)
}
