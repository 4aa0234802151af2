// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pl320

const (
	// MaxChannels is the number of doorbell channels of a PL320 block.
	MaxChannels = 8
	// MaxMailboxes is the number of mailbox slots of a PL320 block.
	MaxMailboxes = 16
	// DataRegisters is the number of data words per mailbox.
	DataRegisters = 7

	// MaxSendRetries bounds poll loops built on Receive. The transport
	// itself never retries.
	MaxSendRetries = 1000000

	// WindowSize covers every mailbox and interrupt register.
	WindowSize = 0x1000
)

// SEND register command codes.
const (
	SendClear       uint32 = 0
	SendDestination uint32 = 1
	SendSource      uint32 = 2
)

const (
	mboxStride = 0x40

	regSource  = 0x00
	regDSet    = 0x04
	regDClear  = 0x08
	regDStatus = 0x0c
	regMode    = 0x10
	regMSet    = 0x14
	regMClear  = 0x18
	regMStatus = 0x1c
	regSend    = 0x20
	regData    = 0x24

	regIrqBase   = 0x800
	regIrqStride = 8
	regMIS       = 0x0
	regRIS       = 0x4
)

// Mailbox register offsets relative to the controller base.
func SourceReg(m uint) uintptr  { return uintptr(m)*mboxStride + regSource }
func DSetReg(m uint) uintptr    { return uintptr(m)*mboxStride + regDSet }
func DClearReg(m uint) uintptr  { return uintptr(m)*mboxStride + regDClear }
func DStatusReg(m uint) uintptr { return uintptr(m)*mboxStride + regDStatus }
func ModeReg(m uint) uintptr    { return uintptr(m)*mboxStride + regMode }
func MSetReg(m uint) uintptr    { return uintptr(m)*mboxStride + regMSet }
func MClearReg(m uint) uintptr  { return uintptr(m)*mboxStride + regMClear }
func MStatusReg(m uint) uintptr { return uintptr(m)*mboxStride + regMStatus }
func SendReg(m uint) uintptr    { return uintptr(m)*mboxStride + regSend }

// DataReg is data word n of mailbox m.
func DataReg(m, n uint) uintptr { return uintptr(m)*mboxStride + uintptr(n)*4 + regData }

// Interrupt status offsets for doorbell channel c.
func MaskedIrqReg(c uint) uintptr { return uintptr(c)*regIrqStride + regIrqBase + regMIS }
func RawIrqReg(c uint) uintptr    { return uintptr(c)*regIrqStride + regIrqBase + regRIS }

func mboxMask(m uint) uint32 { return 1 << m }
func chanMask(c uint) uint32 { return 1 << c }
