// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

// Wire payloads. Every struct is encoded little endian with
// encoding/binary, field by field, so the Go layout never adds padding.
// The status word that leads every response is handled by the agent and
// is not part of these structs.

// VersionOut answers PROTOCOL_VERSION and DISCOVER_IMPLEMENTATION_VERSION.
type VersionOut struct {
	Version uint32
}

// VendorOut answers DISCOVER_VENDOR.
type VendorOut struct {
	Vendor [16]byte
}

// EthernetDelay configures the RGMII clock delay lines.
type EthernetDelay struct {
	TxBypassClockDelay uint8
	TxClockInversion   uint8
	TxClockDelay       uint8
	RxBypassClockDelay uint8
	RxClockInversion   uint8
	RxClockDelay       uint8
}

// BootInfo answers the hailo GET_BOOT_INFO command.
type BootInfo struct {
	// BootOffset selects the A (zero) or B (non-zero) boot image set.
	BootOffset uint32
}

// ResetIn is the RESET command of the reset protocol.
type ResetIn struct {
	DomainID   uint32
	Flags      uint32
	ResetState uint32
}

// Reset flags.
const (
	ResetAutonomous     = 1 << 0
	ResetExplicitAssert = 1 << 1
	ResetAsync          = 1 << 2
)

// ClockConfigSetIn is the CLOCK_CONFIG_SET command of the clock protocol.
type ClockConfigSetIn struct {
	ClockID    uint32
	Attributes uint32
}

// ClockEnable is the enable bit of ClockConfigSetIn.Attributes.
const ClockEnable = 1 << 0
