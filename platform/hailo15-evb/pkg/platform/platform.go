// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package platform

import (
	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/topology"
)

const (
	mailboxPhandle = 1
	clockPhandle   = 2
	resetPhandle   = 3
)

// Board is the built in description of the Hailo-15 EVB, used when no
// device tree is configured.
func Board() *topology.Board {
	return &topology.Board{
		Model: "hailo15-evb",
		Providers: []topology.Provider{
			{
				Device:     "mailbox@78002000",
				Driver:     topology.DriverPL320,
				Phandle:    mailboxPhandle,
				Base:       0x78002000,
				Size:       pl320.WindowSize,
				Cells:      map[string]int{"mbox": 3},
				OwnChannel: 0,
			},
			{Device: "protocol@14", Driver: topology.DriverSCMIAgent, Phandle: clockPhandle, Base: 0x14, Cells: map[string]int{"clk": 1}},
			{Device: "protocol@16", Driver: topology.DriverSCMIAgent, Phandle: resetPhandle, Base: 0x16, Cells: map[string]int{"reset": 1}},
		},
		Clients: []topology.Client{
			{Device: "/", Resets: []topology.Ref{{Name: "system-reset", Phandle: resetPhandle, Args: []uint32{0}}}},
			{Device: "scmi", Mboxes: []topology.Ref{{Name: "scmi", Phandle: mailboxPhandle, Args: []uint32{1, 1, 0}}}},
			{
				Device: "ethernet@1b5000",
				Resets: []topology.Ref{{Name: "eth-reset", Phandle: resetPhandle, Args: []uint32{3}}},
				Clocks: []topology.Ref{{Name: "eth-clk", Phandle: clockPhandle, Args: []uint32{11}}},
			},
			{Device: "sdio@78001000", Clocks: []topology.Ref{{Name: "sdio0-clk", Phandle: clockPhandle, Args: []uint32{20}}}},
		},
		Agent: &topology.Agent{
			Device:          "scmi",
			FirmwareVersion: 0x00010001,
			ShmemBase:       0x60000000,
			ShmemSize:       0x80,
		},
	}
}

type platform struct{}

func (p *platform) Board() (*topology.Board, error) {
	return Board(), nil
}

func (p *platform) Memory(b *topology.Board) (pl320.MemProvider, error) {
	return topology.OpenHostMemory(b)
}

func Platform() *platform {
	return &platform{}
}
