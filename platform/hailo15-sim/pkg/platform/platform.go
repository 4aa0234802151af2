// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform runs the boot handshake against a simulated SCU, for
// development on a host without the hardware.
package platform

import (
	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/hardware/pl320/pl320sim"
	"github.com/u-root/u-scmi/pkg/ipcerr"
	"github.com/u-root/u-scmi/pkg/scmi"
	"github.com/u-root/u-scmi/pkg/scmi/scmisim"
	"github.com/u-root/u-scmi/pkg/topology"
)

const (
	mailboxBase = 0x78002000
	shmemBase   = 0x60000000
	shmemSize   = 0x80
	// FirmwareVersion is both expected and reported unless overridden.
	FirmwareVersion = 0x00010001
)

func board() *topology.Board {
	return &topology.Board{
		Model: "hailo15-sim",
		Providers: []topology.Provider{
			{Device: "mailbox@78002000", Driver: topology.DriverPL320, Phandle: 1, Base: mailboxBase, Size: pl320.WindowSize, Cells: map[string]int{"mbox": 3}},
			{Device: "protocol@14", Driver: topology.DriverSCMIAgent, Phandle: 2, Base: 0x14, Cells: map[string]int{"clk": 1}},
			{Device: "protocol@16", Driver: topology.DriverSCMIAgent, Phandle: 3, Base: 0x16, Cells: map[string]int{"reset": 1}},
		},
		Clients: []topology.Client{
			{Device: "/", Resets: []topology.Ref{{Name: "system-reset", Phandle: 3, Args: []uint32{0}}}},
			{Device: "scmi", Mboxes: []topology.Ref{{Name: "scmi", Phandle: 1, Args: []uint32{1, 1, 0}}}},
			{
				Device: "ethernet@1b5000",
				Mboxes: []topology.Ref{{Name: "eth0", Phandle: 1, Args: []uint32{6, 1, 2}}},
				Resets: []topology.Ref{{Name: "eth-reset", Phandle: 3, Args: []uint32{3}}},
				Clocks: []topology.Ref{{Name: "eth-clk", Phandle: 2, Args: []uint32{11}}},
			},
		},
		Agent: &topology.Agent{Device: "scmi", FirmwareVersion: FirmwareVersion, ShmemBase: shmemBase, ShmemSize: shmemSize},
	}
}

// Platform is the simulated board.
type Platform struct {
	sim *pl320sim.Sim
	scu *scmisim.Platform
}

// New builds the simulated mailbox and an SCU reporting fw.
func New(fw scmisim.Firmware) (*Platform, error) {
	sim := pl320sim.New(mailboxBase)
	shm, err := scmi.NewSharedMemory(sim, shmemBase, shmemSize)
	if err != nil {
		return nil, err
	}
	b := board()
	ref, err := b.LookupClient(topology.Mailbox, b.Agent.Device, "")
	if err != nil {
		return nil, err
	}
	desc, err := pl320.ParseDescriptor(ref.Args)
	if err != nil {
		return nil, err
	}
	if fw.Vendor == "" {
		fw.Vendor = "hailo"
	}
	return &Platform{sim: sim, scu: scmisim.New(sim, shm, desc, uint(ref.Provider.OwnChannel), fw)}, nil
}

// SCU returns the simulated firmware.
func (p *Platform) SCU() *scmisim.Platform {
	return p.scu
}

func (p *Platform) Board() (*topology.Board, error) {
	return board(), nil
}

func (p *Platform) Memory(b *topology.Board) (pl320.MemProvider, error) {
	for _, w := range b.Windows(0) {
		if !p.covers(w) {
			return nil, ipcerr.Wrap("map", b.Model, ipcerr.ErrInvalidArgument)
		}
	}
	return p.sim, nil
}

// covers reports whether w lies in the simulated mailbox block or the
// shared memory area.
func (p *Platform) covers(w topology.Window) bool {
	in := func(base, size uint64) bool {
		return w.Base >= base && w.Base+w.Size <= base+size
	}
	return in(mailboxBase, pl320.WindowSize) || in(shmemBase, shmemSize)
}
