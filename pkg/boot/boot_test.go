// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-root/u-scmi/config"
	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/hardware/pl320/pl320sim"
	"github.com/u-root/u-scmi/pkg/ipcerr"
	"github.com/u-root/u-scmi/pkg/scmi"
	"github.com/u-root/u-scmi/pkg/scmi/scmisim"
	"github.com/u-root/u-scmi/pkg/topology"
)

const (
	mboxBase = 0x78002000
	shmBase  = 0x60000000
)

func testBoard() *topology.Board {
	return &topology.Board{
		Model: "sim",
		Providers: []topology.Provider{
			{Device: "mailbox@78002000", Driver: topology.DriverPL320, Phandle: 1, Base: mboxBase, Size: pl320.WindowSize, Cells: map[string]int{"mbox": 3}},
			{Device: "protocol@16", Driver: topology.DriverSCMIAgent, Phandle: 2, Base: 0x16, Cells: map[string]int{"reset": 1}},
		},
		Clients: []topology.Client{
			{Device: "scmi", Mboxes: []topology.Ref{{Name: "scmi", Phandle: 1, Args: []uint32{1, 1, 0}}}},
			{Device: "/", Resets: []topology.Ref{{Name: "system-reset", Phandle: 2, Args: []uint32{0}}}},
		},
		Agent: &topology.Agent{Device: "scmi", FirmwareVersion: 0x00010001, ShmemBase: shmBase, ShmemSize: 0x80},
	}
}

type fakePlatform struct {
	board  *topology.Board
	sim    *pl320sim.Sim
	scu    *scmisim.Platform
	memErr error
}

func newFakePlatform(t *testing.T, fw scmisim.Firmware) *fakePlatform {
	t.Helper()
	sim := pl320sim.New(mboxBase)
	shm, err := scmi.NewSharedMemory(sim, shmBase, 0x80)
	require.NoError(t, err)
	scu := scmisim.New(sim, shm, pl320.Descriptor{DstChannel: 1, DstMailbox: 1, SrcMailbox: 0}, 0, fw)
	return &fakePlatform{board: testBoard(), sim: sim, scu: scu}
}

func (p *fakePlatform) Board() (*topology.Board, error) {
	return p.board, nil
}

func (p *fakePlatform) Memory(*topology.Board) (pl320.MemProvider, error) {
	if p.memErr != nil {
		return nil, p.memErr
	}
	return p.sim, nil
}

func testConfig() *config.Config {
	c := *config.DefaultConfig
	c.Mailbox = config.Mailbox{PollRetries: 10, PollInterval: time.Microsecond, PollMax: time.Microsecond}
	return &c
}

func TestRunImageSetA(t *testing.T) {
	p := newFakePlatform(t, scmisim.Firmware{Version: 0x00010001})
	conf := testConfig()
	plan, err := Run(context.Background(), p, conf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00010001), plan.FirmwareVersion)
	assert.Equal(t, conf.Boot.A, plan.Partition)
	assert.Equal(t, conf.Boot.EnvBase, plan.EnvOffset)
	assert.Equal(t, "mmc12", plan.Source)
	assert.Equal(t, []Device{DeviceMMC1, DeviceMMC2}, plan.Order)
	assert.Equal(t, uint32(0), p.sim.Source(0), "agent channel left owned")

	reqs := p.scu.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, scmi.MsgBaseDiscoverImplementationVersion, reqs[0].Header.ID)
	assert.Equal(t, scmi.MsgHailoGetBootInfo, reqs[1].Header.ID)
}

func TestRunImageSetB(t *testing.T) {
	p := newFakePlatform(t, scmisim.Firmware{Version: 0x00010001, BootOffset: 0x800000})
	conf := testConfig()
	conf.Boot.Source = "mmc21"
	conf.Ethernet = &config.Ethernet{Rmii: true, TxClockDelay: 2, RxBypassClockDelay: 1}
	plan, err := Run(context.Background(), p, conf)
	require.NoError(t, err)
	assert.Equal(t, conf.Boot.B, plan.Partition)
	assert.Equal(t, conf.Boot.EnvBase+0x800000, plan.EnvOffset)
	assert.Equal(t, []Device{DeviceMMC2, DeviceMMC1}, plan.Order)

	d, ok := p.scu.EthernetDelay()
	require.True(t, ok)
	assert.Equal(t, scmi.EthernetDelay{TxClockDelay: 2, RxBypassClockDelay: 1}, d)
	assert.True(t, p.scu.RmiiMode())
}

func TestRunVersionMismatch(t *testing.T) {
	p := newFakePlatform(t, scmisim.Firmware{Version: 0x00010002})
	_, err := Run(context.Background(), p, testConfig())
	require.Error(t, err)
	var he *HaltError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, StageVersion, he.Stage)
	assert.True(t, errors.Is(err, ipcerr.ErrVersionMismatch))
	assert.True(t, ipcerr.IsFatal(err))
	assert.Contains(t, err.Error(), "expected=0x10001, actual=0x10002")
	assert.Len(t, p.scu.Requests(), 1, "boot continued past the version gate")
	assert.Equal(t, uint32(0), p.sim.Source(0))
}

func TestRunHalts(t *testing.T) {
	for name, c := range map[string]struct {
		setup func(*fakePlatform)
		stage string
	}{
		"no agent": {
			setup: func(p *fakePlatform) { p.board.Agent = nil },
			stage: StageAgent,
		},
		"memory": {
			setup: func(p *fakePlatform) { p.memErr = errors.New("no /dev/mem") },
			stage: StageMemory,
		},
		"bad topology": {
			setup: func(p *fakePlatform) { p.board.Clients[0].Mboxes[0].Args = []uint32{1, 1} },
			stage: StageTopology,
		},
		"scu silent": {
			setup: func(p *fakePlatform) { p.scu.SetSilent(true) },
			stage: StageVersion,
		},
		"boot info rejected": {
			setup: func(p *fakePlatform) {
				p.scu.SetStatus(scmi.ProtocolHailo, scmi.MsgHailoGetBootInfo, scmi.StatusGenericError)
			},
			stage: StageBootInfo,
		},
		"mailbox owned": {
			setup: func(p *fakePlatform) { p.sim.MustWrite32(mboxBase, 1<<3) },
			stage: StageAgent,
		},
	} {
		t.Run(name, func(t *testing.T) {
			p := newFakePlatform(t, scmisim.Firmware{Version: 0x00010001})
			c.setup(p)
			_, err := Run(context.Background(), p, testConfig())
			var he *HaltError
			require.True(t, errors.As(err, &he), "got %v", err)
			assert.Equal(t, c.stage, he.Stage)
		})
	}
}

func TestSelectPartition(t *testing.T) {
	b := config.DefaultConfig.Boot
	assert.Equal(t, b.A, SelectPartition(scmi.BootInfo{}, b))
	assert.Equal(t, b.B, SelectPartition(scmi.BootInfo{BootOffset: 1}, b))
	assert.Equal(t, b.B, SelectPartition(scmi.BootInfo{BootOffset: 0xffffffff}, b))
	assert.Equal(t, uint64(0x1ffffffff), EnvOffset(0x100000000, scmi.BootInfo{BootOffset: 0xffffffff}))
}

func TestParseBootSource(t *testing.T) {
	for _, c := range []struct {
		in    string
		used  string
		order []Device
	}{
		{"mmc1", "mmc1", []Device{DeviceMMC1}},
		{"mmc2", "mmc2", []Device{DeviceMMC2}},
		{"mmc12", "mmc12", []Device{DeviceMMC1, DeviceMMC2}},
		{"mmc21", "mmc21", []Device{DeviceMMC2, DeviceMMC1}},
		{"uart", "uart", []Device{DeviceUART}},
		{"", "mmc12", []Device{DeviceMMC1, DeviceMMC2}},
		{"nand", "mmc12", []Device{DeviceMMC1, DeviceMMC2}},
	} {
		used, order := ParseBootSource(c.in)
		assert.Equal(t, c.used, used, c.in)
		assert.Equal(t, c.order, order, c.in)
	}
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, CheckVersion(0x00010001, 0x00010001))
	assert.True(t, errors.Is(CheckVersion(0x00010002, 0x00010001), ipcerr.ErrVersionMismatch))
}

func TestSystemReset(t *testing.T) {
	p := newFakePlatform(t, scmisim.Firmware{})
	a, err := OpenAgent(topology.NewResolver(p.board, p.sim), p.sim, testConfig().Mailbox)
	require.NoError(t, err)
	defer a.Channel().Free()
	require.NoError(t, SystemReset(context.Background(), p.board, a))
	assert.True(t, p.scu.ResetAsserted(0))

	p.board.Clients[1].Resets = nil
	assert.True(t, errors.Is(SystemReset(context.Background(), p.board, a), ipcerr.ErrInvalidArgument))
}
