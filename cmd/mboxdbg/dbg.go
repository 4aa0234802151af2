// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/u-root/u-scmi/config"
	"github.com/u-root/u-scmi/pkg/boot"
	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/ipcerr"
	"github.com/u-root/u-scmi/pkg/logger"
	"github.com/u-root/u-scmi/pkg/scmi"
	"github.com/u-root/u-scmi/pkg/topology"
)

var log = logger.LogContainer.GetSimpleLogger()

// testPattern is written to data register 0 by mbox-send-test.
const testPattern = 0xaaff9955

const (
	exitOK    = 0
	exitUsage = 2
)

const tableRow = "%-20s %-20s %-20s %-20s\n"

type debugger struct {
	out   io.Writer
	board *topology.Board
	mem   pl320.MemProvider
	res   *topology.Resolver
	poll  config.Mailbox
	agent *scmi.Agent
}

func newDebugger(out io.Writer, b *topology.Board, mem pl320.MemProvider, poll config.Mailbox) *debugger {
	return &debugger{out: out, board: b, mem: mem, res: topology.NewResolver(b, mem), poll: poll}
}

func (d *debugger) Close() {
	if d.agent != nil {
		d.agent.Channel().Free()
		d.agent = nil
	}
}

func (d *debugger) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return exitUsage
	}
	switch {
	case args[0] == "mbox-list" && len(args) == 1:
		d.list(topology.Mailbox)
	case args[0] == "mbox-send-test" && len(args) == 2:
		d.sendTest(args[1])
	case args[0] == "reset-list" && len(args) == 1:
		d.list(topology.Reset)
	case args[0] == "reset-assert" && len(args) == 2:
		d.reset(ctx, args[1], true)
	case args[0] == "reset-deassert" && len(args) == 2:
		d.reset(ctx, args[1], false)
	case args[0] == "clk-list" && len(args) == 1:
		d.list(topology.Clock)
	case args[0] == "clk-start" && len(args) == 2:
		d.clock(ctx, args[1], true)
	case args[0] == "clk-stop" && len(args) == 2:
		d.clock(ctx, args[1], false)
	default:
		return exitUsage
	}
	return exitOK
}

func (d *debugger) list(k topology.Kind) {
	sep := "--------------------"
	fmt.Fprintf(d.out, tableRow, "client name", "client device", "phandle device", "phandle driver")
	fmt.Fprintf(d.out, tableRow, sep, sep, sep, sep)
	refs, err := d.board.References(k)
	if err != nil {
		fmt.Fprintf(d.out, "list %s clients: %v\n", k, err)
		return
	}
	for _, r := range refs {
		fmt.Fprintf(d.out, tableRow, r.Name, r.Client.Device, r.Provider.Device, r.Provider.DriverName(k))
	}
}

func (d *debugger) sendTest(name string) {
	ref, err := d.board.Lookup(topology.Mailbox, name)
	if err != nil {
		fmt.Fprintf(d.out, "mbox channel %s: not exist\n", name)
		return
	}
	ch, err := d.res.Channel(ref)
	if err != nil {
		fmt.Fprintf(d.out, "mbox channel %s test: failed to get a reference to channel object, ret[%d]\n", name, ipcerr.Code(err))
		return
	}
	if err := ch.Acquire(); err != nil {
		ch.Free()
		fmt.Fprintf(d.out, "mbox channel %s test: failed on acquire, ret[%d]\n", name, ipcerr.Code(err))
		return
	}
	err = ch.WriteData(0, testPattern)
	if err == nil {
		err = ch.Send()
	}
	if err != nil {
		ch.Free()
		fmt.Fprintf(d.out, "mbox channel %s test: failed on send, ret[%d]\n", name, ipcerr.Code(err))
		return
	}
	if err := ch.Free(); err != nil {
		fmt.Fprintf(d.out, "mbox channel %s test: failed on free channel object, ret[%d]\n", name, ipcerr.Code(err))
		return
	}
	fmt.Fprintf(d.out, "mbox channel %s test: pass\n", name)
}

// scmiTarget resolves a reset or clock reference served by an SCMI
// protocol node into its domain id.
func (d *debugger) scmiTarget(k topology.Kind, name string) (uint32, error) {
	ref, err := d.board.Lookup(k, name)
	if err != nil {
		return 0, err
	}
	if ref.Provider.Driver != topology.DriverSCMIAgent || len(ref.Args) == 0 {
		return 0, fmt.Errorf("%s is not an scmi %s provider: %w", ref.Provider.Device, k, ipcerr.ErrInvalidArgument)
	}
	return ref.Args[0], nil
}

func (d *debugger) withAgent(fn func(*scmi.Agent) error) error {
	if d.agent == nil {
		a, err := boot.OpenAgent(d.res, d.mem, d.poll)
		if err != nil {
			return err
		}
		d.agent = a
	}
	return d.agent.Do(fn)
}

func (d *debugger) reset(ctx context.Context, name string, assert bool) {
	id, err := d.scmiTarget(topology.Reset, name)
	if err != nil {
		fmt.Fprintf(d.out, "Reset client %s: not exist\n", name)
		return
	}
	op := "reset de-assert"
	if assert {
		op = "reset assert"
	}
	fmt.Fprintf(d.out, "Client %s: %s\n", name, op)
	err = d.withAgent(func(a *scmi.Agent) error {
		if assert {
			return a.AssertReset(ctx, id)
		}
		return a.DeassertReset(ctx, id)
	})
	if err != nil {
		log.Warnf("%s %s: %v", op, name, err)
		fmt.Fprintf(d.out, "Client %s: %s, failed. ret[%d]\n", name, op, ipcerr.Code(err))
	}
}

func (d *debugger) clock(ctx context.Context, name string, start bool) {
	id, err := d.scmiTarget(topology.Clock, name)
	if err != nil {
		fmt.Fprintf(d.out, "Clock client %s: not exist\n", name)
		return
	}
	op := "clock stop"
	if start {
		op = "clock start"
	}
	fmt.Fprintf(d.out, "Client %s: %s\n", name, op)
	err = d.withAgent(func(a *scmi.Agent) error {
		if start {
			return a.EnableClock(ctx, id)
		}
		return a.DisableClock(ctx, id)
	})
	if err != nil {
		log.Warnf("%s %s: %v", op, name, err)
		fmt.Fprintf(d.out, "Client %s: %s, failed. ret[%d]\n", name, op, ipcerr.Code(err))
	}
}
