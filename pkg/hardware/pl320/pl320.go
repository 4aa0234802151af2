// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pl320 drives an ARM PL320 IPC mailbox block.
//
// A channel is a source mailbox owned by this agent's doorbell channel
// plus the destination channel and mailbox of the peer. Ownership of a
// source mailbox is arbitrated by the hardware: the SOURCE register only
// latches a value while it is zero, so a write followed by a readback tells
// whether another agent got there first.
package pl320

import (
	"fmt"

	"github.com/u-root/u-scmi/pkg/ipcerr"
	"github.com/u-root/u-scmi/pkg/logger"
	"github.com/u-root/u-scmi/pkg/syncutil"
)

var log = logger.LogContainer.GetSimpleLogger()

// Controller is one PL320 block as seen from one doorbell channel.
type Controller struct {
	mem  MemProvider
	base uintptr
	own  uint

	mu   syncutil.Mutex
	used [MaxMailboxes]bool
	// held has bit m set while a channel of this controller owns mailbox m.
	held uint32
}

// NewController binds a controller to the register window at base. own is
// the doorbell channel of this agent.
func NewController(mem MemProvider, base uintptr, own uint) (*Controller, error) {
	if own >= MaxChannels {
		return nil, fmt.Errorf("own channel %d out of range [0, %d): %w", own, MaxChannels, ipcerr.ErrInvalidArgument)
	}
	return &Controller{mem: mem, base: base, own: own}, nil
}

// OwnChannel returns the doorbell channel of this agent.
func (c *Controller) OwnChannel() uint {
	return c.own
}

// Base returns the physical base address of the register block.
func (c *Controller) Base() uintptr {
	return c.base
}

func (c *Controller) read(off uintptr) uint32 {
	return c.mem.MustRead32(c.base + off)
}

func (c *Controller) write(off uintptr, v uint32) {
	c.mem.MustWrite32(c.base+off, v)
}

// Descriptor is the validated form of a <dstChannel dstMailbox srcMailbox>
// topology reference.
type Descriptor struct {
	DstChannel uint
	DstMailbox uint
	SrcMailbox uint
}

func (d Descriptor) String() string {
	return fmt.Sprintf("src mbox %d -> dst mbox %d chan %d", d.SrcMailbox, d.DstMailbox, d.DstChannel)
}

// ParseDescriptor validates the three reference cells against the block limits.
func ParseDescriptor(args []uint32) (Descriptor, error) {
	if len(args) != 3 {
		return Descriptor{}, fmt.Errorf("expected 3 cells, got %d: %w", len(args), ipcerr.ErrInvalidArgument)
	}
	d := Descriptor{DstChannel: uint(args[0]), DstMailbox: uint(args[1]), SrcMailbox: uint(args[2])}
	switch {
	case d.DstChannel >= MaxChannels:
		return Descriptor{}, fmt.Errorf("destination channel %d out of range: %w", d.DstChannel, ipcerr.ErrInvalidArgument)
	case d.DstMailbox >= MaxMailboxes:
		return Descriptor{}, fmt.Errorf("destination mailbox %d out of range: %w", d.DstMailbox, ipcerr.ErrInvalidArgument)
	case d.SrcMailbox >= MaxMailboxes:
		return Descriptor{}, fmt.Errorf("source mailbox %d out of range: %w", d.SrcMailbox, ipcerr.ErrInvalidArgument)
	}
	return d, nil
}

// Xlate resolves a topology reference into an unacquired channel. No
// register is touched. Every call returns a new handle, which holds a
// descriptor slot until Free.
func (c *Controller) Xlate(name string, args []uint32) (*Channel, error) {
	d, err := ParseDescriptor(args)
	if err != nil {
		return nil, ipcerr.Wrap("xlate", name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.used {
		if c.used[i] {
			continue
		}
		c.used[i] = true
		return &Channel{c: c, idx: i, name: name, desc: d}, nil
	}
	return nil, ipcerr.Wrap("xlate", name, ipcerr.ErrAllocation)
}

// Do acquires ch, runs fn and releases ch on every path.
func (c *Controller) Do(ch *Channel, fn func(*Channel) error) (err error) {
	if ch.c != c {
		return ipcerr.Wrap("do", ch.name, ipcerr.ErrInvalidArgument)
	}
	if err := ch.Acquire(); err != nil {
		return err
	}
	defer func() {
		if rerr := ch.Release(); err == nil {
			err = rerr
		}
	}()
	return fn(ch)
}

// Dump returns the SOURCE, DSTATUS, MSTATUS and SEND registers of mailbox m.
func (c *Controller) Dump(m uint) (source, dstatus, mstatus, send uint32) {
	return c.read(SourceReg(m)), c.read(DStatusReg(m)), c.read(MStatusReg(m)), c.read(SendReg(m))
}
