// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pl320

import (
	"fmt"

	"github.com/u-root/u-scmi/pkg/ipcerr"
)

// State is the lifecycle position of a Channel.
type State int

const (
	Unacquired State = iota
	Acquired
	Sent
	Released
	Freed
)

var stateNames = map[State]string{
	Unacquired: "unacquired",
	Acquired:   "acquired",
	Sent:       "sent",
	Released:   "released",
	Freed:      "freed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Channel is a resolved mailbox channel. It is not safe for concurrent use.
type Channel struct {
	c     *Controller
	idx   int
	name  string
	desc  Descriptor
	state State
}

// Name is the client name the channel was resolved for.
func (ch *Channel) Name() string {
	return ch.name
}

// Descriptor returns the validated topology reference.
func (ch *Channel) Descriptor() Descriptor {
	return ch.desc
}

// State returns the current lifecycle state.
func (ch *Channel) State() State {
	return ch.state
}

func (ch *Channel) owned() bool {
	return ch.state == Acquired || ch.state == Sent
}

// Acquire claims the source mailbox. It fails with ipcerr.ErrResourceBusy
// when the SOURCE readback is anything but this agent's channel bit.
func (ch *Channel) Acquire() error {
	c := ch.c
	switch ch.state {
	case Unacquired, Released:
	default:
		return ipcerr.Wrap("acquire", ch.name, fmt.Errorf("channel %v: %w", ch.state, ipcerr.ErrInvalidArgument))
	}
	src := ch.desc.SrcMailbox

	c.mu.Lock()
	if c.held&mboxMask(src) != 0 {
		c.mu.Unlock()
		acquireBusy.WithLabelValues(ch.name).Inc()
		return ipcerr.Wrap("acquire", ch.name, fmt.Errorf("mailbox %d held locally: %w", src, ipcerr.ErrResourceBusy))
	}
	c.held |= mboxMask(src)
	c.mu.Unlock()

	acquireTotal.WithLabelValues(ch.name).Inc()
	own := chanMask(c.own)
	c.write(SourceReg(src), own)
	if got := c.read(SourceReg(src)); got != own {
		c.mu.Lock()
		c.held &^= mboxMask(src)
		c.mu.Unlock()
		acquireBusy.WithLabelValues(ch.name).Inc()
		log.Debugf("mailbox %d owned by %#x, wanted %#x", src, got, own)
		return ipcerr.Wrap("acquire", ch.name, fmt.Errorf("mailbox %d source %#x: %w", src, got, ipcerr.ErrResourceBusy))
	}
	c.write(DSetReg(src), chanMask(ch.desc.DstChannel))
	c.write(MSetReg(src), own|chanMask(ch.desc.DstChannel))
	ch.state = Acquired
	return nil
}

// Send rings the doorbell toward the destination channel.
func (ch *Channel) Send() error {
	if !ch.owned() {
		return ipcerr.Wrap("send", ch.name, fmt.Errorf("channel %v: %w", ch.state, ipcerr.ErrInvalidArgument))
	}
	ch.c.write(SendReg(ch.desc.SrcMailbox), SendDestination)
	ch.state = Sent
	sendTotal.WithLabelValues(ch.name).Inc()
	return nil
}

// Receive polls the masked interrupt status once. It returns
// ipcerr.ErrNoData when the destination mailbox has not signalled yet.
func (ch *Channel) Receive() error {
	if !ch.owned() {
		return ipcerr.Wrap("recv", ch.name, fmt.Errorf("channel %v: %w", ch.state, ipcerr.ErrInvalidArgument))
	}
	c := ch.c
	pollTotal.WithLabelValues(ch.name).Inc()
	if c.read(MaskedIrqReg(c.own))&mboxMask(ch.desc.DstMailbox) == 0 {
		return ipcerr.ErrNoData
	}
	c.write(SendReg(ch.desc.DstMailbox), SendClear)
	ch.state = Acquired
	return nil
}

// Release clears the source mailbox ownership register.
func (ch *Channel) Release() error {
	if !ch.owned() {
		return ipcerr.Wrap("release", ch.name, fmt.Errorf("channel %v: %w", ch.state, ipcerr.ErrInvalidArgument))
	}
	c := ch.c
	src := ch.desc.SrcMailbox
	c.write(SourceReg(src), 0)
	c.mu.Lock()
	c.held &^= mboxMask(src)
	c.mu.Unlock()
	ch.state = Released
	return nil
}

// Free returns the channel's descriptor storage to the controller,
// releasing the mailbox first if it is still owned.
func (ch *Channel) Free() error {
	var err error
	if ch.owned() {
		err = ch.Release()
	}
	if ch.state == Freed {
		return nil
	}
	c := ch.c
	c.mu.Lock()
	c.used[ch.idx] = false
	c.mu.Unlock()
	ch.c = nil
	ch.state = Freed
	return err
}

// WriteData stores v in data word n of the source mailbox.
func (ch *Channel) WriteData(n uint, v uint32) error {
	if n >= DataRegisters {
		return ipcerr.Wrap("write data", ch.name, ipcerr.ErrInvalidArgument)
	}
	if !ch.owned() {
		return ipcerr.Wrap("write data", ch.name, fmt.Errorf("channel %v: %w", ch.state, ipcerr.ErrInvalidArgument))
	}
	ch.c.write(DataReg(ch.desc.SrcMailbox, n), v)
	return nil
}

// ReadData loads data word n of the destination mailbox.
func (ch *Channel) ReadData(n uint) (uint32, error) {
	if n >= DataRegisters {
		return 0, ipcerr.Wrap("read data", ch.name, ipcerr.ErrInvalidArgument)
	}
	if !ch.owned() {
		return 0, ipcerr.Wrap("read data", ch.name, fmt.Errorf("channel %v: %w", ch.state, ipcerr.ErrInvalidArgument))
	}
	return ch.c.read(DataReg(ch.desc.DstMailbox, n)), nil
}
