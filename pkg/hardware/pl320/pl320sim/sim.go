// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pl320sim models a PL320 IPC block at the register level, plus
// plain RAM for addresses outside the block. It implements
// pl320.MemProvider so controllers of several agents can share one Sim.
package pl320sim

import (
	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/syncutil"
)

type mailbox struct {
	source  uint32
	dstatus uint32
	mode    uint32
	mstatus uint32
	send    uint32
	data    [pl320.DataRegisters]uint32
}

// Sim is a simulated PL320 block mapped at Base.
type Sim struct {
	Base uintptr

	mu   syncutil.Mutex
	mbox [pl320.MaxMailboxes]mailbox
	ris  [pl320.MaxChannels]uint32
	ram  map[uintptr]uint32
	bell func(m uint)
	ops  int
}

// New returns a Sim with every register zero.
func New(base uintptr) *Sim {
	return &Sim{Base: base, ram: make(map[uintptr]uint32)}
}

// OnDoorbell installs fn, called after a mailbox is sent toward its
// destinations. fn runs without the Sim lock held.
func (s *Sim) OnDoorbell(fn func(m uint)) {
	s.mu.Lock()
	s.bell = fn
	s.mu.Unlock()
}

// decode splits a block offset into mailbox index and register offset, or
// channel index for the interrupt status area.
func decode(off uintptr) (m uint, reg uintptr, irq bool) {
	if off >= 0x800 {
		return uint((off - 0x800) / 8), (off - 0x800) % 8, true
	}
	return uint(off / 0x40), off % 0x40, false
}

func (s *Sim) inBlock(a uintptr) bool {
	return a >= s.Base && a < s.Base+pl320.WindowSize
}

func (s *Sim) MustRead32(a uintptr) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	if !s.inBlock(a) {
		return s.ram[a]
	}
	m, reg, irq := decode(a - s.Base)
	if irq {
		if m >= pl320.MaxChannels {
			return 0
		}
		if reg == 4 {
			return s.ris[m]
		}
		return s.masked(m)
	}
	if m >= pl320.MaxMailboxes {
		return 0
	}
	mb := &s.mbox[m]
	switch reg {
	case 0x00:
		return mb.source
	case 0x0c:
		return mb.dstatus
	case 0x10:
		return mb.mode
	case 0x1c:
		return mb.mstatus
	case 0x20:
		return mb.send
	}
	if reg >= 0x24 {
		return mb.data[(reg-0x24)/4]
	}
	return 0
}

// masked computes MIS for channel c: a mailbox raw bit survives when the
// mailbox has channel c unmasked.
func (s *Sim) masked(c uint) uint32 {
	var v uint32
	for m := uint(0); m < pl320.MaxMailboxes; m++ {
		if s.ris[c]&(1<<m) != 0 && s.mbox[m].mstatus&(1<<c) != 0 {
			v |= 1 << m
		}
	}
	return v
}

func (s *Sim) MustWrite32(a uintptr, d uint32) {
	s.mu.Lock()
	s.ops++
	if !s.inBlock(a) {
		s.ram[a] = d
		s.mu.Unlock()
		return
	}
	m, reg, irq := decode(a - s.Base)
	if irq || m >= pl320.MaxMailboxes {
		s.mu.Unlock()
		return
	}
	mb := &s.mbox[m]
	var ring func(uint)
	switch reg {
	case 0x00:
		switch {
		case d == 0:
			// Clearing the owner resets the whole mailbox.
			*mb = mailbox{}
			s.clearIrq(m)
		case mb.source == 0:
			mb.source = d
		}
	case 0x04:
		mb.dstatus |= d
	case 0x08:
		mb.dstatus &^= d
	case 0x10:
		mb.mode = d
	case 0x14:
		mb.mstatus |= d
	case 0x18:
		mb.mstatus &^= d
	case 0x20:
		mb.send = d
		switch d {
		case pl320.SendClear:
			s.clearIrq(m)
		case pl320.SendDestination:
			s.raise(m, mb.dstatus)
			ring = s.bell
		case pl320.SendSource:
			s.raise(m, mb.source)
		}
	default:
		if reg >= 0x24 {
			mb.data[(reg-0x24)/4] = d
		}
	}
	s.mu.Unlock()
	if ring != nil {
		ring(m)
	}
}

func (s *Sim) raise(m uint, chans uint32) {
	for c := uint(0); c < pl320.MaxChannels; c++ {
		if chans&(1<<c) != 0 {
			s.ris[c] |= 1 << m
		}
	}
}

func (s *Sim) clearIrq(m uint) {
	for c := range s.ris {
		s.ris[c] &^= 1 << m
	}
}

// Close is a no-op.
func (s *Sim) Close() error {
	return nil
}

// Signal is the peer side of a reply: mailbox m raises an unmasked
// interrupt toward channel c, as if the peer owned m and sent to c.
func (s *Sim) Signal(m, c uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mbox[m].mstatus |= 1 << c
	s.mbox[m].dstatus |= 1 << c
	s.mbox[m].send = pl320.SendDestination
	s.ris[c] |= 1 << m
}

// Pending reports whether mailbox m has a raw interrupt pending on channel c.
func (s *Sim) Pending(m, c uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ris[c]&(1<<m) != 0
}

// Source returns the ownership register of mailbox m.
func (s *Sim) Source(m uint) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mbox[m].source
}

// Data returns data word n of mailbox m.
func (s *Sim) Data(m, n uint) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mbox[m].data[n]
}

// Ops returns the number of register and RAM accesses so far.
func (s *Sim) Ops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops
}
