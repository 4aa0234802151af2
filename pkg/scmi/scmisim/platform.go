// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scmisim answers SCMI commands as the SCU firmware would. It sits
// behind a pl320sim doorbell and serves requests from the shared memory
// area synchronously, so a response is ready by the first poll.
package scmisim

import (
	"bytes"
	"encoding/binary"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/hardware/pl320/pl320sim"
	"github.com/u-root/u-scmi/pkg/logger"
	"github.com/u-root/u-scmi/pkg/scmi"
	"github.com/u-root/u-scmi/pkg/syncutil"
)

var log = logger.LogContainer.GetSimpleLogger()

// Firmware is the state the simulated platform reports.
type Firmware struct {
	Version    uint32
	Vendor     string
	BootOffset uint32
}

// Request is a command as the platform received it.
type Request struct {
	Header  scmi.Header
	Payload []byte
}

type msgKey struct {
	p  scmi.ProtocolID
	id scmi.MessageID
}

// Platform is the SCMI server side of one agent channel.
type Platform struct {
	sim     *pl320sim.Sim
	shm     *scmi.SharedMemory
	desc    pl320.Descriptor
	agentCh uint

	mu       syncutil.Mutex
	fw       Firmware
	status   map[msgKey]scmi.Status
	silent   bool
	comms    bool
	requests []Request
	eth      *scmi.EthernetDelay
	rmii     bool
	resets   map[uint32]bool
	clocks   map[uint32]bool
}

// New serves requests that the agent on channel agentCh sends through
// desc. The shared memory area is marked free.
func New(sim *pl320sim.Sim, shm *scmi.SharedMemory, desc pl320.Descriptor, agentCh uint, fw Firmware) *Platform {
	p := &Platform{
		sim:     sim,
		shm:     shm,
		desc:    desc,
		agentCh: agentCh,
		fw:      fw,
		status:  make(map[msgKey]scmi.Status),
		resets:  make(map[uint32]bool),
		clocks:  make(map[uint32]bool),
	}
	shm.Reset()
	sim.OnDoorbell(p.doorbell)
	return p
}

// SetFirmware replaces the reported firmware state.
func (p *Platform) SetFirmware(fw Firmware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fw = fw
}

// SetStatus makes message id of protocol proto fail with st.
func (p *Platform) SetStatus(proto scmi.ProtocolID, id scmi.MessageID, st scmi.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[msgKey{proto, id}] = st
}

// SetSilent stops the platform from answering.
func (p *Platform) SetSilent(silent bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.silent = silent
}

// SetCommsError makes every answer set the shared memory error bit.
func (p *Platform) SetCommsError(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comms = failed
}

// Requests returns every request received so far.
func (p *Platform) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

// EthernetDelay returns the last delay configuration received.
func (p *Platform) EthernetDelay() (scmi.EthernetDelay, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eth == nil {
		return scmi.EthernetDelay{}, false
	}
	return *p.eth, true
}

// RmiiMode reports whether the ethernet MAC was switched to RMII.
func (p *Platform) RmiiMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rmii
}

// ResetAsserted reports whether reset domain id is held.
func (p *Platform) ResetAsserted(id uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets[id]
}

// ClockEnabled reports whether clock id is gated on.
func (p *Platform) ClockEnabled(id uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clocks[id]
}

func (p *Platform) doorbell(m uint) {
	if m != p.desc.SrcMailbox {
		return
	}
	h, in, err := p.shm.ReadRequest()
	if err != nil {
		log.Warnf("scmisim: %v", err)
		return
	}

	p.mu.Lock()
	p.requests = append(p.requests, Request{Header: h, Payload: in})
	if p.silent {
		p.mu.Unlock()
		return
	}
	st, out := p.handle(h, in)
	comms := p.comms
	p.mu.Unlock()

	var resp bytes.Buffer
	binary.Write(&resp, binary.LittleEndian, int32(st))
	if st == scmi.StatusSuccess && out != nil {
		binary.Write(&resp, binary.LittleEndian, out)
	}
	if err := p.shm.WriteResponse(h, resp.Bytes(), comms); err != nil {
		log.Warnf("scmisim: %v", err)
		return
	}
	p.sim.Signal(p.desc.DstMailbox, p.agentCh)
}

// handle runs with p.mu held.
func (p *Platform) handle(h scmi.Header, in []byte) (scmi.Status, interface{}) {
	if st, ok := p.status[msgKey{h.Protocol, h.ID}]; ok {
		return st, nil
	}
	switch h.Protocol {
	case scmi.ProtocolBase:
		switch h.ID {
		case scmi.MsgProtocolVersion:
			return scmi.StatusSuccess, &scmi.VersionOut{Version: 0x20000}
		case scmi.MsgBaseDiscoverVendor:
			var v scmi.VendorOut
			copy(v.Vendor[:len(v.Vendor)-1], p.fw.Vendor)
			return scmi.StatusSuccess, &v
		case scmi.MsgBaseDiscoverImplementationVersion:
			return scmi.StatusSuccess, &scmi.VersionOut{Version: p.fw.Version}
		}
	case scmi.ProtocolHailo:
		switch h.ID {
		case scmi.MsgProtocolVersion:
			return scmi.StatusSuccess, &scmi.VersionOut{Version: 0x10000}
		case scmi.MsgHailoConfigureEthDelay:
			var d scmi.EthernetDelay
			if !decode(in, &d) {
				return scmi.StatusInvalidParameters, nil
			}
			p.eth = &d
			return scmi.StatusSuccess, nil
		case scmi.MsgHailoSetEthRmiiMode:
			p.rmii = true
			return scmi.StatusSuccess, nil
		case scmi.MsgHailoGetBootInfo:
			return scmi.StatusSuccess, &scmi.BootInfo{BootOffset: p.fw.BootOffset}
		}
	case scmi.ProtocolReset:
		switch h.ID {
		case scmi.MsgProtocolVersion:
			return scmi.StatusSuccess, &scmi.VersionOut{Version: 0x10000}
		case scmi.MsgReset:
			var r scmi.ResetIn
			if !decode(in, &r) {
				return scmi.StatusInvalidParameters, nil
			}
			p.resets[r.DomainID] = r.Flags&scmi.ResetExplicitAssert != 0
			return scmi.StatusSuccess, nil
		}
	case scmi.ProtocolClock:
		switch h.ID {
		case scmi.MsgProtocolVersion:
			return scmi.StatusSuccess, &scmi.VersionOut{Version: 0x10000}
		case scmi.MsgClockConfigSet:
			var c scmi.ClockConfigSetIn
			if !decode(in, &c) {
				return scmi.StatusInvalidParameters, nil
			}
			p.clocks[c.ClockID] = c.Attributes&scmi.ClockEnable != 0
			return scmi.StatusSuccess, nil
		}
	}
	return scmi.StatusNotSupported, nil
}

func decode(in []byte, v interface{}) bool {
	if len(in) < binary.Size(v) {
		return false
	}
	return binary.Read(bytes.NewReader(in), binary.LittleEndian, v) == nil
}
