// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"fmt"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/ipcerr"
)

// Resolver turns mailbox references into pl320 channels. It creates one
// controller per mailbox provider the first time it is referenced.
type Resolver struct {
	board *Board
	mem   pl320.MemProvider
	ctrls map[uint32]*pl320.Controller
}

// NewResolver returns a resolver for b whose controllers access mem.
func NewResolver(b *Board, mem pl320.MemProvider) *Resolver {
	return &Resolver{board: b, mem: mem, ctrls: make(map[uint32]*pl320.Controller)}
}

// Board returns the board description.
func (r *Resolver) Board() *Board {
	return r.board
}

// Controller returns the controller of the mailbox provider p.
func (r *Resolver) Controller(p *Provider) (*pl320.Controller, error) {
	if c, ok := r.ctrls[p.Phandle]; ok {
		return c, nil
	}
	if !isPL320(p.Driver) {
		return nil, fmt.Errorf("%s is a %q, not a mailbox: %w", p.Device, p.Driver, ipcerr.ErrInvalidArgument)
	}
	c, err := pl320.NewController(r.mem, uintptr(p.Base), uint(p.OwnChannel))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Device, err)
	}
	r.ctrls[p.Phandle] = c
	return c, nil
}

// Channel resolves a mailbox reference into an unacquired channel.
func (r *Resolver) Channel(ref Reference) (*pl320.Channel, error) {
	if ref.Kind != Mailbox {
		return nil, ipcerr.Wrap(ref.Kind.String(), ref.Name, ipcerr.ErrInvalidArgument)
	}
	c, err := r.Controller(ref.Provider)
	if err != nil {
		return nil, ipcerr.Wrap("mbox", ref.Name, err)
	}
	return c.Xlate(ref.Name, ref.Args)
}

// Mailbox looks up the mailbox channel called name on any client.
func (r *Resolver) Mailbox(name string) (*pl320.Channel, error) {
	ref, err := r.board.Lookup(Mailbox, name)
	if err != nil {
		return nil, err
	}
	return r.Channel(ref)
}

// AgentChannel resolves the SCMI agent's mailbox channel.
func (r *Resolver) AgentChannel() (*pl320.Channel, error) {
	if r.board.Agent == nil {
		return nil, fmt.Errorf("board %q has no scmi agent: %w", r.board.Model, ipcerr.ErrInvalidArgument)
	}
	ref, err := r.board.LookupClient(Mailbox, r.board.Agent.Device, "")
	if err != nil {
		return nil, err
	}
	return r.Channel(ref)
}
