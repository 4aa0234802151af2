// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package topology describes which client device is wired to which mailbox,
// reset or clock provider, and with which argument cells. It is the
// declarative side of channel resolution: nothing here touches hardware.
package topology

import (
	"fmt"

	"github.com/u-root/u-scmi/pkg/ipcerr"
)

// Kind is a class of provider a client may reference.
type Kind int

const (
	Mailbox Kind = iota
	Reset
	Clock
)

// Properties names the device tree properties that carry references of
// one kind.
type Properties struct {
	List  string
	Cells string
	Names string
}

var kindProperties = map[Kind]Properties{
	Mailbox: {"mboxes", "#mbox-cells", "mbox-names"},
	Reset:   {"resets", "#reset-cells", "reset-names"},
	Clock:   {"clocks", "#clock-cells", "clock-names"},
}

var kindNames = map[Kind]string{
	Mailbox: "mbox",
	Reset:   "reset",
	Clock:   "clk",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Properties returns the property names used for k.
func (k Kind) Properties() Properties {
	return kindProperties[k]
}

// Kinds lists every known kind in order.
func Kinds() []Kind {
	return []Kind{Mailbox, Reset, Clock}
}

// Compatible strings of known providers.
const (
	DriverPL320     = "arm,pl320-mailbox"
	DriverPL320IPC  = "arm,pl320-ipc"
	DriverSCMIAgent = "arm,scmi"
	DriverSCMIShmem = "arm,scmi-shmem"
)

// isPL320 reports whether a provider compatible string names a PL320 block.
func isPL320(driver string) bool {
	return driver == DriverPL320 || driver == DriverPL320IPC
}

// driverNames maps a compatible string, and for SCMI protocol nodes the
// reference kind, to the name of the driver that binds it.
var driverNames = map[string]string{
	DriverPL320:    "pl320_mailbox",
	DriverPL320IPC: "pl320_mailbox",
}

var scmiDriverNames = map[Kind]string{
	Reset: "scmi_reset_domain",
	Clock: "scmi_clk",
}

// DriverName returns the name of the driver serving references of kind k
// to p. Unknown providers report their compatible string.
func (p *Provider) DriverName(k Kind) string {
	if p.Driver == DriverSCMIAgent {
		if n, ok := scmiDriverNames[k]; ok {
			return n
		}
	}
	if n, ok := driverNames[p.Driver]; ok {
		return n
	}
	return p.Driver
}

// Provider is a node other nodes reference by phandle.
type Provider struct {
	Device  string `yaml:"device"`
	Driver  string `yaml:"driver"`
	Phandle uint32 `yaml:"phandle"`
	Base    uint64 `yaml:"base"`
	Size    uint64 `yaml:"size"`

	// Cells maps a kind name ("mbox", "reset", "clk") to its #cells value.
	Cells map[string]int `yaml:"cells"`

	// OwnChannel is the doorbell channel this agent uses on a mailbox block.
	OwnChannel uint32 `yaml:"own-channel"`
}

// CellCount returns the number of argument cells a reference of kind k
// to p carries, and whether p provides k at all.
func (p *Provider) CellCount(k Kind) (int, bool) {
	n, ok := p.Cells[k.String()]
	return n, ok
}

// Ref is one named entry of a client's reference list.
type Ref struct {
	Name    string   `yaml:"name"`
	Phandle uint32   `yaml:"phandle"`
	Args    []uint32 `yaml:"args"`
}

// Client is a device that consumes providers.
type Client struct {
	Device string `yaml:"device"`
	Mboxes []Ref  `yaml:"mboxes"`
	Resets []Ref  `yaml:"resets"`
	Clocks []Ref  `yaml:"clocks"`
}

func (c *Client) refs(k Kind) []Ref {
	switch k {
	case Mailbox:
		return c.Mboxes
	case Reset:
		return c.Resets
	case Clock:
		return c.Clocks
	}
	return nil
}

// Agent is the SCMI agent node: the client whose first mailbox reference
// carries SCMI traffic, its shared memory area and expected firmware version.
type Agent struct {
	Device          string `yaml:"device"`
	FirmwareVersion uint32 `yaml:"fw-ver"`
	ShmemBase       uint64 `yaml:"shmem-base"`
	ShmemSize       uint64 `yaml:"shmem-size"`
}

// Board is a complete board description.
type Board struct {
	Model     string     `yaml:"model"`
	Providers []Provider `yaml:"providers"`
	Clients   []Client   `yaml:"clients"`
	Agent     *Agent     `yaml:"scmi"`
}

// Reference is a resolved client reference.
type Reference struct {
	Kind     Kind
	Name     string
	Client   *Client
	Provider *Provider
	Args     []uint32
}

// Provider returns the provider with the given phandle.
func (b *Board) Provider(phandle uint32) (*Provider, error) {
	for i := range b.Providers {
		if b.Providers[i].Phandle == phandle {
			return &b.Providers[i], nil
		}
	}
	return nil, fmt.Errorf("no provider with phandle %#x: %w", phandle, ipcerr.ErrInvalidArgument)
}

// Client returns the client device called name.
func (b *Board) Client(device string) (*Client, error) {
	for i := range b.Clients {
		if b.Clients[i].Device == device {
			return &b.Clients[i], nil
		}
	}
	return nil, fmt.Errorf("no client device %q: %w", device, ipcerr.ErrInvalidArgument)
}

func (b *Board) resolve(k Kind, c *Client, r Ref) (Reference, error) {
	p, err := b.Provider(r.Phandle)
	if err != nil {
		return Reference{}, ipcerr.Wrap(k.String(), r.Name, err)
	}
	cells, ok := p.CellCount(k)
	if !ok {
		return Reference{}, ipcerr.Wrap(k.String(), r.Name,
			fmt.Errorf("%s has no %s: %w", p.Device, k.Properties().Cells, ipcerr.ErrInvalidArgument))
	}
	if cells != len(r.Args) {
		return Reference{}, ipcerr.Wrap(k.String(), r.Name,
			fmt.Errorf("%s wants %d cells, got %d: %w", p.Device, cells, len(r.Args), ipcerr.ErrInvalidArgument))
	}
	return Reference{Kind: k, Name: r.Name, Client: c, Provider: p, Args: r.Args}, nil
}

// Lookup finds the reference of kind k called name on any client.
func (b *Board) Lookup(k Kind, name string) (Reference, error) {
	for i := range b.Clients {
		c := &b.Clients[i]
		for _, r := range c.refs(k) {
			if r.Name == name {
				return b.resolve(k, c, r)
			}
		}
	}
	return Reference{}, ipcerr.Wrap(k.String(), name, fmt.Errorf("channel does not exist: %w", ipcerr.ErrInvalidArgument))
}

// LookupClient finds the reference of kind k called name on one client.
// An empty name selects the first reference.
func (b *Board) LookupClient(k Kind, device, name string) (Reference, error) {
	c, err := b.Client(device)
	if err != nil {
		return Reference{}, err
	}
	for _, r := range c.refs(k) {
		if name == "" || r.Name == name {
			return b.resolve(k, c, r)
		}
	}
	return Reference{}, ipcerr.Wrap(k.String(), device+"/"+name, fmt.Errorf("no such reference: %w", ipcerr.ErrInvalidArgument))
}

// References lists every reference of kind k in board order.
func (b *Board) References(k Kind) ([]Reference, error) {
	var out []Reference
	for i := range b.Clients {
		c := &b.Clients[i]
		for _, r := range c.refs(k) {
			ref, err := b.resolve(k, c, r)
			if err != nil {
				return nil, err
			}
			out = append(out, ref)
		}
	}
	return out, nil
}

// Validate resolves every reference of every kind and checks the agent.
func (b *Board) Validate() error {
	seen := make(map[uint32]string)
	for _, p := range b.Providers {
		if other, dup := seen[p.Phandle]; dup {
			return fmt.Errorf("phandle %#x used by %s and %s: %w", p.Phandle, other, p.Device, ipcerr.ErrInvalidArgument)
		}
		seen[p.Phandle] = p.Device
	}
	for _, k := range Kinds() {
		if _, err := b.References(k); err != nil {
			return err
		}
	}
	if b.Agent != nil {
		if b.Agent.FirmwareVersion == 0 {
			return fmt.Errorf("scmi agent %s has no fw-ver: %w", b.Agent.Device, ipcerr.ErrInvalidArgument)
		}
		if _, err := b.LookupClient(Mailbox, b.Agent.Device, ""); err != nil {
			return fmt.Errorf("scmi agent: %w", err)
		}
	}
	return nil
}
