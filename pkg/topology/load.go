// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/u-root/u-root/pkg/dt"
	"gopkg.in/yaml.v2"

	"github.com/u-root/u-scmi/pkg/ipcerr"
)

// Load reads a board description. Files ending in .dtb are parsed as a
// flattened device tree, anything else as YAML.
func Load(path string) (*Board, error) {
	return load(afero.NewOsFs(), path)
}

// LoadFs is Load reading from fs.
func LoadFs(fs afero.Fs, path string) (*Board, error) {
	return load(fs, path)
}

func load(fs afero.Fs, path string) (*Board, error) {
	var (
		b   *Board
		err error
	)
	if filepath.Ext(path) == ".dtb" {
		b, err = loadFDT(fs, path)
	} else {
		b, err = loadYAML(fs, path)
	}
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func loadYAML(fs afero.Fs, path string) (*Board, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var b Board
	if err := yaml.UnmarshalStrict(data, &b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &b, nil
}

func loadFDT(fs afero.Fs, path string) (*Board, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fdt, err := dt.ReadFDT(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return FromFDT(fdt)
}

type fdtNode struct {
	n         *dt.Node
	parent    *fdtNode
	addrCells int
	sizeCells int
}

func (fn *fdtNode) prop(name string) ([]byte, bool) {
	for _, p := range fn.n.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func (fn *fdtNode) u32(name string) (uint32, bool) {
	v, ok := fn.prop(name)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

func (fn *fdtNode) cells(name string) []uint32 {
	v, _ := fn.prop(name)
	out := make([]uint32, len(v)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(v[i*4:])
	}
	return out
}

func (fn *fdtNode) strings(name string) []string {
	v, ok := fn.prop(name)
	if !ok {
		return nil
	}
	return strings.Split(string(bytes.TrimRight(v, "\x00")), "\x00")
}

// reg returns the first address/size pair, using the parent's cell sizes.
func (fn *fdtNode) reg() (addr, size uint64, ok bool) {
	c := fn.cells("reg")
	ac, sc := 2, 1
	if fn.parent != nil {
		ac, sc = fn.parent.addrCells, fn.parent.sizeCells
	}
	if len(c) < ac+sc {
		return 0, 0, false
	}
	for _, v := range c[:ac] {
		addr = addr<<32 | uint64(v)
	}
	for _, v := range c[ac : ac+sc] {
		size = size<<32 | uint64(v)
	}
	return addr, size, true
}

func flatten(n *dt.Node, parent *fdtNode, out []*fdtNode) []*fdtNode {
	fn := &fdtNode{n: n, parent: parent, addrCells: 2, sizeCells: 1}
	if v, ok := fn.u32("#address-cells"); ok {
		fn.addrCells = int(v)
	}
	if v, ok := fn.u32("#size-cells"); ok {
		fn.sizeCells = int(v)
	}
	out = append(out, fn)
	for _, c := range n.Children {
		out = flatten(c, fn, out)
	}
	return out
}

// FromFDT builds a board description from a device tree. Nodes with a
// phandle become providers, nodes with mboxes, resets or clocks become
// clients and the arm,scmi node becomes the agent.
func FromFDT(fdt *dt.FDT) (*Board, error) {
	if fdt == nil || fdt.RootNode == nil {
		return nil, fmt.Errorf("empty device tree")
	}
	nodes := flatten(fdt.RootNode, nil, nil)
	b := &Board{}
	if m := nodes[0].strings("model"); len(m) > 0 {
		b.Model = m[0]
	}

	for _, fn := range nodes {
		ph, ok := fn.u32("phandle")
		if !ok {
			ph, ok = fn.u32("linux,phandle")
		}
		if !ok {
			continue
		}
		p := Provider{Device: fn.n.Name, Phandle: ph, Cells: make(map[string]int)}
		if c := fn.strings("compatible"); len(c) > 0 {
			p.Driver = c[0]
		} else if fn.parent != nil {
			if c := fn.parent.strings("compatible"); len(c) > 0 {
				p.Driver = c[0]
			}
		}
		for _, k := range Kinds() {
			if v, ok := fn.u32(k.Properties().Cells); ok {
				p.Cells[k.String()] = int(v)
			}
		}
		if addr, size, ok := fn.reg(); ok {
			p.Base, p.Size = addr, size
		}
		if v, ok := fn.u32("arm,dev-ch-idx"); ok {
			p.OwnChannel = v
		}
		b.Providers = append(b.Providers, p)
	}

	for _, fn := range nodes {
		c := Client{Device: fn.n.Name}
		found := false
		for _, k := range Kinds() {
			refs, err := b.parseRefs(fn, k)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.n.Name, err)
			}
			if refs == nil {
				continue
			}
			found = true
			switch k {
			case Mailbox:
				c.Mboxes = refs
			case Reset:
				c.Resets = refs
			case Clock:
				c.Clocks = refs
			}
		}
		if found {
			b.Clients = append(b.Clients, c)
		}

		if compat := fn.strings("compatible"); len(compat) == 0 || compat[0] != DriverSCMIAgent {
			continue
		}
		a := &Agent{Device: fn.n.Name}
		fw, ok := fn.u32("fw-ver")
		if !ok {
			return nil, fmt.Errorf("%s: error reading fw-ver: %w", fn.n.Name, ipcerr.ErrInvalidArgument)
		}
		a.FirmwareVersion = fw
		if sh, ok := fn.u32("shmem"); ok {
			p, err := b.Provider(sh)
			if err != nil {
				return nil, fmt.Errorf("%s shmem: %w", fn.n.Name, err)
			}
			a.ShmemBase, a.ShmemSize = p.Base, p.Size
		}
		b.Agent = a
	}
	return b, nil
}

// parseRefs splits a phandle-with-args list using each provider's cell count.
func (b *Board) parseRefs(fn *fdtNode, k Kind) ([]Ref, error) {
	props := k.Properties()
	if _, ok := fn.prop(props.List); !ok {
		return nil, nil
	}
	cells := fn.cells(props.List)
	names := fn.strings(props.Names)
	var refs []Ref
	for i := 0; i < len(cells); {
		p, err := b.Provider(cells[i])
		if err != nil {
			return nil, err
		}
		n, ok := p.CellCount(k)
		if !ok {
			return nil, fmt.Errorf("%s: %s has no %s", props.List, p.Device, props.Cells)
		}
		if i+1+n > len(cells) {
			return nil, fmt.Errorf("%s: truncated reference to %s", props.List, p.Device)
		}
		r := Ref{Phandle: p.Phandle, Args: append([]uint32(nil), cells[i+1:i+1+n]...)}
		if idx := len(refs); idx < len(names) {
			r.Name = names[idx]
		} else {
			r.Name = fmt.Sprintf("%s#%d", fn.n.Name, idx)
		}
		refs = append(refs, r)
		i += 1 + n
	}
	if refs == nil {
		refs = []Ref{}
	}
	return refs, nil
}
