// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pl320

import "fmt"

// MemProvider is the 32-bit register window the controller drives.
// Addresses are absolute physical addresses.
type MemProvider interface {
	MustRead32(address uintptr) uint32
	MustWrite32(address uintptr, data uint32)
	Close() error
}

// Region places a MemProvider at [Base, Base+Size).
type Region struct {
	Base uintptr
	Size uintptr
	Mem  MemProvider
}

// RegionMap dispatches accesses to the region containing the address. It
// lets the mailbox block and the shared message areas live in separate
// mappings.
type RegionMap []Region

func (r RegionMap) find(address uintptr) MemProvider {
	for _, reg := range r {
		if address >= reg.Base && address < reg.Base+reg.Size {
			return reg.Mem
		}
	}
	panic(fmt.Sprintf("address %#x is not mapped", address))
}

func (r RegionMap) MustRead32(address uintptr) uint32 {
	return r.find(address).MustRead32(address)
}

func (r RegionMap) MustWrite32(address uintptr, data uint32) {
	r.find(address).MustWrite32(address, data)
}

// Close closes every region and returns the first error.
func (r RegionMap) Close() error {
	var first error
	for _, reg := range r {
		if err := reg.Mem.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
