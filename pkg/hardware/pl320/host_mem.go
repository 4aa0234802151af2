// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pl320

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// HostMemory maps a register window of /dev/mem once and accesses it with
// 32-bit loads and stores.
type HostMemory struct {
	f    *os.File
	base uintptr
	mem  []byte
}

// OpenHostMemory maps size bytes of physical memory starting at base.
// base must be page aligned.
func OpenHostMemory(base uintptr, size int) (*HostMemory, error) {
	if base%uintptr(unix.Getpagesize()) != 0 {
		return nil, fmt.Errorf("base %#x is not page aligned", base)
	}
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0600)
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), int64(base), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %#x+%#x: %w", base, size, err)
	}
	return &HostMemory{f: f, base: base, mem: mem}, nil
}

func (m *HostMemory) word(address uintptr) *uint32 {
	if address < m.base || address+4 > m.base+uintptr(len(m.mem)) || address%4 != 0 {
		panic(fmt.Sprintf("address %#x outside window %#x+%#x", address, m.base, len(m.mem)))
	}
	return (*uint32)(unsafe.Pointer(&m.mem[address-m.base]))
}

func (m *HostMemory) MustRead32(address uintptr) uint32 {
	return atomic.LoadUint32(m.word(address))
}

func (m *HostMemory) MustWrite32(address uintptr, data uint32) {
	atomic.StoreUint32(m.word(address), data)
}

func (m *HostMemory) Close() error {
	err := unix.Munmap(m.mem)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
