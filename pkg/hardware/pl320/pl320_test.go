// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pl320

import (
	"errors"
	"testing"

	pt "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/u-root/u-scmi/pkg/ipcerr"
)

const testBase uintptr = 0x78002000

func newTestController(t *testing.T, own uint) (*Controller, *fakeMem) {
	t.Helper()
	f := fakeMemory(t)
	c, err := NewController(f, testBase, own)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c, f
}

func TestRegisterOffsets(t *testing.T) {
	cases := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"SOURCE(0)", SourceReg(0), 0x00},
		{"DSET(1)", DSetReg(1), 0x44},
		{"DCLEAR(2)", DClearReg(2), 0x88},
		{"DSTATUS(3)", DStatusReg(3), 0xcc},
		{"MODE(4)", ModeReg(4), 0x110},
		{"MSET(5)", MSetReg(5), 0x154},
		{"MCLEAR(6)", MClearReg(6), 0x198},
		{"MSTATUS(7)", MStatusReg(7), 0x1dc},
		{"SEND(15)", SendReg(15), 0x3e0},
		{"DR(1,0)", DataReg(1, 0), 0x64},
		{"DR(0,6)", DataReg(0, 6), 0x3c},
		{"MIS(0)", MaskedIrqReg(0), 0x800},
		{"MIS(6)", MaskedIrqReg(6), 0x830},
		{"RIS(6)", RawIrqReg(6), 0x834},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %#x, want %#x", c.name, c.got, c.want)
		}
	}
}

func TestNewControllerOwnChannel(t *testing.T) {
	if _, err := NewController(fakeMemory(t), testBase, MaxChannels); !errors.Is(err, ipcerr.ErrInvalidArgument) {
		t.Errorf("own channel %d: got %v, want ErrInvalidArgument", MaxChannels, err)
	}
	c, err := NewController(fakeMemory(t), testBase, MaxChannels-1)
	if err != nil {
		t.Fatalf("own channel %d: %v", MaxChannels-1, err)
	}
	if c.OwnChannel() != MaxChannels-1 || c.Base() != testBase {
		t.Errorf("controller = own %d base %#x", c.OwnChannel(), c.Base())
	}
}

func TestXlateBounds(t *testing.T) {
	c, f := newTestController(t, 0)
	bad := [][]uint32{
		nil,
		{6, 1},
		{6, 1, 0, 0},
		{MaxChannels, 1, 0},
		{6, MaxMailboxes, 0},
		{6, 1, MaxMailboxes},
		{0xffffffff, 0, 0},
	}
	for _, args := range bad {
		if _, err := c.Xlate("bad", args); !errors.Is(err, ipcerr.ErrInvalidArgument) {
			t.Errorf("Xlate(%v) = %v, want ErrInvalidArgument", args, err)
		}
	}
	ch, err := c.Xlate("edge", []uint32{MaxChannels - 1, MaxMailboxes - 1, MaxMailboxes - 1})
	if err != nil {
		t.Fatalf("Xlate at limits: %v", err)
	}
	want := Descriptor{DstChannel: 7, DstMailbox: 15, SrcMailbox: 15}
	if ch.Descriptor() != want {
		t.Errorf("descriptor = %v, want %v", ch.Descriptor(), want)
	}
	if ch.State() != Unacquired {
		t.Errorf("state = %v, want unacquired", ch.State())
	}
	// No expectations were queued: any register access above fails the test.
	f.Done()
}

func TestChannelLifecycle(t *testing.T) {
	const own = 2
	c, f := newTestController(t, own)
	ch, err := c.Xlate("eth0", []uint32{6, 1, 0})
	if err != nil {
		t.Fatal(err)
	}

	f.ExpectWrite32(testBase+SourceReg(0), 1<<own)
	f.FakeRead32(testBase+SourceReg(0), 1<<own)
	f.ExpectWrite32(testBase+DSetReg(0), 1<<6)
	f.ExpectWrite32(testBase+MSetReg(0), 1<<own|1<<6)
	if err := ch.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	f.ExpectWrite32(testBase+SendReg(0), SendDestination)
	if err := ch.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ch.State() != Sent {
		t.Errorf("state = %v, want sent", ch.State())
	}

	f.FakeRead32(testBase+MaskedIrqReg(own), 0)
	if err := ch.Receive(); !errors.Is(err, ipcerr.ErrNoData) {
		t.Errorf("Receive before peer = %v, want ErrNoData", err)
	}

	f.FakeRead32(testBase+MaskedIrqReg(own), 1<<1|1<<5)
	f.ExpectWrite32(testBase+SendReg(1), SendClear)
	if err := ch.Receive(); err != nil {
		t.Errorf("Receive after peer = %v", err)
	}

	f.ExpectWrite32(testBase+SourceReg(0), 0)
	if err := ch.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := ch.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	f.Done()
}

func TestAcquireBusy(t *testing.T) {
	const own = 3
	for _, readback := range []uint32{0, 1 << 4, 1<<own | 1<<4} {
		c, f := newTestController(t, own)
		ch, err := c.Xlate("busy-test", []uint32{0, 2, 5})
		if err != nil {
			t.Fatal(err)
		}
		before := pt.ToFloat64(acquireBusy.WithLabelValues("busy-test"))

		f.ExpectWrite32(testBase+SourceReg(5), 1<<own)
		f.FakeRead32(testBase+SourceReg(5), readback)
		if err := ch.Acquire(); !errors.Is(err, ipcerr.ErrResourceBusy) {
			t.Errorf("readback %#x: Acquire = %v, want ErrResourceBusy", readback, err)
		}
		if got := pt.ToFloat64(acquireBusy.WithLabelValues("busy-test")); got != before+1 {
			t.Errorf("busy counter = %v, want %v", got, before+1)
		}

		// A lost race leaves nothing held locally, so a retry reaches the hardware.
		f.ExpectWrite32(testBase+SourceReg(5), 1<<own)
		f.FakeRead32(testBase+SourceReg(5), 1<<own)
		f.ExpectWrite32(testBase+DSetReg(5), 1<<0)
		f.ExpectWrite32(testBase+MSetReg(5), 1<<own|1<<0)
		if err := ch.Acquire(); err != nil {
			t.Errorf("retry Acquire: %v", err)
		}
		f.Done()
	}
}

func TestAcquireHeldLocally(t *testing.T) {
	c, f := newTestController(t, 0)
	a, _ := c.Xlate("a", []uint32{1, 1, 0})
	b, _ := c.Xlate("b", []uint32{2, 2, 0})

	f.ExpectWrite32(testBase+SourceReg(0), 1)
	f.FakeRead32(testBase+SourceReg(0), 1)
	f.ExpectWrite32(testBase+DSetReg(0), 1<<1)
	f.ExpectWrite32(testBase+MSetReg(0), 1|1<<1)
	if err := a.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := b.Acquire(); !errors.Is(err, ipcerr.ErrResourceBusy) {
		t.Errorf("second Acquire = %v, want ErrResourceBusy", err)
	}
	if err := a.Acquire(); !errors.Is(err, ipcerr.ErrInvalidArgument) {
		t.Errorf("Acquire twice = %v, want ErrInvalidArgument", err)
	}
	f.Done()
}

func TestUnacquiredOperations(t *testing.T) {
	c, f := newTestController(t, 0)
	ch, _ := c.Xlate("idle", []uint32{1, 1, 0})
	for name, fn := range map[string]func() error{
		"Send":    ch.Send,
		"Receive": ch.Receive,
		"Release": ch.Release,
		"WriteData": func() error {
			return ch.WriteData(0, 1)
		},
	} {
		if err := fn(); !errors.Is(err, ipcerr.ErrInvalidArgument) {
			t.Errorf("%s on unacquired channel = %v, want ErrInvalidArgument", name, err)
		}
	}
	f.Done()
}

func TestDataRegisters(t *testing.T) {
	c, f := newTestController(t, 1)
	ch, _ := c.Xlate("data", []uint32{0, 4, 3})
	f.ExpectWrite32(testBase+SourceReg(3), 1<<1)
	f.FakeRead32(testBase+SourceReg(3), 1<<1)
	f.ExpectWrite32(testBase+DSetReg(3), 1)
	f.ExpectWrite32(testBase+MSetReg(3), 1<<1|1)
	f.ExpectWrite32(testBase+DataReg(3, 0), 0xaaff9955)
	f.FakeRead32(testBase+DataReg(4, 6), 0x12345678)
	f.ExpectWrite32(testBase+SourceReg(3), 0)

	if err := ch.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := ch.WriteData(0, 0xaaff9955); err != nil {
		t.Fatal(err)
	}
	if err := ch.WriteData(DataRegisters, 0); !errors.Is(err, ipcerr.ErrInvalidArgument) {
		t.Errorf("WriteData(%d) = %v, want ErrInvalidArgument", DataRegisters, err)
	}
	v, err := ch.ReadData(6)
	if err != nil || v != 0x12345678 {
		t.Errorf("ReadData(6) = %#x, %v", v, err)
	}
	if err := ch.Free(); err != nil {
		t.Fatal(err)
	}
	f.Done()
}

func TestDescriptorPool(t *testing.T) {
	c, f := newTestController(t, 0)
	var chans []*Channel
	for i := 0; i < MaxMailboxes; i++ {
		ch, err := c.Xlate("pool", []uint32{1, 1, uint32(i)})
		if err != nil {
			t.Fatalf("Xlate #%d: %v", i, err)
		}
		chans = append(chans, ch)
	}
	if _, err := c.Xlate("extra", []uint32{1, 1, 0}); !errors.Is(err, ipcerr.ErrAllocation) {
		t.Fatalf("Xlate on full pool = %v, want ErrAllocation", err)
	}
	if err := chans[4].Free(); err != nil {
		t.Fatal(err)
	}
	if err := chans[4].Free(); err != nil {
		t.Errorf("second Free = %v", err)
	}
	ch, err := c.Xlate("extra", []uint32{1, 1, 0})
	if err != nil {
		t.Fatalf("Xlate after Free: %v", err)
	}
	if ch.Name() != "extra" {
		t.Errorf("name = %q", ch.Name())
	}
	f.Done()
}

func TestFreedHandleIsDetached(t *testing.T) {
	c, f := newTestController(t, 0)
	a, err := c.Xlate("a", []uint32{6, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Free(); err != nil {
		t.Fatal(err)
	}
	b, err := c.Xlate("b", []uint32{7, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("Xlate reused the freed handle")
	}
	if a.Name() != "a" || a.State() != Freed {
		t.Errorf("freed handle = %q %v, want \"a\" freed", a.Name(), a.State())
	}

	// No register access is expected from the stale handle.
	for name, fn := range map[string]func() error{
		"Acquire": a.Acquire,
		"Send":    a.Send,
		"Receive": a.Receive,
		"Release": a.Release,
		"Do":      func() error { return c.Do(a, func(*Channel) error { return nil }) },
		"WriteData": func() error {
			return a.WriteData(0, 1)
		},
	} {
		if err := fn(); !errors.Is(err, ipcerr.ErrInvalidArgument) {
			t.Errorf("%s on freed handle = %v, want ErrInvalidArgument", name, err)
		}
	}
	if b.State() != Unacquired {
		t.Errorf("live handle state = %v, want unacquired", b.State())
	}

	f.ExpectWrite32(testBase+SourceReg(2), 1)
	f.FakeRead32(testBase+SourceReg(2), 1)
	f.ExpectWrite32(testBase+DSetReg(2), 1<<7)
	f.ExpectWrite32(testBase+MSetReg(2), 1|1<<7)
	if err := b.Acquire(); err != nil {
		t.Fatalf("Acquire on live handle: %v", err)
	}
	f.Done()
}

func TestDoReleasesOnError(t *testing.T) {
	c, f := newTestController(t, 0)
	ch, _ := c.Xlate("do", []uint32{1, 1, 2})
	f.ExpectWrite32(testBase+SourceReg(2), 1)
	f.FakeRead32(testBase+SourceReg(2), 1)
	f.ExpectWrite32(testBase+DSetReg(2), 1<<1)
	f.ExpectWrite32(testBase+MSetReg(2), 1|1<<1)
	f.ExpectWrite32(testBase+SourceReg(2), 0)

	sentinel := errors.New("payload failed")
	err := c.Do(ch, func(*Channel) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Do = %v, want %v", err, sentinel)
	}
	if ch.State() != Released {
		t.Errorf("state = %v, want released", ch.State())
	}

	other, _ := NewController(fakeMemory(t), testBase, 1)
	if err := other.Do(ch, func(*Channel) error { return nil }); !errors.Is(err, ipcerr.ErrInvalidArgument) {
		t.Errorf("Do on foreign channel = %v, want ErrInvalidArgument", err)
	}
	f.Done()
}

func TestRegionMap(t *testing.T) {
	regs := fakeMemory(t)
	shm := fakeMemory(t)
	rm := RegionMap{
		{Base: testBase, Size: WindowSize, Mem: regs},
		{Base: 0x80000000, Size: 0x100, Mem: shm},
	}
	regs.ExpectWrite32(testBase+SendReg(0), 1)
	shm.FakeRead32(0x80000004, 7)
	rm.MustWrite32(testBase+SendReg(0), 1)
	if v := rm.MustRead32(0x80000004); v != 7 {
		t.Errorf("read = %d, want 7", v)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("unmapped access did not panic")
		}
	}()
	rm.MustRead32(0x90000000)
}
