// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pl320sim

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/ipcerr"
)

const base uintptr = 0x78002000

func TestEthernetChannelScenario(t *testing.T) {
	const own = 0
	sim := New(base)
	c, err := pl320.NewController(sim, base, own)
	require.NoError(t, err)

	ch, err := c.Xlate("eth0", []uint32{6, 1, 0})
	require.NoError(t, err)
	require.NoError(t, ch.Acquire())
	assert.Equal(t, uint32(1<<own), sim.Source(0))

	var rang []uint
	sim.OnDoorbell(func(m uint) { rang = append(rang, m) })
	require.NoError(t, ch.Send())
	assert.Equal(t, []uint{0}, rang)
	assert.True(t, sim.Pending(0, 6), "doorbell toward channel 6")

	assert.ErrorIs(t, ch.Receive(), ipcerr.ErrNoData)

	sim.Signal(1, own)
	require.NoError(t, ch.Receive())
	assert.False(t, sim.Pending(1, own), "receive clears the destination interrupt")
	assert.ErrorIs(t, ch.Receive(), ipcerr.ErrNoData)

	require.NoError(t, ch.Release())
	assert.Equal(t, uint32(0), sim.Source(0))
}

func TestMaskedInterrupt(t *testing.T) {
	sim := New(base)
	c, err := pl320.NewController(sim, base, 2)
	require.NoError(t, err)
	ch, err := c.Xlate("masked", []uint32{6, 1, 0})
	require.NoError(t, err)
	require.NoError(t, ch.Acquire())

	// Raw status without the mask bit for channel 2 must not be seen.
	sim.MustWrite32(base+pl320.DSetReg(1), 1<<2)
	sim.MustWrite32(base+pl320.SendReg(1), pl320.SendDestination)
	assert.NotZero(t, sim.MustRead32(base+pl320.RawIrqReg(2)))
	assert.ErrorIs(t, ch.Receive(), ipcerr.ErrNoData)

	sim.MustWrite32(base+pl320.MSetReg(1), 1<<2)
	assert.NoError(t, ch.Receive())
}

func TestExclusiveOwnership(t *testing.T) {
	for round := 0; round < 20; round++ {
		sim := New(base)
		var (
			wins  int32
			busy  int32
			chans [pl320.MaxChannels]*pl320.Channel
			g     errgroup.Group
		)
		for own := uint(0); own < pl320.MaxChannels; own++ {
			c, err := pl320.NewController(sim, base, own)
			require.NoError(t, err)
			chans[own], err = c.Xlate("race", []uint32{uint32((own + 1) % pl320.MaxChannels), 1, 0})
			require.NoError(t, err)
		}
		for own := range chans {
			ch := chans[own]
			g.Go(func() error {
				err := ch.Acquire()
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
				case errors.Is(err, ipcerr.ErrResourceBusy):
					atomic.AddInt32(&busy, 1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		require.Equal(t, int32(1), wins, "round %d", round)
		require.Equal(t, int32(pl320.MaxChannels-1), busy, "round %d", round)

		owner := sim.Source(0)
		var winner *pl320.Channel
		for own, ch := range chans {
			if ch.State() == pl320.Acquired {
				winner = ch
				assert.Equal(t, uint32(1)<<uint(own), owner, "ownership register holds the winner's bit")
			}
		}
		require.NotNil(t, winner)
		require.NoError(t, winner.Send())
		require.NoError(t, winner.Release())
		assert.Zero(t, sim.Source(0), "release after send zeroes the owner")
	}
}

func TestBoundsNoWrites(t *testing.T) {
	sim := New(base)
	c, err := pl320.NewController(sim, base, 0)
	require.NoError(t, err)
	for _, args := range [][]uint32{{8, 1, 0}, {6, 16, 0}, {6, 1, 16}} {
		_, err := c.Xlate("oob", args)
		assert.ErrorIs(t, err, ipcerr.ErrInvalidArgument, "%v", args)
	}
	assert.Zero(t, sim.Ops())
}

func TestSourceLatch(t *testing.T) {
	sim := New(base)
	sim.MustWrite32(base+pl320.SourceReg(3), 1<<4)
	sim.MustWrite32(base+pl320.SourceReg(3), 1<<5)
	assert.Equal(t, uint32(1<<4), sim.Source(3))
	sim.MustWrite32(base+pl320.SourceReg(3), 0)
	sim.MustWrite32(base+pl320.SourceReg(3), 1<<5)
	assert.Equal(t, uint32(1<<5), sim.Source(3))

	sim.MustWrite32(base+pl320.DataReg(3, 2), 0xaaff9955)
	assert.Equal(t, uint32(0xaaff9955), sim.Data(3, 2))
	sim.MustWrite32(0x80000000, 42)
	assert.Equal(t, uint32(42), sim.MustRead32(0x80000000))
}
