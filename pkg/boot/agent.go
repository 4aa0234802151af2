// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"context"
	"fmt"

	"github.com/u-root/u-scmi/config"
	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/ipcerr"
	"github.com/u-root/u-scmi/pkg/scmi"
	"github.com/u-root/u-scmi/pkg/topology"
)

// OpenAgent resolves the board's SCMI agent into an agent polling as m
// says. The caller frees agent.Channel().
func OpenAgent(r *topology.Resolver, mem pl320.MemProvider, m config.Mailbox, opts ...scmi.Option) (*scmi.Agent, error) {
	b := r.Board()
	ch, err := r.AgentChannel()
	if err != nil {
		return nil, err
	}
	shm, err := scmi.NewSharedMemory(mem, uintptr(b.Agent.ShmemBase), uintptr(b.Agent.ShmemSize))
	if err != nil {
		ch.Free()
		return nil, err
	}
	poll := scmi.PollConfig{Retries: m.PollRetries, Min: m.PollInterval, Max: m.PollMax}
	return scmi.NewAgent(ch, shm, append([]scmi.Option{scmi.WithPoll(poll)}, opts...)...), nil
}

// SystemReset asserts the board's "system-reset" line through the SCU.
// On hardware a successful assert does not return.
func SystemReset(ctx context.Context, b *topology.Board, a *scmi.Agent) error {
	ref, err := b.Lookup(topology.Reset, "system-reset")
	if err != nil {
		return fmt.Errorf("system-reset is not defined: %w", err)
	}
	if len(ref.Args) == 0 {
		return fmt.Errorf("system-reset has no domain: %w", ipcerr.ErrInvalidArgument)
	}
	return a.Do(func(a *scmi.Agent) error {
		return a.AssertReset(ctx, ref.Args[0])
	})
}
