// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmhodges/clock"
	"github.com/jpillora/backoff"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/ipcerr"
	"github.com/u-root/u-scmi/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

// PollConfig bounds the wait for a response.
type PollConfig struct {
	// Retries is the number of Receive attempts before giving up.
	Retries int
	// Min and Max bound the pause between attempts.
	Min time.Duration
	Max time.Duration
}

// DefaultPoll spins up to pl320.MaxSendRetries times, backing off from 1us to 1ms.
var DefaultPoll = PollConfig{
	Retries: pl320.MaxSendRetries,
	Min:     time.Microsecond,
	Max:     time.Millisecond,
}

// Message is one request and the raw response payload after the status word.
type Message struct {
	Protocol ProtocolID
	ID       MessageID
	In       []byte
	// OutSize is the payload size expected after the status word.
	OutSize int
}

// Agent sends SCMI commands to the platform over one mailbox channel.
// It is not safe for concurrent use.
type Agent struct {
	ch    *pl320.Channel
	shm   *SharedMemory
	poll  PollConfig
	clk   clock.Clock
	token uint16
}

// Option configures an Agent.
type Option func(*Agent)

// WithPoll replaces DefaultPoll.
func WithPoll(p PollConfig) Option {
	return func(a *Agent) {
		a.poll = p
	}
}

// WithClock sets the clock used to pace polling.
func WithClock(c clock.Clock) Option {
	return func(a *Agent) {
		a.clk = c
	}
}

// NewAgent returns an agent that talks through ch and shm. The channel is
// acquired per session, see Do.
func NewAgent(ch *pl320.Channel, shm *SharedMemory, opts ...Option) *Agent {
	a := &Agent{ch: ch, shm: shm, poll: DefaultPoll, clk: clock.New()}
	for _, o := range opts {
		o(a)
	}
	if a.poll.Retries <= 0 {
		a.poll.Retries = 1
	}
	return a
}

// Channel returns the mailbox channel of the agent.
func (a *Agent) Channel() *pl320.Channel {
	return a.ch
}

// Do acquires the mailbox channel, runs fn and releases the channel on
// every path.
func (a *Agent) Do(fn func(*Agent) error) (err error) {
	if err := a.ch.Acquire(); err != nil {
		return err
	}
	defer func() {
		if rerr := a.ch.Release(); err == nil {
			err = rerr
		}
	}()
	return fn(a)
}

func (a *Agent) nextToken() uint16 {
	t := a.token
	a.token = (a.token + 1) & maxToken
	return t
}

// wait polls Receive until the platform rings back.
func (a *Agent) wait(ctx context.Context) (int, error) {
	b := &backoff.Backoff{Min: a.poll.Min, Max: a.poll.Max, Factor: 2}
	for i := 1; ; i++ {
		err := a.ch.Receive()
		if err == nil {
			return i, nil
		}
		if !errors.Is(err, ipcerr.ErrNoData) {
			return i, err
		}
		if i >= a.poll.Retries {
			return i, fmt.Errorf("no response after %d polls: %w", i, ipcerr.ErrNoData)
		}
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if d := b.Duration(); d > 0 {
			a.clk.Sleep(d)
		}
	}
}

// Process sends m and returns the response payload following the status
// word. A non-zero status is returned as a *StatusError.
func (a *Agent) Process(ctx context.Context, m Message) ([]byte, error) {
	h := Header{ID: m.ID, Type: TypeCommand, Protocol: m.Protocol, Token: a.nextToken()}
	proto := m.Protocol.String()
	if err := a.shm.WriteRequest(h, m.In); err != nil {
		return nil, fmt.Errorf("%v: %w", h, err)
	}
	defer a.shm.Clear()
	if err := a.ch.Send(); err != nil {
		return nil, err
	}
	polls, err := a.wait(ctx)
	pollsPerMessage.Observe(float64(polls))
	if err != nil {
		messageTotal.WithLabelValues(proto, "timeout").Inc()
		return nil, ipcerr.Wrap("scmi", h.String(), err)
	}
	rh, payload, err := a.shm.ReadResponse(4 + m.OutSize)
	if err != nil {
		messageTotal.WithLabelValues(proto, "transport").Inc()
		return nil, ipcerr.Wrap("scmi", h.String(), err)
	}
	if rh.Protocol != h.Protocol || rh.ID != h.ID || rh.Token != h.Token {
		messageTotal.WithLabelValues(proto, "transport").Inc()
		return nil, fmt.Errorf("scmi %v: response header %v: %w", h, rh, ipcerr.ErrInvalidArgument)
	}
	if len(payload) < 4 {
		messageTotal.WithLabelValues(proto, "transport").Inc()
		return nil, fmt.Errorf("scmi %v: response without status: %w", h, ipcerr.ErrInvalidArgument)
	}
	st := Status(int32(binary.LittleEndian.Uint32(payload)))
	messageTotal.WithLabelValues(proto, strconv.Itoa(int(st))).Inc()
	log.Debugf("scmi %v: %v after %d polls", h, st, polls)
	if err := CheckStatus(h, st); err != nil {
		return nil, err
	}
	return payload[4:], nil
}

// call encodes in, processes the message and decodes the response into
// out. Either may be nil for empty payloads.
func (a *Agent) call(ctx context.Context, p ProtocolID, id MessageID, in, out interface{}) error {
	var req bytes.Buffer
	if in != nil {
		if err := binary.Write(&req, binary.LittleEndian, in); err != nil {
			return err
		}
	}
	size := 0
	if out != nil {
		size = binary.Size(out)
	}
	resp, err := a.Process(ctx, Message{Protocol: p, ID: id, In: req.Bytes(), OutSize: size})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(resp) < size {
		return fmt.Errorf("scmi %v msg %#x: short response of %d bytes, want %d: %w", p, uint8(id), len(resp), size, ipcerr.ErrInvalidArgument)
	}
	return binary.Read(bytes.NewReader(resp), binary.LittleEndian, out)
}
