// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import "context"

// AssertReset holds reset domain id asserted.
func (a *Agent) AssertReset(ctx context.Context, id uint32) error {
	return a.reset(ctx, id, ResetExplicitAssert)
}

// DeassertReset releases reset domain id.
func (a *Agent) DeassertReset(ctx context.Context, id uint32) error {
	return a.reset(ctx, id, 0)
}

// PulseReset asks the platform for an autonomous reset cycle of domain id.
func (a *Agent) PulseReset(ctx context.Context, id uint32) error {
	return a.reset(ctx, id, ResetAutonomous)
}

func (a *Agent) reset(ctx context.Context, id, flags uint32) error {
	return a.call(ctx, ProtocolReset, MsgReset, &ResetIn{DomainID: id, Flags: flags}, nil)
}
