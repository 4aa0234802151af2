// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import "context"

// EnableClock gates clock id on.
func (a *Agent) EnableClock(ctx context.Context, id uint32) error {
	return a.call(ctx, ProtocolClock, MsgClockConfigSet, &ClockConfigSetIn{ClockID: id, Attributes: ClockEnable}, nil)
}

// DisableClock gates clock id off.
func (a *Agent) DisableClock(ctx context.Context, id uint32) error {
	return a.call(ctx, ProtocolClock, MsgClockConfigSet, &ClockConfigSetIn{ClockID: id}, nil)
}
