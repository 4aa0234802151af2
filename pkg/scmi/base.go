// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import (
	"bytes"
	"context"
)

// ProtocolVersion returns the version of protocol p as major<<16|minor.
func (a *Agent) ProtocolVersion(ctx context.Context, p ProtocolID) (uint32, error) {
	var out VersionOut
	if err := a.call(ctx, p, MsgProtocolVersion, nil, &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

// DiscoverImplementationVersion returns the firmware implementation
// version the platform reports.
func (a *Agent) DiscoverImplementationVersion(ctx context.Context) (uint32, error) {
	var out VersionOut
	if err := a.call(ctx, ProtocolBase, MsgBaseDiscoverImplementationVersion, nil, &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

// DiscoverVendor returns the vendor identifier, trimmed at the first NUL.
func (a *Agent) DiscoverVendor(ctx context.Context) (string, error) {
	var out VendorOut
	if err := a.call(ctx, ProtocolBase, MsgBaseDiscoverVendor, nil, &out); err != nil {
		return "", err
	}
	v := out.Vendor[:]
	if i := bytes.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return string(v), nil
}
