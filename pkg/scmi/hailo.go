// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import "context"

// ConfigureEthernetDelay programs the RGMII delay lines of the ethernet MAC.
func (a *Agent) ConfigureEthernetDelay(ctx context.Context, d EthernetDelay) error {
	return a.call(ctx, ProtocolHailo, MsgHailoConfigureEthDelay, &d, nil)
}

// NewEthernetDelay builds the delay settings from their individual values.
func NewEthernetDelay(txBypass, txInv, txDelay, rxBypass, rxInv, rxDelay uint8) EthernetDelay {
	return EthernetDelay{
		TxBypassClockDelay: txBypass,
		TxClockInversion:   txInv,
		TxClockDelay:       txDelay,
		RxBypassClockDelay: rxBypass,
		RxClockInversion:   rxInv,
		RxClockDelay:       rxDelay,
	}
}

// SetEthernetRmiiMode switches the ethernet MAC to RMII.
func (a *Agent) SetEthernetRmiiMode(ctx context.Context) error {
	return a.call(ctx, ProtocolHailo, MsgHailoSetEthRmiiMode, nil, nil)
}

// GetBootInfo asks the platform which boot image set it selected.
func (a *Agent) GetBootInfo(ctx context.Context) (BootInfo, error) {
	var out BootInfo
	err := a.call(ctx, ProtocolHailo, MsgHailoGetBootInfo, nil, &out)
	return out, err
}
