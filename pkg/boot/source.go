// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

// Device is a storage device the next stage can be loaded from.
type Device int

const (
	DeviceMMC1 Device = iota + 1
	DeviceMMC2
	DeviceUART
)

func (d Device) String() string {
	switch d {
	case DeviceMMC1:
		return "mmc1"
	case DeviceMMC2:
		return "mmc2"
	case DeviceUART:
		return "uart"
	}
	return "unknown"
}

// DefaultSource is used when the configured source is missing or unknown.
const DefaultSource = "mmc12"

var sources = map[string][]Device{
	"mmc1":  {DeviceMMC1},
	"mmc2":  {DeviceMMC2},
	"mmc12": {DeviceMMC1, DeviceMMC2},
	"mmc21": {DeviceMMC2, DeviceMMC1},
	"uart":  {DeviceUART},
}

// ParseBootSource maps a spl_boot_source value to its device order. It
// returns the source actually used.
func ParseBootSource(s string) (string, []Device) {
	if s == "" {
		log.Warnf("failed to get 'spl_boot_source', falling back to %s", DefaultSource)
		s = DefaultSource
	}
	order, ok := sources[s]
	if !ok {
		log.Warnf("spl_boot_source=%s unsupported, falling back to %s", s, DefaultSource)
		s = DefaultSource
		order = sources[s]
	}
	return s, append([]Device(nil), order...)
}
