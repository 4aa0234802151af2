// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
)

type Version struct {
	Version string
	GitHash string
}

// Mailbox bounds the wait for a response from the SCU.
type Mailbox struct {
	PollRetries  int           `yaml:"poll-retries"`
	PollInterval time.Duration `yaml:"poll-interval"`
	PollMax      time.Duration `yaml:"poll-max"`
}

// Partition is one half of the A/B boot image set.
type Partition struct {
	Label string `yaml:"label"`
	Image string `yaml:"image"`
	Index int    `yaml:"index"`
}

type Boot struct {
	// Source is the spl_boot_source value: mmc1, mmc2, mmc12, mmc21 or uart.
	Source string `yaml:"source"`
	// EnvBase is the storage offset of the environment of image set A.
	// Image set B lives at EnvBase plus the boot offset reported by the SCU.
	EnvBase uint64    `yaml:"env-base"`
	A       Partition `yaml:"a"`
	B       Partition `yaml:"b"`
}

// Ethernet, when present, is pushed to the SCU before the boot info query.
type Ethernet struct {
	Rmii               bool  `yaml:"rmii"`
	TxBypassClockDelay uint8 `yaml:"tx-bypass-clock-delay"`
	TxClockInversion   uint8 `yaml:"tx-clock-inversion"`
	TxClockDelay       uint8 `yaml:"tx-clock-delay"`
	RxBypassClockDelay uint8 `yaml:"rx-bypass-clock-delay"`
	RxClockInversion   uint8 `yaml:"rx-clock-inversion"`
	RxClockDelay       uint8 `yaml:"rx-clock-delay"`
}

type Config struct {
	Version Version `yaml:"-"`
	// Topology is a .dtb or .yaml board description. Empty means the
	// platform's built in table.
	Topology string    `yaml:"topology"`
	Mailbox  Mailbox   `yaml:"mailbox"`
	Boot     Boot      `yaml:"boot"`
	Ethernet *Ethernet `yaml:"ethernet"`
	// MetricsAddress serves /metrics when set.
	MetricsAddress string `yaml:"metrics-address"`
	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`
}

// Set at link time with -X.
var (
	gitVersion = "dev"
	gitHash    = "unknown"
)

var DefaultConfig = &Config{
	Version: Version{
		Version: gitVersion,
		GitHash: gitHash,
	},

	// A full scale spin, backing off quickly so a wedged SCU leaves the
	// console responsive.
	Mailbox: Mailbox{
		PollRetries:  pl320.MaxSendRetries,
		PollInterval: time.Microsecond,
		PollMax:      time.Millisecond,
	},

	Boot: Boot{
		Source:  "mmc12",
		EnvBase: 0x100000,
		A:       Partition{Label: "a", Image: "fitImage", Index: 1},
		B:       Partition{Label: "b", Image: "fitImage", Index: 2},
	},
}

// Load overlays the YAML file at path on a copy of DefaultConfig.
func Load(fs afero.Fs, path string) (*Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse overlays YAML b on a copy of DefaultConfig.
func Parse(b []byte) (*Config, error) {
	c := *DefaultConfig
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.Mailbox.PollRetries <= 0 {
		return nil, fmt.Errorf("config: mailbox poll-retries must be positive, got %d", c.Mailbox.PollRetries)
	}
	if c.Mailbox.PollMax < c.Mailbox.PollInterval {
		c.Mailbox.PollMax = c.Mailbox.PollInterval
	}
	return &c, nil
}
