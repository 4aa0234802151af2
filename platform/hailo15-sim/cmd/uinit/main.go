// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"

	"github.com/u-root/u-scmi/pkg/boot"
	"github.com/u-root/u-scmi/pkg/logger"
	"github.com/u-root/u-scmi/pkg/scmi/scmisim"
	"github.com/u-root/u-scmi/platform/hailo15-sim/pkg/platform"
)

var log = logger.LogContainer.GetSimpleLogger()

var (
	fwVersion  = flag.Uint("fw-version", platform.FirmwareVersion, "Implementation version the simulated SCU reports")
	bootOffset = flag.Uint("boot-offset", 0, "Boot offset the simulated SCU reports, 0 selects image set A")
)

func main() {
	flag.Parse()
	p, err := platform.New(scmisim.Firmware{Version: uint32(*fwVersion), BootOffset: uint32(*bootOffset)})
	if err != nil {
		log.Fatalf("Simulated platform: %v", err)
	}
	plan, err := boot.Startup(p)
	if err != nil {
		log.Error(err)
		boot.Halt()
	}
	for _, kv := range plan.Environment() {
		fmt.Println(kv)
	}
}
