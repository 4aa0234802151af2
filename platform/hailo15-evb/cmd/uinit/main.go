// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import (
	"fmt"

	"github.com/u-root/u-scmi/pkg/boot"
	"github.com/u-root/u-scmi/pkg/logger"
	"github.com/u-root/u-scmi/platform/hailo15-evb/pkg/platform"
)

var log = logger.LogContainer.GetSimpleLogger()

func main() {
	p := platform.Platform()
	plan, err := boot.Startup(p)
	if err != nil {
		log.Error(err)
		boot.Halt()
	}
	for _, kv := range plan.Environment() {
		fmt.Println(kv)
	}
}
