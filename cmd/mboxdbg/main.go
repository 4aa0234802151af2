// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/u-root/u-scmi/config"
	"github.com/u-root/u-scmi/pkg/topology"
)

var (
	topologyPath = flag.String("topology", "/boot/board.dtb", "Board description, a .dtb or .yaml file")
	configPath   = flag.String("config", "", "YAML configuration overlay")
)

const help = `usage: mboxdbg [flags] op
  mbox-list                     - list all mbox clients
  mbox-send-test <client-name>  - run a simple send test on a specific named mbox client
  reset-list                    - list all reset clients
  reset-assert <client-name>    - reset client assert
  reset-deassert <client-name>  - reset client de-assert
  clk-list                      - list all clock clients
  clk-start <client-name>       - clock client start
  clk-stop <client-name>        - clock client stop
`

func usage() {
	fmt.Fprint(flag.CommandLine.Output(), help)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	conf := config.DefaultConfig
	if *configPath != "" {
		c, err := config.Load(afero.NewOsFs(), *configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		conf = c
	}

	board, err := topology.Load(*topologyPath)
	if err != nil {
		log.Fatalf("Failed to load board description: %v", err)
	}
	mem, err := topology.OpenHostMemory(board)
	if err != nil {
		log.Fatalf("Failed to map mailbox registers: %v", err)
	}

	d := newDebugger(os.Stdout, board, mem, conf.Mailbox)
	rc := d.run(context.Background(), flag.Args())
	d.Close()
	mem.Close()
	if rc == exitUsage {
		usage()
	}
	os.Exit(rc)
}
