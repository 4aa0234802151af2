// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boot runs the early boot handshake with the SCU: it checks the
// firmware version, pushes board settings and picks the A or B image set
// from the boot info the SCU reports.
package boot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/u-root/u-scmi/config"
	"github.com/u-root/u-scmi/pkg/hardware/pl320"
	"github.com/u-root/u-scmi/pkg/ipcerr"
	"github.com/u-root/u-scmi/pkg/logger"
	"github.com/u-root/u-scmi/pkg/scmi"
	"github.com/u-root/u-scmi/pkg/topology"
)

var log = logger.LogContainer.GetSimpleLogger()

// Platform supplies the board description and physical memory access.
type Platform interface {
	// Board returns the built in board description.
	Board() (*topology.Board, error)
	// Memory returns access to the mailbox block and shared memory of b.
	Memory(b *topology.Board) (pl320.MemProvider, error)
}

// Boot stages, as reported by HaltError.
const (
	StageTopology = "topology"
	StageMemory   = "memory"
	StageAgent    = "agent"
	StageVersion  = "version"
	StageEthernet = "ethernet"
	StageBootInfo = "boot-info"
)

// HaltError is a failure the boot cannot continue past.
type HaltError struct {
	Stage string
	Err   error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("boot halted at %s: %v", e.Stage, e.Err)
}

func (e *HaltError) Unwrap() error {
	return e.Err
}

func halt(stage string, err error) error {
	haltTotal.WithLabelValues(stage).Inc()
	return &HaltError{Stage: stage, Err: err}
}

// Plan is the outcome of a successful handshake.
type Plan struct {
	FirmwareVersion uint32
	BootInfo        scmi.BootInfo
	Partition       config.Partition
	EnvOffset       uint64
	Source          string
	Order           []Device
}

func (p *Plan) order() string {
	order := make([]string, len(p.Order))
	for i, d := range p.Order {
		order[i] = d.String()
	}
	return strings.Join(order, " ")
}

func (p *Plan) String() string {
	return fmt.Sprintf("firmware %#x, partition %s (%s #%d), env @%#x, boot source %s [%s]",
		p.FirmwareVersion, p.Partition.Label, p.Partition.Image, p.Partition.Index,
		p.EnvOffset, p.Source, p.order())
}

// Environment renders the plan as variables for the next boot stage.
func (p *Plan) Environment() []string {
	return []string{
		"boot_partition=" + p.Partition.Label,
		"boot_image=" + p.Partition.Image,
		fmt.Sprintf("boot_partition_index=%d", p.Partition.Index),
		fmt.Sprintf("env_offset=%#x", p.EnvOffset),
		"spl_boot_source=" + p.Source,
		"boot_order=" + p.order(),
	}
}

// CheckVersion compares the firmware version the board expects with the
// one the SCU implements.
func CheckVersion(expected, actual uint32) error {
	if expected != actual {
		return fmt.Errorf("firmware version mismatch: expected=%#x, actual=%#x: %w", expected, actual, ipcerr.ErrVersionMismatch)
	}
	return nil
}

// SelectPartition picks image set A for a zero boot offset, B otherwise.
func SelectPartition(info scmi.BootInfo, b config.Boot) config.Partition {
	if info.BootOffset == 0 {
		return b.A
	}
	return b.B
}

// EnvOffset is where the environment of the selected image set lives.
func EnvOffset(base uint64, info scmi.BootInfo) uint64 {
	return base + uint64(info.BootOffset)
}

// LoadBoard returns the board named by conf.Topology, read from fs, or the
// platform's own table when none is configured.
func LoadBoard(fs afero.Fs, plat Platform, conf *config.Config) (*topology.Board, error) {
	if conf.Topology != "" {
		return topology.LoadFs(fs, conf.Topology)
	}
	b, err := plat.Board()
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Run performs the handshake. Every error it returns is a *HaltError.
func Run(ctx context.Context, plat Platform, conf *config.Config) (*Plan, error) {
	return RunWithFs(ctx, afero.NewOsFs(), plat, conf)
}

// RunWithFs is Run reading a configured topology file from fs.
func RunWithFs(ctx context.Context, fs afero.Fs, plat Platform, conf *config.Config) (*Plan, error) {
	log.Infof("Welcome to u-scmi version %s (%s)", conf.Version.Version, conf.Version.GitHash)

	log.Infof("Loading board description")
	board, err := LoadBoard(fs, plat, conf)
	if err != nil {
		return nil, halt(StageTopology, err)
	}
	mem, err := plat.Memory(board)
	if err != nil {
		return nil, halt(StageMemory, err)
	}
	defer mem.Close()

	log.Infof("Opening SCMI agent channel")
	agent, err := OpenAgent(topology.NewResolver(board, mem), mem, conf.Mailbox)
	if err != nil {
		return nil, halt(StageAgent, err)
	}
	defer agent.Channel().Free()

	plan := &Plan{}
	err = agent.Do(func(a *scmi.Agent) error {
		impl, err := a.DiscoverImplementationVersion(ctx)
		if err != nil {
			return halt(StageVersion, err)
		}
		plan.FirmwareVersion = impl
		firmwareVersion.Set(float64(impl))
		logger.LogContainer.GetLogger().Info("SCU firmware",
			logger.LogContainer.Hex32("expected", board.Agent.FirmwareVersion),
			logger.LogContainer.Hex32("actual", impl))
		if err := CheckVersion(board.Agent.FirmwareVersion, impl); err != nil {
			return halt(StageVersion, err)
		}

		if e := conf.Ethernet; e != nil {
			log.Infof("Configuring ethernet delay lines")
			d := scmi.NewEthernetDelay(e.TxBypassClockDelay, e.TxClockInversion, e.TxClockDelay,
				e.RxBypassClockDelay, e.RxClockInversion, e.RxClockDelay)
			if err := a.ConfigureEthernetDelay(ctx, d); err != nil {
				return halt(StageEthernet, err)
			}
			if e.Rmii {
				if err := a.SetEthernetRmiiMode(ctx); err != nil {
					return halt(StageEthernet, err)
				}
			}
		}

		info, err := a.GetBootInfo(ctx)
		if err != nil {
			return halt(StageBootInfo, err)
		}
		plan.BootInfo = info
		return nil
	})
	if err != nil {
		var he *HaltError
		if !errors.As(err, &he) {
			err = halt(StageAgent, err)
		}
		return nil, err
	}

	plan.Partition = SelectPartition(plan.BootInfo, conf.Boot)
	plan.EnvOffset = EnvOffset(conf.Boot.EnvBase, plan.BootInfo)
	plan.Source, plan.Order = ParseBootSource(conf.Boot.Source)
	partitionIndex.Set(float64(plan.Partition.Index))
	log.Infof("Boot plan: %v", plan)
	return plan, nil
}
