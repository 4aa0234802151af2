// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"

	"github.com/u-root/u-scmi/config"
	"github.com/u-root/u-scmi/pkg/logger"
	"github.com/u-root/u-scmi/pkg/metric"
)

// StageConfig is reported when the configuration overlay is unreadable.
const StageConfig = "config"

// ConfigPath is the optional configuration overlay read by Startup.
var ConfigPath = "/etc/u-scmi.yaml"

// Startup loads the configuration and runs the handshake.
func Startup(plat Platform) (*Plan, error) {
	return StartupWithFs(afero.NewOsFs(), plat)
}

// StartupWithFs is Startup reading the configuration and topology from fs.
func StartupWithFs(fs afero.Fs, plat Platform) (*Plan, error) {
	conf := config.DefaultConfig
	if ok, _ := afero.Exists(fs, ConfigPath); ok {
		c, err := config.Load(fs, ConfigPath)
		if err != nil {
			return nil, halt(StageConfig, err)
		}
		conf = c
	}
	if conf.Debug {
		logger.LogContainer.SetLevel(zapcore.DebugLevel)
	}
	if conf.MetricsAddress != "" {
		startMetrics(conf.MetricsAddress)
	}
	return RunWithFs(context.Background(), fs, plat, conf)
}

func startMetrics(addr string) {
	mux := http.NewServeMux()
	metric.StartMetrics(mux)
	log.Infof("Serving metrics on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()
}

// Halt parks the caller forever, as the boot ROM would hang.
func Halt() {
	log.Errorf("Boot halted")
	for {
		time.Sleep(time.Hour)
	}
}
