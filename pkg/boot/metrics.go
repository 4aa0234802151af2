// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"github.com/u-root/u-scmi/pkg/metric"
)

var (
	haltTotal = metric.CounterVec(metric.MetricOpts{
		Subsystem: "boot",
		Name:      "halt_total",
		Help:      "Boot attempts that halted, by stage.",
	}, []string{"stage"})
	firmwareVersion = metric.Gauge(metric.MetricOpts{
		Subsystem: "boot",
		Name:      "scu_firmware_version",
		Help:      "Implementation version reported by the SCU.",
	})
	partitionIndex = metric.Gauge(metric.MetricOpts{
		Subsystem: "boot",
		Name:      "partition_index",
		Help:      "Index of the selected boot partition.",
	})
)
