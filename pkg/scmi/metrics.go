// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/u-root/u-scmi/pkg/metric"
)

var (
	messageTotal = metric.CounterVec(metric.MetricOpts{
		Subsystem: "scmi",
		Name:      "messages_total",
		Help:      "SCMI commands by protocol and outcome.",
	}, []string{"protocol", "status"})
	pollsPerMessage = metric.Histogram(metric.MetricOpts{
		Subsystem: "scmi",
		Name:      "polls_per_message",
		Help:      "Receive polls spent waiting for each response.",
	}, prometheus.ExponentialBuckets(1, 4, 10))
)
