// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pl320

import (
	"github.com/u-root/u-scmi/pkg/metric"
)

var (
	acquireTotal = metric.CounterVec(metric.MetricOpts{
		Subsystem: "mbox",
		Name:      "acquire_total",
		Help:      "Mailbox acquire attempts that reached the SOURCE register.",
	}, []string{"channel"})
	acquireBusy = metric.CounterVec(metric.MetricOpts{
		Subsystem: "mbox",
		Name:      "acquire_busy_total",
		Help:      "Mailbox acquire attempts that found the slot owned.",
	}, []string{"channel"})
	sendTotal = metric.CounterVec(metric.MetricOpts{
		Subsystem: "mbox",
		Name:      "send_total",
		Help:      "Doorbells rung toward the destination channel.",
	}, []string{"channel"})
	pollTotal = metric.CounterVec(metric.MetricOpts{
		Subsystem: "mbox",
		Name:      "receive_poll_total",
		Help:      "Reads of the masked interrupt status register.",
	}, []string{"channel"})
)
