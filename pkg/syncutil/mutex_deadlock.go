// Adapted from go-pn532 internal/syncutil.
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later

//go:build deadlock

// Package syncutil provides the mutex used for local bookkeeping. This file
// is compiled with -tags=deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex reports lock ordering problems and long waits.
type Mutex struct {
	deadlock.Mutex
}
