// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ipcerr holds the error taxonomy shared by the mailbox transport,
// the topology resolver and the SCMI layer.
package ipcerr

import (
	"errors"
	"fmt"
)

// Transport and resolver errors.
var (
	// ErrInvalidArgument is returned for out of bounds topology indices
	// and malformed descriptors.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrResourceBusy is returned when a mailbox slot is owned by someone else.
	ErrResourceBusy = errors.New("resource busy")
	// ErrNoData is returned by a poll that found nothing ready.
	ErrNoData = errors.New("no data available")
	// ErrAllocation is returned when no descriptor storage is left.
	ErrAllocation = errors.New("allocation failure")
)

// Protocol errors.
var (
	// ErrRemoteRejected is returned when the remote side answers with a
	// negative status.
	ErrRemoteRejected = errors.New("rejected by remote")
	// ErrVersionMismatch is fatal: the remote firmware speaks a different version.
	ErrVersionMismatch = errors.New("firmware version mismatch")
)

// Linux errno values reported by diagnostics.
const (
	EPERM     = 1
	ENOENT    = 2
	EIO       = 5
	ENOMEM    = 12
	EACCES    = 13
	EBUSY     = 16
	EINVAL    = 22
	ERANGE    = 34
	ENODATA   = 61
	ECOMM     = 70
	EPROTO    = 71
	EOPNOTSUP = 95
	EREMOTEIO = 121
)

// OpError records the operation and the client or channel name that failed.
type OpError struct {
	Op   string
	Name string
	Err  error
}

func (e *OpError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Wrap returns err annotated with op and name, or nil if err is nil.
func Wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Name: name, Err: err}
}

// IsRetryable reports whether a caller may poll or retry after err.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrResourceBusy)
}

// IsFatal reports whether err must halt the boot.
func IsFatal(err error) bool {
	return errors.Is(err, ErrVersionMismatch)
}

type errnoer interface {
	Errno() int
}

// Code returns the negative errno matching err, 0 for nil.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var en errnoer
	if errors.As(err, &en) {
		return -en.Errno()
	}
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return -EINVAL
	case errors.Is(err, ErrResourceBusy):
		return -EBUSY
	case errors.Is(err, ErrNoData):
		return -ENODATA
	case errors.Is(err, ErrAllocation):
		return -ENOMEM
	case errors.Is(err, ErrVersionMismatch):
		return -EPERM
	}
	return -EIO
}
