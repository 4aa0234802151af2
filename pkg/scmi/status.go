// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scmi

import (
	"fmt"

	"github.com/u-root/u-scmi/pkg/ipcerr"
)

// Status is the signed word that starts every response payload.
type Status int32

const (
	StatusSuccess           Status = 0
	StatusNotSupported      Status = -1
	StatusInvalidParameters Status = -2
	StatusDenied            Status = -3
	StatusNotFound          Status = -4
	StatusOutOfRange        Status = -5
	StatusBusy              Status = -6
	StatusCommsError        Status = -7
	StatusGenericError      Status = -8
	StatusHardwareError     Status = -9
	StatusProtocolError     Status = -10
)

type statusInfo struct {
	name  string
	kind  error
	errno int
}

var statusTable = map[Status]statusInfo{
	StatusNotSupported:      {"not supported", ipcerr.ErrRemoteRejected, ipcerr.EOPNOTSUP},
	StatusInvalidParameters: {"invalid parameters", ipcerr.ErrRemoteRejected, ipcerr.EINVAL},
	StatusDenied:            {"denied", ipcerr.ErrRemoteRejected, ipcerr.EACCES},
	StatusNotFound:          {"not found", ipcerr.ErrRemoteRejected, ipcerr.ENOENT},
	StatusOutOfRange:        {"out of range", ipcerr.ErrRemoteRejected, ipcerr.ERANGE},
	StatusBusy:              {"busy", ipcerr.ErrResourceBusy, ipcerr.EBUSY},
	StatusCommsError:        {"comms error", ipcerr.ErrRemoteRejected, ipcerr.ECOMM},
	StatusGenericError:      {"generic error", ipcerr.ErrRemoteRejected, ipcerr.EIO},
	StatusHardwareError:     {"hardware error", ipcerr.ErrRemoteRejected, ipcerr.EREMOTEIO},
	StatusProtocolError:     {"protocol error", ipcerr.ErrRemoteRejected, ipcerr.EPROTO},
}

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	if i, ok := statusTable[s]; ok {
		return i.name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// StatusError is a non-zero remote status. It matches its taxonomy error
// with errors.Is.
type StatusError struct {
	Header Header
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scmi %v: %v", e.Header, e.Status)
}

// Unwrap returns the taxonomy error: ipcerr.ErrResourceBusy for BUSY and
// ipcerr.ErrRemoteRejected for every other code, known or not.
func (e *StatusError) Unwrap() error {
	if i, ok := statusTable[e.Status]; ok {
		return i.kind
	}
	return ipcerr.ErrRemoteRejected
}

// Errno is the Linux errno the status translates to.
func (e *StatusError) Errno() int {
	if i, ok := statusTable[e.Status]; ok {
		return i.errno
	}
	return ipcerr.EPROTO
}

// CheckStatus maps a remote status to nil or a *StatusError.
func CheckStatus(h Header, s Status) error {
	if s == StatusSuccess {
		return nil
	}
	return &StatusError{Header: h, Status: s}
}
