// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package topology

import (
	"golang.org/x/sys/unix"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
)

// OpenHostMemory maps every window of b from /dev/mem.
func OpenHostMemory(b *Board) (pl320.RegionMap, error) {
	var rm pl320.RegionMap
	for _, w := range b.Windows(uint64(unix.Getpagesize())) {
		m, err := pl320.OpenHostMemory(uintptr(w.Base), int(w.Size))
		if err != nil {
			rm.Close()
			return nil, err
		}
		rm = append(rm, pl320.Region{Base: uintptr(w.Base), Size: uintptr(w.Size), Mem: m})
	}
	return rm, nil
}
