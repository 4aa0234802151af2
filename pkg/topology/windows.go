// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"sort"

	"github.com/u-root/u-scmi/pkg/hardware/pl320"
)

// Window is a physical address range the agent needs mapped.
type Window struct {
	Base uint64
	Size uint64
}

// Windows lists the register blocks of every mailbox provider and the
// agent's shared memory, rounded out to align, sorted by base. Overlapping
// windows are merged.
func (b *Board) Windows(align uint64) []Window {
	var ws []Window
	for _, p := range b.Providers {
		if !isPL320(p.Driver) {
			continue
		}
		size := p.Size
		if size == 0 {
			size = pl320.WindowSize
		}
		ws = append(ws, roundOut(p.Base, size, align))
	}
	if a := b.Agent; a != nil && a.ShmemSize != 0 {
		ws = append(ws, roundOut(a.ShmemBase, a.ShmemSize, align))
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].Base < ws[j].Base })

	var out []Window
	for _, w := range ws {
		if n := len(out); n > 0 && w.Base <= out[n-1].Base+out[n-1].Size {
			last := &out[n-1]
			if end := w.Base + w.Size; end > last.Base+last.Size {
				last.Size = end - last.Base
			}
			continue
		}
		out = append(out, w)
	}
	return out
}

func roundOut(base, size, align uint64) Window {
	if align == 0 {
		align = 1
	}
	start := base &^ (align - 1)
	end := (base + size + align - 1) &^ (align - 1)
	return Window{Base: start, Size: end - start}
}
