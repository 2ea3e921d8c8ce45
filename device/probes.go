// File: device/probes.go
// Author: momentics <momentics@gmail.com>
//
// Debug probes over the device graph: per-channel buffer counters,
// trigger state and arena extent maps, collected on demand.

package device

import (
	"fmt"

	"github.com/momentics/zio/buffer"
	"github.com/momentics/zio/stats"
)

// RegisterProbes installs one probe per channel set into dp, keyed
// "<device>.cset<i>". Each probe snapshots trigger state, buffer
// counters and, for arena stores, the allocator extent map.
func (d *Device) RegisterProbes(dp *stats.DebugProbes) {
	for i, cs := range d.csets {
		cs := cs
		dp.RegisterProbe(fmt.Sprintf("%s.cset%d", d.name, i), func() any {
			out := map[string]any{
				"name":      cs.name,
				"direction": cs.dir.String(),
				"trigger":   int(cs.trig.Status()),
			}
			for ci, ch := range cs.chans {
				key := fmt.Sprintf("chan%d", ci)
				entry := map[string]any{
					"enabled": ch.Enabled(),
					"stats":   ch.buf.Stats(),
				}
				if za, ok := ch.buf.(*buffer.Arena); ok {
					entry["extents"] = za.Extents()
				}
				out[key] = entry
			}
			return out
		})
	}
}

// RemoveProbes drops the probes RegisterProbes installed.
func (d *Device) RemoveProbes(dp *stats.DebugProbes) {
	for i := range d.csets {
		dp.RemoveProbe(fmt.Sprintf("%s.cset%d", d.name, i))
	}
}
