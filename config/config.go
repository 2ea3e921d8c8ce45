// File: config/config.go
// Author: momentics <momentics@gmail.com>
//
// TOML device descriptions. A file declares one device with its
// channel sets, buffer sizing and trigger selection; Load resolves it
// into a device.Spec ready for device.New.

package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/device"
)

// File is the TOML schema of a device description.
type File struct {
	Device DeviceSection `toml:"device"`
	CSets  []CSetSection `toml:"cset"`
}

// DeviceSection holds device-wide settings.
type DeviceSection struct {
	Name       string `toml:"name"`
	SniffDepth int    `toml:"sniff-depth"`
}

// CSetSection declares one channel set.
type CSetSection struct {
	Name      string `toml:"name"`
	Direction string `toml:"direction"` // "input" or "output"
	NChans    int    `toml:"nchans"`
	SSize     uint16 `toml:"ssize"`
	SBits     uint16 `toml:"sbits"`

	Buffer  BufferSection  `toml:"buffer"`
	Trigger TriggerSection `toml:"trigger"`
}

// BufferSection selects and sizes the buffer instances.
type BufferSection struct {
	Type     string `toml:"type"`
	MaxLen   int    `toml:"max-len"`
	MaxBytes int    `toml:"max-bytes"`
	Merge    bool   `toml:"merge"`
}

// TriggerSection selects and configures the trigger.
type TriggerSection struct {
	Type           string           `toml:"type"`
	NSamples       int              `toml:"nsamples"`
	SelfTimed      bool             `toml:"self-timed"`
	SalvageOnAbort bool             `toml:"salvage-on-abort"`
	Attrs          map[string]int64 `toml:"attrs"`
}

// Load reads and resolves a device description from path.
func Load(path string) (device.Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return device.Spec{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse resolves a TOML device description.
func Parse(raw []byte) (device.Spec, error) {
	var f File
	if err := toml.Unmarshal(raw, &f); err != nil {
		return device.Spec{}, fmt.Errorf("parse config: %w", err)
	}
	return f.Resolve()
}

// Resolve converts the parsed file into a device.Spec.
func (f *File) Resolve() (device.Spec, error) {
	spec := device.Spec{
		Name:       f.Device.Name,
		SniffDepth: f.Device.SniffDepth,
	}
	for i, cs := range f.CSets {
		dir, err := parseDirection(cs.Direction)
		if err != nil {
			return device.Spec{}, fmt.Errorf("cset %d (%s): %w", i, cs.Name, err)
		}
		spec.CSets = append(spec.CSets, device.CSetSpec{
			Name:      cs.Name,
			Direction: dir,
			NChans:    cs.NChans,
			SSize:     cs.SSize,
			SBits:     cs.SBits,
			Buffer: device.BufferSpec{
				Type:     cs.Buffer.Type,
				MaxLen:   cs.Buffer.MaxLen,
				MaxBytes: cs.Buffer.MaxBytes,
				Merge:    cs.Buffer.Merge,
			},
			Trigger: device.TriggerSpec{
				Type:           cs.Trigger.Type,
				NSamples:       cs.Trigger.NSamples,
				SelfTimed:      cs.Trigger.SelfTimed,
				SalvageOnAbort: cs.Trigger.SalvageOnAbort,
				Attrs:          cs.Trigger.Attrs,
			},
		})
	}
	return spec, nil
}

func parseDirection(s string) (api.Direction, error) {
	switch s {
	case "input", "":
		return api.DirInput, nil
	case "output":
		return api.DirOutput, nil
	}
	return 0, api.NewError(api.ErrCodeConfig, "direction must be input or output").
		WithContext("got", s)
}
