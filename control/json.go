// File: control/json.go
// Author: momentics <momentics@gmail.com>
//
// JSON dump form of control records, for debug probes and log output.

package control

import "github.com/sugawarayuuta/sonnet"

// Dump renders the record as JSON. Intended for diagnostics, not for
// the wire: the binary form in codec.go is the interchange format.
func (c *Control) Dump() ([]byte, error) {
	return sonnet.Marshal(c)
}

// FromDump parses a JSON dump produced by Dump.
func FromDump(data []byte) (*Control, error) {
	c := &Control{}
	if err := sonnet.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.MajorVersion != MajorVersion {
		return nil, &ErrMajorVersion{Got: c.MajorVersion}
	}
	return c, nil
}
