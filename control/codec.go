// File: control/codec.go
// Author: momentics <momentics@gmail.com>
//
// Binary wire form of the control record. The layout is fixed at
// ControlSize bytes and encoded little-endian regardless of host, so
// binary dumps stay portable; the Flags field still records the
// producer's native endianness for sample data.
//
// Layout (byte offsets):
//
//	  0  major u8, minor u8, pad[2]
//	  4  seq_num u32
//	  8  flags u32
//	 12  nsamples u32
//	 16  ssize u16, sbits u16, cset_i u16, chan_i u16
//	 24  devname  [32]byte
//	 56  trigname [32]byte
//	 88  tstamp { secs u64, ticks u64, bins u64 }
//	112  mem_offset u32
//	116  alarms u32
//	120  chan attrs { std_mask u16, pad u16, ext_mask u32, std [16]u32, ext [16]u32 }
//	256  trig attrs (same shape)
//	392  filler up to 512; minor versions may grow into it

package control

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

const (
	attrSetSize  = 2 + 2 + 4 + 4*NumStdAttrs + 4*NumExtAttrs
	offDevName   = 24
	offTrigName  = 56
	offTstamp    = 88
	offMemOffset = 112
	offAlarms    = 116
	offChanAttrs = 120
	offTrigAttrs = offChanAttrs + attrSetSize
)

// ErrMajorVersion is returned when a decoded record's major version
// does not match this implementation.
type ErrMajorVersion struct {
	Got uint8
}

func (e *ErrMajorVersion) Error() string {
	return fmt.Sprintf("control: major version %d, want %d", e.Got, MajorVersion)
}

// Encode serializes c into its fixed 512-byte wire form.
func (c *Control) Encode() [ControlSize]byte {
	var out [ControlSize]byte
	le := binary.LittleEndian

	out[0] = c.MajorVersion
	out[1] = c.MinorVersion
	le.PutUint32(out[4:], c.SeqNum)
	le.PutUint32(out[8:], c.Flags)
	le.PutUint32(out[12:], c.NSamples)
	le.PutUint16(out[16:], c.SSize)
	le.PutUint16(out[18:], c.SBits)
	le.PutUint16(out[20:], c.CsetIdx)
	le.PutUint16(out[22:], c.ChanIdx)
	copy(out[offDevName:offDevName+NameLen], c.DevName)
	copy(out[offTrigName:offTrigName+NameLen], c.TrigName)
	le.PutUint64(out[offTstamp:], c.Tstamp.Secs)
	le.PutUint64(out[offTstamp+8:], c.Tstamp.Ticks)
	le.PutUint64(out[offTstamp+16:], c.Tstamp.Bins)
	le.PutUint32(out[offMemOffset:], c.MemOffset)
	le.PutUint32(out[offAlarms:], c.Alarms)
	encodeAttrs(out[offChanAttrs:], &c.ChanAttrs)
	encodeAttrs(out[offTrigAttrs:], &c.TrigAttrs)
	return out
}

// Decode parses a wire-form control record. A major-version mismatch
// is rejected; a newer minor version decodes fine, unknown trailing
// fields are ignored.
func Decode(raw []byte) (*Control, error) {
	if len(raw) < ControlSize {
		return nil, fmt.Errorf("control: short record: %d bytes", len(raw))
	}
	if raw[0] != MajorVersion {
		return nil, &ErrMajorVersion{Got: raw[0]}
	}
	le := binary.LittleEndian
	c := &Control{
		MajorVersion: raw[0],
		MinorVersion: raw[1],
		SeqNum:       le.Uint32(raw[4:]),
		Flags:        le.Uint32(raw[8:]),
		NSamples:     le.Uint32(raw[12:]),
		SSize:        le.Uint16(raw[16:]),
		SBits:        le.Uint16(raw[18:]),
		CsetIdx:      le.Uint16(raw[20:]),
		ChanIdx:      le.Uint16(raw[22:]),
		DevName:      cstr(raw[offDevName : offDevName+NameLen]),
		TrigName:     cstr(raw[offTrigName : offTrigName+NameLen]),
		Tstamp: Timestamp{
			Secs:  le.Uint64(raw[offTstamp:]),
			Ticks: le.Uint64(raw[offTstamp+8:]),
			Bins:  le.Uint64(raw[offTstamp+16:]),
		},
		MemOffset: le.Uint32(raw[offMemOffset:]),
		Alarms:    le.Uint32(raw[offAlarms:]),
	}
	decodeAttrs(raw[offChanAttrs:], &c.ChanAttrs)
	decodeAttrs(raw[offTrigAttrs:], &c.TrigAttrs)
	return c, nil
}

func encodeAttrs(dst []byte, a *AttrSet) {
	le := binary.LittleEndian
	le.PutUint16(dst[0:], a.StdMask)
	le.PutUint32(dst[4:], a.ExtMask)
	for i, v := range a.Std {
		le.PutUint32(dst[8+4*i:], v)
	}
	for i, v := range a.Ext {
		le.PutUint32(dst[8+4*NumStdAttrs+4*i:], v)
	}
}

func decodeAttrs(src []byte, a *AttrSet) {
	le := binary.LittleEndian
	a.StdMask = le.Uint16(src[0:])
	a.ExtMask = le.Uint32(src[4:])
	for i := range a.Std {
		a.Std[i] = le.Uint32(src[8+4*i:])
	}
	for i := range a.Ext {
		a.Ext[i] = le.Uint32(src[8+4*NumStdAttrs+4*i:])
	}
}

// cstr trims a fixed-width name field at the first NUL.
func cstr(b []byte) string {
	for i, ch := range b {
		if ch == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func hostBigEndian() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 0
}
