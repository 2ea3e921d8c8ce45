// File: control/control.go
// Author: momentics <momentics@gmail.com>
//
// The Control record: fixed-layout metadata accompanying every block.
// Its wire form is always ControlSize bytes, so readers written today
// keep working when trailing fields are added in a later minor version.

package control

// Version of the control layout. Readers reject a major mismatch and
// tolerate minor growth (additional trailing fields inside the filler).
const (
	MajorVersion = 1
	MinorVersion = 0
)

// ControlSize is the fixed wire size of an encoded control record.
const ControlSize = 512

// NameLen is the fixed width of embedded device and trigger names.
const NameLen = 32

// Flag bits carried in Control.Flags.
const (
	FlagLittleEndian uint32 = 0x01000001
	FlagBigEndian    uint32 = 0x02000002
	FlagMSBAlign     uint32 = 0x00000004 // for analog data
	FlagLSBAlign     uint32 = 0x00000008 // for analog data
)

// Alarm bits carried in Control.Alarms.
const (
	AlarmLostBlock uint32 = 1 << iota // allocation failed, sample lost
	AlarmLostSniff                    // sniffer tap lagged, copy dropped
)

// NumStdAttrs and NumExtAttrs size the per-side attribute arrays.
const (
	NumStdAttrs = 16
	NumExtAttrs = 16
)

// Timestamp is mostly device-specific: seconds plus a tick count at
// device resolution plus a sub-tick bin for interpolating hardware.
type Timestamp struct {
	Secs  uint64 `json:"secs"`
	Ticks uint64 `json:"ticks"`
	Bins  uint64 `json:"bins"`
}

// AttrSet carries one side's attribute values. A bit set in a mask
// means the corresponding slot is active.
type AttrSet struct {
	StdMask uint16              `json:"std_mask"`
	ExtMask uint32              `json:"ext_mask"`
	Std     [NumStdAttrs]uint32 `json:"std"`
	Ext     [NumExtAttrs]uint32 `json:"ext"`
}

// Set stores an extended attribute value and marks its slot active.
func (a *AttrSet) Set(idx int, val uint32) {
	if idx < 0 || idx >= NumExtAttrs {
		return
	}
	a.Ext[idx] = val
	a.ExtMask |= 1 << uint(idx)
}

// SetStd stores a standard attribute value and marks its slot active.
func (a *AttrSet) SetStd(idx int, val uint32) {
	if idx < 0 || idx >= NumStdAttrs {
		return
	}
	a.Std[idx] = val
	a.StdMask |= 1 << uint(idx)
}

// Control is the metadata record attached to each block. One instance
// per channel acts as the "current" control whose sequence number
// continues monotonically; completed blocks carry snapshots of it.
type Control struct {
	MajorVersion uint8  `json:"major_version"`
	MinorVersion uint8  `json:"minor_version"`
	SeqNum       uint32 `json:"seq_num"`
	Flags        uint32 `json:"flags"`
	NSamples     uint32 `json:"nsamples"` // samples in this block
	SSize        uint16 `json:"ssize"`    // bytes per sample
	SBits        uint16 `json:"sbits"`    // valid bits per sample
	CsetIdx      uint16 `json:"cset_i"`   // channel-set index in device
	ChanIdx      uint16 `json:"chan_i"`   // channel index in cset

	DevName  string `json:"devname"`  // truncated to NameLen on encode
	TrigName string `json:"trigname"` // truncated to NameLen on encode

	Tstamp    Timestamp `json:"tstamp"`
	MemOffset uint32    `json:"mem_offset"` // arena offset of the payload
	Alarms    uint32    `json:"alarms"`

	ChanAttrs AttrSet `json:"chan_attrs"`
	TrigAttrs AttrSet `json:"trig_attrs"`
}

// New returns a control record stamped with the current version and
// the native endianness flag.
func New() *Control {
	c := &Control{
		MajorVersion: MajorVersion,
		MinorVersion: MinorVersion,
	}
	if hostBigEndian() {
		c.Flags |= FlagBigEndian
	} else {
		c.Flags |= FlagLittleEndian
	}
	return c
}

// CopyMeta copies the transfer metadata of src into c, preserving the
// version and endianness stamp c was created with. Used at data-done
// time to snapshot the channel's current control into a block.
func (c *Control) CopyMeta(src *Control) {
	maj, min, flags := c.MajorVersion, c.MinorVersion, c.Flags&(FlagLittleEndian|FlagBigEndian)
	*c = *src
	c.MajorVersion, c.MinorVersion = maj, min
	c.Flags = (c.Flags &^ (FlagLittleEndian | FlagBigEndian)) | flags
}

// DataLen returns the payload size this control describes.
func (c *Control) DataLen() int {
	return int(c.SSize) * int(c.NSamples)
}
