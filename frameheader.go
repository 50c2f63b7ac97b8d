package crap

import "fmt"

/*

FrameHeader is 32 bits. The first two bytes are the big-endian Size value.
The third byte holds three flag bits and the high five bits of the 13-bit
channel ID, and the fourth byte holds the low eight bits of the channel ID.

If the ID is ControlID (0x1fff), the frame is a link control frame and the
flag bits form a 3-bit control code, see LinkControl.

Otherwise the frame applies to that channel, and the flag bits are mapped
to Flow, Body and Head:

* 000 - () legacy acknowledgement, adds one send credit
* 001 - (Head) payload starts with a record, without any body bytes
* 010 - (Body) payload is body data, no record present
* 011 - (Head|Body) payload starts with a record, remaining bytes are body data
* 100 - (Flow) acknowledgement, adds one send credit
* 101 - (Flow|Head) reserved
* 110 - (Flow|Body) final frame
* 111 - (Flow|Body|Head) final frame

Only frames with Head or Body set and Flow clear carry Size bytes of payload.
All other frames are exactly FrameHeaderSize bytes on the wire.

*/
type FrameHeader []byte

// FrameFlag enumerates the flags used in the frame control bits.
type FrameFlag byte

const (
	// FrameFlagHead indicates the presence of a head record at the start
	// of the frame payload when the Flow flag is not set.
	FrameFlagHead FrameFlag = 0x20
	// FrameFlagBody indicates the presence of body data in the frame payload
	// when the Flow flag is not set. If the frame payload also has a head
	// record, the body data starts after it.
	FrameFlagBody FrameFlag = 0x40
	// FrameFlagFlow marks flow control and final frames, neither of which
	// carry a payload.
	FrameFlagFlow FrameFlag = 0x80
	// FrameFlagMask is a byte mask of the bits used for flags in the third header byte.
	FrameFlagMask = byte(FrameFlagFlow | FrameFlagBody | FrameFlagHead)
	// FrameIDHighMask is a byte mask of the ID bits in the third header byte.
	FrameIDHighMask = ^FrameFlagMask
)

var frameFlagTexts = map[FrameFlag]string{
	(0):                             "...",
	(FrameFlagHead):                 "..H",
	(FrameFlagBody):                 ".B.",
	(FrameFlagBody | FrameFlagHead): ".BH",
	(FrameFlagFlow):                 "F..",
	(FrameFlagFlow | FrameFlagHead): "F.H",
	(FrameFlagFlow | FrameFlagBody): "FB.",
	(FrameFlagFlow | FrameFlagBody | FrameFlagHead): "FBH",
}

func (f FrameFlag) String() string {
	return frameFlagTexts[f&FrameFlag(FrameFlagMask)]
}

// EncodeHeader returns a new FrameHeader. Panics if id exceeds ControlID or
// size does not fit in 16 bits.
func EncodeHeader(id uint16, flags FrameFlag, size int) FrameHeader {
	return AppendHeader(make([]byte, 0, FrameHeaderSize), id, flags, size)
}

// AppendHeader appends an encoded frame header to dst and returns the extended buffer.
func AppendHeader(dst []byte, id uint16, flags FrameFlag, size int) []byte {
	if id > ControlID {
		panic(fmt.Sprintf("frame id %04x out of range", id))
	}
	if size < 0 || size > 0xffff {
		panic(fmt.Sprintf("frame size %d out of range", size))
	}
	return append(dst,
		byte(size>>8),
		byte(size),
		(byte(flags)&FrameFlagMask)|byte(id>>8),
		byte(id))
}

// Decode returns the ID, flags and size value of the header.
func (fh FrameHeader) Decode() (id uint16, flags FrameFlag, size int) {
	return fh.ID(), fh.Flags(), fh.SizeValue()
}

// FrameLength returns the total wire length of the frame whose header
// starts hdr, or zero if hdr is shorter than a header.
func FrameLength(hdr []byte) int {
	if len(hdr) < FrameHeaderSize {
		return 0
	}
	return FrameHeader(hdr).FrameLength()
}

func (fh FrameHeader) String() string {
	if len(fh) < FrameHeaderSize {
		return fmt.Sprintf("[FrameHeader short (%d)]", len(fh))
	}
	var midText string
	if fh.IsControl() {
		midText = fh.Control().String()
	} else {
		midText = fh.Flags().String()
	}
	return fmt.Sprintf("[FrameHeader %04x %s %d (%d)]", fh.ID(), midText, fh.SizeValue(), len(fh))
}

// Clear zeroes the header.
func (fh FrameHeader) Clear() {
	fh[0] = 0
	fh[1] = 0
	fh[2] = 0
	fh[3] = 0
}

// SizeValue returns the Size value of the header.
func (fh FrameHeader) SizeValue() int {
	return (int(fh[0]) << 8) | int(fh[1])
}

// SetSizeValue sets the Size value of the header. Panics if out of range.
func (fh FrameHeader) SetSizeValue(n int) {
	if n < 0 || n > 0xffff {
		panic(fmt.Sprintf("frame size %d out of range", n))
	}
	fh[0] = byte(n >> 8)
	fh[1] = byte(n)
}

// ID returns the 13-bit channel ID of the header.
func (fh FrameHeader) ID() uint16 {
	return uint16(fh[2]&FrameIDHighMask)<<8 | uint16(fh[3])
}

// SetID sets the channel ID, leaving the flags intact. Panics if out of range.
func (fh FrameHeader) SetID(id uint16) {
	if id > ControlID {
		panic(fmt.Sprintf("frame id %04x out of range", id))
	}
	fh[2] = (fh[2] & FrameFlagMask) | byte(id>>8)
	fh[3] = byte(id)
}

// Flags returns the flag bits of the header.
func (fh FrameHeader) Flags() FrameFlag {
	return FrameFlag(fh[2] & FrameFlagMask)
}

// SetFlags replaces the flag bits of the header, leaving the ID intact.
func (fh FrameHeader) SetFlags(f FrameFlag) {
	fh[2] = (fh[2] & FrameIDHighMask) | (byte(f) & FrameFlagMask)
}

// HasFlow returns true if the Flow flag is set.
func (fh FrameHeader) HasFlow() bool {
	return (fh[2] & byte(FrameFlagFlow)) != 0
}

// SetFlow sets the Flow flag.
func (fh FrameHeader) SetFlow() {
	fh[2] |= byte(FrameFlagFlow)
}

// HasBody returns true if the Body flag is set.
func (fh FrameHeader) HasBody() bool {
	return (fh[2] & byte(FrameFlagBody)) != 0
}

// SetBody sets the Body flag.
func (fh FrameHeader) SetBody() {
	fh[2] |= byte(FrameFlagBody)
}

// HasHead returns true if the Head flag is set.
func (fh FrameHeader) HasHead() bool {
	return (fh[2] & byte(FrameFlagHead)) != 0
}

// SetHead sets the Head flag.
func (fh FrameHeader) SetHead() {
	fh[2] |= byte(FrameFlagHead)
}

// HasBodyOrHead returns true if at least one of the Body or Head flags are set.
func (fh FrameHeader) HasBodyOrHead() bool {
	return (fh[2] & byte(FrameFlagBody|FrameFlagHead)) != 0
}

// HasPayload returns true if the frame carries SizeValue bytes of payload.
func (fh FrameHeader) HasPayload() bool {
	return !fh.HasFlow() && fh.HasBodyOrHead()
}

// IsAck returns true if the frame is a Flow-only acknowledgement.
func (fh FrameHeader) IsAck() bool {
	return fh.Flags() == FrameFlagFlow
}

// IsFinal returns true if the frame is a final frame.
func (fh FrameHeader) IsFinal() bool {
	return fh.HasFlow() && fh.HasBody()
}

// IsCredit returns true if receiving the frame grants one send credit.
// This is either a Flow-only acknowledgement or a legacy all-clear header.
func (fh FrameHeader) IsCredit() bool {
	f := fh.Flags()
	return f == FrameFlagFlow || f == 0
}

// PayloadSize returns the number of payload bytes following the header.
func (fh FrameHeader) PayloadSize() int {
	if fh.HasPayload() {
		return fh.SizeValue()
	}
	return 0
}

// FrameLength returns the total number of bytes the frame occupies on the wire.
func (fh FrameHeader) FrameLength() int {
	return FrameHeaderSize + fh.PayloadSize()
}

// IsControl returns true if the frame is a link control frame.
func (fh FrameHeader) IsControl() bool {
	return fh.ID() == ControlID
}

// Control returns the control code of a link control frame.
func (fh FrameHeader) Control() LinkControl {
	return LinkControl(fh[2] & FrameFlagMask)
}

// SetControl sets the control code of the frame, leaving the ID intact.
func (fh FrameHeader) SetControl(lc LinkControl) {
	fh.SetFlags(FrameFlag(lc))
}
