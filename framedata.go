package crap

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
)

// FrameData is a byte array used as a network data frame,
// a FrameHeader followed by an optional payload.
type FrameData []byte

// NewFrameData allocates a new, empty FrameData with room for a full frame.
func NewFrameData() FrameData {
	return FrameData(make([]byte, 0, FrameMaxSize))
}

// NewFrameDataID allocates a new FrameData with a cleared header for the given channel ID.
func NewFrameDataID(id uint16) FrameData {
	fd := NewFrameData()
	fd.WriteHeader(id)
	return fd
}

// Clear removes everything in a frame.
func (fd *FrameData) Clear() {
	*fd = (*fd)[:0]
}

// ClearID removes everything in a frame and writes a new header for the given channel ID.
func (fd *FrameData) ClearID(id uint16) {
	fd.WriteHeader(id)
}

func (fd FrameData) String() string {
	if fd == nil {
		return "[FrameData nil]"
	}
	if len(fd) < FrameHeaderSize {
		return fmt.Sprintf("[FrameData short %s]", hex.EncodeToString(fd))
	}
	var contents string
	if len(fd) > 32 {
		contents = hex.EncodeToString(fd[FrameHeaderSize:32]) + "..."
	} else {
		contents = hex.EncodeToString(fd[FrameHeaderSize:])
	}
	return fmt.Sprintf("[FrameData %v %v]", fd.Header(), contents)
}

// Header returns the FrameHeader part of a FrameData.
func (fd FrameData) Header() FrameHeader {
	return FrameHeader(fd[:FrameHeaderSize])
}

// Payload returns the payload of a FrameData as a byte slice.
func (fd FrameData) Payload() []byte {
	return fd[FrameHeaderSize:]
}

// Available returns number of free bytes in the FrameData.
func (fd FrameData) Available() int {
	return FrameMaxSize - len(fd)
}

// Buffered returns the number of bytes that have been written to the
// current frame, including the header size.
func (fd FrameData) Buffered() int {
	return len(fd)
}

// WriteHeader truncates the frame and writes a cleared header for the given channel ID.
func (fd *FrameData) WriteHeader(id uint16) {
	*fd = AppendHeader((*fd)[:0], id, 0, 0)
}

// SetSizeValue sets the header Size value from the current payload length.
// It must be called after the payload is complete and before the frame is sent.
func (fd FrameData) SetSizeValue() error {
	n := len(fd) - FrameHeaderSize
	if n < 0 {
		return errors.WithStack(ErrInvalidParameter)
	}
	if n > FrameMaxPayloadSize {
		return errors.Wrapf(ErrPayloadTooBig, "%d bytes", n)
	}
	fd.Header().SetSizeValue(n)
	return nil
}

// Write implements io.Writer for FrameData, and is used to write body data.
func (fd *FrameData) Write(p []byte) (n int, err error) {
	if len(p) > fd.Available() {
		return 0, errors.Wrapf(ErrPayloadTooBig, "%d bytes with %d available", len(p), fd.Available())
	}
	*fd = append(*fd, p...)
	return len(p), nil
}

// WriteByte appends a single byte to the frame.
func (fd *FrameData) WriteByte(b byte) error {
	*fd = append(*fd, b)
	return nil
}

// WriteUint64 writes an uint64 using base-128 varint encoding,
// least significant group first.
func (fd *FrameData) WriteUint64(x uint64) {
	for x >= 0x80 {
		*fd = append(*fd, byte(x)|0x80)
		x >>= 7
	}
	*fd = append(*fd, byte(x))
}

// WriteInt64 writes an int64 using zig-zag varint encoding.
func (fd *FrameData) WriteInt64(x int64) {
	fd.WriteUint64(uint64(x<<1) ^ uint64(x>>63))
}

// WriteLen writes a nonnegative integer less than 0x8000 using one byte
// for values up to 0x7f and two bytes otherwise.
func (fd *FrameData) WriteLen(n int) error {
	switch {
	case n < 0:
		return errors.Wrapf(ErrInvalidParameter, "negative length %d", n)
	case n < 0x80:
		*fd = append(*fd, byte(n))
	case n <= MaxLen:
		*fd = append(*fd, byte(n>>8)|0x80, byte(n))
	default:
		return errors.Wrapf(ErrPayloadTooBig, "length %d", n)
	}
	return nil
}

// WriteText writes a length-prefixed byte sequence. The text must be
// between 1 and MaxLen bytes long; use WriteString for the empty string.
func (fd *FrameData) WriteText(p []byte) error {
	if len(p) == 0 {
		return errors.WithStack(ErrInvalidParameter)
	}
	if err := fd.WriteLen(len(p)); err != nil {
		return err
	}
	*fd = append(*fd, p...)
	return nil
}

// WriteString writes a string. The empty string is written using
// the zero-length shorthand 00 01.
func (fd *FrameData) WriteString(s string) error {
	if len(s) == 0 {
		*fd = append(*fd, 0, 1)
		return nil
	}
	if err := fd.WriteLen(len(s)); err != nil {
		return err
	}
	*fd = append(*fd, s...)
	return nil
}

// WriteStringNull writes a null string marker, 00 00.
func (fd *FrameData) WriteStringNull() {
	*fd = append(*fd, 0, 0)
}

// WriteRecordType writes a head record type tag.
func (fd *FrameData) WriteRecordType(rt RecordType) {
	*fd = append(*fd, byte(rt))
}
