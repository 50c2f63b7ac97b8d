package crap

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const maxVarintLen64 = 10

// FrameParser reads values from a frame payload, consuming the bytes read.
// On error nothing is consumed.
type FrameParser []byte

// NewFrameParser returns a FrameParser for the payload of fd.
func NewFrameParser(fd FrameData) FrameParser {
	return FrameParser(fd.Payload())
}

func (fp FrameParser) String() string {
	if len(fp) > 32 {
		return fmt.Sprintf("[FrameParser %d %s...]", len(fp), hex.EncodeToString(fp[:32]))
	}
	return fmt.Sprintf("[FrameParser %d %s]", len(fp), hex.EncodeToString(fp))
}

// Read implements io.Reader over the remaining payload bytes.
func (fp *FrameParser) Read(p []byte) (n int, err error) {
	if len(*fp) == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	n = copy(p, *fp)
	*fp = (*fp)[n:]
	return
}

// ReadByte reads a single byte.
func (fp *FrameParser) ReadByte() (b byte, err error) {
	if len(*fp) == 0 {
		return 0, io.EOF
	}
	b = (*fp)[0]
	*fp = (*fp)[1:]
	return
}

// ReadUint64 reads a base-128 varint.
func (fp *FrameParser) ReadUint64() (x uint64, err error) {
	var s uint
	for i, b := range *fp {
		if i == maxVarintLen64-1 && b > 1 {
			return 0, errors.WithStack(ErrNumberOverflow)
		}
		if b < 0x80 {
			*fp = (*fp)[i+1:]
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, errors.WithStack(ErrIncompleteNumber)
}

// ReadInt64 reads a zig-zag varint.
func (fp *FrameParser) ReadInt64() (x int64, err error) {
	var ux uint64
	if ux, err = fp.ReadUint64(); err == nil {
		x = int64(ux>>1) ^ -int64(ux&1)
	}
	return
}

// ReadLen reads a length value written by FrameData.WriteLen.
func (fp *FrameParser) ReadLen() (n int, err error) {
	if len(*fp) < 1 {
		return 0, errors.WithStack(ErrIncompleteLength)
	}
	n = int((*fp)[0])
	if n < 0x80 {
		*fp = (*fp)[1:]
		return
	}
	if len(*fp) < 2 {
		return 0, errors.WithStack(ErrIncompleteLength)
	}
	n = (n&0x7f)<<8 | int((*fp)[1])
	*fp = (*fp)[2:]
	return
}

// ReadText reads a length-prefixed byte sequence. A zero length is a
// shorthand and is followed by exactly one byte, which is returned as
// a single byte text. The returned slice references the payload.
func (fp *FrameParser) ReadText() (p []byte, err error) {
	orig := *fp
	var n int
	if n, err = fp.ReadLen(); err != nil {
		return
	}
	if n == 0 {
		n = 1
	}
	if len(*fp) < n {
		*fp = orig
		return nil, errors.WithStack(ErrIncompleteString)
	}
	p = (*fp)[:n:n]
	*fp = (*fp)[n:]
	return
}

// ReadString reads a string written by FrameData.WriteString or
// FrameData.WriteStringNull. The shorthand 00 00 is the null string,
// 00 01 is the empty string.
func (fp *FrameParser) ReadString() (s string, isNull bool, err error) {
	short := len(*fp) > 0 && (*fp)[0] == 0
	var p []byte
	if p, err = fp.ReadText(); err != nil {
		return
	}
	if short {
		switch p[0] {
		case 0:
			return "", true, nil
		case 1:
			return "", false, nil
		}
	}
	return string(p), false, nil
}

// ReadRecordType reads a head record type tag.
func (fp *FrameParser) ReadRecordType() (rt RecordType, err error) {
	var b byte
	if b, err = fp.ReadByte(); err != nil {
		return RecordTypeInvalid, errors.WithStack(ErrIncompleteNumber)
	}
	return RecordType(b), nil
}
