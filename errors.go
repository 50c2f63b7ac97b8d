// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package crap

import (
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

// Error enumerates the error conditions of the protocol codec and link.
// The numeric values match the wire-level error codes of the C library.
type Error int

const (
	// ErrInvalidParameter means a nil, negative or otherwise unusable argument.
	ErrInvalidParameter Error = 2
	// ErrPayloadTooBig means a payload exceeds what a frame or length can hold.
	ErrPayloadTooBig Error = 3
	// ErrUnknownFrameType means a head record tag was not recognized.
	ErrUnknownFrameType Error = 4
	// ErrOutputBufferTooSmall means the write sink rejected or partially accepted a write.
	ErrOutputBufferTooSmall Error = 5
	// ErrIncompleteLength means the payload ended inside a length value.
	ErrIncompleteLength Error = 6
	// ErrIncompleteString means the payload ended inside a text value.
	ErrIncompleteString Error = 7
	// ErrStringIndexUnknown means a string table reference could not be resolved.
	ErrStringIndexUnknown Error = 9
	// ErrInvalidChannelID means a frame was addressed to a channel that does not exist.
	ErrInvalidChannelID Error = 12
	// ErrIncompleteNumber means the payload ended inside a varint.
	ErrIncompleteNumber Error = 13
	// ErrNumberOverflow means a varint does not fit in 64 bits.
	ErrNumberOverflow Error = 15
)

var errorTexts = map[Error]string{
	ErrInvalidParameter:     "invalid parameter",
	ErrPayloadTooBig:        "payload too big",
	ErrUnknownFrameType:     "unknown frame type",
	ErrOutputBufferTooSmall: "output buffer too small",
	ErrIncompleteLength:     "incomplete length",
	ErrIncompleteString:     "incomplete string",
	ErrStringIndexUnknown:   "string index unknown",
	ErrInvalidChannelID:     "invalid channel id",
	ErrIncompleteNumber:     "incomplete number",
	ErrNumberOverflow:       "number overflow",
}

func (e Error) Error() string {
	if s, ok := errorTexts[e]; ok {
		return "crap: " + s
	}
	return fmt.Sprintf("crap: error %d", int(e))
}

// ProtocolError is the error type used for reporting protocol errors,
// all of which are fatal to a Link.
type ProtocolError struct{}

func (err ProtocolError) Error() string { return "protocol error" }

// PanicError is the error type used for reporting peer panic errors,
// all of which are fatal to a Link.
type PanicError struct{}

func (err PanicError) Error() string { return "peer panic" }

// ErrMissingFrameHead is returned when a frame was expected to have the HEAD bit set and contain a record.
type ErrMissingFrameHead struct{}

func (ErrMissingFrameHead) Error() string { return "missing frame head" }

type serverClosedError struct{}

func (serverClosedError) Error() string { return "server closed" }

// ErrServerClosed is returned by Server.Serve after Server.Close has been called.
var ErrServerClosed error = serverClosedError{}

func isClosedError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	switch errors.Cause(err) {
	case serverClosedError{}:
		return true
	case io.ErrClosedPipe:
		return true
	case io.EOF:
		return true
	}
	return false
}
