// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package crap

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// FrameFunc is called for each payload frame received on a Channel.
// The FrameData references the Link's reassembly buffer and is only
// valid for the duration of the call. Returning an error fails the Link.
type FrameFunc[I ID] func(ch *Channel[I], fd FrameData, n int) error

// FinalFunc is called when a final frame is received on a Channel.
// Returning an error fails the Link.
type FinalFunc[I ID] func(ch *Channel[I], fd FrameData) error

// Channel is one logical, flow-controlled stream within a Link.
// It limits the number of unacknowledged payload frames in flight to
// the send window, queueing frames that can't be sent yet, and
// acknowledges every payload frame it receives.
//
// A Channel holds no reference to its Link. The sink is passed to the
// methods that need to write, and callers must serialize access.
type Channel[I ID] struct {
	id         I
	window     int16       // send window maximum
	sendWindow int16       // frames we may send before waiting for an ack
	queue      []FrameData // pooled copies of frames waiting to be sent
	ack        [FrameHeaderSize]byte
	onFrame    FrameFunc[I]
	onFinal    FinalFunc[I]
}

func (ch *Channel[I]) init(id I, window int) {
	ch.id = id
	ch.window = int16(window)
	ch.sendWindow = ch.window
	AppendHeader(ch.ack[:0], uint16(id), FrameFlagFlow, 0)
}

func (ch *Channel[I]) String() string {
	return fmt.Sprintf("[Channel %04x %d+%d]", uint16(ch.id), ch.sendWindow, len(ch.queue))
}

// ID returns the channel ID.
func (ch *Channel[I]) ID() I {
	return ch.id
}

// SendWindow returns the number of payload frames that may currently be sent.
func (ch *Channel[I]) SendWindow() int {
	return int(ch.sendWindow)
}

// Queued returns the number of frames waiting for send credit.
func (ch *Channel[I]) Queued() int {
	return len(ch.queue)
}

// SetFrameFunc sets the function called for received payload frames.
func (ch *Channel[I]) SetFrameFunc(fn FrameFunc[I]) {
	ch.onFrame = fn
}

// SetFinalFunc sets the function called for received final frames.
func (ch *Channel[I]) SetFinalFunc(fn FinalFunc[I]) {
	ch.onFinal = fn
}

// Reset releases any queued frames and restores the full send window.
// Callbacks are kept.
func (ch *Channel[I]) Reset() {
	for i, fd := range ch.queue {
		FrameDataFree(fd)
		ch.queue[i] = nil
	}
	ch.queue = ch.queue[:0]
	ch.sendWindow = ch.window
}

func (ch *Channel[I]) checkFrame(fd FrameData) error {
	if len(fd) < FrameHeaderSize {
		return errors.Wrapf(ErrInvalidParameter, "%v: short frame %v", ch, fd)
	}
	fh := fd.Header()
	if fh.ID() != uint16(ch.id) {
		return errors.Wrapf(ErrInvalidChannelID, "%v: frame %v", ch, fh)
	}
	if fh.HasFlow() {
		if !fh.IsFinal() {
			return errors.Wrapf(ErrInvalidParameter, "%v: attempt to send flow control frame %v", ch, fh)
		}
	} else if !fh.HasBodyOrHead() {
		return errors.Wrapf(ErrInvalidParameter, "%v: frame %v lacks head and body flags", ch, fh)
	}
	if len(fd) > FrameMaxSize {
		return errors.Wrapf(ErrPayloadTooBig, "%v: frame %v", ch, fh)
	}
	if len(fd) != fh.FrameLength() {
		return errors.Wrapf(ErrInvalidParameter, "%v: frame %v has %d bytes", ch, fh, len(fd))
	}
	return nil
}

// WriteFrame sends fd to w if the channel has send credit and nothing
// queued, otherwise queues a copy of fd. Queued frames are sent first.
// Final frames need no credit. fd may be reused once WriteFrame returns.
func (ch *Channel[I]) WriteFrame(w io.Writer, fd FrameData) (err error) {
	if err = ch.checkFrame(fd); err != nil {
		return
	}
	if err = ch.writeQueue(w); err != nil {
		return
	}
	if len(ch.queue) == 0 && (ch.sendWindow > 0 || fd.Header().IsFinal()) {
		return ch.sendFrame(w, fd)
	}
	ch.queue = append(ch.queue, FrameDataCopy(fd))
	return
}

// ProcessFrame handles a frame received for this channel. Acknowledgements
// add send credit and release queued frames. Payload frames are acknowledged
// and passed to the frame callback. Final frames release queued frames and
// are passed to the final callback. Returns true if the frame had the Head flag.
func (ch *Channel[I]) ProcessFrame(w io.Writer, fd FrameData) (isHead bool, err error) {
	fh := fd.Header()
	if !fh.HasPayload() {
		switch {
		case fh.IsFinal():
			if err = ch.writeQueue(w); err == nil && ch.onFinal != nil {
				err = ch.onFinal(ch, fd)
			}
		case fh.IsCredit():
			if err = ch.consumeAck(); err == nil {
				err = ch.writeQueue(w)
			}
		default:
			err = errors.Wrapf(ProtocolError{}, "%v: reserved frame %v", ch, fh)
		}
		return
	}
	// payload frames are never final
	if err = ch.sendAck(w); err != nil {
		return
	}
	if ch.onFrame != nil {
		err = ch.onFrame(ch, fd, len(fd))
	}
	return fh.HasHead(), err
}

func (ch *Channel[I]) consumeAck() error {
	if ch.sendWindow >= ch.window {
		return errors.Wrapf(ProtocolError{}, "%v: ack overflows send window", ch)
	}
	ch.sendWindow++
	return nil
}

// writeQueue sends queued frames while there is credit, or unconditionally
// for final frames. A frame that fails to send stays queued.
func (ch *Channel[I]) writeQueue(w io.Writer) error {
	for len(ch.queue) > 0 {
		fd := ch.queue[0]
		if ch.sendWindow < 1 && !fd.Header().IsFinal() {
			break
		}
		if err := ch.sendFrame(w, fd); err != nil {
			return err
		}
		ch.queue[0] = nil
		ch.queue = ch.queue[1:]
		FrameDataFree(fd)
	}
	if len(ch.queue) == 0 {
		ch.queue = nil
	}
	return nil
}

func (ch *Channel[I]) sendFrame(w io.Writer, fd FrameData) error {
	if err := writeFull(w, fd); err != nil {
		return err
	}
	if fd.Header().HasPayload() {
		ch.sendWindow--
	}
	return nil
}

func (ch *Channel[I]) sendAck(w io.Writer) error {
	return writeFull(w, ch.ack[:])
}

// writeFull writes all of p to w in a single call.
func writeFull(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return errors.Wrapf(ErrOutputBufferTooSmall, "%v", err)
	}
	return nil
}
