// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package crap

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Link multiplexes a fixed array of Channels over a single byte stream.
// Inbound bytes are fed to Recv, outbound bytes go to the sink given
// to NewLink.
//
// A Link is not safe for concurrent use. The embedder must serialize
// Recv and all writes, see Session.
type Link[I ID] struct {
	w            io.Writer
	log          logrus.FieldLogger
	stats        StatsCollector
	heads        headCounter
	netLog       bool
	channels     []Channel[I]
	rsm          Reassembler
	err          error // sticky receive error
	closed       bool
	serialNumber uint32
	lastPingSent int64 // Unix nanoseconds
	lastPongRcvd int64 // Unix nanoseconds
	latency      int64 // nanoseconds
}

// Muxer is a Link of connections.
type Muxer = Link[ConnID]

// Conn is a Channel within a Muxer.
type Conn = Channel[ConnID]

// ExchangeMux is a Link of request/response exchanges.
type ExchangeMux = Link[ExchangeID]

// Exchange is a Channel within an ExchangeMux.
type Exchange = Channel[ExchangeID]

var linkNextSerialNumber uint32

// NewLink creates a Link writing to w with one Channel per ID from zero
// to cfg.MaxID, calling init on each Channel to let the caller install
// callbacks. A nil cfg means DefaultConfig.
func NewLink[I ID](w io.Writer, init func(ch *Channel[I]), cfg *Config) (*Link[I], error) {
	if w == nil {
		return nil, errors.Wrap(ErrInvalidParameter, "nil writer")
	}
	c := sanitizeConfig(cfg)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	l := &Link[I]{
		w:            w,
		stats:        c.Stats,
		netLog:       c.NetLog,
		channels:     make([]Channel[I], c.MaxID+1),
		serialNumber: atomic.AddUint32(&linkNextSerialNumber, 1),
	}
	l.heads, _ = c.Stats.(headCounter)
	l.log = c.Logger.WithField("link", l.serialNumber)
	for i := range l.channels {
		ch := &l.channels[i]
		ch.init(I(i), c.SendWindow)
		if init != nil {
			init(ch)
		}
	}
	return l, nil
}

// NewMuxer creates a Link of connections.
func NewMuxer(w io.Writer, init func(conn *Conn), cfg *Config) (*Muxer, error) {
	return NewLink[ConnID](w, init, cfg)
}

// NewExchangeMux creates a Link of exchanges.
func NewExchangeMux(w io.Writer, init func(e *Exchange), cfg *Config) (*ExchangeMux, error) {
	return NewLink[ExchangeID](w, init, cfg)
}

func (l *Link[I]) String() string {
	return fmt.Sprintf("[Link %x]", l.serialNumber)
}

// Channel returns the Channel with the given ID, or nil if out of range.
func (l *Link[I]) Channel(id I) *Channel[I] {
	if int(id) < len(l.channels) {
		return &l.channels[int(id)]
	}
	return nil
}

// Channels returns the number of Channels in the Link.
func (l *Link[I]) Channels() int {
	return len(l.channels)
}

// Err returns the error that stopped Recv, if any.
func (l *Link[I]) Err() error {
	return l.err
}

// Recv feeds received bytes to the Link, dispatching every completed frame
// to its Channel or to the control handler. Returns the number of bytes
// consumed, which is len(p) unless an error occurs. Errors are fatal and
// every later call returns the same error.
func (l *Link[I]) Recv(p []byte) (n int, err error) {
	if l.err != nil {
		return 0, l.err
	}
	if l.closed {
		return 0, errors.WithStack(io.ErrClosedPipe)
	}
	n, err = l.rsm.Feed(p, l.dispatch)
	if l.stats != nil {
		l.stats.AddBytesRead(int64(n))
	}
	if err != nil {
		l.err = err
		l.log.WithError(err).Debug("recv failed")
	}
	return
}

func (l *Link[I]) dispatch(fd FrameData) (err error) {
	fh := fd.Header()
	if l.netLog {
		l.log.Debugf("READ %v", fd)
	}
	id := fh.ID()
	if id == ControlID {
		return l.processControl(fd)
	}
	if int(id) >= len(l.channels) {
		return errors.Wrapf(ErrInvalidChannelID, "%v: frame %v", l, fh)
	}
	var isHead bool
	if isHead, err = l.channels[id].ProcessFrame(l, fd); isHead && l.heads != nil {
		l.heads.AddHeadCount()
	}
	return
}

// Write implements io.Writer and is the sink used by the Channels.
// It passes p to the Link's writer.
func (l *Link[I]) Write(p []byte) (n int, err error) {
	if l.closed {
		return 0, errors.WithStack(io.ErrClosedPipe)
	}
	if l.netLog && len(p) >= FrameHeaderSize {
		l.log.Debugf("WRIT %v", FrameData(p))
	}
	n, err = l.w.Write(p)
	if l.stats != nil {
		l.stats.AddBytesWritten(int64(n))
	}
	return
}

// WriteFrame sends fd on the Channel with the given ID, see Channel.WriteFrame.
func (l *Link[I]) WriteFrame(id I, fd FrameData) error {
	if l.closed {
		return errors.WithStack(io.ErrClosedPipe)
	}
	ch := l.Channel(id)
	if ch == nil {
		return errors.Wrapf(ErrInvalidChannelID, "%v: no channel %04x", l, uint16(id))
	}
	return ch.WriteFrame(l, fd)
}

// NetLog enables or disables debug logging of frames read and written.
func (l *Link[I]) NetLog(state bool) {
	l.netLog = state
}

// Close resets all Channels, freeing queued frames, and makes further
// writes and Recv calls fail. Closing an already closed Link does nothing.
func (l *Link[I]) Close() error {
	if !l.closed {
		l.closed = true
		for i := range l.channels {
			l.channels[i].Reset()
		}
		l.rsm.Reset()
	}
	return nil
}
