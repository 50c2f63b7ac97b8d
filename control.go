package crap

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// LinkControl enumerates the link control frame types. Control frames use
// the ControlID and interpret the flag bits as a 3-bit control code.
type LinkControl byte

const (
	// LinkControlPanic means sender is shutting down due to error.
	LinkControlPanic LinkControl = LinkControl(0)
	// Unused but reserved for future use, Size contains payload size.
	linkControlReserved001 LinkControl = LinkControl(FrameFlagHead)
	// LinkControlPing requests a Pong in response with the same payload.
	LinkControlPing LinkControl = LinkControl(FrameFlagBody)
	// LinkControlPong is in response to a Ping, carrying the Ping payload.
	LinkControlPong LinkControl = LinkControl(FrameFlagBody | FrameFlagHead)
	// Unused but reserved for future use, ignore Size value
	linkControlReserved100 LinkControl = LinkControl(FrameFlagFlow)
	// Unused but reserved for future use, ignore Size value
	linkControlReserved101 LinkControl = LinkControl(FrameFlagFlow | FrameFlagHead)
	// Unused but reserved for future use, ignore Size value
	linkControlReserved110 LinkControl = LinkControl(FrameFlagFlow | FrameFlagBody)
	// Unused but reserved for future use, ignore Size value
	linkControlReserved111 LinkControl = LinkControl(FrameFlagFlow | FrameFlagBody | FrameFlagHead)
)

var linkControlTexts = map[LinkControl]string{
	LinkControlPanic:       "Panic",
	linkControlReserved001: "Rsvd001",
	LinkControlPing:        "Ping",
	LinkControlPong:        "Pong",
	linkControlReserved100: "Rsvd100",
	linkControlReserved101: "Rsvd101",
	linkControlReserved110: "Rsvd110",
	linkControlReserved111: "Rsvd111",
}

func (lc LinkControl) String() string {
	if s, ok := linkControlTexts[lc]; ok {
		return s
	}
	return fmt.Sprintf("Control%02x", byte(lc))
}

func (l *Link[I]) processControl(fd FrameData) error {
	fh := fd.Header()
	switch fh.Control() {
	case LinkControlPanic:
		return errors.Wrapf(PanicError{}, "%v", l)
	case LinkControlPing:
		pong := FrameDataCopy(fd)
		defer FrameDataFree(pong)
		pong.Header().SetControl(LinkControlPong)
		return writeFull(l, pong)
	case LinkControlPong:
		now := time.Now().UnixNano()
		fp := NewFrameParser(fd)
		sent, err := fp.ReadInt64()
		if err != nil {
			return errors.Wrapf(ProtocolError{}, "%v: malformed pong: %v", l, err)
		}
		atomic.StoreInt64(&l.lastPongRcvd, now)
		atomic.StoreInt64(&l.latency, now-sent)
		return nil
	}
	return errors.Wrapf(ProtocolError{}, "%v: unhandled control frame %v", l, fh)
}

// Ping sends a ping control frame carrying the current time and returns
// without waiting for the pong.
func (l *Link[I]) Ping() error {
	fd := FrameDataAllocID(ControlID)
	defer FrameDataFree(fd)
	fd.Header().SetControl(LinkControlPing)
	now := time.Now().UnixNano()
	fd.WriteInt64(now)
	if err := fd.SetSizeValue(); err != nil {
		return err
	}
	atomic.StoreInt64(&l.lastPingSent, now)
	return writeFull(l, fd)
}

// Latency returns the result of the last successful ping/pong measurement,
// or zero if the last ping has not been answered yet.
func (l *Link[I]) Latency() (d time.Duration) {
	ping := atomic.LoadInt64(&l.lastPingSent)
	if ping > 0 {
		if pong := atomic.LoadInt64(&l.lastPongRcvd); ping <= pong {
			d = time.Duration(atomic.LoadInt64(&l.latency))
		}
	}
	return
}

// Panic tells the peer we are shutting down due to an error, then closes the Link.
func (l *Link[I]) Panic() (err error) {
	if !l.closed {
		err = writeFull(l, EncodeHeader(ControlID, FrameFlag(LinkControlPanic), 0))
	}
	l.Close()
	return
}
