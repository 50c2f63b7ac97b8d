package crap

import "github.com/pkg/errors"

// Reassembler accumulates an arbitrarily fragmented byte stream into
// whole frames. At most one frame is buffered at any time.
type Reassembler struct {
	buf []byte // FrameMaxSize bytes, allocated on first use
	n   int    // bytes of the current frame held in buf
}

// Buffered returns the number of bytes of an incomplete frame being held.
func (r *Reassembler) Buffered() int {
	return r.n
}

// Reset discards any partially received frame.
func (r *Reassembler) Reset() {
	r.n = 0
}

// Feed consumes bytes from p, calling dispatch for every complete frame in
// stream order. The FrameData passed to dispatch is only valid during the call.
//
// If dispatch returns an error, or a header announces a frame longer than
// FrameMaxSize, Feed stops and returns the number of bytes consumed before
// the offending frame along with the error. Otherwise n is len(p).
func (r *Reassembler) Feed(p []byte, dispatch func(fd FrameData) error) (n int, err error) {
	if r.buf == nil {
		r.buf = make([]byte, FrameMaxSize)
	}
	start := 0
	for n < len(p) {
		if r.n < FrameHeaderSize {
			m := copy(r.buf[r.n:FrameHeaderSize], p[n:])
			r.n += m
			n += m
			if r.n < FrameHeaderSize {
				break
			}
		}
		need := FrameHeader(r.buf[:FrameHeaderSize]).FrameLength()
		if need > len(r.buf) {
			err = errors.Wrapf(ErrPayloadTooBig, "%v", FrameHeader(r.buf[:FrameHeaderSize]))
			r.n = 0
			return start, err
		}
		if r.n < need {
			m := copy(r.buf[r.n:need], p[n:])
			r.n += m
			n += m
			if r.n < need {
				break
			}
		}
		r.n = 0
		if err = dispatch(FrameData(r.buf[:need:need])); err != nil {
			return start, err
		}
		start = n
	}
	return
}
