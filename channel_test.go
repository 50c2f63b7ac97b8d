package crap

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// failWriter fails writes while fail is set, and accepts at most limit bytes per write if limit > 0.
type failWriter struct {
	bytes.Buffer
	fail  bool
	limit int
}

func (fw *failWriter) Write(p []byte) (int, error) {
	if fw.fail {
		return 0, io.ErrClosedPipe
	}
	if fw.limit > 0 && len(p) > fw.limit {
		return fw.Buffer.Write(p[:fw.limit])
	}
	return fw.Buffer.Write(p)
}

func makeFrame(id uint16, flags FrameFlag, payload string) FrameData {
	fd := NewFrameDataID(id)
	fd.Header().SetFlags(flags)
	fd = append(fd, payload...)
	if err := fd.SetSizeValue(); err != nil {
		panic(err)
	}
	return fd
}

func makeFinal(id uint16) FrameData {
	return FrameData(EncodeHeader(id, FrameFlagFlow|FrameFlagBody, 0))
}

func makeAck(id uint16) FrameData {
	return FrameData(EncodeHeader(id, FrameFlagFlow, 0))
}

func newTestChannel(id ConnID, window int) *Conn {
	ch := &Conn{}
	ch.init(id, window)
	return ch
}

func Test_Channel_String(t *testing.T) {
	ch := newTestChannel(0x12, 8)
	assert.Equal(t, "[Channel 0012 8+0]", ch.String())
	assert.Equal(t, ConnID(0x12), ch.ID())
}

func Test_Channel_WriteFrame_Window(t *testing.T) {
	var buf bytes.Buffer
	ch := newTestChannel(1, 2)
	f1 := makeFrame(1, FrameFlagHead, "one")
	f2 := makeFrame(1, FrameFlagBody, "two")
	f3 := makeFrame(1, FrameFlagBody, "three")

	assert.NoError(t, ch.WriteFrame(&buf, f1))
	assert.NoError(t, ch.WriteFrame(&buf, f2))
	assert.Equal(t, 0, ch.SendWindow())
	assert.NoError(t, ch.WriteFrame(&buf, f3))
	assert.Equal(t, 1, ch.Queued())
	assert.Equal(t, append(append([]byte{}, f1...), f2...), buf.Bytes())

	// the caller may reuse a frame once WriteFrame returns
	f3[FrameHeaderSize] = 'X'

	buf.Reset()
	isHead, err := ch.ProcessFrame(&buf, makeAck(1))
	assert.NoError(t, err)
	assert.False(t, isHead)
	assert.Equal(t, 0, ch.Queued())
	assert.Equal(t, 0, ch.SendWindow())
	assert.Equal(t, "three", string(buf.Bytes()[FrameHeaderSize:]))

	buf.Reset()
	_, err = ch.ProcessFrame(&buf, makeAck(1))
	assert.NoError(t, err)
	_, err = ch.ProcessFrame(&buf, FrameData{0, 0, 0, 1})
	assert.NoError(t, err)
	assert.Equal(t, 2, ch.SendWindow())
	assert.Equal(t, 0, buf.Len())

	_, err = ch.ProcessFrame(&buf, makeAck(1))
	assert.IsType(t, ProtocolError{}, errors.Cause(err))
	assert.Equal(t, 2, ch.SendWindow())
}

func Test_Channel_WriteFrame_Invalid(t *testing.T) {
	var buf bytes.Buffer
	ch := newTestChannel(1, 8)
	assert.Equal(t, ErrInvalidParameter, errors.Cause(ch.WriteFrame(&buf, FrameData{0, 0})))
	assert.Equal(t, ErrInvalidChannelID, errors.Cause(ch.WriteFrame(&buf, makeFrame(2, FrameFlagBody, "x"))))
	assert.Equal(t, ErrInvalidParameter, errors.Cause(ch.WriteFrame(&buf, makeAck(1))))
	assert.Equal(t, ErrInvalidParameter, errors.Cause(ch.WriteFrame(&buf, FrameData(EncodeHeader(1, FrameFlagFlow|FrameFlagHead, 0)))))
	assert.Equal(t, ErrInvalidParameter, errors.Cause(ch.WriteFrame(&buf, FrameData(EncodeHeader(1, 0, 0)))))
	fd := makeFrame(1, FrameFlagBody, "abc")
	fd = append(fd, 'd')
	assert.Equal(t, ErrInvalidParameter, errors.Cause(ch.WriteFrame(&buf, fd)))
	big := FrameData(append(EncodeHeader(1, FrameFlagBody, 0xffff), make([]byte, 0xffff)...))
	assert.Equal(t, ErrPayloadTooBig, errors.Cause(ch.WriteFrame(&buf, big)))
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 8, ch.SendWindow())
	assert.Equal(t, 0, ch.Queued())
}

func Test_Channel_WriteFrame_Final(t *testing.T) {
	var buf bytes.Buffer
	ch := newTestChannel(3, 1)
	assert.NoError(t, ch.WriteFrame(&buf, makeFrame(3, FrameFlagBody, "a")))
	assert.Equal(t, 0, ch.SendWindow())

	// nothing queued, so a final frame goes out without credit
	buf.Reset()
	assert.NoError(t, ch.WriteFrame(&buf, makeFinal(3)))
	assert.Equal(t, []byte(makeFinal(3)), buf.Bytes())
	assert.Equal(t, 0, ch.SendWindow())

	// a final frame waits behind queued frames
	buf.Reset()
	assert.NoError(t, ch.WriteFrame(&buf, makeFrame(3, FrameFlagBody, "b")))
	assert.NoError(t, ch.WriteFrame(&buf, makeFinal(3)))
	assert.Equal(t, 2, ch.Queued())
	assert.Equal(t, 0, buf.Len())

	_, err := ch.ProcessFrame(&buf, makeAck(3))
	assert.NoError(t, err)
	assert.Equal(t, 0, ch.Queued())
	assert.Equal(t, 0, ch.SendWindow())
	expect := append(append([]byte{}, makeFrame(3, FrameFlagBody, "b")...), makeFinal(3)...)
	assert.Equal(t, expect, buf.Bytes())
}

func Test_Channel_ProcessFrame_Payload(t *testing.T) {
	var buf bytes.Buffer
	ch := newTestChannel(0x1234, 8)
	var got []string
	var gotN []int
	ch.SetFrameFunc(func(c *Conn, fd FrameData, n int) error {
		assert.Same(t, ch, c)
		got = append(got, string(fd.Payload()))
		gotN = append(gotN, n)
		return nil
	})
	isHead, err := ch.ProcessFrame(&buf, makeFrame(0x1234, FrameFlagHead|FrameFlagBody, "hello"))
	assert.NoError(t, err)
	assert.True(t, isHead)
	isHead, err = ch.ProcessFrame(&buf, makeFrame(0x1234, FrameFlagBody, "world"))
	assert.NoError(t, err)
	assert.False(t, isHead)
	assert.Equal(t, []string{"hello", "world"}, got)
	assert.Equal(t, []int{9, 9}, gotN)
	ack := []byte{0x00, 0x00, 0x80 | 0x12, 0x34}
	assert.Equal(t, append(append([]byte{}, ack...), ack...), buf.Bytes())
	assert.Equal(t, 8, ch.SendWindow())
}

func Test_Channel_ProcessFrame_Final(t *testing.T) {
	var buf bytes.Buffer
	ch := newTestChannel(2, 8)
	finals := 0
	ch.SetFrameFunc(func(c *Conn, fd FrameData, n int) error {
		t.Error("frame callback called for final frame")
		return nil
	})
	ch.SetFinalFunc(func(c *Conn, fd FrameData) error {
		finals++
		return nil
	})
	isHead, err := ch.ProcessFrame(&buf, FrameData(EncodeHeader(2, FrameFlagFlow|FrameFlagBody|FrameFlagHead, 0)))
	assert.NoError(t, err)
	assert.False(t, isHead)
	assert.Equal(t, 1, finals)
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 8, ch.SendWindow())

	_, err = ch.ProcessFrame(&buf, FrameData(EncodeHeader(2, FrameFlagFlow|FrameFlagHead, 0)))
	assert.IsType(t, ProtocolError{}, errors.Cause(err))
}

func Test_Channel_ProcessFrame_CallbackError(t *testing.T) {
	var buf bytes.Buffer
	ch := newTestChannel(2, 8)
	ch.SetFrameFunc(func(c *Conn, fd FrameData, n int) error {
		return io.ErrUnexpectedEOF
	})
	_, err := ch.ProcessFrame(&buf, makeFrame(2, FrameFlagBody, "x"))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	// the ack was sent before the callback ran
	assert.Equal(t, []byte(makeAck(2)), buf.Bytes())
}

func Test_Channel_SinkFailure(t *testing.T) {
	fw := &failWriter{fail: true}
	ch := newTestChannel(1, 2)
	err := ch.WriteFrame(fw, makeFrame(1, FrameFlagBody, "x"))
	assert.Equal(t, ErrOutputBufferTooSmall, errors.Cause(err))
	assert.Equal(t, 2, ch.SendWindow())
	assert.Equal(t, 0, ch.Queued())

	_, err = ch.ProcessFrame(fw, makeFrame(1, FrameFlagBody, "x"))
	assert.Equal(t, ErrOutputBufferTooSmall, errors.Cause(err))

	fw.fail = false
	fw.limit = 3
	err = ch.WriteFrame(fw, makeFrame(1, FrameFlagBody, "x"))
	assert.Equal(t, ErrOutputBufferTooSmall, errors.Cause(err))
	assert.Equal(t, 2, ch.SendWindow())
}

func Test_Channel_DrainFailure(t *testing.T) {
	fw := &failWriter{}
	ch := newTestChannel(1, 1)
	assert.NoError(t, ch.WriteFrame(fw, makeFrame(1, FrameFlagBody, "a")))
	assert.NoError(t, ch.WriteFrame(fw, makeFrame(1, FrameFlagBody, "b")))
	assert.Equal(t, 1, ch.Queued())

	fw.fail = true
	_, err := ch.ProcessFrame(fw, makeAck(1))
	assert.Equal(t, ErrOutputBufferTooSmall, errors.Cause(err))
	assert.Equal(t, 1, ch.Queued())
	assert.Equal(t, 1, ch.SendWindow())

	fw.fail = false
	fw.Reset()
	assert.NoError(t, ch.WriteFrame(fw, makeFrame(1, FrameFlagBody, "c")))
	assert.Equal(t, 1, ch.Queued())
	assert.Equal(t, 0, ch.SendWindow())
	assert.Equal(t, []byte(makeFrame(1, FrameFlagBody, "b")), fw.Bytes())
}

func Test_Channel_Reset(t *testing.T) {
	var buf bytes.Buffer
	ch := newTestChannel(1, 1)
	ch.SetFinalFunc(func(c *Conn, fd FrameData) error { return nil })
	assert.NoError(t, ch.WriteFrame(&buf, makeFrame(1, FrameFlagBody, "a")))
	assert.NoError(t, ch.WriteFrame(&buf, makeFrame(1, FrameFlagBody, "b")))
	assert.NoError(t, ch.WriteFrame(&buf, makeFrame(1, FrameFlagBody, "c")))
	assert.Equal(t, 2, ch.Queued())
	ch.Reset()
	assert.Equal(t, 0, ch.Queued())
	assert.Equal(t, 1, ch.SendWindow())
	assert.NotNil(t, ch.onFinal)
}
