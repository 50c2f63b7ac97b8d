package crap

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func testStream() (stream []byte, frames [][]byte) {
	for _, fd := range []FrameData{
		makeFrame(1, FrameFlagHead|FrameFlagBody, "hello"),
		makeAck(2),
		makeFrame(0, FrameFlagBody, string(make([]byte, 300))),
		makeFinal(1),
		FrameData(EncodeHeader(5, 0, 77)),
		makeFrame(ControlID, FrameFlagBody, "\x02"),
	} {
		frames = append(frames, append([]byte{}, fd...))
		stream = append(stream, fd...)
	}
	return
}

func collectFrames(r *Reassembler, chunks ...[]byte) (got [][]byte, err error) {
	for _, chunk := range chunks {
		var n int
		n, err = r.Feed(chunk, func(fd FrameData) error {
			got = append(got, append([]byte{}, fd...))
			return nil
		})
		if err != nil {
			return
		}
		if n != len(chunk) {
			return got, io.ErrShortWrite
		}
	}
	return
}

func Test_Reassembler_Whole(t *testing.T) {
	stream, frames := testStream()
	var r Reassembler
	got, err := collectFrames(&r, stream)
	assert.NoError(t, err)
	assert.Equal(t, frames, got)
	assert.Equal(t, 0, r.Buffered())
}

func Test_Reassembler_EverySplit(t *testing.T) {
	stream, frames := testStream()
	for i := 0; i <= len(stream); i++ {
		var r Reassembler
		got, err := collectFrames(&r, stream[:i], stream[i:])
		assert.NoError(t, err)
		assert.Equal(t, frames, got, "split at %d", i)
	}
}

func Test_Reassembler_ByteAtATime(t *testing.T) {
	stream, frames := testStream()
	var r Reassembler
	var chunks [][]byte
	for i := range stream {
		chunks = append(chunks, stream[i:i+1])
	}
	got, err := collectFrames(&r, chunks...)
	assert.NoError(t, err)
	assert.Equal(t, frames, got)
}

func Test_Reassembler_Partial(t *testing.T) {
	var r Reassembler
	fd := makeFrame(1, FrameFlagBody, "abcdef")
	n, err := r.Feed(fd[:6], func(fd FrameData) error {
		t.Error("dispatched incomplete frame")
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 6, r.Buffered())
	r.Reset()
	assert.Equal(t, 0, r.Buffered())
	n, err = r.Feed(nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func Test_Reassembler_DispatchError(t *testing.T) {
	stream, frames := testStream()
	var r Reassembler
	calls := 0
	n, err := r.Feed(stream, func(fd FrameData) error {
		calls++
		if calls == 3 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.Equal(t, len(frames[0])+len(frames[1]), n)
}

func Test_Reassembler_TooBig(t *testing.T) {
	var r Reassembler
	first := makeAck(1)
	stream := append([]byte{}, first...)
	stream = append(stream, EncodeHeader(1, FrameFlagBody, 0xffff)...)
	dispatched := 0
	n, err := r.Feed(stream, func(fd FrameData) error {
		dispatched++
		return nil
	})
	assert.Equal(t, ErrPayloadTooBig, errors.Cause(err))
	assert.Equal(t, len(first), n)
	assert.Equal(t, 1, dispatched)

	// the largest legal frame is accepted
	r.Reset()
	big := append(EncodeHeader(1, FrameFlagBody, FrameMaxPayloadSize), make([]byte, FrameMaxPayloadSize)...)
	n, err = r.Feed(big, func(fd FrameData) error {
		assert.Equal(t, FrameMaxSize, len(fd))
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, len(big), n)
}
