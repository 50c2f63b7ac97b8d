package crap

import (
	"io"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Error_Error(t *testing.T) {
	assert.Equal(t, "crap: invalid channel id", ErrInvalidChannelID.Error())
	assert.Equal(t, "crap: error 99", Error(99).Error())
	assert.Equal(t, 15, int(ErrNumberOverflow))
	assert.Equal(t, "protocol error", ProtocolError{}.Error())
	assert.Equal(t, "peer panic", PanicError{}.Error())
	assert.Equal(t, "missing frame head", ErrMissingFrameHead{}.Error())
	assert.Equal(t, "server closed", ErrServerClosed.Error())
}

func Test_isClosedError(t *testing.T) {
	assert.True(t, isClosedError(io.EOF))
	assert.True(t, isClosedError(errors.WithStack(io.ErrClosedPipe)))
	assert.True(t, isClosedError(errors.WithStack(ErrServerClosed)))
	assert.True(t, isClosedError(&net.OpError{Op: "read", Err: net.ErrClosed}))
	assert.False(t, isClosedError(io.ErrUnexpectedEOF))
	assert.False(t, isClosedError(errors.Wrap(ProtocolError{}, "x")))
	assert.False(t, isClosedError(nil))
}
