package crap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FramePool_FrameDataAlloc(t *testing.T) {
	fd1 := FrameDataAlloc()
	assert.Equal(t, 0, len(fd1))
	assert.Equal(t, FrameMaxSize, cap(fd1))
	fd1 = append(fd1, 1, 2, 3)
	FrameDataFree(fd1)
	fd2 := FrameDataAlloc()
	assert.Equal(t, 0, len(fd2))
	FrameDataFree(fd2)
}

func Test_FramePool_FrameDataAllocID(t *testing.T) {
	fd1 := FrameDataAllocID(ProtocolMaxID)
	assert.Equal(t, uint16(ProtocolMaxID), fd1.Header().ID())
	fd2 := FrameDataAllocID(ProtocolMaxID - 1)
	assert.Equal(t, uint16(ProtocolMaxID-1), fd2.Header().ID())
	assert.Equal(t, FrameFlag(0), fd2.Header().Flags())
	FrameDataFree(fd1)
	FrameDataFree(fd2)
}

func Test_FramePool_FrameDataCopy(t *testing.T) {
	src := FrameData(EncodeHeader(4, FrameFlagBody, 2))
	src = append(src, 'h', 'i')
	cp := FrameDataCopy(src)
	assert.Equal(t, src, cp)
	cp[4] = 'H'
	assert.Equal(t, byte('h'), src[4])
	FrameDataFree(cp)
}

func Test_FramePool_FrameDataFree_Overflow(t *testing.T) {
	// make sure the frameDataPool is full
	for len(frameDataPool) < cap(frameDataPool) {
		FrameDataFree(NewFrameData())
	}
	assert.Equal(t, cap(frameDataPool), len(frameDataPool))
	fd1 := FrameDataAlloc()
	assert.NotNil(t, fd1)
	assert.Equal(t, cap(frameDataPool)-1, len(frameDataPool))
	FrameDataFree(fd1)
	assert.Equal(t, cap(frameDataPool), len(frameDataPool))
	FrameDataFree(NewFrameData())
	assert.Equal(t, cap(frameDataPool), len(frameDataPool))
	FrameDataFree(nil)
}

func Test_FramePool_FrameDataFree_Small(t *testing.T) {
	for len(frameDataPool) > 0 {
		<-frameDataPool
	}
	FrameDataFree(make(FrameData, 0, 16))
	assert.Equal(t, 0, len(frameDataPool))
}
