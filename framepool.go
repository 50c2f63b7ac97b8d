package crap

// frameDataPoolSize bounds the number of idle FrameData kept for reuse.
const frameDataPoolSize = 256

// Provides a buffer of allocated but unused FrameData.
var frameDataPool = make(chan FrameData, frameDataPoolSize)

// FrameDataAlloc allocates an empty FrameData, without a FrameHeader.
func FrameDataAlloc() FrameData {
	select {
	case fd := <-frameDataPool:
		fd.Clear()
		return fd
	default:
		return NewFrameData()
	}
}

// FrameDataAllocID allocates a FrameData with a cleared FrameHeader for the given channel ID.
func FrameDataAllocID(id uint16) FrameData {
	fd := FrameDataAlloc()
	fd.WriteHeader(id)
	return fd
}

// FrameDataCopy returns a pooled copy of fd.
func FrameDataCopy(fd FrameData) FrameData {
	return append(FrameDataAlloc(), fd...)
}

// FrameDataFree releases a FrameData. Only full capacity frames are retained.
func FrameDataFree(fd FrameData) {
	if fd != nil && cap(fd) == FrameMaxSize {
		select {
		case frameDataPool <- fd:
		default:
		}
	}
}
