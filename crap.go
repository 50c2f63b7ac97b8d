package crap

const (
	// ControlID is the channel ID used to mark link control frames.
	ControlID = 0x1fff
	// ProtocolMaxID is the maximum value allowed for Config.MaxID.
	ProtocolMaxID = ControlID - 1
	// MaxSendWindowSize is the maximum value allowed for Config.SendWindow.
	MaxSendWindowSize = 8
	// FrameHeaderSize is the number of bytes in a frame header.
	FrameHeaderSize = 4
	// FrameMaxSize is the largest buffer size allowed for a full frame.
	FrameMaxSize = 0x10000
	// FrameMaxPayloadSize is the maximum number of bytes in a frame payload.
	FrameMaxPayloadSize = FrameMaxSize - FrameHeaderSize
	// MaxLen is the largest value that can be written with WriteLen.
	MaxLen = 0x7fff
)
