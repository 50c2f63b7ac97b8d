// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

//go:build race

package crap

// sanity check the protocol constants
func init() {
	if ControlID != int(FrameIDHighMask)<<8|0xff {
		panic("ControlID does not match FrameIDHighMask")
	}
	if ProtocolMaxID >= ControlID {
		panic("ProtocolMaxID >= ControlID")
	}
	if MaxSendWindowSize < 1 || MaxSendWindowSize > 0x7fff {
		panic("MaxSendWindowSize out of range")
	}
	if FrameMaxPayloadSize > 0xffff {
		panic("FrameMaxPayloadSize > 0xffff")
	}
	if MaxLen >= FrameMaxPayloadSize {
		panic("MaxLen >= FrameMaxPayloadSize")
	}
	if DefaultConfig().Validate() != nil {
		panic("DefaultConfig does not validate")
	}
}
