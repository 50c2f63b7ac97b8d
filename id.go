package crap

import "fmt"

// ID is the constraint satisfied by channel identifiers. Both flavours
// share the 13-bit ID space of the frame header.
type ID interface {
	~uint16
}

// ConnID identifies a connection multiplexed by a Muxer.
type ConnID uint16

func (id ConnID) String() string {
	return fmt.Sprintf("[ID %04x]", uint16(id))
}

// ExchangeID identifies an in-progress request/response within a connection.
type ExchangeID uint16

func (id ExchangeID) String() string {
	return fmt.Sprintf("[ExchangeID %04x]", uint16(id))
}
