package crap

import "fmt"

// RecordType enumerates the known head record types. A head record is
// found at the start of the payload of a frame with the Head flag set.
type RecordType byte

const (
	// RecordTypeInvalid is not usable and if received fails the exchange.
	RecordTypeInvalid = RecordType(0x00)
	// RecordTypeSetString sets an entry in the string lookup table for sending.
	RecordTypeSetString = RecordType(0x01)
	// RecordTypeSetRoute sets a URL pattern to match.
	RecordTypeSetRoute = RecordType(0x02)
	// RecordTypeHTTPRequest is a HTTP request record.
	RecordTypeHTTPRequest = RecordType(0x03)
	// RecordTypeHTTPResponse is a HTTP response record.
	RecordTypeHTTPResponse = RecordType(0x04)
	// RecordTypeServicePause orders a client to respond to new requests with a canned response.
	RecordTypeServicePause = RecordType(0x05)
	// RecordTypeServiceResume lets a client resume normal operations after a pause.
	RecordTypeServiceResume = RecordType(0x06)
	// RecordTypeUserFirst is the first record type value reserved for user records.
	RecordTypeUserFirst = RecordType(0x80)
)

var recordTypeTexts = map[RecordType]string{
	RecordTypeInvalid:       "Invalid",
	RecordTypeSetString:     "SetString",
	RecordTypeSetRoute:      "SetRoute",
	RecordTypeHTTPRequest:   "HTTPRequest",
	RecordTypeHTTPResponse:  "HTTPResponse",
	RecordTypeServicePause:  "ServicePause",
	RecordTypeServiceResume: "ServiceResume",
}

func (rt RecordType) String() string {
	if s, ok := recordTypeTexts[rt]; ok {
		return s
	}
	if rt >= RecordTypeUserFirst {
		return fmt.Sprintf("User%02x", byte(rt))
	}
	return fmt.Sprintf("Unknown%02x", byte(rt))
}
