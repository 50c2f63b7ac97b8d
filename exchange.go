package crap

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// sendMessage sends a head record written by head, followed by body split
// into as few Body frames as possible, followed by a final frame.
func sendMessage(id uint16, head func(fd *FrameData) error, body []byte, send func(fd FrameData) error) (err error) {
	fd := FrameDataAllocID(id)
	defer func() { FrameDataFree(fd) }()
	if err = head(&fd); err != nil {
		return
	}
	for {
		n := fd.Available()
		if n > len(body) {
			n = len(body)
		}
		if n > 0 {
			fd.Header().SetBody()
			fd = append(fd, body[:n]...)
			body = body[n:]
		}
		if err = fd.SetSizeValue(); err != nil {
			return
		}
		if err = send(fd); err != nil {
			return
		}
		if len(body) == 0 {
			break
		}
		fd.ClearID(id)
	}
	fd.ClearID(id)
	fd.Header().SetFlags(FrameFlagFlow | FrameFlagBody)
	return send(fd)
}

// exchangeHandler collects a HTTP request arriving on an Exchange
// and serves it once the final frame is received.
type exchangeHandler struct {
	s    *ExchangeSession
	h    http.Handler
	req  *http.Request
	body []byte
}

// ServeChannel returns a Session init function that serves the HTTP requests
// arriving on each Exchange using h. The request record is expected in the
// first Head frame, Body frames form the request body and the final frame
// completes the request. The handler runs in its own goroutine, and the
// response is sent on the same Exchange followed by a final frame.
func ServeChannel(h http.Handler) func(s *ExchangeSession, e *Exchange) {
	return func(s *ExchangeSession, e *Exchange) {
		eh := &exchangeHandler{s: s, h: h}
		e.SetFrameFunc(eh.onFrame)
		e.SetFinalFunc(eh.onFinal)
	}
}

func (eh *exchangeHandler) String() string {
	return fmt.Sprintf("[exchangeHandler %v]", eh.s)
}

func (eh *exchangeHandler) onFrame(e *Exchange, fd FrameData, n int) (err error) {
	fh := fd.Header()
	fp := NewFrameParser(fd)
	if fh.HasHead() {
		if eh.req != nil {
			return errors.Wrapf(ProtocolError{}, "%v: second head frame on %v", eh, e)
		}
		var rt RecordType
		if rt, err = fp.ReadRecordType(); err != nil {
			return
		}
		if rt != RecordTypeHTTPRequest {
			return errors.Wrapf(ErrUnknownFrameType, "%v: record %v on %v", eh, rt, e)
		}
		if eh.req, err = fp.ReadRequest(); err != nil {
			return
		}
	}
	if fh.HasBody() {
		if eh.req == nil {
			return errors.WithStack(ErrMissingFrameHead{})
		}
		eh.body = append(eh.body, fp...)
	}
	return
}

func (eh *exchangeHandler) onFinal(e *Exchange, fd FrameData) error {
	req, body := eh.req, eh.body
	eh.req, eh.body = nil, nil
	if req == nil {
		return errors.WithStack(ErrMissingFrameHead{})
	}
	if len(body) > 0 {
		req.Body = io.NopCloser(bytes.NewReader(body))
		if req.ContentLength < 0 {
			req.ContentLength = int64(len(body))
		}
	}
	go eh.serve(e.ID(), req)
	return nil
}

func (eh *exchangeHandler) serve(id ExchangeID, req *http.Request) {
	rw := NewResponseWriter()
	func() {
		defer func() {
			if r := recover(); r != nil {
				eh.s.Logger().WithField("exchange", id).Errorf("handler panic: %v", r)
				rw.Reset()
				rw.WriteHeader(http.StatusInternalServerError)
			}
		}()
		eh.h.ServeHTTP(rw, req)
	}()
	err := sendMessage(uint16(id), func(fd *FrameData) error {
		return fd.WriteResponse(rw.Code, int64(rw.Body.Len()), rw.HeaderMap)
	}, rw.Body.Bytes(), func(fd FrameData) error {
		return eh.s.WriteFrame(id, fd)
	})
	if err != nil {
		eh.s.Logger().WithError(err).WithField("exchange", id).Debug("response failed")
	}
}
