package crap

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func (fd *FrameData) writeStrings(k string, vv []string) (err error) {
	if err = fd.WriteString(k); err == nil {
		for _, v := range vv {
			if err = fd.WriteString(v); err != nil {
				return
			}
		}
		fd.WriteStringNull()
	}
	return
}

// WriteRequest sets the Head flag and writes a HTTP request record.
func (fd *FrameData) WriteRequest(r *http.Request) (err error) {
	if r == nil || r.URL == nil {
		return errors.WithStack(ErrInvalidParameter)
	}
	fd.Header().SetHead()
	fd.WriteRecordType(RecordTypeHTTPRequest)
	if err = fd.WriteString(r.Method); err != nil {
		return
	}

	rawPath := r.URL.EscapedPath()
	np := path.Clean("/" + strings.Replace(rawPath, "\\", "/", -1))
	if np != "/" && strings.HasSuffix(rawPath, "/") {
		np += "/"
	}
	if err = fd.WriteString(np); err != nil {
		return
	}

	for k, vv := range r.URL.Query() {
		if err = fd.writeStrings(k, vv); err != nil {
			return
		}
	}
	fd.WriteStringNull()

	contentLength := r.ContentLength
	host := r.Host
	for k, vv := range r.Header {
		switch k {
		case "Content-Length":
			if contentLength < 1 && len(vv) > 0 {
				if n, perr := strconv.ParseInt(vv[0], 10, 64); perr == nil {
					contentLength = n
				}
			}
			continue
		case "Host":
			if host == "" && len(vv) > 0 {
				host = vv[0]
			}
			continue
		}
		if err = fd.writeStrings(k, vv); err != nil {
			return
		}
	}
	fd.WriteStringNull()

	if host == "" {
		fd.WriteStringNull()
	} else if err = fd.WriteString(host); err != nil {
		return
	}
	if contentLength < 0 {
		contentLength = -1
	}
	fd.WriteInt64(contentLength)
	if len(*fd) > FrameMaxSize {
		return errors.Wrapf(ErrPayloadTooBig, "request record %d bytes", len(*fd))
	}
	return nil
}

// WriteResponse sets the Head flag and writes a HTTP response record.
// A negative contentLength means unknown.
func (fd *FrameData) WriteResponse(code int, contentLength int64, header http.Header) (err error) {
	fd.Header().SetHead()
	fd.WriteRecordType(RecordTypeHTTPResponse)
	if err = fd.WriteLen(code); err != nil {
		return
	}
	for k, vv := range header {
		if k == "Content-Length" {
			continue
		}
		if err = fd.writeStrings(k, vv); err != nil {
			return
		}
	}
	fd.WriteStringNull()
	if contentLength < 0 {
		contentLength = -1
	}
	fd.WriteInt64(contentLength)
	if len(*fd) > FrameMaxSize {
		return errors.Wrapf(ErrPayloadTooBig, "response record %d bytes", len(*fd))
	}
	return nil
}
