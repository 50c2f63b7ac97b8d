package crap

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

var zeroHeaderValue = []string{"0"}

// readStrings reads string values until the null string.
func (fp *FrameParser) readStrings(fn func(s string)) error {
	for {
		s, isNull, err := fp.ReadString()
		if err != nil {
			return err
		}
		if isNull {
			return nil
		}
		fn(s)
	}
}

// readKeyValues reads key and value lists until a null key.
func (fp *FrameParser) readKeyValues(fn func(k, v string)) error {
	for {
		k, isNull, err := fp.ReadString()
		if err != nil {
			return err
		}
		if isNull {
			return nil
		}
		if err = fp.readStrings(func(v string) { fn(k, v) }); err != nil {
			return err
		}
	}
}

// ReadRequest reads a HTTP request record, not including the record type.
// The returned request has no Body.
func (fp *FrameParser) ReadRequest() (req *http.Request, err error) {
	var methodString, urlString string
	if methodString, _, err = fp.ReadString(); err != nil {
		return
	}
	if urlString, _, err = fp.ReadString(); err != nil {
		return
	}
	var u *url.URL
	if u, err = url.ParseRequestURI(urlString); err != nil {
		return nil, errors.Wrapf(ErrInvalidParameter, "request path %q: %v", urlString, err)
	}

	req = &http.Request{
		Method:     methodString,
		URL:        u,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       http.NoBody,
	}

	queryValues := url.Values{}
	if err = fp.readKeyValues(queryValues.Add); err != nil {
		return nil, err
	}
	if len(queryValues) > 0 {
		u.RawQuery = queryValues.Encode()
	}
	req.RequestURI = u.RequestURI()

	if err = fp.readKeyValues(req.Header.Add); err != nil {
		return nil, err
	}
	var host string
	var isNull bool
	if host, isNull, err = fp.ReadString(); err != nil {
		return nil, err
	}
	if !isNull {
		req.Host = host
	}
	if req.ContentLength, err = fp.ReadInt64(); err != nil {
		return nil, err
	}
	if req.ContentLength == 0 {
		req.Header["Content-Length"] = zeroHeaderValue
	} else if req.ContentLength > 0 {
		req.Header["Content-Length"] = []string{strconv.FormatInt(req.ContentLength, 10)}
	}
	return
}

// ReadResponse reads a HTTP response record, not including the record type.
func (fp *FrameParser) ReadResponse() (code int, contentLength int64, header http.Header, err error) {
	if code, err = fp.ReadLen(); err != nil {
		return
	}
	header = make(http.Header)
	if err = fp.readKeyValues(header.Add); err != nil {
		return
	}
	if contentLength, err = fp.ReadInt64(); err != nil {
		return
	}
	if contentLength >= 0 {
		header["Content-Length"] = []string{strconv.FormatInt(contentLength, 10)}
	}
	return
}
