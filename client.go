package crap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

type clientResponse struct {
	code   int
	header http.Header
	body   []byte
	err    error
}

// clientExchange holds the response being received on one Exchange.
// Fields other than active and done are only touched by the Session
// callbacks while active is set, and by RoundTrip before setting it.
type clientExchange struct {
	active int32
	done   chan clientResponse
	resp   clientResponse
	head   bool
}

func (ex *clientExchange) reset() {
	select {
	case <-ex.done:
	default:
	}
	ex.resp = clientResponse{}
	ex.head = false
}

// clientSession is one connection to the server with its free Exchange IDs.
type clientSession struct {
	c   *Client
	s   *ExchangeSession
	ids chan ExchangeID
	exs []clientExchange
}

// Client dials a server, maintaining one or more Sessions, and implements
// http.RoundTripper by sending each request on a free Exchange.
type Client struct {
	Addr        string        // the address to dial
	DialTimeout time.Duration // dialing timeout
	Config      *Config       // Session configuration, DefaultConfig if nil
	// Dial, if not nil, is used to establish the transport instead of TCP.
	Dial         func(ctx context.Context) (io.ReadWriteCloser, error)
	mu           sync.Mutex // protects those below
	lastError    error
	lastAttempt  time.Time
	firstAttempt time.Time
	sessions     []*clientSession
}

// NewClient returns a new Client. The Client will establish network connections
// to the server at the given address as needed. This implies that no
// network connection will be made immediately.
func NewClient(addr string) *Client {
	return &Client{
		Addr:        addr,
		DialTimeout: time.Second * 60,
	}
}

// Close closes all Sessions.
func (c *Client) Close() (err error) {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = nil
	c.mu.Unlock()
	for _, cs := range sessions {
		if cerr := cs.s.Close(); err == nil {
			err = cerr
		}
	}
	return
}

// ActiveSessions returns the number of connected Sessions.
func (c *Client) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// AvailableExchanges returns the number of Exchanges currently not
// serving a request. They may be distributed across many Sessions.
func (c *Client) AvailableExchanges() (n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cs := range c.sessions {
		n += len(cs.ids)
	}
	return
}

func (c *Client) dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if c.Dial != nil {
		return c.Dial(ctx)
	}
	d := net.Dialer{Timeout: c.DialTimeout}
	return d.DialContext(ctx, "tcp", c.Addr)
}

// dialLocked creates a new Session to the server.
// Must run with the mutex locked.
func (c *Client) dialLocked(ctx context.Context) *clientSession {
	rwc, err := c.dial(ctx)
	if err == nil {
		var cs *clientSession
		if cs, err = newClientSession(c, rwc); err == nil {
			c.lastError = nil
			c.lastAttempt = time.Time{}
			c.firstAttempt = time.Time{}
			c.sessions = append(c.sessions, cs)
			go cs.serve()
			return cs
		}
		rwc.Close()
	}
	c.lastError = err
	c.lastAttempt = time.Now()
	if c.firstAttempt.IsZero() {
		c.firstAttempt = c.lastAttempt
	}
	return nil
}

func (c *Client) offlineError() (err error) {
	if err = c.lastError; err == nil {
		err = fmt.Errorf("upstream server unresponsive")
	}
	if c.firstAttempt != c.lastAttempt {
		err = fmt.Errorf("%v; no response for %v",
			err, time.Since(c.firstAttempt))
	}
	return
}

func (c *Client) removeSession(cs *clientSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sessions {
		if s == cs {
			c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
			break
		}
	}
}

// getExchange returns a free Exchange, dialing a new Session if none is available.
func (c *Client) getExchange(ctx context.Context) (*clientSession, ExchangeID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dialed := false
	for {
		for _, cs := range c.sessions {
			select {
			case id := <-cs.ids:
				return cs, id, nil
			default:
			}
		}
		if dialed {
			return nil, 0, c.offlineError()
		}
		dialed = true
		c.dialLocked(ctx)
	}
}

// RoundTrip implements http.RoundTripper. The request body is read fully
// before the request is sent, and the response body is fully received
// before RoundTrip returns.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	ctx := req.Context()
	cs, id, err := c.getExchange(ctx)
	if err != nil {
		return nil, err
	}
	ex := &cs.exs[id]
	ex.reset()
	atomic.StoreInt32(&ex.active, 1)

	if err = sendMessage(uint16(id), func(fd *FrameData) error {
		return fd.WriteRequest(req)
	}, body, func(fd FrameData) error {
		return cs.s.WriteFrame(id, fd)
	}); err != nil {
		if atomic.CompareAndSwapInt32(&ex.active, 1, 0) {
			cs.ids <- id
		}
		return nil, err
	}

	var res clientResponse
	select {
	case res = <-ex.done:
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", res.code, http.StatusText(res.code)),
		StatusCode:    res.code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        res.header,
		Body:          io.NopCloser(bytes.NewReader(res.body)),
		ContentLength: int64(len(res.body)),
		Request:       req,
	}, nil
}

func newClientSession(c *Client, rwc io.ReadWriteCloser) (cs *clientSession, err error) {
	cfg := sanitizeConfig(c.Config)
	if err = cfg.Validate(); err != nil {
		return
	}
	cs = &clientSession{
		c:   c,
		ids: make(chan ExchangeID, cfg.MaxID+1),
		exs: make([]clientExchange, cfg.MaxID+1),
	}
	for i := range cs.exs {
		cs.exs[i].done = make(chan clientResponse, 1)
		cs.ids <- ExchangeID(i)
	}
	if cs.s, err = NewSession[ExchangeID](rwc, func(s *ExchangeSession, e *Exchange) {
		e.SetFrameFunc(cs.onFrame)
		e.SetFinalFunc(cs.onFinal)
	}, &cfg); err != nil {
		return nil, err
	}
	return
}

func (cs *clientSession) serve() {
	err := cs.s.Serve()
	cs.c.removeSession(cs)
	if err == nil {
		err = errors.WithStack(io.ErrUnexpectedEOF)
	}
	for i := range cs.exs {
		ex := &cs.exs[i]
		if atomic.CompareAndSwapInt32(&ex.active, 1, 0) {
			ex.done <- clientResponse{err: err}
		}
	}
}

func (cs *clientSession) onFrame(e *Exchange, fd FrameData, n int) (err error) {
	ex := &cs.exs[e.ID()]
	if atomic.LoadInt32(&ex.active) == 0 {
		return nil
	}
	fh := fd.Header()
	fp := NewFrameParser(fd)
	if fh.HasHead() {
		var rt RecordType
		if rt, err = fp.ReadRecordType(); err != nil {
			return
		}
		if rt != RecordTypeHTTPResponse {
			return errors.Wrapf(ErrUnknownFrameType, "record %v on %v", rt, e)
		}
		if ex.resp.code, _, ex.resp.header, err = fp.ReadResponse(); err != nil {
			return
		}
		ex.head = true
	}
	if fh.HasBody() {
		ex.resp.body = append(ex.resp.body, fp...)
	}
	return
}

func (cs *clientSession) onFinal(e *Exchange, fd FrameData) error {
	id := e.ID()
	ex := &cs.exs[id]
	if atomic.CompareAndSwapInt32(&ex.active, 1, 0) {
		res := ex.resp
		if !ex.head {
			res = clientResponse{err: errors.WithStack(ErrMissingFrameHead{})}
		}
		ex.done <- res
		cs.ids <- id
	}
	return nil
}
