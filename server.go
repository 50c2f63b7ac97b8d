// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package crap

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultListenAddr is the address Server listens on if Addr is empty.
const DefaultListenAddr = ":10111"

// Server listens for incoming network connections and serves the HTTP
// requests arriving on them using Handler, one ExchangeSession per connection.
type Server struct {
	Addr          string       // TCP address to listen on, DefaultListenAddr if empty
	Handler       http.Handler // HTTP handler to invoke
	MaxSessions   int          // maximum number of concurrent Sessions, unlimited if zero
	Config        *Config      // Session configuration, DefaultConfig if nil
	Stats         Stats        // traffic counters for all Sessions
	listeners     map[net.Listener]struct{}
	mu            sync.Mutex
	serveErrorsMu sync.Mutex
	serveErrors   map[string]int
	limiter       chan struct{}
	doneChan      chan struct{}
	activeSession map[*ExchangeSession]struct{}
	netLog        bool
}

// tcpKeepAliveListener sets TCP keep-alive timeouts on accepted
// network connections so dead peers eventually go away.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (c net.Conn, err error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}

// Listen announces on the local network address.
func (srv *Server) Listen(address string) (net.Listener, error) {
	if address == "" {
		address = DefaultListenAddr
	}
	ln, err := net.Listen("tcp", address)
	if err == nil {
		srv.Addr = ln.Addr().String()
		ln = tcpKeepAliveListener{ln.(*net.TCPListener)}
	}
	return ln, err
}

// ListenAndServe listens on the TCP network address srv.Addr and then calls
// Serve to handle requests on incoming network connections.
func (srv *Server) ListenAndServe() (err error) {
	listener, err := srv.Listen(srv.Addr)
	if err == nil {
		err = srv.Serve(listener)
	}
	return
}

// Serve accepts incoming network connections on the Listener l, creating a
// new Session goroutine for each.
func (srv *Server) Serve(l net.Listener) error {
	defer l.Close()
	var tempDelay time.Duration // how long to sleep on accept failure

	if err := func() error {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		select {
		case <-srv.getDoneChanLocked():
			return errors.WithStack(ErrServerClosed)
		default:
		}
		srv.trackListenerLocked(l, true)
		return nil
	}(); err != nil {
		return err
	}
	defer srv.trackListener(l, false)

	for {
		rwc, err := l.Accept()
		if err != nil {
			select {
			case <-srv.getDoneChan():
				return errors.WithStack(ErrServerClosed)
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0
		srv.acquire()
		go func(rwc io.ReadWriteCloser) {
			defer srv.release()
			srv.ServeConn(rwc)
		}(rwc)
	}
}

// ServeConn runs a Session on rwc until it closes. Serve errors are
// counted, see ServeErrors.
func (srv *Server) ServeConn(rwc io.ReadWriteCloser) {
	cfg := sanitizeConfig(srv.Config)
	cfg.NetLog = cfg.NetLog || srv.netLog
	cfg.Stats = &srv.Stats
	s, err := NewSession[ExchangeID](rwc, ServeChannel(srv.Handler), &cfg)
	if err == nil {
		if srv.trackSession(s, true) {
			err = s.Serve()
			srv.trackSession(s, false)
		} else {
			err = s.Close()
		}
	} else {
		rwc.Close()
	}
	if err != nil {
		cfg.Logger.WithError(err).Debug("session failed")
		srv.serveErrorsMu.Lock()
		defer srv.serveErrorsMu.Unlock()
		if srv.serveErrors == nil {
			srv.serveErrors = make(map[string]int)
		}
		srv.serveErrors[errors.Cause(err).Error()]++
	}
}

// NetLog enables or disables debug logging of frames on all Sessions.
func (srv *Server) NetLog(state bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.netLog = state
	for s := range srv.activeSession {
		s.NetLog(state)
	}
}

// ServeErrors returns a copy of the serve errors map.
func (srv *Server) ServeErrors() map[string]int {
	srv.serveErrorsMu.Lock()
	defer srv.serveErrorsMu.Unlock()
	m := make(map[string]int)
	for k, v := range srv.serveErrors {
		m[k] = v
	}
	return m
}

func (srv *Server) trackListener(ln net.Listener, add bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.trackListenerLocked(ln, add)
}

func (srv *Server) trackListenerLocked(ln net.Listener, add bool) {
	if srv.listeners == nil {
		srv.listeners = make(map[net.Listener]struct{})
	}
	if add {
		// If the *Server is being reused after a previous
		// Close, reset its doneChan:
		if len(srv.listeners) == 0 && len(srv.activeSession) == 0 {
			srv.doneChan = nil
		}
		srv.listeners[ln] = struct{}{}
	} else {
		delete(srv.listeners, ln)
	}
}

// trackSession adds or removes s from the active set. Returns false if
// adding to a closed Server.
func (srv *Server) trackSession(s *ExchangeSession, add bool) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if add {
		select {
		case <-srv.getDoneChanLocked():
			return false
		default:
		}
		if srv.activeSession == nil {
			srv.activeSession = make(map[*ExchangeSession]struct{})
		}
		srv.activeSession[s] = struct{}{}
	} else {
		delete(srv.activeSession, s)
	}
	return true
}

func (srv *Server) getDoneChan() <-chan struct{} {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.getDoneChanLocked()
}

func (srv *Server) getDoneChanLocked() chan struct{} {
	if srv.doneChan == nil {
		srv.doneChan = make(chan struct{})
	}
	return srv.doneChan
}

func (srv *Server) closeDoneChanLocked() {
	ch := srv.getDoneChanLocked()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (srv *Server) getLimiter() chan struct{} {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.limiter == nil && srv.MaxSessions > 0 {
		srv.limiter = make(chan struct{}, srv.MaxSessions)
	}
	return srv.limiter
}

func (srv *Server) acquire() {
	if l := srv.getLimiter(); l != nil {
		l <- struct{}{}
	}
}

func (srv *Server) release() {
	if l := srv.getLimiter(); l != nil {
		<-l
	}
}

func (srv *Server) closeListenersLocked() error {
	var err error
	for ln := range srv.listeners {
		if cerr := ln.Close(); cerr != nil && err == nil {
			err = cerr
		}
		delete(srv.listeners, ln)
	}
	return err
}

// Close immediately closes all listeners and active Sessions.
func (srv *Server) Close() error {
	srv.mu.Lock()
	srv.closeDoneChanLocked()
	err := srv.closeListenersLocked()
	sessions := make([]*ExchangeSession, 0, len(srv.activeSession))
	for s := range srv.activeSession {
		sessions = append(sessions, s)
	}
	srv.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
	return err
}

// ActiveSessions returns the number of active Sessions.
func (srv *Server) ActiveSessions() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.activeSession)
}

// BytesWritten returns the current number of bytes written.
func (srv *Server) BytesWritten() int64 {
	return srv.Stats.Snapshot().WriteBytes
}

// BytesRead returns the current number of bytes read.
func (srv *Server) BytesRead() int64 {
	return srv.Stats.Snapshot().ReadBytes
}
