package crap

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// outBuffer collects the bytes a Link writes while the Session is locked.
type outBuffer struct {
	buf []byte
}

func (ob *outBuffer) Write(p []byte) (int, error) {
	ob.buf = append(ob.buf, p...)
	return len(p), nil
}

// Session runs a Link over an io.ReadWriteCloser. Recv and all frame writes
// are serialized by a mutex. Outbound bytes are collected while locked and
// written to the transport by a separate goroutine, so a Session never
// blocks on the transport while holding the lock. Session methods are safe
// for concurrent use.
type Session[I ID] struct {
	rwc     io.ReadWriteCloser
	mu      sync.Mutex // guards out, werr and link
	out     outBuffer
	werr    error
	link    *Link[I]
	kick    chan struct{}
	done    chan struct{}
	writers sync.WaitGroup
	once    sync.Once
}

// ConnSession is a Session of connections.
type ConnSession = Session[ConnID]

// ExchangeSession is a Session of exchanges.
type ExchangeSession = Session[ExchangeID]

// NewSession creates a Session over rwc and starts its writer. The init
// function is called for every Channel before NewSession returns and may
// install callbacks that reference the Session. Callbacks run with the
// Session locked, so they must not call locking Session methods; start a
// goroutine for that instead.
func NewSession[I ID](rwc io.ReadWriteCloser, init func(s *Session[I], ch *Channel[I]), cfg *Config) (s *Session[I], err error) {
	if rwc == nil {
		return nil, errors.Wrap(ErrInvalidParameter, "nil transport")
	}
	s = &Session[I]{
		rwc:  rwc,
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	var chInit func(ch *Channel[I])
	if init != nil {
		chInit = func(ch *Channel[I]) { init(s, ch) }
	}
	if s.link, err = NewLink[I](&s.out, chInit, cfg); err != nil {
		return nil, err
	}
	s.writers.Add(1)
	go s.writeLoop()
	return s, nil
}

func (s *Session[I]) String() string {
	return fmt.Sprintf("[Session %v]", s.link)
}

func (s *Session[I]) writeLoop() {
	defer s.writers.Done()
	var buf []byte
	for {
		select {
		case <-s.kick:
		case <-s.done:
			return
		}
		s.mu.Lock()
		buf, s.out.buf = s.out.buf, buf[:0]
		s.mu.Unlock()
		if len(buf) > 0 {
			if _, err := s.rwc.Write(buf); err != nil {
				s.mu.Lock()
				s.werr = errors.WithStack(err)
				s.mu.Unlock()
				s.rwc.Close()
				return
			}
		}
	}
}

// Do calls fn with the Session locked, then schedules any output for writing.
// Returns the error from fn, or the transport write error if one has occurred.
func (s *Session[I]) Do(fn func(l *Link[I]) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.werr; err == nil {
		err = fn(s.link)
	}
	if len(s.out.buf) > 0 {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	return
}

// WriteFrame sends fd on the Channel with the given ID.
func (s *Session[I]) WriteFrame(id I, fd FrameData) error {
	return s.Do(func(l *Link[I]) error {
		return l.WriteFrame(id, fd)
	})
}

// Ping sends a ping control frame.
func (s *Session[I]) Ping() error {
	return s.Do(func(l *Link[I]) error {
		return l.Ping()
	})
}

// Logger returns the logger of the Session's Link.
func (s *Session[I]) Logger() logrus.FieldLogger {
	return s.link.log
}

// Latency returns the last measured ping/pong round trip time.
func (s *Session[I]) Latency() time.Duration {
	return s.link.Latency()
}

// NetLog enables or disables debug logging of frames read and written.
func (s *Session[I]) NetLog(state bool) {
	s.mu.Lock()
	s.link.NetLog(state)
	s.mu.Unlock()
}

// Serve reads from the transport and feeds the Link until the transport
// or the Link fails, then closes the Session. Returns nil if the
// transport was closed.
func (s *Session[I]) Serve() (err error) {
	buf := make([]byte, FrameMaxSize)
	for err == nil {
		var n int
		n, err = s.rwc.Read(buf)
		if n > 0 {
			if rerr := s.Do(func(l *Link[I]) (e error) {
				_, e = l.Recv(buf[:n])
				return
			}); rerr != nil {
				err = rerr
			}
		}
	}
	s.Close()
	if isClosedError(err) {
		err = nil
	}
	return
}

// Close closes the Link and the transport and waits for the writer to stop.
// Output not yet written is discarded.
func (s *Session[I]) Close() (err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.link.Close()
		s.mu.Unlock()
		close(s.done)
		err = s.rwc.Close()
		s.writers.Wait()
	})
	return
}
