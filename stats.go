package crap

import (
	"fmt"
	"sync/atomic"
)

// StatsCollector is the interface used to collect traffic statistics from a Link.
type StatsCollector interface {
	AddBytesWritten(n int64)
	AddBytesRead(n int64)
}

type headCounter interface {
	AddHeadCount()
}

// Stats counts frames and bytes, and may be shared between Links.
// All methods are safe for concurrent use.
type Stats struct {
	HeadCount  int64 // frames received with the Head flag set
	ReadIOPS   int64 // calls to Recv
	ReadBytes  int64 // bytes consumed by Recv
	WriteIOPS  int64 // writes to the sink
	WriteBytes int64 // bytes accepted by the sink
}

// AddHeadCount increments the head frame counter.
func (s *Stats) AddHeadCount() {
	atomic.AddInt64(&s.HeadCount, 1)
}

// AddBytesRead records one read of n bytes.
func (s *Stats) AddBytesRead(n int64) {
	atomic.AddInt64(&s.ReadIOPS, 1)
	atomic.AddInt64(&s.ReadBytes, n)
}

// AddBytesWritten records one write of n bytes.
func (s *Stats) AddBytesWritten(n int64) {
	atomic.AddInt64(&s.WriteIOPS, 1)
	atomic.AddInt64(&s.WriteBytes, n)
}

// Snapshot returns a consistent-per-field copy of the counters.
func (s *Stats) Snapshot() Stats {
	return Stats{
		HeadCount:  atomic.LoadInt64(&s.HeadCount),
		ReadIOPS:   atomic.LoadInt64(&s.ReadIOPS),
		ReadBytes:  atomic.LoadInt64(&s.ReadBytes),
		WriteIOPS:  atomic.LoadInt64(&s.WriteIOPS),
		WriteBytes: atomic.LoadInt64(&s.WriteBytes),
	}
}

// AggregateInto adds the counters of s to dst and zeroes s.
func (s *Stats) AggregateInto(dst *Stats) {
	atomic.AddInt64(&dst.HeadCount, atomic.SwapInt64(&s.HeadCount, 0))
	atomic.AddInt64(&dst.ReadIOPS, atomic.SwapInt64(&s.ReadIOPS, 0))
	atomic.AddInt64(&dst.ReadBytes, atomic.SwapInt64(&s.ReadBytes, 0))
	atomic.AddInt64(&dst.WriteIOPS, atomic.SwapInt64(&s.WriteIOPS, 0))
	atomic.AddInt64(&dst.WriteBytes, atomic.SwapInt64(&s.WriteBytes, 0))
}

// Sub returns the difference s - prev.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		HeadCount:  s.HeadCount - prev.HeadCount,
		ReadIOPS:   s.ReadIOPS - prev.ReadIOPS,
		ReadBytes:  s.ReadBytes - prev.ReadBytes,
		WriteIOPS:  s.WriteIOPS - prev.WriteIOPS,
		WriteBytes: s.WriteBytes - prev.WriteBytes,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("heads %d, read %d iops %d bytes, write %d iops %d bytes",
		s.HeadCount, s.ReadIOPS, s.ReadBytes, s.WriteIOPS, s.WriteBytes)
}
