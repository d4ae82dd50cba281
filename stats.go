// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import "sync/atomic"

// Statistics holds the pool's monotonic counters. They are maintained
// without cross-counter synchronisation and may briefly disagree with
// each other under load; they are diagnostic, not load-bearing.
type Statistics struct {
	creations   atomic.Int64
	realCloseds atomic.Int64
	borrows     atomic.Int64
	returns     atomic.Int64
	invalids    atomic.Int64

	// Cumulative nanoseconds spent waiting in borrows and holding
	// borrowed connections.
	borrowSumNano atomic.Int64
	usedSumNano   atomic.Int64
}

// StatisticsSnapshot is a point-in-time copy of the pool counters.
type StatisticsSnapshot struct {
	Creations   int64 // real connections opened
	RealCloseds int64 // real connections closed
	Borrows     int64 // connections handed to callers
	Returns     int64 // connections re-enqueued after use
	Invalids    int64 // connections discarded by the liveness check

	BorrowSumNano int64 // cumulative borrow-wait nanoseconds
	UsedSumNano   int64 // cumulative in-use nanoseconds
}

// Snapshot returns a copy of the current counter values.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		Creations:     s.creations.Load(),
		RealCloseds:   s.realCloseds.Load(),
		Borrows:       s.borrows.Load(),
		Returns:       s.returns.Load(),
		Invalids:      s.invalids.Load(),
		BorrowSumNano: s.borrowSumNano.Load(),
		UsedSumNano:   s.usedSumNano.Load(),
	}
}

func (s *Statistics) counters() []*atomic.Int64 {
	return []*atomic.Int64{
		&s.creations, &s.realCloseds, &s.borrows, &s.returns,
		&s.invalids, &s.borrowSumNano, &s.usedSumNano,
	}
}

// fixOverflow resets any counter that has wrapped negative. A sentinel
// for 64-bit wrap; in practice it never fires.
func (s *Statistics) fixOverflow() {
	for _, c := range s.counters() {
		if c.Load() < 0 {
			c.Store(0)
		}
	}
}

// resetAll zeroes every counter.
func (s *Statistics) resetAll() {
	for _, c := range s.counters() {
		c.Store(0)
	}
}
