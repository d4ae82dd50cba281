// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/blinkfox/blinkpool/driver"
)

// Conn wraps one raw driver connection with the pool bookkeeping needed
// to reuse it. A Conn is in exactly one of three places at any time:
// the pool's idle queue, a caller's hands, or destroyed; the pool's
// borrow and return disciplines enforce this, there is no third
// tracking structure.
//
// Close returns the connection to the pool. All operations after Close
// fail with ErrConnDone until the pool hands the Conn out again.
type Conn struct {
	pool *pool
	ci   driver.Conn

	// expirationTime is the wall-clock millisecond instant past which
	// this connection must not be reused. Randomised per connection so
	// a cohort created together does not expire together.
	expirationTime int64

	// lastCheckTime is the wall-clock millisecond instant of the last
	// performed liveness probe.
	lastCheckTime int64

	// lastBorrowNano is set by the pool at handout and read on return
	// to compute the in-use duration.
	lastBorrowNano int64

	// done transitions false -> true on Close and back on the next
	// handout. Guards against a handle being returned twice for the
	// same borrow.
	done atomic.Bool
}

func newConn(p *pool, ci driver.Conn) *Conn {
	life := p.config.MaxLifetime
	low := life * 4 / 5
	return &Conn{
		pool:           p,
		ci:             ci,
		expirationTime: nowFunc().UnixMilli() + low + rand.Int63n(life-low),
	}
}

// Close returns the connection to the pool. The underlying session is
// only really closed when the pool is already shut down or full.
func (c *Conn) Close() error {
	if !c.done.CompareAndSwap(false, true) {
		return ErrConnDone
	}

	closeNano := nowNano()
	c.pool.lastActiveNano.Store(closeNano)
	if diff := closeNano - c.lastBorrowNano; diff > 0 {
		c.pool.stats.usedSumNano.Add(diff)
	}

	// The decrement happens before the re-enqueue so a return in
	// flight never inflates queue size + borrowing.
	c.pool.borrowing.Add(-1)
	c.pool.returnConnection(c)
	return nil
}

// Exec runs query on the underlying session, discarding any result.
func (c *Conn) Exec(query string) error {
	if c.done.Load() {
		return ErrConnDone
	}
	return c.ci.Exec(query)
}

// Raw runs f exposing the underlying driver connection for the
// duration of f. The driver connection must not be used outside of f.
func (c *Conn) Raw(f func(dc driver.Conn) error) error {
	if c.done.Load() {
		return ErrConnDone
	}
	return f(c.ci)
}

// isAvailable reports whether this connection may be handed to a
// caller. Expired connections are never reused; otherwise the check
// interval decides whether to trust the previous probe.
func (c *Conn) isAvailable() bool {
	now := nowFunc().UnixMilli()
	if now >= c.expirationTime {
		return false
	}

	interval := c.pool.config.CheckInterval
	if interval < 0 {
		return true
	}
	if interval > 0 && now-c.lastCheckTime < interval {
		return true
	}

	ok := c.checkValid()
	c.lastCheckTime = nowFunc().UnixMilli()
	return ok
}

// checkValid performs an actual probe: the configured check query when
// set, the driver's native liveness call otherwise.
func (c *Conn) checkValid() bool {
	cfg := c.pool.config
	if cfg.CheckSQL == "" {
		return c.ci.IsAlive(time.Duration(cfg.CheckTimeout) * time.Second)
	}

	if err := c.ci.Exec(cfg.CheckSQL); err != nil {
		c.pool.log.Warn().Err(err).Str("checkSql", cfg.CheckSQL).
			Msg("check query failed; treating the connection as invalid")
		return false
	}
	return true
}

// closeReally closes the underlying session and counts the real close.
func (c *Conn) closeReally() error {
	if err := c.ci.Close(); err != nil {
		return err
	}
	c.pool.stats.realCloseds.Add(1)
	return nil
}

// closeQuietly closes the underlying session, logging instead of
// propagating any failure: the pool always has a correct alternative.
func (c *Conn) closeQuietly() {
	if err := c.closeReally(); err != nil {
		c.pool.log.Debug().Err(err).Msg("failed to close connection")
	}
}
