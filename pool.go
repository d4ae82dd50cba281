// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/blinkfox/blinkpool/driver"
)

// nowFunc returns the current time; it's overridden in tests.
var nowFunc = time.Now

func nowNano() int64 { return nowFunc().UnixNano() }

// maintenanceInterval is how often the background worker reconciles the
// idle population against the configured bounds.
const maintenanceInterval = 5 * time.Second

// pool is the connection pool manager. Callers go through DataSource.
//
// The pool tracks only two observables: the bounded idle queue and the
// borrowing counter. Their sum is the population, bounded by
// Config.MaxPoolSize; every creation decision re-checks that bound.
type pool struct {
	config *Config
	stats  *Statistics
	log    zerolog.Logger

	drv driver.Driver

	// closed is set once by shutdown. A borrow that started just
	// before shutdown may still succeed; returns observing closed
	// real-close instead of re-enqueuing, so nothing leaks.
	closed atomic.Bool

	// lastActiveNano is stamped on every borrow and return. The
	// maintenance worker skips trimming while it is recent.
	lastActiveNano atomic.Int64

	// borrowing counts connections currently out with callers.
	// Incremented before a connection is handed out, decremented
	// before it is re-enqueued or discarded.
	borrowing atomic.Int64

	// freec is the bounded FIFO of idle connections. Its capacity is a
	// safety net; the population bound is enforced by the
	// borrowing+len(freec) check under createMu.
	freec chan *Conn

	// createMu serialises population growth so racing fillers cannot
	// overshoot minIdle.
	createMu sync.Mutex

	stopc chan struct{}
}

func newPool(cfg *Config) (*pool, error) {
	drv, err := lookupDriver(cfg.DriverName)
	if err != nil {
		return nil, err
	}

	p := &pool{
		config: cfg,
		stats:  new(Statistics),
		log:    poolLogger(cfg),
		drv:    drv,
		freec:  make(chan *Conn, cfg.MaxPoolSize),
		stopc:  make(chan struct{}),
	}
	p.lastActiveNano.Store(nowNano())

	// One connection is always created synchronously so that
	// misconfiguration surfaces from the constructor, not lazily.
	if _, err := p.createConnectionIntoPool(); err != nil {
		return nil, err
	}
	if cfg.MinIdle > 1 {
		if cfg.AsyncInitIdle {
			go func() {
				if err := p.createMinIdleConnections(); err != nil {
					p.log.Error().Err(err).Msg("async initialisation of idle connections failed")
				}
			}()
		} else if err := p.createMinIdleConnections(); err != nil {
			return nil, err
		}
	}

	go p.keepIdleConnections()
	return p, nil
}

// openConnection opens one raw connection and wraps it.
func (p *pool) openConnection() (*Conn, error) {
	ci, err := p.drv.Open(p.config.JdbcURL, p.config.Username, p.config.Password)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	p.stats.creations.Add(1)
	return newConn(p, ci), nil
}

// createConnectionIntoPool creates one connection and offers it to the
// idle queue, unless the population is already at the ceiling. The
// reported bool is whether a connection was added.
func (p *pool) createConnectionIntoPool() (bool, error) {
	if len(p.freec)+int(p.borrowing.Load()) >= p.config.MaxPoolSize {
		return false, nil
	}

	c, err := p.openConnection()
	if err != nil {
		return false, err
	}
	select {
	case p.freec <- c:
		return true, nil
	default:
		c.closeQuietly()
		p.log.Debug().Msg("pool is full; closing the freshly created connection")
		return false, nil
	}
}

// createMinIdleConnections grows the idle queue toward minIdle. The
// creation lock serialises concurrent fillers; each creation re-checks
// the population bound, and the loop stops once a creation declines.
func (p *pool) createMinIdleConnections() error {
	p.createMu.Lock()
	defer p.createMu.Unlock()

	for len(p.freec) < p.config.MinIdle {
		added, err := p.createConnectionIntoPool()
		if err != nil {
			return err
		}
		if !added {
			break
		}
	}
	return nil
}

// borrowConnection hands one connection to a caller.
//
// An empty queue triggers a best-effort background refill, then a
// bounded wait. A connection that fails the liveness check is replaced
// at most once, synchronously.
func (p *pool) borrowConnection(ctx context.Context) (*Conn, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	var c *Conn
	select {
	case c = <-p.freec:
	default:
	}

	if c == nil {
		if p.borrowing.Load() < int64(p.config.MaxPoolSize) && len(p.freec) == 0 {
			go func() {
				if err := p.createMinIdleConnections(); err != nil {
					p.log.Error().Err(err).Msg("background refill of idle connections failed")
				}
			}()
		}

		timer := time.NewTimer(time.Duration(p.config.BorrowTimeout) * time.Millisecond)
		select {
		case c = <-p.freec:
			timer.Stop()
		case <-timer.C:
			return nil, ErrBorrowTimeout
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	p.borrowing.Add(1)
	if c.isAvailable() {
		c.done.Store(false)
		return c, nil
	}

	// Invalid: discard and replace once. A failing replacement
	// surfaces as ConnectError; there is no retry loop.
	p.borrowing.Add(-1)
	p.stats.invalids.Add(1)
	c.closeQuietly()

	nc, err := p.openConnection()
	if err != nil {
		return nil, err
	}
	p.borrowing.Add(1)
	nc.done.Store(false)
	return nc, nil
}

// returnConnection re-enqueues a connection whose borrow has ended.
// The caller has already decremented borrowing.
func (p *pool) returnConnection(c *Conn) {
	if p.closed.Load() {
		c.closeQuietly()
		return
	}

	select {
	case p.freec <- c:
		p.stats.returns.Add(1)
	default:
		// Legitimate when racing with the maintenance refill.
		c.closeQuietly()
		p.log.Debug().Msg("pool is full; closing the returned connection instead of re-enqueuing; " +
			"frequent occurrences suggest raising maxPoolSize")
	}
}

// keepIdleConnections is the single maintenance worker.
func (p *pool) keepIdleConnections() {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.maintainIdleConnections()
		case <-p.stopc:
			return
		}
	}
}

// maintainIdleConnections trims extra idle connections once the pool
// has been inactive for idleTimeout, refills toward minIdle and repairs
// wrapped counters. Errors are logged, never propagated, so one bad
// cycle cannot stop the worker.
func (p *pool) maintainIdleConnections() {
	if p.closed.Load() {
		return
	}

	idle := time.Duration(p.config.IdleTimeout) * time.Second
	if time.Duration(nowNano()-p.lastActiveNano.Load()) < idle {
		return
	}

	p.log.Debug().Msg("reconciling idle connections against minIdle")
trim:
	for len(p.freec) > p.config.MinIdle {
		select {
		case c := <-p.freec:
			c.closeQuietly()
		default:
			break trim
		}
	}

	if err := p.createMinIdleConnections(); err != nil {
		p.log.Error().Err(err).Msg("refilling idle connections failed")
	}
	p.stats.fixOverflow()
}

// shutdown marks the pool closed, stops the maintenance worker, drains
// the idle queue and resets the counters. Borrowed connections are not
// revoked; they real-close on return.
func (p *pool) shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.stopc)

	for {
		select {
		case c := <-p.freec:
			c.closeQuietly()
		default:
			p.stats.resetAll()
			return
		}
	}
}
