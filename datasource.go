// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import "context"

// DataSource is the external entry point to a pool. It is safe for
// concurrent use by multiple goroutines.
type DataSource struct {
	config *Config
	pool   *pool
}

// NewDataSource validates cfg and constructs the pool behind it.
// Construction opens at least one connection, so a bad URL, missing
// driver or refusing database is reported here rather than on first
// use.
func NewDataSource(cfg *Config) (*DataSource, error) {
	if err := cfg.CheckAndInit(); err != nil {
		return nil, err
	}

	p, err := newPool(cfg)
	if err != nil {
		return nil, err
	}
	p.log.Info().
		Int("minIdle", cfg.MinIdle).
		Int("maxPoolSize", cfg.MaxPoolSize).
		Msg("connection pool created")

	return &DataSource{config: cfg, pool: p}, nil
}

// Config returns the validated configuration of this data source.
func (ds *DataSource) Config() *Config { return ds.config }

// GetConnection borrows a connection from the pool.
//
// GetConnection uses context.Background internally; to make the wait
// cancellable, use GetConnectionContext.
func (ds *DataSource) GetConnection() (*Conn, error) {
	return ds.GetConnectionContext(context.Background())
}

// GetConnectionContext borrows a connection from the pool, waiting at
// most the configured borrow timeout when the pool is saturated. A
// cancelled ctx ends the wait early with ctx.Err().
func (ds *DataSource) GetConnectionContext(ctx context.Context) (*Conn, error) {
	start := nowNano()
	c, err := ds.pool.borrowConnection(ctx)
	if err != nil {
		return nil, err
	}

	end := nowNano()
	ds.pool.stats.borrows.Add(1)
	if diff := end - start; diff > 0 {
		ds.pool.stats.borrowSumNano.Add(diff)
	}
	c.lastBorrowNano = end
	ds.pool.lastActiveNano.Store(end)
	return c, nil
}

// Close shuts the pool down. Subsequent borrows fail with
// ErrPoolClosed; connections currently borrowed are really closed when
// their holders close them. Close is idempotent.
func (ds *DataSource) Close() {
	ds.pool.shutdown()
}

// IsClosed reports whether the data source has been closed.
func (ds *DataSource) IsClosed() bool { return ds.pool.closed.Load() }

// CurrentPoolSize returns the number of idle connections in the pool.
func (ds *DataSource) CurrentPoolSize() int { return len(ds.pool.freec) }

// CurrentBorrowings returns the number of connections currently out
// with callers.
func (ds *DataSource) CurrentBorrowings() int { return int(ds.pool.borrowing.Load()) }

// Stats returns a snapshot of the pool counters.
func (ds *DataSource) Stats() StatisticsSnapshot { return ds.pool.stats.Snapshot() }

// TotalCreations returns the number of real connections ever opened.
func (ds *DataSource) TotalCreations() int64 { return ds.pool.stats.creations.Load() }

// TotalRealCloseds returns the number of real connections ever closed.
func (ds *DataSource) TotalRealCloseds() int64 { return ds.pool.stats.realCloseds.Load() }

// TotalBorrows returns the number of connections ever handed to
// callers.
func (ds *DataSource) TotalBorrows() int64 { return ds.pool.stats.borrows.Load() }

// TotalReturns returns the number of connections ever re-enqueued
// after use; connections really closed on return are not counted.
func (ds *DataSource) TotalReturns() int64 { return ds.pool.stats.returns.Load() }

// TotalInvalids returns the number of connections discarded by the
// liveness check.
func (ds *DataSource) TotalInvalids() int64 { return ds.pool.stats.invalids.Load() }

// BorrowSumMillis returns the cumulative milliseconds callers spent
// waiting in borrows.
func (ds *DataSource) BorrowSumMillis() float64 {
	return float64(ds.pool.stats.borrowSumNano.Load()) / 1e6
}

// UsedSumMillis returns the cumulative milliseconds borrowed
// connections were held.
func (ds *DataSource) UsedSumMillis() float64 {
	return float64(ds.pool.stats.usedSumNano.Load()) / 1e6
}

// LogStats writes a one-line summary of the pool counters to the pool
// logger.
func (ds *DataSource) LogStats() {
	st := ds.Stats()
	ds.pool.log.Info().
		Int("currBorrowings", ds.CurrentBorrowings()).
		Int("currPoolSize", ds.CurrentPoolSize()).
		Int64("creations", st.Creations).
		Int64("realCloseds", st.RealCloseds).
		Int64("borrows", st.Borrows).
		Int64("returns", st.Returns).
		Int64("invalids", st.Invalids).
		Msg("pool statistics")
}
