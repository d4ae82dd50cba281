// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import (
	"testing"
	"time"
)

func TestDataSourceTimings(t *testing.T) {
	cfg := testConfig()
	ds := newTestDataSource(t, cfg)

	c, err := ds.GetConnection()
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if got := ds.UsedSumMillis(); got < 10 {
		t.Errorf("UsedSumMillis = %v, want at least 10", got)
	}
	if got := ds.BorrowSumMillis(); got < 0 {
		t.Errorf("BorrowSumMillis = %v, want non-negative", got)
	}
	if got := ds.Stats().UsedSumNano; got < int64(10*time.Millisecond) {
		t.Errorf("UsedSumNano = %d, want at least %d", got, int64(10*time.Millisecond))
	}
}

func TestDataSourceAccessors(t *testing.T) {
	cfg := testConfig()
	cfg.PoolName = "accessors"
	ds := newTestDataSource(t, cfg)

	if got := ds.Config(); got.PoolName != "accessors" {
		t.Errorf("Config().PoolName = %q, want %q", got.PoolName, "accessors")
	}
	if ds.IsClosed() {
		t.Error("IsClosed = true on a fresh data source")
	}
	if got, want := ds.TotalCreations(), int64(cfg.MinIdle); got != want {
		t.Errorf("TotalCreations = %d, want %d", got, want)
	}
	if got := ds.TotalInvalids(); got != 0 {
		t.Errorf("TotalInvalids = %d, want 0", got)
	}

	// Smoke test; the summary goes to the injected logger.
	ds.LogStats()
}

func TestDataSourceAsyncInitIdle(t *testing.T) {
	cfg := testConfig()
	cfg.MinIdle = 5
	cfg.MaxPoolSize = 10
	cfg.AsyncInitIdle = true
	ds := newTestDataSource(t, cfg)

	// Construction creates exactly one connection synchronously; the
	// rest arrive on the background task.
	if got := ds.CurrentPoolSize(); got < 1 {
		t.Fatalf("CurrentPoolSize = %d immediately after construction, want at least 1", got)
	}
	waitCondition(t, func() bool { return ds.CurrentPoolSize() == 5 })
}
