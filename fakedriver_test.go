// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blinkfox/blinkpool/driver"
)

// fakeDriver is a fake driver that implements driver.Driver, just for
// testing.
type fakeDriver struct {
	mu         sync.Mutex // guards following
	openCount  int        // conn opens
	closeCount int        // conn closes
}

var fdriver = &fakeDriver{}

func init() {
	Register("fake", fdriver)
}

// hook to simulate connection failures
var hookOpenErr struct {
	sync.Mutex
	fn func() error
}

func setHookOpenErr(fn func() error) {
	hookOpenErr.Lock()
	hookOpenErr.fn = fn
	hookOpenErr.Unlock()
}

func (d *fakeDriver) Open(url, username, password string) (driver.Conn, error) {
	hookOpenErr.Lock()
	fn := hookOpenErr.fn
	hookOpenErr.Unlock()
	if fn != nil {
		if err := fn(); err != nil {
			return nil, err
		}
	}

	d.mu.Lock()
	d.openCount++
	d.mu.Unlock()
	return &fakeConn{driver: d}, nil
}

func (d *fakeDriver) opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openCount
}

func (d *fakeDriver) closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCount
}

type fakeConn struct {
	driver *fakeDriver // where close counts are recorded

	mu        sync.Mutex // guards following
	closed    bool
	stickyBad bool     // fails every liveness probe
	probes    int      // performed probes; for the probe-skipping tests
	execs     []string // queries seen by Exec
	execErr   error    // forced Exec result
}

func (c *fakeConn) setBad(bad bool) {
	c.mu.Lock()
	c.stickyBad = bad
	c.mu.Unlock()
}

func (c *fakeConn) probeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.probes
}

var _ driver.Conn = (*fakeConn)(nil)

func (c *fakeConn) IsAlive(timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes++
	return !c.closed && !c.stickyBad
}

func (c *fakeConn) Exec(query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("fakedriver: connection is closed")
	}
	c.execs = append(c.execs, query)
	return c.execErr
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("fakedriver: duplicate close")
	}
	c.closed = true

	c.driver.mu.Lock()
	c.driver.closeCount++
	c.driver.mu.Unlock()
	return nil
}

var discardLogger = zerolog.New(io.Discard)

// testConfig returns a config wired to the fake driver. Liveness
// probing is disabled unless a test opts back in.
func testConfig() *Config {
	return &Config{
		JdbcURL:       "jdbc:fake://localhost/test",
		DriverName:    "fake",
		MinIdle:       2,
		MaxPoolSize:   4,
		CheckInterval: -1,
		Logger:        &discardLogger,
	}
}
