// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver defines interfaces to be implemented by database
// drivers as used by package blinkpool.
//
// Most code should use package blinkpool.
//
// The pool talks to a driver through exactly three operations on a
// connection: a liveness probe bounded by a timeout, the execution of a
// trivial probe query, and close. It never parses SQL and never
// interprets driver behaviour beyond these operations.
package driver

import "time"

// Driver is the interface that must be implemented by a database driver.
type Driver interface {
	// Open returns a new connection to the database.
	// The url is a string in a driver-specific format; the credentials
	// are passed through opaquely.
	//
	// Open may block while the session is established. The returned
	// connection is only used by one goroutine at a time.
	Open(url, username, password string) (Conn, error)
}

// The DriverFunc type is an adapter to allow the use of ordinary
// functions as a Driver. If f is a function with the appropriate
// signature, DriverFunc(f) is a Driver that calls f.
type DriverFunc func(url, username, password string) (Conn, error)

// Open returns f(url, username, password).
func (f DriverFunc) Open(url, username, password string) (Conn, error) {
	return f(url, username, password)
}

// Conn is a single database session, exclusively owned by its holder.
//
// Close tears the session down for real; returning a connection to the
// pool is the pool's business, not the driver's.
type Conn interface {
	// IsAlive reports whether the session is still usable, waiting at
	// most timeout for the driver to decide. A closed or broken session
	// reports false.
	IsAlive(timeout time.Duration) bool

	// Exec runs query and discards any result. It is used for
	// configured check statements; drivers should not cache or otherwise
	// interpret the query.
	Exec(query string) error

	// Close tears down the underlying session.
	Close() error
}
