// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned by borrows attempted after the
	// DataSource has been closed.
	ErrPoolClosed = errors.New("blinkpool: pool is closed")

	// ErrBorrowTimeout is returned when the pool is saturated and no
	// connection became free within the configured borrow timeout.
	ErrBorrowTimeout = errors.New("blinkpool: timed out waiting for a free connection; " +
		"consider raising maxPoolSize or fixing slow queries")

	// ErrConnDone is returned by any operation that is performed on a
	// connection that has already been returned to the pool.
	ErrConnDone = errors.New("blinkpool: connection is already closed")
)

// A ConfigError reports an invalid pool configuration. It is returned
// by NewDataSource before any connection is opened.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: "blinkpool: " + fmt.Sprintf(format, args...)}
}

// A ConnectError reports that the driver refused to open a session.
// It wraps the driver's error.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return "blinkpool: open connection: " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }
