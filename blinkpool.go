// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blinkpool maintains a bounded pool of reusable database
// connections for efficient re-use.
//
// A DataSource hands out connections on demand and reclaims them when
// callers are done. A borrowed Conn behaves like a direct connection;
// closing it returns the underlying session to the pool rather than
// tearing it down. A single background worker keeps the idle population
// within the configured bounds.
package blinkpool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blinkfox/blinkpool/driver"
)

var drivers = struct {
	sync.RWMutex
	m map[string]driver.Driver
}{m: make(map[string]driver.Driver)}

// Register makes a database driver available by the provided name.
// If Register is called twice with the same name or if d is nil,
// it panics.
func Register(name string, d driver.Driver) {
	if d == nil {
		panic("blinkpool: Register driver is nil")
	}

	drivers.Lock()
	defer drivers.Unlock()
	if _, dup := drivers.m[name]; dup {
		panic("blinkpool: Register called twice for driver " + name)
	}
	drivers.m[name] = d
}

// For tests.
func unregisterAllDrivers() {
	drivers.Lock()
	defer drivers.Unlock()
	drivers.m = make(map[string]driver.Driver)
}

// Drivers returns a sorted list of the names of the registered drivers.
func Drivers() []string {
	drivers.RLock()
	defer drivers.RUnlock()
	list := make([]string, 0, len(drivers.m))
	for name := range drivers.m {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

func lookupDriver(name string) (driver.Driver, error) {
	drivers.RLock()
	d, ok := drivers.m[name]
	drivers.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blinkpool: unknown driver %q (forgotten import?)", name)
	}
	return d, nil
}
