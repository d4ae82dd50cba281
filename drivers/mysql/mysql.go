// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mysql registers a blinkpool driver named "mysql" backed by
// github.com/go-sql-driver/mysql. Import it for side effects:
//
//	import _ "github.com/blinkfox/blinkpool/drivers/mysql"
package mysql

import (
	"context"
	sqldriver "database/sql/driver"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/blinkfox/blinkpool"
	"github.com/blinkfox/blinkpool/driver"
)

func init() {
	blinkpool.Register("mysql", Driver{})
}

// Driver opens MySQL sessions from jdbc-style URLs of the form
// jdbc:mysql://host:port/dbname?param=value.
type Driver struct{}

func (Driver) Open(jdbcURL, username, password string) (driver.Conn, error) {
	dsn, err := dsnFromURL(jdbcURL, username, password)
	if err != nil {
		return nil, err
	}

	ci, err := mysql.MySQLDriver{}.Open(dsn)
	if err != nil {
		return nil, err
	}
	return &conn{ci: ci}, nil
}

// dsnFromURL converts a jdbc-style URL plus credentials into a
// go-sql-driver DSN.
func dsnFromURL(jdbcURL, username, password string) (string, error) {
	u, err := url.Parse(strings.TrimPrefix(jdbcURL, "jdbc:"))
	if err != nil {
		return "", fmt.Errorf("mysql: parse url %q: %w", jdbcURL, err)
	}
	if u.Scheme != "mysql" {
		return "", fmt.Errorf("mysql: unexpected url scheme %q", u.Scheme)
	}

	cfg := mysql.NewConfig()
	cfg.User = username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if q := u.Query(); len(q) > 0 {
		cfg.Params = make(map[string]string, len(q))
		for k, vs := range q {
			if len(vs) > 0 {
				cfg.Params[k] = vs[0]
			}
		}
	}
	return cfg.FormatDSN(), nil
}

type conn struct {
	ci sqldriver.Conn
}

func (c *conn) IsAlive(timeout time.Duration) bool {
	p, ok := c.ci.(sqldriver.Pinger)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Ping(ctx) == nil
}

func (c *conn) Exec(query string) error {
	if ex, ok := c.ci.(sqldriver.ExecerContext); ok {
		_, err := ex.ExecContext(context.Background(), query, nil)
		return err
	}

	stmt, err := c.ci.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(nil)
	return err
}

func (c *conn) Close() error {
	return c.ci.Close()
}
