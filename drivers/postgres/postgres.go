// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package postgres registers a blinkpool driver named "postgresql"
// backed by github.com/jackc/pgx/v5. Import it for side effects:
//
//	import _ "github.com/blinkfox/blinkpool/drivers/postgres"
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/blinkfox/blinkpool"
	"github.com/blinkfox/blinkpool/driver"
)

func init() {
	blinkpool.Register("postgresql", Driver{})
}

const (
	connectTimeout = 15 * time.Second
	closeTimeout   = 5 * time.Second
)

// Driver opens PostgreSQL sessions from jdbc-style URLs of the form
// jdbc:postgresql://host:port/dbname?param=value.
type Driver struct{}

func (Driver) Open(jdbcURL, username, password string) (driver.Conn, error) {
	connString, err := connStringFromURL(jdbcURL)
	if err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url %q: %w", jdbcURL, err)
	}
	if username != "" {
		cfg.User = username
	}
	if password != "" {
		cfg.Password = password
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	ci, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &conn{ci: ci}, nil
}

// connStringFromURL strips the jdbc: prefix; pgx accepts the
// postgresql:// form directly.
func connStringFromURL(jdbcURL string) (string, error) {
	connString := strings.TrimPrefix(jdbcURL, "jdbc:")
	if !strings.HasPrefix(connString, "postgresql://") {
		return "", fmt.Errorf("postgres: unexpected url %q", jdbcURL)
	}
	return connString, nil
}

type conn struct {
	ci *pgx.Conn
}

func (c *conn) IsAlive(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.ci.Ping(ctx) == nil
}

func (c *conn) Exec(query string) error {
	_, err := c.ci.Exec(context.Background(), query)
	return err
}

func (c *conn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return c.ci.Close(ctx)
}
