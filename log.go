// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import (
	"os"

	"github.com/rs/zerolog"
)

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// poolLogger returns the logger for a pool built from cfg, stamped with
// the pool name. Config.Logger overrides the package default.
func poolLogger(cfg *Config) zerolog.Logger {
	base := defaultLogger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	return base.With().Str("pool", cfg.PoolName).Logger()
}
