// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blinkpool

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPoolName is used when no pool name is configured.
	DefaultPoolName = "blink-pool"

	// SimpleCheckSQL is a trivial statement suitable as a check query
	// for drivers whose native liveness call is unreliable. Prefer
	// leaving CheckSQL unset.
	SimpleCheckSQL = "SELECT 1"

	// DefaultMinIdle is the default floor on idle connections.
	DefaultMinIdle = 10

	// DefaultMaxPoolSize is the default ceiling on the total number of
	// connections, idle and borrowed together.
	DefaultMaxPoolSize = 20

	// DefaultIdleTimeout and MinIdleTimeout bound, in seconds, how long
	// the pool must sit inactive before extra idle connections are
	// trimmed.
	DefaultIdleTimeout = 60
	MinIdleTimeout     = 10

	// DefaultMaxLifetime and MinMaxLifetime bound, in milliseconds, the
	// wall-clock age ceiling of any one connection.
	DefaultMaxLifetime = 1800000
	MinMaxLifetime     = 60000

	// DefaultCheckInterval and MinCheckInterval bound, in milliseconds,
	// how often a given connection may be liveness-probed.
	DefaultCheckInterval = 2000
	MinCheckInterval     = 500

	// DefaultCheckTimeout and MinCheckTimeout bound, in seconds, how
	// long a liveness probe may take.
	DefaultCheckTimeout = 5
	MinCheckTimeout     = 1

	// DefaultBorrowTimeout is how long, in milliseconds, a borrow waits
	// on a saturated pool before giving up.
	DefaultBorrowTimeout = 30000
)

// knownSchemes are the jdbc URL schemes the pool can map to a driver
// name without an explicit DriverName. The registered driver name
// follows the scheme.
var knownSchemes = map[string]bool{
	"postgresql":    true,
	"mysql":         true,
	"hsqldb":        true,
	"h2":            true,
	"oracle":        true,
	"sqlserver":     true,
	"sybase":        true,
	"db2":           true,
	"jtds":          true,
	"kingbase8":     true,
	"uxdb":          true,
	"dm":            true,
	"informix-sqli": true,
	"log4jdbc":      true,
}

// Config holds the pool tunables. A zero numeric field means "use the
// default for this field", not "zero", except CheckInterval, where zero
// means "probe on every borrow". CheckAndInit validates and
// normalises a Config once, at DataSource construction; it is read-only
// afterwards.
type Config struct {
	// PoolName identifies the pool in logs and metrics.
	PoolName string `yaml:"poolName"`

	// JdbcURL locates the database. It must begin with "jdbc:".
	JdbcURL string `yaml:"jdbcUrl"`

	// DriverName selects a registered driver. When empty it is inferred
	// from the JdbcURL scheme.
	DriverName string `yaml:"driverName"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// MinIdle is the floor on the idle connection count.
	MinIdle int `yaml:"minIdle"`

	// MaxPoolSize is the hard ceiling on idle plus borrowed connections.
	MaxPoolSize int `yaml:"maxPoolSize"`

	// IdleTimeout is the seconds of pool inactivity after which extra
	// idle connections may be trimmed.
	IdleTimeout int `yaml:"idleTimeout"`

	// MaxLifetime is the ceiling, in milliseconds, on a connection's
	// wall-clock age. Each connection actually expires at a random
	// point in [0.8*MaxLifetime, MaxLifetime) so that a cohort created
	// together does not die together.
	MaxLifetime int64 `yaml:"maxLifetime"`

	// CheckInterval is the minimum milliseconds between liveness probes
	// of the same connection. Negative disables probing, zero probes on
	// every borrow.
	CheckInterval int64 `yaml:"checkInterval"`

	// CheckTimeout is the seconds a liveness probe may take.
	CheckTimeout int `yaml:"checkTimeout"`

	// CheckSQL, when set, replaces the driver's native liveness call
	// with a probe query.
	CheckSQL string `yaml:"checkSql"`

	// BorrowTimeout is the milliseconds a borrow may wait when the pool
	// is saturated.
	BorrowTimeout int64 `yaml:"borrowTimeout"`

	// AsyncInitIdle populates the pool toward MinIdle on a background
	// goroutine instead of blocking construction.
	AsyncInitIdle bool `yaml:"asyncInitIdle"`

	// Logger overrides the package logger for this pool.
	Logger *zerolog.Logger `yaml:"-"`
}

// NewConfig returns a Config pre-populated with the default of every
// tunable. A hand-built Config also works: CheckAndInit defaults its
// zero numeric fields, except checkInterval, where zero is the
// meaningful "probe on every borrow" setting.
func NewConfig() *Config {
	return &Config{
		PoolName:      DefaultPoolName,
		MinIdle:       DefaultMinIdle,
		MaxPoolSize:   DefaultMaxPoolSize,
		IdleTimeout:   DefaultIdleTimeout,
		MaxLifetime:   DefaultMaxLifetime,
		CheckInterval: DefaultCheckInterval,
		CheckTimeout:  DefaultCheckTimeout,
		BorrowTimeout: DefaultBorrowTimeout,
	}
}

// CheckAndInit validates the configuration, applies defaults to zero
// fields and clamps fields below their minima. It returns a
// *ConfigError when the configuration cannot be repaired.
func (c *Config) CheckAndInit() error {
	if strings.TrimSpace(c.JdbcURL) == "" {
		return configErrorf("jdbcUrl must not be blank")
	}
	if !strings.HasPrefix(c.JdbcURL, "jdbc:") {
		return configErrorf("jdbcUrl %q must begin with \"jdbc:\"", c.JdbcURL)
	}
	if c.PoolName == "" {
		c.PoolName = DefaultPoolName
	}

	if err := c.checkAndInitDriverName(); err != nil {
		return err
	}
	if err := c.checkAndInitPoolSize(); err != nil {
		return err
	}
	if err := c.checkAndInitIdleTimeout(); err != nil {
		return err
	}
	if err := c.checkAndInitMaxLifetime(); err != nil {
		return err
	}
	c.checkAndInitOtherOptions()
	return nil
}

// checkAndInitDriverName infers DriverName from the jdbc URL scheme
// when it was not set explicitly.
func (c *Config) checkAndInitDriverName() error {
	if c.DriverName != "" {
		return nil
	}

	rest := strings.TrimPrefix(c.JdbcURL, "jdbc:")
	scheme, _, ok := strings.Cut(rest, ":")
	if !ok || scheme == "" {
		return configErrorf("malformed jdbcUrl %q", c.JdbcURL)
	}
	if !knownSchemes[scheme] {
		return configErrorf("cannot infer a driver from jdbcUrl scheme %q; set driverName explicitly", scheme)
	}
	c.DriverName = scheme
	return nil
}

func (c *Config) checkAndInitPoolSize() error {
	if c.MinIdle < 0 {
		return configErrorf("minIdle must not be negative, got %d", c.MinIdle)
	}
	if c.MaxPoolSize < 0 {
		return configErrorf("maxPoolSize must not be negative, got %d", c.MaxPoolSize)
	}
	if c.MinIdle == 0 {
		c.MinIdle = DefaultMinIdle
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = DefaultMaxPoolSize
	}

	// A floor above the ceiling is a configuration slip; swap rather
	// than fail.
	if c.MinIdle > c.MaxPoolSize {
		c.MinIdle, c.MaxPoolSize = c.MaxPoolSize, c.MinIdle
		logger := poolLogger(c)
		logger.Warn().
			Int("minIdle", c.MinIdle).
			Int("maxPoolSize", c.MaxPoolSize).
			Msg("minIdle was greater than maxPoolSize; the two values have been swapped")
	}
	return nil
}

func (c *Config) checkAndInitIdleTimeout() error {
	if c.IdleTimeout < 0 {
		return configErrorf("idleTimeout must not be negative, got %d", c.IdleTimeout)
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.IdleTimeout < MinIdleTimeout {
		c.IdleTimeout = MinIdleTimeout
	}
	return nil
}

func (c *Config) checkAndInitMaxLifetime() error {
	if c.MaxLifetime < 0 {
		return configErrorf("maxLifetime must not be negative, got %d", c.MaxLifetime)
	}
	if c.MaxLifetime == 0 {
		c.MaxLifetime = DefaultMaxLifetime
	}
	if c.MaxLifetime < MinMaxLifetime {
		c.MaxLifetime = MinMaxLifetime
	}
	return nil
}

func (c *Config) checkAndInitOtherOptions() {
	// Negative disables probing, zero probes every borrow; only a
	// too-small positive interval is clamped.
	if c.CheckInterval > 0 && c.CheckInterval < MinCheckInterval {
		c.CheckInterval = MinCheckInterval
	}

	if c.CheckTimeout <= 0 {
		c.CheckTimeout = DefaultCheckTimeout
	}
	if c.CheckTimeout < MinCheckTimeout {
		c.CheckTimeout = MinCheckTimeout
	}

	if c.BorrowTimeout <= 0 {
		c.BorrowTimeout = DefaultBorrowTimeout
	}
}

// LoadConfig reads a Config from a YAML file. The result still goes
// through CheckAndInit when handed to NewDataSource.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("blinkpool: read config file: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("blinkpool: parse config file %s: %w", path, err)
	}
	return &c, nil
}

// LoadConfigFromEnv builds a Config from BLINKPOOL_* environment
// variables, loading a .env file first if one is present.
func LoadConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		PoolName:   os.Getenv("BLINKPOOL_POOL_NAME"),
		JdbcURL:    os.Getenv("BLINKPOOL_JDBC_URL"),
		DriverName: os.Getenv("BLINKPOOL_DRIVER_NAME"),
		Username:   os.Getenv("BLINKPOOL_USERNAME"),
		Password:   os.Getenv("BLINKPOOL_PASSWORD"),
		CheckSQL:   os.Getenv("BLINKPOOL_CHECK_SQL"),
	}

	var err error
	if c.MinIdle, err = envInt("BLINKPOOL_MIN_IDLE"); err != nil {
		return nil, err
	}
	if c.MaxPoolSize, err = envInt("BLINKPOOL_MAX_POOL_SIZE"); err != nil {
		return nil, err
	}
	if c.IdleTimeout, err = envInt("BLINKPOOL_IDLE_TIMEOUT"); err != nil {
		return nil, err
	}
	if c.MaxLifetime, err = envInt64("BLINKPOOL_MAX_LIFETIME"); err != nil {
		return nil, err
	}
	if c.CheckInterval, err = envInt64("BLINKPOOL_CHECK_INTERVAL"); err != nil {
		return nil, err
	}
	if c.CheckTimeout, err = envInt("BLINKPOOL_CHECK_TIMEOUT"); err != nil {
		return nil, err
	}
	if c.BorrowTimeout, err = envInt64("BLINKPOOL_BORROW_TIMEOUT"); err != nil {
		return nil, err
	}
	if c.AsyncInitIdle, err = envBool("BLINKPOOL_ASYNC_INIT_IDLE"); err != nil {
		return nil, err
	}
	return c, nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, configErrorf("environment variable %s=%q is not an integer", key, v)
	}
	return n, nil
}

func envInt64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, configErrorf("environment variable %s=%q is not an integer", key, v)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, configErrorf("environment variable %s=%q is not a boolean", key, v)
	}
	return b, nil
}
