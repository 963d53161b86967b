// Package connector holds connection configuration: parsing and building
// connection strings, pool sizing, timeouts, and dial retry policy.
package connector

import "time"

// Config represents database connection configuration.
type Config struct {
	Host           string            `json:"host" yaml:"host"`
	Port           int               `json:"port" yaml:"port"`
	Database       string            `json:"database" yaml:"database"`
	Username       string            `json:"username" yaml:"username"`
	Password       string            `json:"password" yaml:"password"`
	SSLMode        string            `json:"ssl_mode" yaml:"ssl_mode"`
	Params         map[string]string `json:"params" yaml:"params"`
	Pool           PoolConfig        `json:"pool" yaml:"pool"`
	ConnectTimeout time.Duration     `json:"connect_timeout" yaml:"connect_timeout"`
	QueryTimeout   time.Duration     `json:"query_timeout" yaml:"query_timeout"`
	Retry          *RetryConfig      `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// PoolConfig defines connection pool settings. MaxSize bounds the total
// number of links the pool will ever hold open at once.
type PoolConfig struct {
	MinSize        int           `json:"min_size" yaml:"min_size"`
	MaxSize        int           `json:"max_size" yaml:"max_size"`
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`
}

// RetryConfig defines dial retry behavior. Retries apply to establishing
// links only, never to statements: a partially-executed statement may already
// have committed side effects.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
}

// ApplyDefaults fills unset fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.Pool.MaxSize <= 0 {
		c.Pool.MaxSize = 10
	}
	if c.Pool.MinSize < 0 {
		c.Pool.MinSize = 0
	}
	if c.Pool.MinSize > c.Pool.MaxSize {
		c.Pool.MinSize = c.Pool.MaxSize
	}
}
