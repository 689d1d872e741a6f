package executor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Config is the immutable policy bound to a caching query executor:
// identity, cache entry expiration, and scheduling mode. Build instances
// with NewConfigBuilder; validation happens in the executor constructor,
// not here.
type Config struct {
	executorID    string
	executorType  string
	expiration    int64
	maxExpiration int64
	simultaneous  bool
	useTimestamps bool
}

// ConfigBuilder assembles a Config.
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// SetExecutorID sets the executor identifier.
func (b *ConfigBuilder) SetExecutorID(id string) *ConfigBuilder {
	b.cfg.executorID = id
	return b
}

// SetExecutorType sets the executor type tag.
func (b *ConfigBuilder) SetExecutorType(t string) *ConfigBuilder {
	b.cfg.executorType = t
	return b
}

// SetExpiration sets the cache entry TTL in milliseconds. Zero disables
// cache population but not lookup.
func (b *ConfigBuilder) SetExpiration(ms int64) *ConfigBuilder {
	b.cfg.expiration = ms
	return b
}

// SetMaxExpiration sets the upper TTL clamp in milliseconds, applied when
// TTLs are derived from query timestamps.
func (b *ConfigBuilder) SetMaxExpiration(ms int64) *ConfigBuilder {
	b.cfg.maxExpiration = ms
	return b
}

// SetSimultaneous races the cache fetch against the downstream query.
func (b *ConfigBuilder) SetSimultaneous(simultaneous bool) *ConfigBuilder {
	b.cfg.simultaneous = simultaneous
	return b
}

// SetUseTimestamps derives TTLs from the query's end time instead of using
// the expiration verbatim.
func (b *ConfigBuilder) SetUseTimestamps(use bool) *ConfigBuilder {
	b.cfg.useTimestamps = use
	return b
}

// Build returns the assembled Config.
func (b *ConfigBuilder) Build() *Config {
	cfg := b.cfg
	return &cfg
}

// ExecutorID returns the executor identifier.
func (c *Config) ExecutorID() string { return c.executorID }

// ExecutorType returns the executor type tag.
func (c *Config) ExecutorType() string { return c.executorType }

// Expiration returns the cache entry TTL in milliseconds.
func (c *Config) Expiration() int64 { return c.expiration }

// MaxExpiration returns the upper TTL clamp in milliseconds.
func (c *Config) MaxExpiration() int64 { return c.maxExpiration }

// Simultaneous reports whether cache and downstream race.
func (c *Config) Simultaneous() bool { return c.simultaneous }

// UseTimestamps reports whether TTLs derive from query timestamps.
func (c *Config) UseTimestamps() bool { return c.useTimestamps }

// Equal reports field-wise equality.
func (c *Config) Equal(o *Config) bool {
	if c == nil || o == nil {
		return c == o
	}
	return *c == *o
}

// Hash returns a hash consistent with Equal.
func (c *Config) Hash() uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%d|%d|%t|%t|%s|%s",
		c.expiration, c.maxExpiration, c.simultaneous, c.useTimestamps,
		c.executorID, c.executorType))
}

// Compare imposes a total order over the tuple (expiration, maxExpiration,
// simultaneous, useTimestamps, executorID, executorType). Durations order
// naturally, booleans true-first, strings lexicographically. Returns the
// sign of c relative to o.
func (c *Config) Compare(o *Config) int {
	if c.expiration != o.expiration {
		if c.expiration > o.expiration {
			return 1
		}
		return -1
	}
	if c.maxExpiration != o.maxExpiration {
		if c.maxExpiration > o.maxExpiration {
			return 1
		}
		return -1
	}
	if c.simultaneous != o.simultaneous {
		if c.simultaneous {
			return -1
		}
		return 1
	}
	if c.useTimestamps != o.useTimestamps {
		if c.useTimestamps {
			return -1
		}
		return 1
	}
	if cmp := strings.Compare(c.executorID, o.executorID); cmp != 0 {
		return cmp
	}
	return strings.Compare(c.executorType, o.executorType)
}

// jsonConfig is the persisted form of Config.
type jsonConfig struct {
	ExecutorType  string `json:"executorType"`
	ExecutorID    string `json:"executorId"`
	Expiration    int64  `json:"expiration"`
	MaxExpiration int64  `json:"maxExpiration"`
	Simultaneous  bool   `json:"simultaneous"`
	UseTimestamps bool   `json:"useTimestamps"`
}

// MarshalJSON renders the persisted form.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonConfig{
		ExecutorType:  c.executorType,
		ExecutorID:    c.executorID,
		Expiration:    c.expiration,
		MaxExpiration: c.maxExpiration,
		Simultaneous:  c.simultaneous,
		UseTimestamps: c.useTimestamps,
	})
}

// UnmarshalJSON parses the persisted form. Absent booleans and integers
// default to false and zero.
func (c *Config) UnmarshalJSON(data []byte) error {
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}
	c.executorType = jc.ExecutorType
	c.executorID = jc.ExecutorID
	c.expiration = jc.Expiration
	c.maxExpiration = jc.MaxExpiration
	c.simultaneous = jc.Simultaneous
	c.useTimestamps = jc.UseTimestamps
	return nil
}

// String returns the persisted JSON form.
func (c *Config) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

// expirationDuration returns the configured expiration as a duration.
func (c *Config) expirationDuration() time.Duration {
	return time.Duration(c.expiration) * time.Millisecond
}

// maxExpirationDuration returns the configured clamp as a duration.
func (c *Config) maxExpirationDuration() time.Duration {
	return time.Duration(c.maxExpiration) * time.Millisecond
}
