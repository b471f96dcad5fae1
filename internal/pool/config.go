// Package pool owns the SQL Server connection pools: configuration, lazy
// connection, the per-configuration pool registry, and the single-use
// request checkout that executions run against.
package pool

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Config holds connection parameters for one pool. Either DSN is set (used
// verbatim), or the structured fields are serialized into a sqlserver:// URL
// with percent-encoded credentials.
type Config struct {
	DSN string

	Server   string
	Port     int
	Database string
	User     string
	Password string
	Options  map[string]string // extra DSN query parameters (encrypt, appname, ...)

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// BuildDSN returns the connection string for this configuration. Credentials
// in structured configs are percent-encoded so passwords containing URL
// metacharacters cannot mis-split the authority component.
func (c Config) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	host := c.Server
	if c.Port > 0 {
		host = fmt.Sprintf("%s:%d", c.Server, c.Port)
	}

	u := &url.URL{
		Scheme: "sqlserver",
		Host:   host,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	for k, v := range c.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// CacheKey returns the deterministic registry key for this configuration: the
// DSN verbatim when one is given, otherwise a canonical serialization of the
// structured fields with options in sorted order.
func (c Config) CacheKey() string {
	if c.DSN != "" {
		return c.DSN
	}

	var b strings.Builder
	fmt.Fprintf(&b, "server=%s;port=%d;database=%s;user=%s;password=%s",
		c.Server, c.Port, c.Database, c.User, c.Password)

	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ";%s=%s", k, c.Options[k])
	}
	return b.String()
}
