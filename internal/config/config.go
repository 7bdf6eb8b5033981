// Package config loads marketdb settings.
// The connection string is only ever taken from the environment; an optional
// TOML file controls which variable holds it and how logging behaves.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/joysssdasd/1127/internal/errorx"
)

const DefaultDSNEnv = "SUPABASE_DB_URL"

// DatabaseConfig names the environment variable holding the DSN.
type DatabaseConfig struct {
	DSNEnv string `toml:"dsnEnv"`
}

// LogConfig drives the zap logger. An empty FileName disables the file sink.
type LogConfig struct {
	Level      string `toml:"level"`      // debug, info, warn, error
	FileName   string `toml:"fileName"`   // rolling log file
	MaxSize    int    `toml:"maxSize"`    // MB per file
	MaxBackups int    `toml:"maxBackups"` // rotated files kept
	MaxAge     int    `toml:"maxAge"`     // days
	Compress   bool   `toml:"compress"`
}

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{DSNEnv: DefaultDSNEnv},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeConfig, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errorx.Newf(errorx.CodeConfig, "load config %s: unknown keys %v", path, undecoded)
	}
	if cfg.Database.DSNEnv == "" {
		cfg.Database.DSNEnv = DefaultDSNEnv
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}

// DSN returns the connection string from the configured environment variable.
// A missing or blank value is a configuration error.
func (c *Config) DSN() (string, error) {
	name := c.Database.DSNEnv
	if name == "" {
		name = DefaultDSNEnv
	}
	dsn := strings.TrimSpace(os.Getenv(name))
	if dsn == "" {
		return "", errorx.Newf(errorx.CodeConfig, "%s environment variable not provided", name)
	}
	return dsn, nil
}

// secretParams are connection parameters that may carry a password in the
// query string of a URL-style DSN.
var secretParams = []string{"password", "sslpassword"}

// RedactDSN masks the password of a URL-style DSN for logging, whether it sits
// in the userinfo or in the query string.
// Keyword/value DSNs are reduced to their host so secrets never reach the log.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		for _, field := range strings.Fields(dsn) {
			if strings.HasPrefix(field, "host=") {
				return field
			}
		}
		return "(dsn)"
	}

	q := u.Query()
	masked := false
	for _, key := range secretParams {
		if q.Has(key) {
			q.Set(key, "xxxxx")
			masked = true
		}
	}
	if masked {
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}

func (c *Config) String() string {
	return fmt.Sprintf("dsnEnv=%s logLevel=%s logFile=%q", c.Database.DSNEnv, c.Log.Level, c.Log.FileName)
}
