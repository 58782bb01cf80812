// Package config reads the service configuration from the environment.
//
// Values are taken from environment variables. If a .env file is given and exists, it is loaded
// first; variables that are already set in the environment take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// Config holds the runtime settings of the address book service and its tools.
type Config struct {
	Port int `env:"PORT,default=8080"`

	DBDriver          string        `env:"DBDRIVER,default=mysql"`
	DBHost            string        `env:"DBHOST,default=localhost"`
	DBUser            string        `env:"DBUSER,default=root"`
	DBPassword        string        `env:"DBPWD"`
	DBName            string        `env:"DBNAME,default=test"`
	DBDSN             string        `env:"DBDSN"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=5m"`

	// JWTSecret signs the bearer tokens. The default is only suitable for development.
	JWTSecret string        `env:"JWT_SECRET,default=insecure-development-secret"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=24h"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
	// GinLogging turns HTTP request logging off when set to "off".
	GinLogging string `env:"GIN_LOGGING,default=on"`

	// RateLimit is the number of register/login requests per second and client address.
	RateLimit float64 `env:"RATE_LIMIT,default=5"`
	RateBurst int     `env:"RATE_BURST,default=10"`

	// TrustedProxies is a comma separated list of proxy IPs or CIDRs whose X-Forwarded-For header
	// is believed. Empty means the client address is always the peer address.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

// Load builds the configuration from the optional .env file and the environment.
//
// Usage example:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 JWT_SECRET=s3cr3t go run main.go
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if c.DBDriver != DriverMySQL && c.DBDriver != DriverPostgres {
		return fmt.Errorf("unsupported DBDRIVER %q, expected %q or %q", c.DBDriver, DriverMySQL, DriverPostgres)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL %s", c.TokenTTL)
	}
	for _, proxy := range c.TrustedProxyList() {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
			}
		}
	}
	return nil
}

// TrustedProxyList returns the entries of TrustedProxies, or nil if none are configured.
func (c *Config) TrustedProxyList() []string {
	var proxies []string
	for _, proxy := range strings.Split(c.TrustedProxies, ",") {
		if proxy = strings.TrimSpace(proxy); proxy != "" {
			proxies = append(proxies, proxy)
		}
	}
	return proxies
}

// DSN returns the data source name for the configured driver. DBDSN wins if it is set.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver == DriverPostgres {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     c.DBHost,
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	}
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPassword
	mc.Net = "tcp"
	mc.Addr = c.DBHost
	mc.DBName = c.DBName
	mc.ParseTime = true
	return mc.FormatDSN()
}

// DatabaseConfigured reports whether the environment points at a database. Tests that need a
// real database skip themselves otherwise.
func DatabaseConfigured() bool {
	_, host := os.LookupEnv("DBHOST")
	_, dsn := os.LookupEnv("DBDSN")
	return host || dsn
}
