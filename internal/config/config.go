// Package config loads the gateway configuration from the environment, with
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"rest-gateway/middleware/ratelimit/domain"

	"github.com/joho/godotenv"
)

const (
	DefaultMaxRequests    = 60
	DefaultPartnerSecret  = "BITBOX"
	DefaultTokenTTL       = 30 * 24 * time.Hour
	DefaultLookupTimeout  = 2 * time.Second
	DefaultListenAddr     = ":8080"
	DefaultConcurrencyMax = 100

	// MaxBaseRequests keeps the elevated ceiling representable as an int.
	MaxBaseRequests = math.MaxInt / domain.ElevatedMultiplier
)

type Config struct {
	Server      ServerConfig
	Upstream    UpstreamConfig
	RateLimit   RateLimitConfig
	Auth        AuthConfig
	Accounts    AccountsConfig
	Stats       StatsConfig
	Concurrency ConcurrencyConfig
	Log         LogConfig
}

type ServerConfig struct {
	ListenAddr string
}

type UpstreamConfig struct {
	URL *url.URL
}

type RateLimitConfig struct {
	// MaxRequests is the anonymous per-minute budget; 0 disables limiting.
	MaxRequests      int
	PartnerPasswords []string
	TokenSchemes     []string
	AddHeaders       bool
	TrustXFF         bool
}

type AuthConfig struct {
	// JWTSecret signs and verifies pro-user tokens. Empty disables the
	// pro tier and the /v2/user routes.
	JWTSecret string
	TokenTTL  time.Duration
}

type AccountsConfig struct {
	Store         string // "memory" or "postgres"
	DatabaseURL   string
	LookupTimeout time.Duration
}

type StatsConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
	Bucket        string
	TrackKeys     bool
}

type ConcurrencyConfig struct {
	// Max 0 disables the in-flight cap.
	Max     int
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. All problems are reported together.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{}

	cfg.Server.ListenAddr = e.str("LISTEN_ADDR", DefaultListenAddr)

	if raw := e.str("UPSTREAM_URL", ""); raw == "" {
		e.fail(errors.New("UPSTREAM_URL is required"))
	} else if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
		e.fail(fmt.Errorf("invalid UPSTREAM_URL %q", raw))
	} else {
		cfg.Upstream.URL = u
	}

	cfg.RateLimit.MaxRequests = e.int("RATE_LIMIT_MAX_REQUESTS", DefaultMaxRequests)
	if cfg.RateLimit.MaxRequests < 0 {
		e.fail(errors.New("RATE_LIMIT_MAX_REQUESTS must be >= 0"))
	}
	if cfg.RateLimit.MaxRequests > MaxBaseRequests {
		e.fail(fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be <= %d", MaxBaseRequests))
	}
	cfg.RateLimit.PartnerPasswords = e.secrets("PARTNER_PASSWORDS")
	if len(cfg.RateLimit.PartnerPasswords) == 0 {
		cfg.RateLimit.PartnerPasswords = e.secrets("PRO_PASS")
	}
	if len(cfg.RateLimit.PartnerPasswords) == 0 {
		cfg.RateLimit.PartnerPasswords = []string{DefaultPartnerSecret}
	}
	cfg.RateLimit.TokenSchemes = splitList(e.str("TOKEN_SCHEMES", "Token,Bearer"), ",")
	cfg.RateLimit.AddHeaders = e.bool("ADD_RATELIMIT_HEADERS", false)
	cfg.RateLimit.TrustXFF = e.bool("TRUST_XFF", false)

	cfg.Auth.JWTSecret = e.str("JWT_SECRET", "")
	cfg.Auth.TokenTTL = e.duration("JWT_TTL", DefaultTokenTTL)

	cfg.Accounts.Store = strings.ToLower(e.str("ACCOUNT_STORE", "memory"))
	cfg.Accounts.DatabaseURL = e.str("DATABASE_URL", "")
	cfg.Accounts.LookupTimeout = e.duration("ACCOUNT_LOOKUP_TIMEOUT", DefaultLookupTimeout)
	switch cfg.Accounts.Store {
	case "memory":
	case "postgres":
		if cfg.Accounts.DatabaseURL == "" {
			e.fail(errors.New("DATABASE_URL is required when ACCOUNT_STORE=postgres"))
		}
	default:
		e.fail(fmt.Errorf("unsupported ACCOUNT_STORE %q", cfg.Accounts.Store))
	}

	cfg.Stats.Enabled = e.bool("RATE_STATS_ENABLED", false)
	cfg.Stats.RedisAddr = e.str("RATE_STATS_REDIS_ADDR", "")
	cfg.Stats.RedisPassword = e.str("RATE_STATS_REDIS_PASSWORD", "")
	cfg.Stats.RedisDB = e.int("RATE_STATS_REDIS_DB", 0)
	cfg.Stats.Prefix = e.str("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.Stats.TTL = e.duration("RATE_STATS_TTL", 24*time.Hour)
	cfg.Stats.Bucket = e.str("RATE_STATS_BUCKET", "minute")
	cfg.Stats.TrackKeys = e.bool("RATE_STATS_TRACK_KEYS", false)
	if cfg.Stats.Enabled && cfg.Stats.RedisAddr == "" {
		e.fail(errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true"))
	}

	cfg.Concurrency.Max = e.int("CONCURRENCY_MAX", DefaultConcurrencyMax)
	cfg.Concurrency.Timeout = e.duration("CONCURRENCY_TIMEOUT", 0)
	if cfg.Concurrency.Max < 0 {
		e.fail(errors.New("CONCURRENCY_MAX must be >= 0"))
	}

	cfg.Log.Level = e.str("LOG_LEVEL", "info")
	cfg.Log.Format = e.str("LOG_FORMAT", "json")

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) fail(err error) { e.errs = append(e.errs, err) }

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) int(k string, def int) int {
	v := e.str(k, "")
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %w", k, err))
		return def
	}
	return i
}

func (e *env) bool(k string, def bool) bool {
	v := e.str(k, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %w", k, err))
		return def
	}
	return b
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v := e.str(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %w", k, err))
		return def
	}
	return d
}

// secrets splits a colon-separated secret list verbatim. Whitespace is part
// of a secret; only empty entries are dropped.
func (e *env) secrets(k string) []string {
	v, _ := e.lookup(k)
	var out []string
	for _, s := range strings.Split(v, ":") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
