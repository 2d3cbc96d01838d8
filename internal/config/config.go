package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

type Config struct {
	ListenPort      string        `validate:"required"` // ex: ":8088"
	ShutdownTimeout time.Duration `validate:"gt=0"`     // ex: 5s
	RequestTimeout  time.Duration `validate:"gt=0"`     // per-request timeout, must cover start + settle + status

	LogLevel    string `validate:"oneof=debug info warn error"`
	LogLevelSet bool   // MADVPN_LOG_LEVEL given explicitly (env or env file)
	PrettyLog   bool   // true => zap dev (color), false => zap prod (JSON)

	// Service control
	Title            string        `validate:"required"` // notification title
	ServiceName      string        `validate:"required"` // display name, ex: "OpenVPN"
	ServiceUnit      string        `validate:"required"` // ex: "openvpn.service"
	ServiceManager   string        `validate:"required"` // ex: "systemctl"
	StatusCommand    string        // template, {manager} and {unit} are substituted
	StartCommand     string        // template
	StopCommand      string        // template
	CommandTimeout   time.Duration `validate:"gt=0"`
	SettleDelay      time.Duration `validate:"gte=0"`
	NotifyDuration   time.Duration `validate:"gt=0"`
	ProgressDuration time.Duration `validate:"gt=0"`

	// Remote keymap
	KeymapFile           string        // optional, empty = built-in keymap
	KeymapReloadInterval time.Duration `validate:"gte=0"` // 0 = no periodic reload
	KeymapWatch          bool          // reload on file change
	KeyRepeatDelay       time.Duration `validate:"gte=0"`
	PollInterval         time.Duration `validate:"gte=0"` // 0 = status poller disabled

	// Redis (optional, empty address = disabled)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           `validate:"gte=0"`
	RedisDialTimeout    time.Duration `validate:"gt=0"`
	RedisIOTimeout      time.Duration `validate:"gt=0"`
	RedisPoolSize       int           `validate:"gt=0"`
	RedisConnectTimeout time.Duration `validate:"gt=0"`
	RedisRetryInterval  time.Duration `validate:"gt=0"`
	RedisMaxWait        time.Duration `validate:"gtefield=RedisRetryInterval"`
	NotifyChannel       string        `validate:"required"`
	BreakerMaxFailures  int           `validate:"gt=0"`
	BreakerOpenTimeout  time.Duration `validate:"gt=0"`

	AllowedHosts []string // optional, restrict action endpoints to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "192.168.1.0/24, 10.0.0.5")
	TrustProxy   bool     // true => trust X-Forwarded-For headers
	RateBurst    int      `validate:"gt=0"`
	RatePerMin   int      `validate:"gt=0"`
}

// Load reads the optional dotenv file, then the MADVPN_* environment.
func Load() (*Config, error) {
	if err := loadEnvFile(os.Getenv("MADVPN_ENV_FILE")); err != nil {
		return nil, err
	}

	env := &envReader{}
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MADVPN_LISTEN_PORT", ":8088"),
		ShutdownTimeout: env.mustDuration("MADVPN_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  env.mustDuration("MADVPN_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:    strings.ToLower(getenv("MADVPN_LOG_LEVEL", "info")),
		LogLevelSet: os.Getenv("MADVPN_LOG_LEVEL") != "",
		PrettyLog:   env.mustBool("MADVPN_PRETTY_LOG", true),

		// Service control
		Title:            getenv("MADVPN_TITLE", "MAD VPN"),
		ServiceName:      getenv("MADVPN_SERVICE_NAME", "OpenVPN"),
		ServiceUnit:      getenv("MADVPN_SERVICE_UNIT", "openvpn.service"),
		ServiceManager:   getenv("MADVPN_SERVICE_MANAGER", "systemctl"),
		StatusCommand:    getenv("MADVPN_STATUS_COMMAND", ""),
		StartCommand:     getenv("MADVPN_START_COMMAND", ""),
		StopCommand:      getenv("MADVPN_STOP_COMMAND", ""),
		CommandTimeout:   env.mustDuration("MADVPN_COMMAND_TIMEOUT", 10*time.Second),
		SettleDelay:      env.mustDuration("MADVPN_SETTLE_DELAY", time.Second),
		NotifyDuration:   env.mustDuration("MADVPN_NOTIFY_DURATION", 5*time.Second),
		ProgressDuration: env.mustDuration("MADVPN_PROGRESS_DURATION", 2*time.Second),

		// Remote keymap
		KeymapFile:           getenv("MADVPN_KEYMAP_FILE", ""),
		KeymapReloadInterval: env.mustDuration("MADVPN_KEYMAP_RELOAD_INTERVAL", time.Hour),
		KeymapWatch:          env.mustBool("MADVPN_KEYMAP_WATCH", true),
		KeyRepeatDelay:       env.mustDuration("MADVPN_KEY_REPEAT_DELAY", 750*time.Millisecond),
		PollInterval:         env.mustDuration("MADVPN_POLL_INTERVAL", 0),

		// Redis settings
		RedisAddr:           getenv("MADVPN_REDIS_ADDR", ""),
		RedisUser:           getenv("MADVPN_REDIS_USERNAME", ""),
		RedisPassword:       getenv("MADVPN_REDIS_PASSWORD", ""),
		RedisDB:             env.getenvInt("MADVPN_REDIS_DB", 0),
		RedisDialTimeout:    env.mustDuration("MADVPN_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisIOTimeout:      env.mustDuration("MADVPN_REDIS_IO_TIMEOUT", 3*time.Second),
		RedisPoolSize:       env.getenvInt("MADVPN_REDIS_POOL_SIZE", 4),
		RedisConnectTimeout: env.mustDuration("MADVPN_REDIS_CONNECT_TIMEOUT", 10*time.Second),
		RedisRetryInterval:  env.mustDuration("MADVPN_REDIS_RETRY_INTERVAL", time.Second),
		RedisMaxWait:        env.mustDuration("MADVPN_REDIS_MAX_WAIT", 5*time.Second),
		NotifyChannel:       getenv("MADVPN_NOTIFY_CHANNEL", "madvpn:notifications"),
		BreakerMaxFailures:  env.getenvInt("MADVPN_BREAKER_MAX_FAILURES", 3),
		BreakerOpenTimeout:  env.mustDuration("MADVPN_BREAKER_OPEN_TIMEOUT", 30*time.Second),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MADVPN_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("MADVPN_ALLOWED_CIDRS", "")),
		TrustProxy:   env.mustBool("MADVPN_TRUST_PROXY", false),
		RateBurst:    env.getenvInt("MADVPN_RATE_BURST", 10),
		RatePerMin:   env.getenvInt("MADVPN_RATE_PER_MIN", 60),
	}

	if err := env.err(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// loadEnvFile loads path, or .env when path is empty, without overriding
// variables already set. Only an explicitly named file must exist.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envReader parses typed variables and keeps every malformed value so Load
// can report them together.
type envReader struct {
	errs []error
}

func (r *envReader) fail(key, v string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return i
}

func (r *envReader) mustBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *envReader) mustDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
