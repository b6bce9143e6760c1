// Package appconfig loads the secretq command configuration from a YAML
// file, SECRETQ_* environment variables, and command flags.
package appconfig

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/MrEthical07/goSecretQ/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Config is the on-disk shape of secretq.yaml.
type Config struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	SQLiteDSN string `mapstructure:"sqlite_dsn" yaml:"sqlite_dsn"`
	// SQLDSN is used by the postgres and mysql backends.
	SQLDSN string `mapstructure:"sql_dsn" yaml:"sql_dsn"`

	HTTP       HTTPConfig       `mapstructure:"http" yaml:"http"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Marker     MarkerConfig     `mapstructure:"marker" yaml:"marker"`
	Answer     AnswerConfig     `mapstructure:"answer" yaml:"answer"`
	Enrollment EnrollmentConfig `mapstructure:"enrollment" yaml:"enrollment"`
	Attempts   AttemptsConfig   `mapstructure:"attempts" yaml:"attempts"`

	Locale  string `mapstructure:"locale" yaml:"locale"`
	Metrics bool   `mapstructure:"metrics" yaml:"metrics"`
	Audit   bool   `mapstructure:"audit" yaml:"audit"`
}

type HTTPConfig struct {
	Listen  string `mapstructure:"listen" yaml:"listen"`
	BaseURI string `mapstructure:"base_uri" yaml:"base_uri"`
	// TrustedProxies are CIDR ranges or addresses whose X-Forwarded-For is
	// honoured when keying attempt limits.
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`
}

type SessionConfig struct {
	IdleTTL     time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime" yaml:"max_lifetime"`
}

type MarkerConfig struct {
	// MaxAge is passed to the step as cookie.max.age, in seconds.
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Secure     bool   `mapstructure:"secure" yaml:"secure"`
	Skip       bool   `mapstructure:"skip" yaml:"skip"`
	SigningKey string `mapstructure:"signing_key" yaml:"signing_key"`
}

type AnswerConfig struct {
	Strategy string `mapstructure:"strategy" yaml:"strategy"`
}

type EnrollmentConfig struct {
	DefaultQuestion string `mapstructure:"default_question" yaml:"default_question"`
	AllowCustom     bool   `mapstructure:"allow_custom" yaml:"allow_custom"`
}

// AttemptsConfig throttles wrong answers on the HTTP challenge. MaxAttempts
// of zero disables throttling.
type AttemptsConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Window        time.Duration `mapstructure:"window" yaml:"window"`
	PerIP         bool          `mapstructure:"per_ip" yaml:"per_ip"`
	IPMaxAttempts int           `mapstructure:"ip_max_attempts" yaml:"ip_max_attempts"`
}

// Defaults returns the flattened default values.
func Defaults() map[string]any {
	return map[string]any{
		"backend":                     BackendRedis,
		"redis_addr":                  "",
		"sqlite_dsn":                  "file:secretq.db?_pragma=busy_timeout(5000)",
		"sql_dsn":                     "",
		"http.listen":                 ":8080",
		"http.base_uri":               "http://localhost:8080/",
		"http.trusted_proxies":        []string{},
		"session.idle_ttl":            "15m",
		"session.max_lifetime":        "1h",
		"marker.max_age":              120,
		"marker.secure":               false,
		"marker.skip":                 false,
		"marker.signing_key":          "",
		"answer.strategy":             "plain",
		"enrollment.default_question": "",
		"enrollment.allow_custom":     false,
		"attempts.max_attempts":       5,
		"attempts.window":             "5m",
		"attempts.per_ip":             false,
		"attempts.ip_max_attempts":    0,
		"locale":                      "en",
		"metrics":                     true,
		"audit":                       false,
	}
}

// Load reads configuration. An explicit path must exist; without one,
// secretq.yaml is looked up in the working directory and may be absent.
// Environment variables (SECRETQ_HTTP_LISTEN, ...) override the file and
// flags on cmd named after a key override both.
func Load(cmd *cobra.Command, path string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("secretq")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("secretq")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendRedis:
	case BackendSQLite:
		if c.SQLiteDSN == "" {
			return errors.New("sqlite_dsn must not be empty for the sqlite backend")
		}
	case BackendPostgres, BackendMySQL:
		if c.SQLDSN == "" {
			return fmt.Errorf("sql_dsn must not be empty for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	if c.Marker.MaxAge <= 0 {
		return errors.New("marker.max_age must be > 0")
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("session.idle_ttl must be > 0")
	}
	if c.Attempts.MaxAttempts < 0 {
		return errors.New("attempts.max_attempts must be >= 0")
	}
	if c.Attempts.MaxAttempts > 0 && c.Attempts.Window <= 0 {
		return errors.New("attempts.window must be > 0 when throttling is enabled")
	}
	if _, err := middleware.ParseTrustedProxies(c.HTTP.TrustedProxies); err != nil {
		return fmt.Errorf("http.trusted_proxies: %w", err)
	}
	return nil
}

// EngineConfig maps c onto the engine configuration and validates it.
func (c Config) EngineConfig() (goSecretQ.Config, error) {
	cfg := goSecretQ.DefaultConfig()
	cfg.Bypass.DefaultMaxAge = time.Duration(c.Marker.MaxAge) * time.Second
	cfg.Bypass.Secure = c.Marker.Secure
	cfg.Bypass.SkipChallengeWithMarker = c.Marker.Skip
	if c.Marker.SigningKey != "" {
		cfg.Bypass.SigningKey = []byte(c.Marker.SigningKey)
	}
	cfg.Answer.Strategy = c.Answer.Strategy
	cfg.Enrollment.DefaultQuestion = c.Enrollment.DefaultQuestion
	cfg.Enrollment.AllowCustomQuestion = c.Enrollment.AllowCustom
	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics
	cfg.Audit.Enabled = c.Audit
	if c.Locale != "" {
		cfg.Locale.Default = c.Locale
	}
	cfg.Store.SessionTTL = c.Session.IdleTTL

	if err := cfg.Validate(); err != nil {
		return goSecretQ.Config{}, err
	}
	return cfg, nil
}

// AuthenticatorConfig returns the per-step options handed to every step call.
func (c Config) AuthenticatorConfig() map[string]string {
	return map[string]string{
		goSecretQ.ConfigMaxAge: strconv.Itoa(c.Marker.MaxAge),
	}
}

// Write renders c as YAML.
func Write(w io.Writer, c Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
