// config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DevSecretKey is the placeholder secret used when SECRET_KEY is unset.
// It is rejected when env is "prod".
const DevSecretKey = "dev-key-change-in-production"

// HTTPConfig groups HTTP/HTTPS port and server timeout settings.
type HTTPConfig struct {
	HTTPPort  int  `mapstructure:"http_port"`
	HTTPSPort int  `mapstructure:"https_port"`
	UseHTTPS  bool `mapstructure:"use_https"`

	ReadTimeout     time.Duration `mapstructure:"-"`
	WriteTimeout    time.Duration `mapstructure:"-"`
	IdleTimeout     time.Duration `mapstructure:"-"`
	ShutdownTimeout time.Duration `mapstructure:"-"`
}

// TLSConfig groups manual certificate and Let's Encrypt settings.
type TLSConfig struct {
	CertFile            string `mapstructure:"cert_file"`
	KeyFile             string `mapstructure:"key_file"`
	UseLetsEncrypt      bool   `mapstructure:"use_lets_encrypt"`
	LetsEncryptEmail    string `mapstructure:"lets_encrypt_email"`
	LetsEncryptCacheDir string `mapstructure:"lets_encrypt_cache_dir"`
	Domain              string `mapstructure:"domain"`
}

// SessionConfig controls the flash-message session cookie and its store.
type SessionConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	Store         string        `mapstructure:"session_store"` // "memory" | "redis"
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	MaxAge        time.Duration `mapstructure:"-"`
}

// MailConfig holds the SMTP relay parameters used by the notifier.
// It is loaded once at startup and never mutated afterwards.
type MailConfig struct {
	Server    string        `mapstructure:"mail_server"`
	Port      int           `mapstructure:"mail_port"`
	Username  string        `mapstructure:"mail_username"`
	Password  string        `mapstructure:"mail_password"`
	Recipient string        `mapstructure:"mail_recipient"`
	Timeout   time.Duration `mapstructure:"-"`
}

// Missing returns the env names of the required mail settings that are blank.
// An empty result means the notifier can attempt delivery.
func (m MailConfig) Missing() []string {
	var out []string
	if strings.TrimSpace(m.Server) == "" {
		out = append(out, "MAIL_SERVER")
	}
	if strings.TrimSpace(m.Username) == "" {
		out = append(out, "MAIL_USERNAME")
	}
	if m.Password == "" {
		out = append(out, "MAIL_PASSWORD")
	}
	if strings.TrimSpace(m.Recipient) == "" {
		out = append(out, "MAIL_RECIPIENT")
	}
	return out
}

// Configured reports whether all required mail settings are present.
func (m MailConfig) Configured() bool {
	return len(m.Missing()) == 0
}

// Config is the whole process configuration. Build it once with Load and pass
// it by pointer; nothing mutates it after startup.
type Config struct {
	// runtime
	Env      string `mapstructure:"env"`       // "dev" | "prod"
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error …
	SiteName string `mapstructure:"site_name"`

	HTTP    HTTPConfig    `mapstructure:",squash"`
	TLS     TLSConfig     `mapstructure:",squash"`
	Session SessionConfig `mapstructure:",squash"`
	Mail    MailConfig    `mapstructure:",squash"`

	MaxRequestBodyBytes int64 `mapstructure:"max_request_body_bytes"`
	EnableCompression   bool  `mapstructure:"enable_compression"`
	EnableMetrics       bool  `mapstructure:"enable_metrics"`
	MaintenanceMode     bool  `mapstructure:"maintenance_mode"`
	EnablePprof         bool  `mapstructure:"enable_pprof"`

	// OpsAPIKey, when set, guards /metrics and /debug/pprof.
	OpsAPIKey          string `mapstructure:"ops_api_key"`
	// CORSAllowedOrigins is a comma-separated list for /health and /version.
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`
}

// CORSOrigins splits CORSAllowedOrigins, dropping blanks.
func (c Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Dump returns a pretty, redacted JSON string of the config for debugging.
func (c Config) Dump() string {
	s := c.redactedCopy()
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (c Config) redactedCopy() Config {
	cp := c
	if cp.Session.SecretKey != "" {
		cp.Session.SecretKey = "[REDACTED]"
	}
	if cp.Session.RedisPassword != "" {
		cp.Session.RedisPassword = "[REDACTED]"
	}
	if cp.Mail.Password != "" {
		cp.Mail.Password = "[REDACTED]"
	}
	if cp.OpsAPIKey != "" {
		cp.OpsAPIKey = "[REDACTED]"
	}
	return cp
}

// key describes one configuration entry: its viper key, the environment
// variable it is read from, its default and its --help text.
type key struct {
	name string
	env  string
	def  any
	desc string
}

// keys is the single table driving flags, env binding and defaults.
var keys = []key{
	{"env", "APP_ENV", "dev", `Runtime environment "dev"|"prod"`},
	{"log_level", "LOG_LEVEL", "info", "Log level"},
	{"site_name", "SITE_NAME", "Corpsite", "Site name shown in page titles"},

	{"http_port", "PORT", 5000, "HTTP port"},
	{"https_port", "HTTPS_PORT", 443, "HTTPS port"},
	{"use_https", "USE_HTTPS", false, "Serve HTTPS"},
	{"read_timeout", "READ_TIMEOUT", "15s", "HTTP read timeout"},
	{"write_timeout", "WRITE_TIMEOUT", "30s", "HTTP write timeout"},
	{"idle_timeout", "IDLE_TIMEOUT", "60s", "HTTP idle timeout"},
	{"shutdown_timeout", "SHUTDOWN_TIMEOUT", "15s", "Graceful shutdown window"},

	{"cert_file", "CERT_FILE", "", "TLS cert file (manual TLS)"},
	{"key_file", "KEY_FILE", "", "TLS key file (manual TLS)"},
	{"use_lets_encrypt", "USE_LETS_ENCRYPT", false, "Use Let's Encrypt (http-01)"},
	{"lets_encrypt_email", "LETS_ENCRYPT_EMAIL", "", "ACME account e-mail"},
	{"lets_encrypt_cache_dir", "LETS_ENCRYPT_CACHE_DIR", "letsencrypt-cache", "ACME cache dir"},
	{"domain", "DOMAIN", "", "Domain for TLS or ACME"},

	{"secret_key", "SECRET_KEY", DevSecretKey, "Key used to sign session cookies"},
	{"session_store", "SESSION_STORE", "memory", `Session store "memory"|"redis"`},
	{"redis_addr", "REDIS_ADDR", "", "Redis address for the session store"},
	{"redis_password", "REDIS_PASSWORD", "", "Redis password"},
	{"redis_db", "REDIS_DB", 0, "Redis database number"},
	{"session_max_age", "SESSION_MAX_AGE", "24h", "Session lifetime"},

	{"mail_server", "MAIL_SERVER", "", "SMTP relay host"},
	{"mail_port", "MAIL_PORT", 587, "SMTP relay port"},
	{"mail_username", "MAIL_USERNAME", "", "SMTP username (also the From address)"},
	{"mail_password", "MAIL_PASSWORD", "", "SMTP password"},
	{"mail_recipient", "MAIL_RECIPIENT", "", "Default recipient for form notifications"},
	{"mail_timeout", "MAIL_TIMEOUT", "10s", "Bound for one SMTP delivery attempt"},

	{"max_request_body_bytes", "MAX_REQUEST_BODY_BYTES", int64(1 << 20), "Max HTTP request body size in bytes (0 = unlimited)"},
	{"enable_compression", "ENABLE_COMPRESSION", true, "Enable HTTP compression"},
	{"enable_metrics", "ENABLE_METRICS", true, "Expose /metrics"},
	{"maintenance_mode", "MAINTENANCE_MODE", false, "Serve the 503 page for all site routes"},
	{"enable_pprof", "ENABLE_PPROF", false, "Expose /debug/pprof (dev, or prod with ops_api_key)"},
	{"ops_api_key", "OPS_API_KEY", "", "Bearer key required for /metrics and /debug/pprof"},
	{"cors_allowed_origins", "CORS_ALLOWED_ORIGINS", "", "Comma-separated origins allowed to read /health and /version"},
}

// Load merges defaults → config.* file(s) → env vars → explicit flags into one Config.
// Final precedence (highest wins): flags(explicit) > env > config > defaults.
// args are the command-line arguments without the program name.
func Load(logger *zap.Logger, args []string) (*Config, error) {
	// 0) Optionally load .env (safe: real env still wins over .env)
	if err := godotenv.Load(); err == nil && logger != nil {
		logger.Info("loaded .env file")
	}

	// 1) Flags (only *explicitly set* flags will override)
	fs := pflag.NewFlagSet("corpsite", pflag.ContinueOnError)
	if err := registerFlags(fs); err != nil {
		return nil, err
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// 2) Viper + env
	v := viper.New()
	for _, k := range keys {
		_ = v.BindEnv(k.name, k.env)
	}

	// 3) Optional config.* files (yaml|yml|json|toml)
	mergeConfigFiles(logger, v)

	// 4) Defaults (lowest precedence)
	for _, k := range keys {
		v.SetDefault(k.name, k.def)
	}

	// 5) Apply *explicit* flags (highest precedence)
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = v.BindPFlag(f.Name, f)
		}
	})

	// 6) Build struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 7) Durations accept "90s" or plain seconds
	cfg.HTTP.ReadTimeout = duration(logger, v, "read_timeout", 15*time.Second)
	cfg.HTTP.WriteTimeout = duration(logger, v, "write_timeout", 30*time.Second)
	cfg.HTTP.IdleTimeout = duration(logger, v, "idle_timeout", 60*time.Second)
	cfg.HTTP.ShutdownTimeout = duration(logger, v, "shutdown_timeout", 15*time.Second)
	cfg.Session.MaxAge = duration(logger, v, "session_max_age", 24*time.Hour)
	cfg.Mail.Timeout = duration(logger, v, "mail_timeout", 10*time.Second)

	normalize(&cfg)

	// 8) Validate
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func registerFlags(fs *pflag.FlagSet) error {
	for _, k := range keys {
		switch d := k.def.(type) {
		case string:
			fs.String(k.name, d, k.desc)
		case int:
			fs.Int(k.name, d, k.desc)
		case int64:
			fs.Int64(k.name, d, k.desc)
		case bool:
			fs.Bool(k.name, d, k.desc)
		default:
			return fmt.Errorf("config key %q has unsupported default type %T", k.name, k.def)
		}
	}
	return nil
}

func mergeConfigFiles(logger *zap.Logger, v *viper.Viper) {
	for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
		file := "config." + ext
		if _, err := os.Stat(file); err != nil {
			continue
		}
		b, err := os.ReadFile(file)
		if err != nil {
			if logger != nil {
				logger.Warn("cannot read config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			if logger != nil {
				logger.Warn("cannot decode config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		if logger != nil {
			logger.Info("loaded config file", zap.String("file", file))
		}
	}
}

func duration(logger *zap.Logger, v *viper.Viper, name string, def time.Duration) time.Duration {
	d, err := parseDurationFlexible(v.Get(name), def)
	if err != nil && logger != nil {
		logger.Warn("invalid duration; using default",
			zap.String("key", name),
			zap.Any("value", v.Get(name)),
			zap.Duration("default", def),
			zap.Error(err))
	}
	return d
}

func normalize(cfg *Config) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Session.Store = strings.ToLower(strings.TrimSpace(cfg.Session.Store))
	cfg.Mail.Server = strings.TrimSpace(cfg.Mail.Server)
	cfg.Mail.Username = strings.TrimSpace(cfg.Mail.Username)
	cfg.Mail.Recipient = strings.TrimSpace(cfg.Mail.Recipient)
	cfg.OpsAPIKey = strings.TrimSpace(cfg.OpsAPIKey)
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
}

func validate(cfg Config) error {
	var missing []string
	var invalid []string

	if cfg.Env != "dev" && cfg.Env != "prod" {
		invalid = append(invalid, `env must be "dev" or "prod"`)
	}

	// Session signing
	if strings.TrimSpace(cfg.Session.SecretKey) == "" {
		missing = append(missing, "SECRET_KEY")
	} else if cfg.Env == "prod" && cfg.Session.SecretKey == DevSecretKey {
		invalid = append(invalid, "SECRET_KEY must be set to a real secret when env=prod")
	}
	switch cfg.Session.Store {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Session.RedisAddr) == "" {
			missing = append(missing, "REDIS_ADDR (required when session_store=redis)")
		}
	default:
		invalid = append(invalid, `session_store must be "memory" or "redis"`)
	}

	// TLS / ACME consistency
	if cfg.TLS.UseLetsEncrypt && !cfg.HTTP.UseHTTPS {
		invalid = append(invalid, "use_lets_encrypt=true requires use_https=true")
	}
	if cfg.TLS.UseLetsEncrypt {
		if strings.TrimSpace(cfg.TLS.Domain) == "" {
			missing = append(missing, "DOMAIN (or --domain) for Let's Encrypt")
		}
		if s := strings.TrimSpace(cfg.TLS.LetsEncryptEmail); s == "" {
			missing = append(missing, "LETS_ENCRYPT_EMAIL (or --lets_encrypt_email)")
		} else if !strings.Contains(s, "@") {
			invalid = append(invalid, "lets_encrypt_email must look like an email address")
		}
	}
	if cfg.HTTP.UseHTTPS && !cfg.TLS.UseLetsEncrypt {
		if strings.TrimSpace(cfg.TLS.CertFile) == "" || strings.TrimSpace(cfg.TLS.KeyFile) == "" {
			missing = append(missing, "CERT_FILE and KEY_FILE (or --cert_file/--key_file) for manual TLS")
		}
	}

	// Port sanity
	if cfg.HTTP.HTTPPort <= 0 || cfg.HTTP.HTTPPort > 65535 {
		invalid = append(invalid, "http_port must be in 1..65535")
	}
	if cfg.HTTP.HTTPSPort <= 0 || cfg.HTTP.HTTPSPort > 65535 {
		invalid = append(invalid, "https_port must be in 1..65535")
	}
	if cfg.HTTP.UseHTTPS && cfg.HTTP.HTTPPort == cfg.HTTP.HTTPSPort {
		invalid = append(invalid, "http_port and https_port cannot be equal when use_https=true")
	}
	if cfg.Mail.Port <= 0 || cfg.Mail.Port > 65535 {
		invalid = append(invalid, "mail_port must be in 1..65535")
	}
	for _, o := range cfg.CORSOrigins() {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			invalid = append(invalid, "cors_allowed_origins entries must be * or start with http:// or https://")
			break
		}
	}
	if cfg.MaxRequestBodyBytes < 0 {
		invalid = append(invalid, "max_request_body_bytes must be >= 0")
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(parts, " | "))
}
