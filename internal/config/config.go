package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddr              = ":8080"
	defaultDatabaseURL       = "vivwendy.db"
	defaultSessionSecret     = "change-me-session-secret"
	defaultSessionTTL        = 24 * time.Hour
	defaultSessionCookie     = "session"
	defaultCookieSameSite    = "Lax"
	defaultMaxLoginAttempts  = 4
	defaultMinPasswordLength = 6
	defaultResetGrantTTL     = 72 * time.Hour
	defaultUploadDir         = "static/uploads"
	defaultUploadURLBase     = "/static/uploads"
	defaultUploadMaxBytes    = 10 << 20
	defaultLogLevel          = "info"
)

type Config struct {
	AppEnv   string         `yaml:"app_env"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Uploads  UploadConfig   `yaml:"uploads"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type SessionConfig struct {
	Secret         string        `yaml:"secret"`
	TTL            time.Duration `yaml:"ttl"`
	CookieName     string        `yaml:"cookie_name"`
	CookieSecure   bool          `yaml:"cookie_secure"`
	CookieSameSite string        `yaml:"cookie_same_site"`
}

type AuthConfig struct {
	MaxLoginAttempts  int           `yaml:"max_login_attempts"`
	MinPasswordLength int           `yaml:"min_password_length"`
	ResetGrantTTL     time.Duration `yaml:"reset_grant_ttl"`
}

type UploadConfig struct {
	Dir      string `yaml:"dir"`
	URLBase  string `yaml:"url_base"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AdminConfig describes the bootstrap administrator created by cmd/seed.
type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func Default() *Config {
	return &Config{
		AppEnv:   "dev",
		Server:   ServerConfig{Addr: defaultAddr},
		Database: DatabaseConfig{URL: defaultDatabaseURL},
		Session: SessionConfig{
			Secret:         defaultSessionSecret,
			TTL:            defaultSessionTTL,
			CookieName:     defaultSessionCookie,
			CookieSameSite: defaultCookieSameSite,
		},
		Auth: AuthConfig{
			MaxLoginAttempts:  defaultMaxLoginAttempts,
			MinPasswordLength: defaultMinPasswordLength,
			ResetGrantTTL:     defaultResetGrantTTL,
		},
		Uploads: UploadConfig{
			Dir:      defaultUploadDir,
			URLBase:  defaultUploadURLBase,
			MaxBytes: defaultUploadMaxBytes,
		},
		Log: LogConfig{Level: defaultLogLevel},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (env wins).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if p := strings.TrimSpace(os.Getenv("CONFIG_FILE")); p != "" {
		path = p
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.AppEnv, "APP_ENV")
	setString(&cfg.Server.Addr, "HTTP_ADDR")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Session.Secret, "SESSION_SECRET")
	setString(&cfg.Session.CookieName, "SESSION_COOKIE")
	setString(&cfg.Session.CookieSameSite, "COOKIE_SAMESITE")
	setString(&cfg.Uploads.Dir, "UPLOAD_DIR")
	setString(&cfg.Uploads.URLBase, "UPLOAD_URL_BASE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Admin.Username, "ADMIN_USERNAME")
	setString(&cfg.Admin.Email, "ADMIN_EMAIL")
	setString(&cfg.Admin.Password, "ADMIN_PASSWORD")

	if v, ok := lookup("COOKIE_SECURE"); ok {
		cfg.Session.CookieSecure = parseBool(v)
	}
	if v, ok := lookup("LOG_DEVELOPMENT"); ok {
		cfg.Log.Development = parseBool(v)
	}
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORS.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	if v, ok := lookup("SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TTL value %q: %w", v, err)
		}
		cfg.Session.TTL = d
	}
	if v, ok := lookup("RESET_GRANT_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RESET_GRANT_TTL value %q: %w", v, err)
		}
		cfg.Auth.ResetGrantTTL = d
	}
	if err := setInt(&cfg.Auth.MaxLoginAttempts, "MAX_LOGIN_ATTEMPTS"); err != nil {
		return err
	}
	if err := setInt(&cfg.Auth.MinPasswordLength, "MIN_PASSWORD_LENGTH"); err != nil {
		return err
	}
	if v, ok := lookup("UPLOAD_MAX_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid UPLOAD_MAX_BYTES value %q: %w", v, err)
		}
		cfg.Uploads.MaxBytes = n
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if cfg.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE must not be empty")
	}
	if cfg.Auth.MaxLoginAttempts < 1 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be >= 1")
	}
	if cfg.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("MIN_PASSWORD_LENGTH must be >= 1")
	}
	if cfg.Auth.ResetGrantTTL <= 0 {
		return fmt.Errorf("RESET_GRANT_TTL must be > 0")
	}
	if cfg.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be > 0")
	}

	sameSite := strings.ToLower(strings.TrimSpace(cfg.Session.CookieSameSite))
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.Session.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	if cfg.IsProduction() {
		if s := strings.TrimSpace(cfg.Session.Secret); s == "" || s == defaultSessionSecret {
			return fmt.Errorf("in prod/release SESSION_SECRET must be set and not default")
		}
		if !cfg.Session.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "prod" || env == "production" || env == "release"
}

func lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", name, v, err)
	}
	*dst = n
	return nil
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
