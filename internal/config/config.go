// Package config loads server settings from a YAML file, a .env file and the
// environment, in that order of increasing precedence.
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

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   StoreConfig     `yaml:"catalog"`
	Storage   StorageConfig   `yaml:"storage"`
	Enquiries StoreConfig     `yaml:"enquiries"`
	Mail      MailConfig      `yaml:"mail"`
	Admin     AdminConfig     `yaml:"admin"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TrustProxy     bool   `yaml:"trust_proxy"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// StoreConfig selects a backend. Options is a file path for sqlite, a
// connection string for postgres, and comma-separated endpoints for etcd.
type StoreConfig struct {
	Type       string `yaml:"type"`
	Options    string `yaml:"options"`
	EtcdPrefix string `yaml:"etcd_prefix,omitempty"`
}

type StorageConfig struct {
	Root         string   `yaml:"root"`
	URLPrefix    string   `yaml:"url_prefix"`
	AllowedTypes []string `yaml:"allowed_types"`
	Watch        bool     `yaml:"watch"`
}

type MailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	AdminEmail string `yaml:"admin_email"`
	TeamName   string `yaml:"team_name"`
}

type AdminConfig struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwt_secret"`
}

type ReconcileConfig struct {
	Grace time.Duration `yaml:"grace"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			MaxUploadBytes: 10 << 20,
		},
		Catalog: StoreConfig{
			Type:       "sqlite",
			Options:    "vectortube.db",
			EtcdPrefix: "/vectortube",
		},
		Storage: StorageConfig{
			Root:         "uploads",
			URLPrefix:    "/app1/uploads",
			AllowedTypes: []string{"image/jpeg", "image/png"},
			Watch:        true,
		},
		Enquiries: StoreConfig{
			Type:    "sqlite",
			Options: "vectortube.db",
		},
		Mail: MailConfig{
			Port:     587,
			TeamName: "The Vector Instruments Team",
		},
		Admin: AdminConfig{
			Addr: "localhost:8081",
		},
		Reconcile: ReconcileConfig{
			Grace: 10 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables of each existing file into the process
// environment without overriding variables already set.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("VECTORTUBE_HOST", &c.Server.Host)
	integer("VECTORTUBE_PORT", &c.Server.Port)
	boolean("VECTORTUBE_TRUST_PROXY", &c.Server.TrustProxy)
	if v, ok := lookup("VECTORTUBE_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("VECTORTUBE_MAX_UPLOAD_BYTES: %w", err))
		} else {
			c.Server.MaxUploadBytes = n
		}
	}

	str("VECTORTUBE_CATALOG_TYPE", &c.Catalog.Type)
	str("VECTORTUBE_CATALOG_OPTIONS", &c.Catalog.Options)
	str("VECTORTUBE_ETCD_PREFIX", &c.Catalog.EtcdPrefix)

	str("VECTORTUBE_STORAGE_ROOT", &c.Storage.Root)
	str("VECTORTUBE_URL_PREFIX", &c.Storage.URLPrefix)
	if v, ok := lookup("VECTORTUBE_ALLOWED_TYPES"); ok {
		c.Storage.AllowedTypes = splitList(v)
	}
	boolean("VECTORTUBE_STORAGE_WATCH", &c.Storage.Watch)

	str("VECTORTUBE_ENQUIRIES_TYPE", &c.Enquiries.Type)
	str("VECTORTUBE_ENQUIRIES_OPTIONS", &c.Enquiries.Options)

	boolean("VECTORTUBE_MAIL_ENABLED", &c.Mail.Enabled)
	str("SMTP_HOST", &c.Mail.Host)
	integer("SMTP_PORT", &c.Mail.Port)
	str("SMTP_USERNAME", &c.Mail.Username)
	str("SMTP_PASSWORD", &c.Mail.Password)
	str("SMTP_FROM", &c.Mail.From)
	str("ADMIN_EMAIL", &c.Mail.AdminEmail)

	str("VECTORTUBE_ADMIN_ADDR", &c.Admin.Addr)
	str("VECTORTUBE_JWT_SECRET", &c.Admin.JWTSecret)

	if v, ok := lookup("VECTORTUBE_RECONCILE_GRACE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("VECTORTUBE_RECONCILE_GRACE: %w", err))
		} else {
			c.Reconcile.Grace = d
		}
	}

	str("VECTORTUBE_LOG_LEVEL", &c.Log.Level)
	boolean("VECTORTUBE_LOG_DEVELOPMENT", &c.Log.Development)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

var (
	catalogTypes = []string{"sqlite", "postgres", "etcd", "memory"}
	enquiryTypes = []string{"sqlite", "postgres", "memory"}
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		problems = append(problems, "server.max_upload_bytes must be positive")
	}
	if !contains(catalogTypes, c.Catalog.Type) {
		problems = append(problems, fmt.Sprintf("catalog.type %q must be one of %s", c.Catalog.Type, strings.Join(catalogTypes, ", ")))
	}
	if c.Catalog.Type != "memory" && c.Catalog.Options == "" {
		problems = append(problems, "catalog.options is required")
	}
	if !contains(enquiryTypes, c.Enquiries.Type) {
		problems = append(problems, fmt.Sprintf("enquiries.type %q must be one of %s", c.Enquiries.Type, strings.Join(enquiryTypes, ", ")))
	}
	if c.Enquiries.Type != "memory" && c.Enquiries.Options == "" {
		problems = append(problems, "enquiries.options is required")
	}
	if c.Storage.Root == "" {
		problems = append(problems, "storage.root is required")
	}
	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			problems = append(problems, "mail.host is required when mail is enabled")
		}
		if c.Mail.From == "" {
			problems = append(problems, "mail.from is required when mail is enabled")
		}
	}
	if c.Reconcile.Grace < 0 {
		problems = append(problems, "reconcile.grace must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// EtcdEndpoints splits Options into endpoints.
func (s StoreConfig) EtcdEndpoints() []string {
	return splitList(s.Options)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
