package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vianubio/clubsite/internal/assets"
	"github.com/vianubio/clubsite/internal/dateutil"
	"github.com/vianubio/clubsite/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxTitleLength    = 100  // Site title
	MaxAddrLength     = 255  // host:port
	MaxPathLength     = 4096 // Filesystem paths
	MaxURLLength      = 2048 // Browser limit
	MaxEmailLength    = 254  // RFC 5321
	MaxPasswordLength = 72   // bcrypt input limit
	MinPasswordLength = 8
	MaxDurationLength = 20 // "1m30s"
	MinSessionKeyLen  = 32
	MaxSessionKeyLen  = 128
	MaxWorkers        = 8
	MaxUploadMB       = 100
	MaxInitAttempts   = 100
)

// Config holds all configuration for the site.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Assets   AssetsConfig   `yaml:"assets"`
	Team     TeamConfig     `yaml:"team"`
	Auth     AuthConfig     `yaml:"auth"`
	Startup  StartupConfig  `yaml:"startup"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

// SiteConfig defines presentation options.
type SiteConfig struct {
	Title      string `yaml:"title"`
	DateFormat string `yaml:"dateFormat"` // Token format or preset, see dateutil
	Timezone   string `yaml:"timezone"`   // IANA name, empty = UTC
}

// ServerConfig defines HTTP listener options.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"readTimeout"`
	WriteTimeout    string `yaml:"writeTimeout"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`
	SecureCookies   bool   `yaml:"secureCookies"` // Set when served over HTTPS
}

// DatabaseConfig defines the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AssetsConfig defines where images live on disk and where they are served.
type AssetsConfig struct {
	Mount             string   `yaml:"mount"`       // Public static mount, e.g. "/static/"
	UploadDir         string   `yaml:"uploadDir"`   // Local uploads directory
	UploadURL         string   `yaml:"uploadURL"`   // Public prefix for uploads
	BundledDir        string   `yaml:"bundledDir"`  // Local bundled images (team photos)
	BundledURL        string   `yaml:"bundledURL"`  // Public prefix for bundled images
	Placeholder       string   `yaml:"placeholder"` // Always-resolvable fallback URL
	MaxUploadMB       int      `yaml:"maxUploadMB"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
}

// TeamConfig lists candidate team data files; the first existing one wins.
type TeamConfig struct {
	Sources []string `yaml:"sources"`
}

// Account is a seeded login.
type Account struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// AuthConfig defines accounts, capability grants and the session key.
type AuthConfig struct {
	SessionKey   string              `yaml:"sessionKey"` // Empty = random per process
	Accounts     []Account           `yaml:"accounts"`
	Capabilities map[string][]string `yaml:"capabilities"` // identity -> capabilities
}

// StartupConfig defines the retry policy of the initialization gate.
type StartupConfig struct {
	MaxAttempts  int    `yaml:"maxAttempts"`
	InitialDelay string `yaml:"initialDelay"`
	MaxDelay     string `yaml:"maxDelay"`
}

// ExportConfig defines printable PDF export.
type ExportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Timeout string `yaml:"timeout"`
	Workers int    `yaml:"workers"` // 0 = auto
}

// LogConfig defines logger options.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Validate checks field values and lengths.
// Called automatically by LoadConfig, but available for callers
// who construct or override Config manually (flags, environment).
func (c *Config) Validate() error {
	if err := validateFieldLength("site.title", c.Site.Title, MaxTitleLength); err != nil {
		return err
	}
	if c.Site.DateFormat != "" {
		if _, err := dateutil.Layout(c.Site.DateFormat); err != nil {
			return fmt.Errorf("site.dateFormat: %w", err)
		}
	}
	if c.Site.Timezone != "" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			return fmt.Errorf("%w: site.timezone %q", ErrInvalidValue, c.Site.Timezone)
		}
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidValue)
	}
	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	for name, value := range map[string]string{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.writeTimeout":    c.Server.WriteTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"startup.initialDelay":   c.Startup.InitialDelay,
		"startup.maxDelay":       c.Startup.MaxDelay,
		"export.timeout":         c.Export.Timeout,
	} {
		if err := validateDuration(name, value); err != nil {
			return err
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidValue)
	}
	if err := validateFieldLength("database.path", c.Database.Path, MaxPathLength); err != nil {
		return err
	}

	if err := c.Assets.validate(); err != nil {
		return err
	}

	for i, src := range c.Team.Sources {
		if err := validateFieldLength(fmt.Sprintf("team.sources[%d]", i), src, MaxPathLength); err != nil {
			return err
		}
	}

	if err := c.Auth.validate(); err != nil {
		return err
	}

	if c.Startup.MaxAttempts < 1 || c.Startup.MaxAttempts > MaxInitAttempts {
		return fmt.Errorf("%w: startup.maxAttempts must be between 1 and %d, got %d",
			ErrInvalidValue, MaxInitAttempts, c.Startup.MaxAttempts)
	}

	if c.Export.Workers < 0 || c.Export.Workers > MaxWorkers {
		return fmt.Errorf("%w: export.workers must be between 0 and %d, got %d",
			ErrInvalidValue, MaxWorkers, c.Export.Workers)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q (must be json or console)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

func (a *AssetsConfig) validate() error {
	if !strings.HasPrefix(a.Mount, "/") || !strings.HasSuffix(a.Mount, "/") {
		return fmt.Errorf("%w: assets.mount %q must start and end with /", ErrInvalidValue, a.Mount)
	}
	if a.Placeholder == "" {
		return fmt.Errorf("%w: assets.placeholder is required", ErrInvalidValue)
	}
	if a.UploadDir == "" || a.UploadURL == "" {
		return fmt.Errorf("%w: assets.uploadDir and assets.uploadURL are required", ErrInvalidValue)
	}
	if (a.BundledDir == "") != (a.BundledURL == "") {
		return fmt.Errorf("%w: assets.bundledDir and assets.bundledURL must be set together", ErrInvalidValue)
	}
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"assets.mount", a.Mount, MaxURLLength},
		{"assets.uploadDir", a.UploadDir, MaxPathLength},
		{"assets.uploadURL", a.UploadURL, MaxURLLength},
		{"assets.bundledDir", a.BundledDir, MaxPathLength},
		{"assets.bundledURL", a.BundledURL, MaxURLLength},
		{"assets.placeholder", a.Placeholder, MaxURLLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}
	if a.MaxUploadMB < 1 || a.MaxUploadMB > MaxUploadMB {
		return fmt.Errorf("%w: assets.maxUploadMB must be between 1 and %d, got %d",
			ErrInvalidValue, MaxUploadMB, a.MaxUploadMB)
	}
	if len(a.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: assets.allowedExtensions cannot be empty", ErrInvalidValue)
	}
	for _, ext := range a.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("%w: assets.allowedExtensions entry %q must start with a dot", ErrInvalidValue, ext)
		}
	}
	return nil
}

func (a *AuthConfig) validate() error {
	if a.SessionKey != "" && (len(a.SessionKey) < MinSessionKeyLen || len(a.SessionKey) > MaxSessionKeyLen) {
		return fmt.Errorf("%w: auth.sessionKey must be between %d and %d bytes",
			ErrInvalidValue, MinSessionKeyLen, MaxSessionKeyLen)
	}
	seen := make(map[string]bool, len(a.Accounts))
	for i, acc := range a.Accounts {
		if strings.TrimSpace(acc.Email) == "" {
			return fmt.Errorf("%w: auth.accounts[%d].email is required", ErrInvalidValue, i)
		}
		if err := validateFieldLength(fmt.Sprintf("auth.accounts[%d].email", i), acc.Email, MaxEmailLength); err != nil {
			return err
		}
		if len(acc.Password) < MinPasswordLength {
			return fmt.Errorf("%w: auth.accounts[%d].password must be at least %d chars",
				ErrInvalidValue, i, MinPasswordLength)
		}
		if err := validateFieldLength(fmt.Sprintf("auth.accounts[%d].password", i), acc.Password, MaxPasswordLength); err != nil {
			return err
		}
		if seen[acc.Email] {
			return fmt.Errorf("%w: auth.accounts: duplicate email %q", ErrInvalidValue, acc.Email)
		}
		seen[acc.Email] = true
	}
	for identity := range a.Capabilities {
		if err := validateFieldLength("auth.capabilities key", identity, MaxEmailLength); err != nil {
			return err
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateDuration accepts an empty value (use the default) or a positive Go duration.
func validateDuration(fieldName, value string) error {
	if value == "" {
		return nil
	}
	if err := validateFieldLength(fieldName, value, MaxDurationLength); err != nil {
		return err
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("%w: %s %q is not a positive duration", ErrInvalidValue, fieldName, value)
	}
	return nil
}

// Duration parses value, returning fallback when it is empty or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// CoverContext is the resolution context for post covers: uploads only.
func (a AssetsConfig) CoverContext() assets.Context {
	return assets.NewContext(a.Mount, a.Placeholder,
		assets.Candidate{Dir: a.UploadDir, URLPrefix: a.UploadURL},
	)
}

// TeamContext is the resolution context for team photos:
// bundled images first, then uploads.
func (a AssetsConfig) TeamContext() assets.Context {
	var cands []assets.Candidate
	if a.BundledDir != "" {
		cands = append(cands, assets.Candidate{Dir: a.BundledDir, URLPrefix: a.BundledURL})
	}
	cands = append(cands, assets.Candidate{Dir: a.UploadDir, URLPrefix: a.UploadURL})
	return assets.NewContext(a.Mount, a.Placeholder, cands...)
}

// MaxUploadBytes returns the upload size limit in bytes.
func (a AssetsConfig) MaxUploadBytes() int64 {
	return int64(a.MaxUploadMB) << 20
}

// DefaultCapabilities reproduces the historical lessons allow-set.
func DefaultCapabilities() map[string][]string {
	return map[string][]string{
		"admin@vianubio": {"view:lessons"},
		"membriiaccount": {"view:lessons"},
	}
}

// DefaultConfig returns a configuration that serves the site from the
// working directory. No accounts are seeded by default.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Title:      "Club BIO",
			DateFormat: dateutil.DefaultDateFormat,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{Path: "data/site.db"},
		Assets: AssetsConfig{
			Mount:             "/static/",
			UploadDir:         "static/uploads",
			UploadURL:         "/static/uploads",
			BundledDir:        "static/img",
			BundledURL:        "/static/img",
			Placeholder:       "/static/img/placeholder.svg",
			MaxUploadMB:       10,
			AllowedExtensions: append([]string(nil), assets.DefaultUploadExtensions...),
		},
		Team: TeamConfig{
			Sources: []string{"data/team.json", "static/data/team.json"},
		},
		Auth: AuthConfig{
			Capabilities: DefaultCapabilities(),
		},
		Startup: StartupConfig{
			MaxAttempts:  5,
			InitialDelay: "200ms",
			MaxDelay:     "5s",
		},
		Export: ExportConfig{
			Enabled: false,
			Timeout: "30s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields absent from the file keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	// Grants in the file replace the defaults instead of merging with them.
	cfg.Auth.Capabilities = nil
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if cfg.Auth.Capabilities == nil {
		cfg.Auth.Capabilities = DefaultCapabilities()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/clubsite/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "clubsite", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
