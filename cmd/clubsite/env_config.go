package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vianubio/clubsite/internal/config"
)

// envConfig holds configuration from CLUBSITE_* environment variables.
// Lets containers configure the site without a YAML file.
type envConfig struct {
	ConfigPath string // CLUBSITE_CONFIG: config name or path
	Addr       string // CLUBSITE_ADDR: listen address
	DBPath     string // CLUBSITE_DB: SQLite path
	UploadDir  string // CLUBSITE_UPLOAD_DIR: uploads directory
	SessionKey string // CLUBSITE_SESSION_KEY: cookie key
	LogLevel   string // CLUBSITE_LOG_LEVEL: debug, info, warn, error
	Export     *bool  // CLUBSITE_EXPORT: enable PDF export
}

// knownEnvVars lists valid CLUBSITE_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"CLUBSITE_CONFIG":      true,
	"CLUBSITE_ADDR":        true,
	"CLUBSITE_DB":          true,
	"CLUBSITE_UPLOAD_DIR":  true,
	"CLUBSITE_SESSION_KEY": true,
	"CLUBSITE_LOG_LEVEL":   true,
	"CLUBSITE_EXPORT":      true,
}

// loadEnvConfig reads configuration from environment variables.
// An unparsable CLUBSITE_EXPORT is a usage error.
func loadEnvConfig(getenv func(string) string) (*envConfig, error) {
	cfg := &envConfig{
		ConfigPath: getenv("CLUBSITE_CONFIG"),
		Addr:       getenv("CLUBSITE_ADDR"),
		DBPath:     getenv("CLUBSITE_DB"),
		UploadDir:  getenv("CLUBSITE_UPLOAD_DIR"),
		SessionKey: getenv("CLUBSITE_SESSION_KEY"),
		LogLevel:   getenv("CLUBSITE_LOG_LEVEL"),
	}

	if v := getenv("CLUBSITE_EXPORT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: CLUBSITE_EXPORT=%q is not a boolean", ErrUsage, v)
		}
		cfg.Export = &b
	}

	return cfg, nil
}

// warnUnknownEnvVars reports unrecognized CLUBSITE_* variables.
// Helps catch typos like CLUBSITE_DATABASE instead of CLUBSITE_DB.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if strings.HasPrefix(env, "CLUBSITE_") {
			name, _, _ := strings.Cut(env, "=")
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overrides file values with set environment variables.
// Flags are applied afterwards: flags > env > file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.DBPath != "" {
		cfg.Database.Path = env.DBPath
	}
	if env.UploadDir != "" {
		cfg.Assets.UploadDir = env.UploadDir
	}
	if env.SessionKey != "" {
		cfg.Auth.SessionKey = env.SessionKey
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.Export != nil {
		cfg.Export.Enabled = *env.Export
	}
}

// applyFlags overrides cfg with explicitly set flags.
func applyFlags(f *siteFlags, cfg *config.Config) {
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.db != "" {
		cfg.Database.Path = f.db
	}
	if f.uploadDir != "" {
		cfg.Assets.UploadDir = f.uploadDir
	}
	if f.exportSet {
		cfg.Export.Enabled = f.export
	}
	if f.workers > 0 {
		cfg.Export.Workers = f.workers
	}
	switch {
	case f.common.verbose:
		cfg.Log.Level = "debug"
	case f.common.quiet:
		cfg.Log.Level = "error"
	}
}
