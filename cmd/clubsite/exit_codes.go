package main

import (
	"errors"
	"os"

	clubsite "github.com/vianubio/clubsite"
	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/logging"
	"github.com/vianubio/clubsite/internal/store"
)

// Exit codes for the clubsite CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Clean exit or graceful shutdown
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // Directory or file not accessible
	ExitDatabase = 4 // Database cannot be opened or migrated
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Database errors (exit 4)
	if errors.Is(err, store.ErrOpen) ||
		errors.Is(err, store.ErrEmptyPath) ||
		errors.Is(err, clubsite.ErrDatabase) ||
		errors.Is(err, ErrDatabaseSetup) {
		return ExitDatabase
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, clubsite.ErrInvalidAssetPath) ||
		errors.Is(err, ErrListen) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, logging.ErrInvalidLevel) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
