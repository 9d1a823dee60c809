package main

// Notes:
// - exitCodeFor: every sentinel that selects a code is tested directly and
//   wrapped, to verify the errors.Is chain.

import (
	"errors"
	"fmt"
	"os"
	"testing"

	clubsite "github.com/vianubio/clubsite"
	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/logging"
	"github.com/vianubio/clubsite/internal/store"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},

		// Database errors (exit 4)
		{"store open", store.ErrOpen, ExitDatabase},
		{"empty db path", store.ErrEmptyPath, ExitDatabase},
		{"database", clubsite.ErrDatabase, ExitDatabase},
		{"setup", ErrDatabaseSetup, ExitDatabase},
		{"wrapped setup", fmt.Errorf("migrate: %w", ErrDatabaseSetup), ExitDatabase},

		// I/O errors (exit 3)
		{"not exist", os.ErrNotExist, ExitIO},
		{"permission", os.ErrPermission, ExitIO},
		{"asset path", clubsite.ErrInvalidAssetPath, ExitIO},
		{"listen", fmt.Errorf("%w: address in use", ErrListen), ExitIO},

		// Usage errors (exit 2)
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"empty config name", config.ErrEmptyConfigName, ExitUsage},
		{"log level", logging.ErrInvalidLevel, ExitUsage},
		{"unknown command", ErrUnknownCommand, ExitUsage},
		{"usage", ErrUsage, ExitUsage},

		// General
		{"unknown error", errors.New("boom"), ExitGeneral},
		{"browser", clubsite.ErrBrowserConnect, ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodes_Conventions(t *testing.T) {
	t.Parallel()

	codes := []int{ExitSuccess, ExitGeneral, ExitUsage, ExitIO, ExitDatabase}
	seen := map[int]bool{}
	for _, c := range codes {
		if c >= 126 {
			t.Errorf("exit code %d collides with shell reserved codes", c)
		}
		if seen[c] {
			t.Errorf("exit code %d defined twice", c)
		}
		seen[c] = true
	}
}
