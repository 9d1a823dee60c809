package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("invalid usage")
	ErrDatabaseSetup  = errors.New("database setup failed")
	ErrListen         = errors.New("cannot listen")
)

// defaultConfigName is searched when neither --config nor CLUBSITE_CONFIG is set.
const defaultConfigName = "clubsite"

// run dispatches a command and returns the process exit code.
func run(args []string, env *Environment) int {
	command := "serve"
	if len(args) > 0 && isCommand(args[0]) {
		command, args = args[0], args[1:]
	} else if len(args) > 0 && !isFlag(args[0]) {
		fmt.Fprintf(env.Stderr, "%v: %s\n", ErrUnknownCommand, args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}

	switch command {
	case "version":
		fmt.Fprintf(env.Stdout, "clubsite %s\n", Version)
		return ExitSuccess
	case "help":
		runHelp(args, env)
		return ExitSuccess
	case "doctor":
		return runDoctorCmd(args, env)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	var err error
	switch command {
	case "serve":
		err = runServe(ctx, args, env)
	case "init-db":
		err = runInitDB(ctx, args, env)
	}
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
	}
	return exitCodeFor(err)
}

func isCommand(s string) bool {
	switch s {
	case "serve", "init-db", "doctor", "version", "help":
		return true
	}
	return false
}

func isFlag(s string) bool {
	return len(s) > 0 && s[0] == '-'
}

// loadSiteConfig builds the effective configuration:
// flags > environment > config file > defaults.
func loadSiteConfig(f *siteFlags, env *Environment) (*config.Config, error) {
	envCfg, err := loadEnvConfig(env.Getenv)
	if err != nil {
		return nil, err
	}
	warnUnknownEnvVars(env.Stderr, env.Environ())

	name := f.common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	var cfg *config.Config
	switch {
	case name != "":
		cfg, err = config.LoadConfig(name)
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(searchedConfigPaths(name)))
		}
	default:
		cfg, err = config.LoadConfig(defaultConfigName)
		if errors.Is(err, config.ErrConfigNotFound) {
			cfg, err = config.DefaultConfig(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	applyEnvConfig(envCfg, cfg)
	applyFlags(f, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// searchedConfigPaths lists where a config name is looked up, for hints.
func searchedConfigPaths(name string) []string {
	paths := []string{name + ".yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "clubsite", name+".yaml"))
	}
	return paths
}
