package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	env := DefaultEnv()

	// maxprocs.Set only fails on an invalid GOMAXPROCS value, in which case
	// the runtime default applies.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		if env.Getenv("CLUBSITE_LOG_LEVEL") == "debug" {
			fmt.Fprintf(env.Stderr, format+"\n", args...)
		}
	}))

	os.Exit(run(os.Args[1:], env))
}
