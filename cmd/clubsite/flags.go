package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// siteFlags holds the overrides accepted by serve, init-db and doctor.
type siteFlags struct {
	common    commonFlags
	addr      string
	db        string
	uploadDir string
	export    bool
	exportSet bool // --export given explicitly
	workers   int
	json      bool // doctor only
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only log errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
}

// addSiteFlags adds the configuration override flags to a FlagSet.
func addSiteFlags(fs *flag.FlagSet, f *siteFlags) {
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (e.g. :8080)")
	fs.StringVar(&f.db, "db", "", "SQLite database path")
	fs.StringVar(&f.uploadDir, "upload-dir", "", "uploads directory")
	fs.BoolVar(&f.export, "export", false, "enable printable PDF export")
	fs.IntVarP(&f.workers, "workers", "w", 0, "browser pool size for export (0 = auto)")
}

// parseSiteFlags parses flags for a command and returns positional args.
func parseSiteFlags(command string, args []string, stderr io.Writer) (*siteFlags, []string, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &siteFlags{}

	addCommonFlags(fs, &f.common)
	addSiteFlags(fs, f)
	if command == "doctor" {
		fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	}

	fs.Usage = func() { printCommandUsage(stderr, command) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	f.exportSet = fs.Changed("export")

	return f, fs.Args(), nil
}
