package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: clubsite [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the site (default)")
	fmt.Fprintln(w, "  init-db    Create or upgrade the database and seed accounts")
	fmt.Fprintln(w, "  doctor     Check configuration, database, uploads and Chrome")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'clubsite help <command>' for details on a specific command.")
}

// printSiteFlags prints the flags shared by serve, init-db and doctor.
func printSiteFlags(w io.Writer) {
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (e.g. :8080)")
	fmt.Fprintln(w, "      --db <path>           SQLite database path")
	fmt.Fprintln(w, "      --upload-dir <path>   Uploads directory")
	fmt.Fprintln(w, "      --export              Enable printable PDF export")
	fmt.Fprintln(w, "  -w, --workers <n>         Browser pool size (0 = auto)")
	fmt.Fprintln(w, "  -q, --quiet               Only log errors")
	fmt.Fprintln(w, "  -v, --verbose             Log at debug level")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CLUBSITE_CONFIG, CLUBSITE_ADDR, CLUBSITE_DB, CLUBSITE_UPLOAD_DIR,")
	fmt.Fprintln(w, "  CLUBSITE_SESSION_KEY, CLUBSITE_LOG_LEVEL, CLUBSITE_EXPORT")
	fmt.Fprintln(w, "  Precedence: flags > environment > config file > defaults")
}

// printCommandUsage prints usage for one command.
func printCommandUsage(w io.Writer, command string) {
	switch command {
	case "serve":
		fmt.Fprintln(w, "Usage: clubsite serve [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Serve the site. Database setup retries in the background;")
		fmt.Fprintln(w, "/readyz reports 503 until it succeeds.")
		fmt.Fprintln(w)
		printSiteFlags(w)
	case "init-db":
		fmt.Fprintln(w, "Usage: clubsite init-db [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Create or upgrade the schema and add configured accounts.")
		fmt.Fprintln(w, "Existing accounts keep their password.")
		fmt.Fprintln(w)
		printSiteFlags(w)
	case "doctor":
		fmt.Fprintln(w, "Usage: clubsite doctor [--json] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Check the effective configuration without starting the server.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "      --json                Print the report as JSON")
		printSiteFlags(w)
	case "version":
		fmt.Fprintln(w, "Usage: clubsite version")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Show version information.")
	case "help":
		fmt.Fprintln(w, "Usage: clubsite help [command]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Show help for a command.")
	default:
		printUsage(w)
	}
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}
	if !isCommand(args[0]) {
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return
	}
	printCommandUsage(env.Stdout, args[0])
}
