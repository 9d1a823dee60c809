package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	clubsite "github.com/vianubio/clubsite"
	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/fileutil"
	"github.com/vianubio/clubsite/internal/hints"
	"github.com/vianubio/clubsite/internal/store"
)

// doctorTimeout bounds the database probe.
const doctorTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Config   configInfo   `json:"config"`
	Database databaseInfo `json:"database"`
	Assets   assetsInfo   `json:"assets"`
	Chrome   chromeInfo   `json:"chrome"`
	Env      envInfo      `json:"environment"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

type configInfo struct {
	Loaded bool   `json:"loaded"`
	Addr   string `json:"addr,omitempty"`
}

type databaseInfo struct {
	Path      string `json:"path,omitempty"`
	Reachable bool   `json:"reachable"`
}

type assetsInfo struct {
	UploadDir      string `json:"upload_dir,omitempty"`
	UploadWritable bool   `json:"upload_writable"`
	TeamData       string `json:"team_data,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Required bool   `json:"required"`
	Found    bool   `json:"found"`
	Path     string `json:"path,omitempty"`
	Version  string `json:"version,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Container  bool   `json:"container"`
	CI         bool   `json:"ci"`
	BrowserBin string `json:"rod_browser_bin,omitempty"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	f, _, err := parseSiteFlags("doctor", args, env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	result := runDoctor(f, env)

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(f *siteFlags, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			BrowserBin: env.Getenv("ROD_BROWSER_BIN"),
		},
	}

	cfg, err := loadSiteConfig(f, env)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
	} else {
		result.Config = configInfo{Loaded: true, Addr: cfg.Server.Addr}
		checkDatabase(result, cfg)
		checkAssets(result, cfg)
		checkSession(result, cfg)
		result.Chrome.Required = cfg.Export.Enabled
	}

	checkChrome(result)
	checkEnvironment(result, env)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkDatabase opens the database and pings it. Tables are not touched.
func checkDatabase(result *doctorResult, cfg *config.Config) {
	result.Database.Path = cfg.Database.Path

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Database: %v%s", err, hints.ForDatabaseOpen(cfg.Database.Path)))
		return
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
	defer cancel()
	if err := st.Ping(ctx); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Database: %v%s", err, hints.ForDatabaseOpen(cfg.Database.Path)))
		return
	}
	result.Database.Reachable = true
}

// checkAssets verifies the uploads directory accepts files and reports
// which team data file is in use.
func checkAssets(result *doctorResult, cfg *config.Config) {
	dir := cfg.Assets.UploadDir
	result.Assets.UploadDir = dir

	if err := fileutil.EnsureDir(dir, 0o750); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Uploads: %v%s", err, hints.ForUploadDir()))
	} else {
		probe := filepath.Join(dir, ".clubsite-doctor")
		if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Uploads: %s not writable%s", dir, hints.ForUploadDir()))
		} else {
			_ = os.Remove(probe)
			result.Assets.UploadWritable = true
		}
	}

	if cfg.Assets.BundledDir != "" && !fileutil.DirExists(cfg.Assets.BundledDir) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Bundled images directory %s missing; team photos fall back to uploads", cfg.Assets.BundledDir))
	}

	result.Assets.TeamData = clubsite.NewTeamSource(cfg.Team.Sources, nil).Path()
	if result.Assets.TeamData == "" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No team data file found (looked for %s)", strings.Join(cfg.Team.Sources, ", ")))
	}
}

func checkSession(result *doctorResult, cfg *config.Config) {
	if cfg.Auth.SessionKey == "" {
		result.Warnings = append(result.Warnings, "No session key: logins end on restart"+hints.ForSessionKey())
	}
}

// checkChrome detects Chrome/Chromium. A missing browser is only an error
// when printable export is enabled.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			msg := "Chrome/Chromium not found; printable export unavailable"
			if result.Chrome.Required {
				result.Errors = append(result.Errors, msg+hints.ForBrowserConnect())
			} else {
				result.Warnings = append(result.Warnings, msg)
			}
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- path from launcher or ROD_BROWSER_BIN
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	result.Env.Container = hints.IsInContainer() || env.Getenv("KUBERNETES_SERVICE_HOST") != ""
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "clubsite doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Site")
	if r.Config.Loaded {
		fmt.Fprintf(w, "  [OK] Config loaded, listening on %s\n", r.Config.Addr)
	}
	if r.Database.Reachable {
		fmt.Fprintf(w, "  [OK] Database: %s\n", r.Database.Path)
	}
	if r.Assets.UploadWritable {
		fmt.Fprintf(w, "  [OK] Uploads: %s\n", r.Assets.UploadDir)
	}
	if r.Assets.TeamData != "" {
		fmt.Fprintf(w, "  [OK] Team data: %s\n", r.Assets.TeamData)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
	} else {
		fmt.Fprintln(w, "  [--] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintln(w, "  [OK] Container: detected")
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to serve")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
