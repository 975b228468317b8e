// Command bulkusers creates Discourse accounts from the rows of an .xlsx
// workbook and records each outcome back into the same file.
//
// Usage:
//
//	bulkusers --file users.xlsx --site-url https://forum.example.com \
//	    --api-key $KEY --api-username system [--dry-run] [--active] [--approved]
//
// Connection settings fall back to DISCOURSE_SITE_URL, DISCOURSE_API_KEY and
// DISCOURSE_API_USERNAME, which may also come from a .env file.
//
// Exit status: 0 when every row was processed (per-row failures are in the
// sheet), 1 on configuration, schema or save errors, 3 when
// --fail-on-row-errors is set and a row failed, 130 when interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sakif/discourse-bulk-users/internal/app"
	"github.com/sakif/discourse-bulk-users/internal/config"
)

const (
	exitOK          = 0
	exitFatal       = 1
	exitRowFailures = 3
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// === 1. PARSE FLAGS ===
	fs := flag.NewFlagSet("bulkusers", flag.ContinueOnError)
	var (
		flags    config.Flags
		envFile  string
		logLevel string
	)
	fs.StringVar(&flags.FilePath, "file", config.DefaultFile, "path to the Excel workbook")
	fs.StringVar(&flags.SiteURL, "site-url", "", "Discourse base URL (env "+config.EnvSiteURL+")")
	fs.StringVar(&flags.APIKey, "api-key", "", "Discourse API key (env "+config.EnvAPIKey+")")
	fs.StringVar(&flags.APIUsername, "api-username", "", "admin username tied to the API key (env "+config.EnvAPIUsername+")")
	fs.DurationVar(&flags.Timeout, "timeout", config.DefaultTimeout, "timeout per API request")
	fs.BoolVar(&flags.Active, "active", false, "create users as active")
	fs.BoolVar(&flags.Approved, "approved", false, "create users as approved")
	fs.BoolVar(&flags.SuppressWelcomeMessage, "suppress-welcome-message", false, "suppress the Discourse welcome message")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "validate input and simulate API calls")
	fs.IntVar(&flags.SaveEvery, "save-every", 0, "also save the workbook after every N processed rows (0 = only at the end)")
	fs.StringVar(&flags.Filter, "filter", "", `only process rows matching this expression, e.g. 'email endsWith "@example.com"'`)
	fs.BoolVar(&flags.FailOnRowErrors, "fail-on-row-errors", false, "exit with status 3 if any row failed")
	fs.StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file with DISCOURSE_* variables")
	fs.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFatal
	}

	// === 2. SET UP LOGGING ===
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", logLevel)
		return exitFatal
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// === 3. RESOLVE CONFIGURATION ===
	// An explicitly named env file must exist; the default one is optional.
	envFileSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "env-file" {
			envFileSet = true
		}
	})
	if err := config.LoadDotEnv(envFile, envFileSet); err != nil {
		logger.Error("configuration error", slog.String("error", err.Error()))
		return exitFatal
	}

	cfg, err := config.Resolve(flags, os.LookupEnv)
	if err != nil {
		logger.Error("configuration error", slog.String("error", err.Error()))
		return exitFatal
	}

	// === 4. WIRE AND RUN ===
	// SIGINT/SIGTERM cancel the context; the importer finishes the current
	// row, saves what it has and returns.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logger, nil)
	if err != nil {
		logger.Error("cannot start import", slog.String("error", err.Error()))
		return exitFatal
	}
	defer a.Close()

	summary, err := a.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Warn("import interrupted; processed rows were saved", slog.Int("processed", summary.Processed))
		return exitInterrupted
	case err != nil:
		logger.Error("import failed", slog.String("error", err.Error()))
		return exitFatal
	}

	if cfg.FailOnRowErrors && summary.Failed > 0 {
		logger.Warn("some rows failed", slog.Int("failed", summary.Failed))
		return exitRowFailures
	}
	return exitOK
}
