// Package app is the composition root: it turns a resolved config.Config
// into a ready-to-run import.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → filter.Compile
//	              → excel.Open (workbook = RowRepository)
//	              → discourse.New | dryrun.New (api.Creator)
//	              → service.NewImportService
//
// Everything that can fail on bad input (filter syntax, missing file,
// missing columns) fails here, before a single row is touched.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/discourse-bulk-users/internal/api"
	"github.com/sakif/discourse-bulk-users/internal/api/discourse"
	"github.com/sakif/discourse-bulk-users/internal/api/dryrun"
	"github.com/sakif/discourse-bulk-users/internal/auth"
	"github.com/sakif/discourse-bulk-users/internal/config"
	"github.com/sakif/discourse-bulk-users/internal/filter"
	"github.com/sakif/discourse-bulk-users/internal/model"
	"github.com/sakif/discourse-bulk-users/internal/repository/excel"
	"github.com/sakif/discourse-bulk-users/internal/service"
)

// App owns the open workbook for the duration of one run.
type App struct {
	config   config.Config
	logger   *slog.Logger
	runID    string
	workbook *excel.Workbook
	importer *service.ImportService
}

// New wires all dependencies. base is the HTTP transport under the API
// client's middleware; nil means http.DefaultTransport.
func New(cfg config.Config, logger *slog.Logger, base http.RoundTripper) (*App, error) {
	runID := xid.New().String()
	logger = logger.With(slog.String("run", runID))

	f, err := filter.Compile(cfg.Filter)
	if err != nil {
		return nil, err
	}

	wb, err := excel.Open(cfg.FilePath)
	if err != nil {
		return nil, err
	}

	var creator api.Creator
	if cfg.DryRun {
		creator = dryrun.New(logger)
	} else {
		creator = discourse.New(discourse.Config{
			SiteURL: cfg.SiteURL,
			Credentials: auth.Credentials{
				APIKey:      cfg.APIKey,
				APIUsername: cfg.APIUsername,
			},
			Timeout: cfg.Timeout,
		}, base, logger)
	}

	importer := service.NewImportService(wb, creator, auth.NewPasswordGenerator(), f, service.Options{
		Active:                 cfg.Active,
		Approved:               cfg.Approved,
		SuppressWelcomeMessage: cfg.SuppressWelcomeMessage,
		SaveEvery:              cfg.SaveEvery,
	}, logger)

	logger.Info("workbook loaded",
		slog.String("file", wb.Path()),
		slog.String("sheet", wb.Sheet()),
		slog.Bool("dryRun", cfg.DryRun),
		slog.String("filter", f.String()),
	)

	return &App{
		config:   cfg,
		logger:   logger,
		runID:    runID,
		workbook: wb,
		importer: importer,
	}, nil
}

// RunID identifies this run in the logs.
func (a *App) RunID() string { return a.runID }

// Run processes the workbook once. See service.ImportService.Run.
func (a *App) Run(ctx context.Context) (model.Summary, error) {
	summary, err := a.importer.Run(ctx)
	if err != nil {
		return summary, fmt.Errorf("app: %w", err)
	}
	return summary, nil
}

// Close releases the workbook.
func (a *App) Close() error {
	return a.workbook.Close()
}
