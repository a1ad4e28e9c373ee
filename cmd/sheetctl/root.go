package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MartinRitsberg/ParemInfo/internal/config"
	"github.com/MartinRitsberg/ParemInfo/internal/core"
	"github.com/MartinRitsberg/ParemInfo/internal/logging"
	"github.com/MartinRitsberg/ParemInfo/internal/store"
)

// app is what every subcommand runs against. It is built once the root
// command's flags are parsed.
type app struct {
	envFile  string
	logLevel string

	cfg     *config.Config
	service *core.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "sheetctl",
		Short: "Import, edit and export spreadsheets in the local store",
		Long: `sheetctl works on the same local store as the web server.

Import replaces the store with a workbook's sheets. The editable dataset
is loaded with load-csv, changed with edit and written out with export.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "environment file to load if present")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(
		newImportCmd(a),
		newExportCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newLoadCSVCmd(a),
		newResetCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	if a.envFile != "" {
		// Unlike the server, explicit environment variables win over the file.
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	st, err := store.New(cfg.Store.Manager(), store.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.service = core.NewService(st, core.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWaitTime:   cfg.Upload.MaxWaitTime,
		ExportName:    cfg.Export.DefaultName,
	})
	return nil
}

// context tags ctx as a CLI operation.
func (a *app) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return core.ContextWithOrigin(ctx, core.Origin{Surface: "cli"})
}
