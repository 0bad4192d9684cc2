package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/storage"

	"github.com/GiGurra/boa/pkg/boa"
)

type Params struct {
	Mode   string `descr:"Report to produce" alts:"recap,snapshot" strict:"true" positional:"true"`
	User   string `descr:"User id or email address"`
	Period string `descr:"Recap grouping" alts:"day,week,month" strict:"true" default:"day"`
	Month  string `descr:"Month to recap as yyyy-mm (default: current month)" optional:"true"`
	Days   int    `descr:"Snapshot window in days, ending today" default:"30"`
	Format string `descr:"Output format" alts:"table,json,yaml,xlsx,sheets" strict:"true" default:"table"`
	Out    string `descr:"Output path for xlsx (default: <mode>-<date>.xlsx)" optional:"true"`
	DB     string `descr:"SQLite database path" env:"SQLITE_DB_PATH" default:"./data/fintrack.db"`
}

func main() {
	cli.LoadEnvFile()

	boa.NewCmdT[Params]("fin-report").
		WithShort("Print recaps and snapshots from the fintrack database").
		WithLong("Loads one user's transactions from the fintrack SQLite database and renders a month-to-date recap or a trailing snapshot as a table, JSON, YAML, an xlsx workbook, or rows appended to a Google Sheet.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				cli.Exit(fmt.Errorf("fin-report: %w", err))
			}
		}).
		Run()
}

func run(params *Params) error {
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentReport, os.Stderr)

	repo, err := storage.NewSQLiteRepository(params.DB)
	if err != nil {
		return fmt.Errorf("open database %s: %w", params.DB, err)
	}
	defer repo.Close()

	r := &reporter{
		store:  repo,
		out:    os.Stdout,
		now:    time.Now,
		logger: logger,
		sheets: func(ctx context.Context) (sheets.RecapWriter, error) {
			return gsheet.New(ctx, gsheet.Config{
				SpreadsheetID:      cfg.Sheets.SpreadsheetID,
				SheetName:          cfg.Sheets.SheetName,
				ServiceAccountJSON: cfg.Sheets.ServiceAccountJSON,
				ServiceAccountFile: cfg.Sheets.ServiceAccountFile,
			})
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return r.run(ctx, params)
}
