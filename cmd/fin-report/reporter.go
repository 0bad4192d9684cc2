package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/insights"
	"fintrack/internal/log"
	"fintrack/internal/recap"
	"fintrack/internal/report"
	"fintrack/internal/sheets"
)

type reportStore interface {
	GetUserByID(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time, limit int) ([]core.Transaction, error)
}

type reporter struct {
	store  reportStore
	out    io.Writer
	now    func() time.Time
	logger *log.Logger
	sheets func(ctx context.Context) (sheets.RecapWriter, error)
}

func (r *reporter) run(ctx context.Context, p *Params) error {
	format, err := report.ParseFormat(p.Format)
	if err != nil {
		return err
	}
	user, err := r.resolveUser(ctx, p.User)
	if err != nil {
		return err
	}

	switch p.Mode {
	case "recap":
		return r.recap(ctx, user, p, format)
	case "snapshot":
		return r.snapshot(ctx, user, p, format)
	}
	return fmt.Errorf("%w: unknown mode %q", core.ErrInvalidArgument, p.Mode)
}

// resolveUser accepts either an id or an email address.
func (r *reporter) resolveUser(ctx context.Context, ref string) (core.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return core.User{}, fmt.Errorf("%w: --user is required", core.ErrInvalidArgument)
	}
	if strings.Contains(ref, "@") {
		return r.store.GetUserByEmail(ctx, core.NormalizeEmail(ref))
	}
	return r.store.GetUserByID(ctx, ref)
}

func (r *reporter) recap(ctx context.Context, user core.User, p *Params, format report.Format) error {
	start, end, err := recapWindow(r.now(), p.Month)
	if err != nil {
		return err
	}
	txs, err := r.store.ListTransactionsInRange(ctx, user.ID, start.Time, end.EndOfDay(), 0)
	if err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "Loaded transactions for recap",
		log.FieldUserID, user.ID,
		"from", start.String(),
		"to", end.String(),
		"count", len(txs))

	result, err := recap.NewAggregator(recap.DefaultFormat()).Aggregate(recap.Request{
		UserID:       user.ID,
		Period:       recap.ParsePeriod(p.Period),
		Start:        start,
		End:          end,
		Transactions: txs,
	})
	if err != nil {
		return err
	}

	switch format {
	case report.FormatXLSX:
		path := outputPath(p.Out, "recap", start)
		if err := report.SaveRecapXLSX(path, result); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Wrote %s\n", path)
		return nil
	case report.FormatSheets:
		w, err := r.sheets(ctx)
		if err != nil {
			return fmt.Errorf("connect to Google Sheets: %w", err)
		}
		ref, err := w.AppendRecap(ctx, user.ID, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Appended %d rows to %s\n", len(result.Data), ref)
		return nil
	}
	return report.WriteRecap(r.out, format, result)
}

func (r *reporter) snapshot(ctx context.Context, user core.User, p *Params, format report.Format) error {
	if p.Days < 1 {
		return fmt.Errorf("%w: --days must be at least 1", core.ErrInvalidArgument)
	}
	to := r.now().UTC()
	from := core.DateOf(to).AddDays(-(p.Days - 1)).Time

	txs, err := r.store.ListTransactionsInRange(ctx, user.ID, from, to, 0)
	if err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "Loaded transactions for snapshot",
		log.FieldUserID, user.ID,
		"days", p.Days,
		"count", len(txs))
	snap, err := insights.BuildSnapshot(user.ID, txs, from, to)
	if err != nil {
		return err
	}

	switch format {
	case report.FormatXLSX:
		path := outputPath(p.Out, "snapshot", core.DateOf(to))
		if err := report.SaveSnapshotXLSX(path, snap); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Wrote %s\n", path)
		return nil
	case report.FormatSheets:
		return fmt.Errorf("%w: snapshots cannot be exported to Google Sheets", core.ErrInvalidArgument)
	}
	return report.WriteSnapshot(r.out, format, snap)
}

// recapWindow returns month-to-date for the current month, or the whole of
// month (yyyy-mm) capped at today.
func recapWindow(now time.Time, month string) (core.Date, core.Date, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		start, end := recap.MonthToDate(now)
		return start, end, nil
	}

	m, err := time.Parse("2006-01", month)
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("%w: --month must be yyyy-mm, got %q", core.ErrInvalidArgument, month)
	}
	start := core.NewDate(m.Year(), int(m.Month()), 1)
	end := core.NewDate(m.Year(), int(m.Month())+1, 1).AddDays(-1)
	if today := core.DateOf(now); end.After(today.Time) {
		end = today
	}
	if start.After(end.Time) {
		return core.Date{}, core.Date{}, fmt.Errorf("%w: month %s is in the future", core.ErrInvalidArgument, month)
	}
	return start, end, nil
}

func outputPath(out, mode string, d core.Date) string {
	if strings.TrimSpace(out) != "" {
		return out
	}
	return fmt.Sprintf("%s-%s.xlsx", mode, d.String())
}
