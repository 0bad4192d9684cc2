// Package report renders recaps and snapshots for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/insights"
	"fintrack/internal/recap"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatXLSX   Format = "xlsx"
	FormatSheets Format = "sheets"
)

// Formats lists the accepted --format values.
var Formats = []string{string(FormatTable), string(FormatJSON), string(FormatYAML), string(FormatXLSX), string(FormatSheets)}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if string(f) == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q (want one of %s)", core.ErrInvalidArgument, s, strings.Join(Formats, ", "))
}

type (
	RecapRow struct {
		Label        string `json:"label" yaml:"label"`
		Start        string `json:"start" yaml:"start"`
		End          string `json:"end" yaml:"end"`
		Transactions int    `json:"transactions" yaml:"transactions"`
		Total        string `json:"total" yaml:"total"`
	}

	// RecapDoc is the flattened recap written by every format.
	RecapDoc struct {
		Period  string     `json:"period" yaml:"period"`
		Start   string     `json:"start" yaml:"start"`
		End     string     `json:"end" yaml:"end"`
		Buckets []RecapRow `json:"buckets" yaml:"buckets"`
		Total   string     `json:"total" yaml:"total"`
	}
)

func NewRecapDoc(r recap.Result) RecapDoc {
	doc := RecapDoc{
		Period:  r.Period.String(),
		Start:   r.StartDate.String(),
		End:     r.EndDate.String(),
		Buckets: make([]RecapRow, 0, len(r.Data)),
	}
	var all []core.Transaction
	for _, b := range r.Data {
		doc.Buckets = append(doc.Buckets, RecapRow{
			Label:        b.Label,
			Start:        b.PeriodStart.String(),
			End:          b.PeriodEnd.String(),
			Transactions: len(b.Transactions),
			Total:        b.TotalAmount.StringFixed(2),
		})
		all = append(all, b.Transactions...)
	}
	doc.Total = core.SumAmounts(all).StringFixed(2)
	return doc
}

// WriteRecap renders r as a table, JSON or YAML.
func WriteRecap(w io.Writer, f Format, r recap.Result) error {
	doc := NewRecapDoc(r)
	switch f {
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatYAML:
		return writeYAML(w, doc)
	case FormatTable:
		fmt.Fprintf(w, "Recap by %s, %s to %s\n\n", doc.Period, doc.Start, doc.End)
		if len(doc.Buckets) == 0 {
			fmt.Fprintln(w, "No transactions in this period.")
			return nil
		}

		t := newTable(w)
		t.AppendHeader(table.Row{"Period", "From", "To", "Transactions", "Total"})
		for _, b := range doc.Buckets {
			t.AppendRow(table.Row{b.Label, b.Start, b.End, b.Transactions, b.Total})
		}
		t.AppendSeparator()
		t.AppendFooter(table.Row{"", "", "", text.Bold.Sprint("Total"), text.Bold.Sprint(doc.Total)})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
		})
		t.Render()
		return nil
	}
	return fmt.Errorf("%w: format %q cannot be written to a stream", core.ErrInvalidArgument, f)
}

// WriteSnapshot renders s as a summary table plus category breakdowns,
// or as JSON or YAML.
func WriteSnapshot(w io.Writer, f Format, s insights.Snapshot) error {
	doc := NewSnapshotDoc(s)
	switch f {
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatYAML:
		return writeYAML(w, doc)
	case FormatTable:
		fmt.Fprintf(w, "Snapshot %s to %s\n\n", doc.From, doc.To)

		summary := newTable(w)
		summary.AppendHeader(table.Row{"Metric", "Value"})
		for _, m := range doc.Summary {
			summary.AppendRow(table.Row{m.Name, m.Value})
		}
		summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
		summary.Render()

		if len(doc.TopExpenses) > 0 {
			fmt.Fprintln(w)
			cats := newTable(w)
			cats.AppendHeader(table.Row{"Top expense category", "Count", "Total"})
			for _, c := range doc.TopExpenses {
				cats.AppendRow(table.Row{c.Category, c.Count, c.Total})
			}
			cats.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
			cats.Render()
		}

		if len(doc.Monthly) > 0 {
			fmt.Fprintln(w)
			months := newTable(w)
			months.AppendHeader(table.Row{"Month", "Income", "Expense"})
			for _, m := range doc.Monthly {
				months.AppendRow(table.Row{m.Month, m.Income, m.Expense})
			}
			months.SetColumnConfigs([]table.ColumnConfig{
				{Number: 2, Align: text.AlignRight},
				{Number: 3, Align: text.AlignRight},
			})
			months.Render()
		}
		return nil
	}
	return fmt.Errorf("%w: format %q cannot be written to a stream", core.ErrInvalidArgument, f)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
