// Package report renders workload results as a terminal table or YAML.
package report

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/ordtree/internal/config"
	"github.com/Sumatoshi-tech/ordtree/internal/workload"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"

	// detailWidth wraps long mismatch details in the table.
	detailWidth = 72
)

// ErrUnknownFormat is returned for formats other than table and yaml.
var ErrUnknownFormat = errors.New("unknown report format")

// Render writes rep to w in the given format.
func Render(w io.Writer, rep *workload.Report, format string) error {
	switch format {
	case config.FormatTable:
		return renderTable(w, rep)
	case config.FormatYAML:
		return renderYAML(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderYAML(w io.Writer, rep *workload.Report) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func renderTable(w io.Writer, rep *workload.Report) error {
	var builder strings.Builder

	builder.WriteString(statusLine(rep))
	builder.WriteString("\n\n")
	builder.WriteString(summaryTable(rep))
	builder.WriteString("\n\n")
	builder.WriteString(operationsTable(rep))
	builder.WriteByte('\n')

	if !rep.Passed() {
		builder.WriteByte('\n')
		builder.WriteString(mismatchTable(rep))
		builder.WriteByte('\n')
	}

	_, err := io.WriteString(w, builder.String())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func statusLine(rep *workload.Report) string {
	if rep.Passed() {
		return color.New(color.FgGreen, color.Bold).Sprint(statusPass) +
			fmt.Sprintf(" %s operations, seed %d, %s", humanize.Comma(int64(rep.Ops)), rep.Seed, rep.Duration)
	}

	return color.New(color.FgRed, color.Bold).Sprint(statusFail) +
		fmt.Sprintf(" %d mismatches, seed %d", len(rep.Mismatches), rep.Seed)
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func summaryTable(rep *workload.Report) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"keys", humanize.Comma(int64(rep.Keys))},
		{"verifications", humanize.Comma(int64(rep.Verifications))},
		{"exhausted inserts", humanize.Comma(int64(rep.Exhausted))},
		{"final size", humanize.Comma(int64(rep.FinalSize))},
		{"height", rep.Height},
		{"black height", rep.BlackHeight},
		{"arena slots", humanize.Comma(int64(rep.ArenaSlots))},
	})

	return tbl.Render()
}

func operationsTable(rep *workload.Report) string {
	names := make([]string, 0, len(rep.Operations))
	for name := range rep.Operations {
		names = append(names, name)
	}

	slices.Sort(names)

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Operation", "Count"})

	total := 0

	for _, name := range names {
		count := rep.Operations[name]
		total += count

		tbl.AppendRow(table.Row{name, humanize.Comma(int64(count))})
	}

	tbl.AppendFooter(table.Row{"total", humanize.Comma(int64(total))})

	return tbl.Render()
}

func mismatchTable(rep *workload.Report) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Step", "Op", "Key", "Detail"})
	tbl.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: detailWidth}})

	for _, mm := range rep.Mismatches {
		tbl.AppendRow(table.Row{mm.Step, mm.Op, mm.Key, strings.TrimRight(mm.Detail, "\n")})
	}

	return tbl.Render()
}
