package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/tonimelisma/rmz-go/internal/record"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Color sprint functions for table cells; no-ops when color is disabled.
var (
	colorID      = color.New(color.FgCyan).SprintFunc()
	colorPath    = color.New(color.Bold).SprintFunc()
	colorWarning = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorOK      = color.New(color.FgGreen).SprintFunc()
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	return humanize.Bytes(uint64(bytes))
}

// formatAge returns a relative age for display ("3 days ago").
func formatAge(t time.Time) string {
	return humanize.Time(t)
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	now := time.Now()

	// Same calendar year: show "Jan  2 15:04"
	if t.Year() == now.Year() {
		return t.Local().Format("Jan _2 15:04")
	}

	// Different year: show "Jan  2  2006"
	return t.Local().Format("Jan _2  2006")
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes one table row with two-space column separation. The
// last column is not padded so trailing whitespace never leaks into
// terminal copies.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))

	for i, cell := range cells {
		if i == len(cells)-1 {
			parts[i] = cell

			continue
		}

		parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// recordRows renders FileRecords as table rows: id, kind, size, age,
// tags, original path.
func recordRows(records []*record.FileRecord) [][]string {
	rows := make([][]string, 0, len(records))

	for _, rec := range records {
		tags := strings.Join(rec.Tags, ",")

		rows = append(rows, []string{
			colorID(rec.ID.Short()),
			string(rec.Kind),
			formatSize(rec.Size),
			formatAge(rec.DeletedAt),
			tags,
			colorPath(rec.OriginalPath),
		})
	}

	return rows
}

// recordHeaders matches recordRows column order.
var recordHeaders = []string{"ID", "KIND", "SIZE", "DELETED", "TAGS", "ORIGINAL PATH"}
