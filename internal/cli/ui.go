// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/retr0h/pantry/internal/audit"
)

// Theme colors for terminal output.
var (
	Purple = lipgloss.Color("99")
	Gray   = lipgloss.Color("245")
	White  = lipgloss.Color("15")
	Teal   = lipgloss.Color("#06ffa5")
	Red    = lipgloss.Color("203")
)

var (
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	valueStyle  = lipgloss.NewStyle().Foreground(Teal)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	evenStyle   = lipgloss.NewStyle().Foreground(Teal)
	oddStyle    = lipgloss.NewStyle().Foreground(White)

	// DimStyle is a muted style for secondary text.
	DimStyle = lipgloss.NewStyle().Foreground(Gray)
	// AlertStyle highlights failures.
	AlertStyle = lipgloss.NewStyle().Bold(true).Foreground(Red)
)

// Section is a titled table.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
}

const (
	// compactMaxColWidth is the widest a column grows before truncation.
	compactMaxColWidth = 50
	colGap             = 2
)

// PrintCompactTable renders column-aligned tables with uppercase headers
// and alternating row colors. Multi-line cells are flattened and long
// cells end in an ellipsis.
func PrintCompactTable(
	w io.Writer,
	sections []Section,
) {
	for _, section := range sections {
		if section.Title != "" {
			_, _ = fmt.Fprintf(w, "\n  %s:\n", headerStyle.Render(section.Title))
		} else {
			_, _ = fmt.Fprintln(w)
		}

		rows := flattenRows(section.Rows)
		widths := columnWidths(section.Headers, rows)

		var hdr strings.Builder
		hdr.WriteString("  ")
		for i, h := range section.Headers {
			hdr.WriteString(headerStyle.Render(pad(strings.ToUpper(h), widths[i], i == len(widths)-1)))
		}
		_, _ = fmt.Fprintln(w, hdr.String())

		for r, row := range rows {
			style := evenStyle
			if r%2 != 0 {
				style = oddStyle
			}

			var line strings.Builder
			line.WriteString("  ")
			for i := range section.Headers {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}
				if len(cell) > widths[i] {
					cell = cell[:widths[i]-1] + "…"
				}
				line.WriteString(style.Render(pad(cell, widths[i], i == len(widths)-1)))
			}
			_, _ = fmt.Fprintln(w, line.String())
		}
	}
}

func flattenRows(
	rows [][]string,
) [][]string {
	flat := make([][]string, len(rows))
	for r, row := range rows {
		flat[r] = make([]string, len(row))
		for c, cell := range row {
			flat[r][c] = strings.Join(strings.Fields(cell), " ")
		}
	}

	return flat
}

func columnWidths(
	headers []string,
	rows [][]string,
) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], compactMaxColWidth)
	}

	return widths
}

func pad(
	s string,
	width int,
	last bool,
) string {
	if last {
		return s
	}

	return fmt.Sprintf("%-*s", width+colGap, s)
}

// KVMinColWidth keeps consecutive PrintKV lines aligned.
const KVMinColWidth = 20

// PrintKV prints alternating label/value arguments on one indented line.
// An odd or empty argument list prints nothing.
func PrintKV(
	w io.Writer,
	pairs ...string,
) {
	if len(pairs)%2 != 0 || len(pairs) == 0 {
		return
	}

	rendered := make([]string, 0, len(pairs)/2)
	maxWidth := KVMinColWidth
	for i := 0; i < len(pairs); i += 2 {
		pair := labelStyle.Render(pairs[i]+":") + " " + valueStyle.Render(pairs[i+1])
		rendered = append(rendered, pair)
		maxWidth = max(maxWidth, lipgloss.Width(pair))
	}

	var line strings.Builder
	line.WriteString("  ")
	for i, pair := range rendered {
		line.WriteString(pair)
		if i < len(rendered)-1 {
			line.WriteString(strings.Repeat(" ", maxWidth-lipgloss.Width(pair)+4))
		}
	}
	_, _ = fmt.Fprintln(w, line.String())
}

// FormatList joins list for display, or "None" when empty.
func FormatList(
	list []string,
) string {
	if len(list) == 0 {
		return "None"
	}

	return strings.Join(list, ", ")
}

// FormatAge renders d as "3d 4h", "12h 30m", "45m" or "30s".
func FormatAge(
	d time.Duration,
) string {
	if d <= 0 {
		return ""
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

// AuditSection lays out entries as a table.
func AuditSection(
	title string,
	entries []audit.Entry,
) Section {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		actor := e.Actor
		if actor == "" {
			actor = "-"
		}
		rows = append(rows, []string{
			e.ID,
			e.Timestamp.Format(time.RFC3339),
			actor,
			e.Method,
			e.Path,
			strconv.Itoa(e.StatusCode),
			strconv.FormatInt(e.DurationMs, 10) + "ms",
		})
	}

	return Section{
		Title:   title,
		Headers: []string{"ID", "Time", "Actor", "Method", "Path", "Status", "Duration"},
		Rows:    rows,
	}
}

// TamperSection lists every entry of every report, keyed by fingerprint.
func TamperSection(
	reports []audit.TamperReport,
) Section {
	var rows [][]string
	for _, r := range reports {
		for _, e := range r.Entries {
			rows = append(rows, []string{
				r.Fingerprint[:min(12, len(r.Fingerprint))],
				e.ID,
				e.Actor,
				e.Path,
				strconv.Itoa(e.StatusCode),
			})
		}
	}

	return Section{
		Title:   "Conflicting entries",
		Headers: []string{"Fingerprint", "ID", "Actor", "Path", "Status"},
		Rows:    rows,
	}
}
