package main

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/zulandar/assignyard/internal/assignment"
	"github.com/zulandar/assignyard/internal/clock"
	"github.com/zulandar/assignyard/internal/editor"
)

var (
	errColor    = color.New(color.FgRed, color.Bold)
	dimColor    = color.New(color.Faint)
	headerColor = color.New(color.Bold)
)

// cell is one table cell. Padding is computed on text so escape codes never
// skew column widths.
type cell struct {
	text string
	c    *color.Color
}

func plain(s string) cell { return cell{text: s} }

// printTable writes rows under headers, left-aligned with two spaces between
// columns.
func printTable(w io.Writer, headers []string, rows [][]cell) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if n := utf8.RuneCountInString(c.text); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []cell) {
		var b strings.Builder
		for i, c := range cells {
			text := c.text
			if i < len(cells)-1 {
				text += strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c.text)+2)
			}
			if c.c != nil {
				text = c.c.Sprint(text)
			}
			b.WriteString(text)
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	hs := make([]cell, len(headers))
	for i, h := range headers {
		hs[i] = cell{text: h, c: headerColor}
	}
	line(hs)
	for _, r := range rows {
		line(r)
	}
}

func statusColor(s assignment.Status) *color.Color {
	switch s {
	case assignment.StatusPlanned:
		return color.New(color.FgCyan)
	case assignment.StatusInProgress:
		return color.New(color.FgYellow)
	case assignment.StatusCompleted:
		return color.New(color.FgGreen)
	case assignment.StatusCancelled:
		return color.New(color.FgRed)
	case assignment.StatusDraft:
		return dimColor
	}
	return nil
}

func fieldText[T any](f assignment.Field[T], format func(T) string) string {
	if !f.Valid {
		return "-"
	}
	return format(f.Value)
}

// flagged renders a field, in red with its error names when it carries any.
func flagged(text string, errs assignment.Errors) cell {
	if errs == 0 {
		return plain(text)
	}
	return cell{text: fmt.Sprintf("%s !%s", text, errs), c: errColor}
}

// printEditor renders the editor's rows and summary flags.
func printEditor(w io.Writer, title string, e *editor.Editor) {
	fmt.Fprintf(w, "%s\n\n", title)

	showStatus := false
	for _, c := range e.Columns() {
		if c == editor.ColumnStatus {
			showStatus = true
		}
	}

	headers := []string{"#", "DATE", "RESOURCE", "START", "END", "HOURS"}
	if showStatus {
		headers = append(headers, "STATUS")
	}

	var rows [][]cell
	for i, r := range e.Rows() {
		row := []cell{
			plain(fmt.Sprint(i)),
			flagged(fieldText(r.PlannedDate, func(d time.Time) string { return d.Format(time.DateOnly) }), r.PlannedDate.Errors),
			plain(fieldText(r.Resource, func(ref assignment.Ref) string {
				if ref.Name != "" {
					return ref.Name
				}
				return ref.ID
			})),
			flagged(fieldText(r.PlannedStartTime, func(t clock.Time) string { return t.String() }), r.PlannedStartTime.Errors),
			plain(fieldText(r.PlannedEndTime, func(t clock.Time) string { return t.String() })),
			plain(fieldText(r.PlannedWorkload, func(h float64) string { return fmt.Sprintf("%.2f", h) })),
		}
		if showStatus {
			st := r.Status.Value
			text := st.String()
			if !r.Status.Editable {
				text += " (locked)"
			}
			row = append(row, cell{text: text, c: statusColor(st)})
		}
		rows = append(rows, row)
	}
	printTable(w, headers, rows)

	var flags []string
	if e.Overlapping() {
		flags = append(flags, errColor.Sprint("overlapping rows"))
	}
	if e.Invalid() {
		flags = append(flags, errColor.Sprint("invalid"))
	}
	if !e.CanAddNew() {
		flags = append(flags, dimColor.Sprint("read-only"))
	}
	if len(flags) > 0 {
		fmt.Fprintf(w, "\n%s\n", strings.Join(flags, ", "))
	}
}

// printPage renders one page of lookup results.
func printPage(w io.Writer, page editor.Page, offset int) {
	rows := make([][]cell, len(page.Items))
	for i, it := range page.Items {
		rows[i] = []cell{plain(it.ID), plain(it.Name)}
	}
	printTable(w, []string{"ID", "NAME"}, rows)
	fmt.Fprintln(w, dimColor.Sprintf("\n%d-%d of %d", offset+1, offset+len(page.Items), page.Count))
}
