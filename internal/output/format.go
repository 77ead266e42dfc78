// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evanschultz/tasklist/internal/domain"
)

// DefaultDateFormat renders creation times as e.g. "Jan 1, 2024, 12:00 AM".
const DefaultDateFormat = "Jan 2, 2006, 03:04 PM"

// EmptyListMessage is printed when the collection has no tasks.
const EmptyListMessage = "No tasks yet"

// TimeOptions controls how creation times are rendered.
type TimeOptions struct {
	DateFormat string
	Relative   bool
	Now        func() time.Time
}

// CreatedLabel renders the "Created: ..." caption for one task.
// Tasks without a creation time yield an empty label.
func CreatedLabel(createdAt time.Time, opts TimeOptions) string {
	if createdAt.IsZero() {
		return ""
	}
	return "Created: " + formatTime(createdAt, opts)
}

// formatTime renders an absolute local time, optionally followed by a relative hint.
func formatTime(at time.Time, opts TimeOptions) string {
	layout := strings.TrimSpace(opts.DateFormat)
	if layout == "" {
		layout = DefaultDateFormat
	}
	out := at.Local().Format(layout)
	if !opts.Relative {
		return out
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return out + " (" + humanize.RelTime(at, now(), "ago", "from now") + ")"
}

// FormatTask formats one task line.
// Format: "{N:>4}  {ID}  {TITLE}\n" followed by an indented creation caption when known.
func FormatTask(w io.Writer, num int, task domain.Task, opts TimeOptions) {
	fmt.Fprintf(w, "%4d  %s  %s\n", num, task.ID, task.DisplayTitle())
	if label := CreatedLabel(task.CreatedAt, opts); label != "" {
		fmt.Fprintf(w, "      %s\n", label)
	}
}

// WritePlain writes the whole collection in server order.
func WritePlain(w io.Writer, tasks []domain.Task, opts TimeOptions) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, EmptyListMessage)
		return
	}
	for i, task := range tasks {
		FormatTask(w, i+1, task, opts)
	}
}

// Markdown renders the collection as a markdown document with one table row per task.
func Markdown(tasks []domain.Task, opts TimeOptions) string {
	var b strings.Builder
	b.WriteString("# Tasks\n\n")
	if len(tasks) == 0 {
		b.WriteString("_" + EmptyListMessage + "_\n")
		return b.String()
	}
	b.WriteString("| # | ID | Title | Created |\n")
	b.WriteString("| --: | --- | --- | --- |\n")
	for i, task := range tasks {
		created := ""
		if !task.CreatedAt.IsZero() {
			created = formatTime(task.CreatedAt, opts)
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s |\n", i+1, escapeCell(task.ID), escapeCell(task.DisplayTitle()), escapeCell(created))
	}
	return b.String()
}

// escapeCell keeps cell text from breaking the table layout.
func escapeCell(text string) string {
	return strings.ReplaceAll(text, "|", `\|`)
}
