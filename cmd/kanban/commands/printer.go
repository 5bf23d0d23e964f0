package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"kanban/internal/models"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed, color.Bold)
	cyan  = color.New(color.FgCyan, color.Bold)
	faint = color.New(color.Faint)
)

type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Success(msg string) {
	green.Fprintf(p.w, "✓ %s\n", msg)
}

func (p *printer) Error(err error) {
	red.Fprintf(p.w, "Error: %s\n", err)
}

func (p *printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Board prints every list followed by its projects, indented.
func (p *printer) Board(lists []models.List) {
	for i, l := range lists {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		cyan.Fprintf(p.w, "%s", l.Name)
		faint.Fprintf(p.w, "  %s  (%d)\n", l.ID, len(l.Projects))
		for _, pr := range l.Projects {
			fmt.Fprintf(p.w, "  - %s", pr.Title)
			faint.Fprintf(p.w, "  %s\n", pr.ID)
			if d := strings.TrimSpace(pr.Description); d != "" {
				fmt.Fprintf(p.w, "      %s\n", d)
			}
		}
	}
}
