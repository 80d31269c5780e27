package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// byteSize prints as a human size in tables and as a number in JSON.
type byteSize int64

func (b byteSize) String() string {
	if b < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(b))
}

// record is one output row. Keys double as JSON field names and, in
// columns order, as table headers.
type record map[string]any

type printer struct {
	w       io.Writer
	json    bool
	columns []string
	rows    []record
}

// newPrinter picks JSON lines for mode "json", a table for "table", and for
// "auto" a table only when w is a terminal.
func newPrinter(w io.Writer, mode string, columns ...string) *printer {
	asJSON := mode == "json"
	if mode == "auto" || mode == "" {
		asJSON = !isTerminal(w)
	}
	return &printer{w: w, json: asJSON, columns: columns}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// add buffers a row for tables and streams it for JSON.
func (p *printer) add(r record) error {
	if p.json {
		return json.NewEncoder(p.w).Encode(r)
	}
	p.rows = append(p.rows, r)
	return nil
}

// flush renders the buffered table.
func (p *printer) flush() error {
	if p.json || len(p.rows) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(p.rows))
	for _, r := range p.rows {
		row := make([]string, len(p.columns))
		for i, c := range p.columns {
			row[i] = cell(r[c])
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		Headers(p.columns...).
		Rows(rows...)

	_, err := fmt.Fprintln(p.w, t.String())
	return err
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
