package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"jobmedic/internal/slurm"
)

// TableSink collects failure records and draws them as a bordered table on
// Close. The first column is left-aligned and the remaining columns are
// right-aligned; header cells are always left-aligned.
type TableSink struct {
	writer io.Writer
	mu     sync.Mutex
	rows   [][]string
}

func NewTableSink(w io.Writer) (*TableSink, error) {
	if w == nil {
		return nil, fmt.Errorf("table sink writer must not be nil")
	}
	return &TableSink{writer: w}, nil
}

func (s *TableSink) Write(v any) error {
	r, ok := v.(slurm.Record)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r.Row())
	return nil
}

func (s *TableSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.writer, renderTable(slurm.Header(), s.rows)); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(rule(widths, '-'))

	bold := color.New(color.Bold).SprintFunc()
	b.WriteString("|")
	for i, h := range header {
		b.WriteString(" ")
		b.WriteString(bold(h))
		b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(h)))
		b.WriteString(" |")
	}
	b.WriteString("\n")
	b.WriteString(rule(widths, '='))

	for _, row := range rows {
		b.WriteString("|")
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(" ")
			if i == 0 {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			} else {
				b.WriteString(runewidth.FillLeft(cell, widths[i]))
			}
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	b.WriteString(rule(widths, '-'))
	return b.String()
}

func rule(widths []int, fill rune) string {
	var b strings.Builder
	b.WriteString("+")
	for _, w := range widths {
		b.WriteString(strings.Repeat(string(fill), w+2))
		b.WriteString("+")
	}
	b.WriteString("\n")
	return b.String()
}
