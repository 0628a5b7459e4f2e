// FILE: src/internal/export/exporter.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"
	"time"
)

// Exporter writes tabular data (a list of flat mappings) in one of the
// supported formats. Column order follows the first row's keys, sorted, so
// output is deterministic.
type Exporter struct {
	rows []map[string]any
}

// SupportedFormats lists the valid format names for Export.
var SupportedFormats = []string{"csv", "json", "html", "md", "txt"}

// New creates an exporter over rows. Rows are referenced, not copied.
func New(rows []map[string]any) *Exporter {
	return &Exporter{rows: rows}
}

// Export writes the rows to path in the given format.
func (e *Exporter) Export(path, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return e.exportJSON(path)
	case "csv":
		return e.exportCSV(path)
	case "html":
		return e.exportHTML(path)
	case "md":
		return e.exportMarkdown(path)
	case "txt":
		return e.exportTxt(path)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func (e *Exporter) keys() []string {
	if len(e.rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.rows[0]))
	for k := range e.rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cell(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (e *Exporter) exportJSON(path string) error {
	data, err := json.MarshalIndent(e.rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func (e *Exporter) exportCSV(path string) error {
	if len(e.rows) == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	keys := e.keys()
	w := csv.NewWriter(f)
	if err := w.Write(keys); err != nil {
		return err
	}
	for _, row := range e.rows {
		record := make([]string, len(keys))
		for i, k := range keys {
			record[i] = cell(row, k)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (e *Exporter) exportHTML(path string) error {
	if len(e.rows) == 0 {
		return nil
	}

	keys := e.keys()
	var b strings.Builder

	b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Export %s</title>\n", time.Now().Format(time.RFC3339))
	b.WriteString("<style>\ntable { border-collapse: collapse; }\nth, td { border: 1px solid #444; padding: 6px; }\n</style>\n")
	b.WriteString("</head>\n<body>\n<table>\n<thead>\n<tr>")
	for _, k := range keys {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(k))
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range e.rows {
		b.WriteString("<tr>")
		for _, k := range keys {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(cell(row, k)))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n</body>\n</html>\n")

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func (e *Exporter) exportMarkdown(path string) error {
	if len(e.rows) == 0 {
		return nil
	}

	keys := e.keys()
	lines := []string{
		"| " + strings.Join(keys, " | ") + " |",
		"| " + strings.Join(repeat("---", len(keys)), " | ") + " |",
	}
	for _, row := range e.rows {
		cells := make([]string, len(keys))
		for i, k := range keys {
			cells[i] = cell(row, k)
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}

func (e *Exporter) exportTxt(path string) error {
	if len(e.rows) == 0 {
		return nil
	}

	keys := e.keys()
	lines := []string{strings.Join(keys, "\t")}
	for _, row := range e.rows {
		cells := make([]string, len(keys))
		for i, k := range keys {
			cells[i] = cell(row, k)
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
