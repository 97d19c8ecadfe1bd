package document

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// TextLoader loads plain-text files as a single page.
type TextLoader struct{}

func (l *TextLoader) Load(path, source string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	return []Page{{
		Content:  string(data),
		Source:   source,
		FileType: "text",
	}}, nil
}

// MarkdownLoader loads Markdown files. The raw markdown is kept as
// content; rendering is left to consumers.
type MarkdownLoader struct{}

func (l *MarkdownLoader) Load(path, source string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown file: %w", err)
	}
	return []Page{{
		Content:  string(data),
		Source:   source,
		FileType: "markdown",
	}}, nil
}

// CSVLoader loads CSV files and renders them as an aligned text table
// so tabular data survives chunking in a readable form.
type CSVLoader struct{}

func (l *CSVLoader) Load(path, source string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := 0
	for _, rec := range records {
		if len(rec) > columns {
			columns = len(rec)
		}
	}
	widths := make([]int, columns)
	for _, rec := range records {
		for i, field := range rec {
			if len(field) > widths[i] {
				widths[i] = len(field)
			}
		}
	}

	var b strings.Builder
	for _, rec := range records {
		for i, field := range rec {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(field)
			if pad := widths[i] - len(field); pad > 0 && i < len(rec)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}

	return []Page{{
		Content:  b.String(),
		Source:   source,
		FileType: "csv",
		Metadata: map[string]any{
			"rows":    len(records),
			"columns": columns,
		},
	}}, nil
}
