package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor converts tabular data to chunkable text. The first row is
// read as the header; every following row becomes one "Header: Value, ..."
// paragraph so a retrieved chunk is meaningful without the table around it.
type CSVExtractor struct{}

var _ Extractor = (*CSVExtractor)(nil)

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor() *CSVExtractor { return &CSVExtractor{} }

func (e *CSVExtractor) Extract(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(content)) == 0 {
		return "", nil
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", fmt.Errorf("ingest: extract csv: header: %w", err)
	}

	var b strings.Builder
	row := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("ingest: extract csv: row %d: %w", row+1, err)
		}
		row++

		var cells []string
		for i, v := range record {
			v = strings.TrimSpace(v)
			if v == "" || i >= len(header) {
				continue
			}
			cells = append(cells, header[i]+": "+v)
		}
		if len(cells) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(cells, ", "))
	}
	return b.String(), nil
}
