// Package extract provides extractors that feed raw records into the
// indexing pipeline.
package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/macrolabs/risklake/pkg/indexer"
)

// CSVExtractor reads one CSV file per run. The first row is the header; each
// following row becomes a raw record keyed by the lowercased header names.
// The file is reopened on every Extract call, so the sequence is restartable.
type CSVExtractor struct {
	path string
}

func NewCSVExtractor(path string) *CSVExtractor {
	return &CSVExtractor{path: path}
}

func (e *CSVExtractor) Extract(ctx context.Context) iter.Seq2[indexer.RawRecord, error] {
	return func(yield func(indexer.RawRecord, error) bool) {
		f, err := os.Open(e.path)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open %s: %w", e.path, err))
			return
		}
		defer f.Close()

		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true

		header, err := r.Read()
		if err != nil {
			yield(nil, fmt.Errorf("failed to read header of %s: %w", e.path, err))
			return
		}
		for i, name := range header {
			header[i] = strings.ToLower(strings.TrimSpace(name))
		}

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			row, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to read %s: %w", e.path, err))
				return
			}
			record := make(indexer.RawRecord, len(header))
			for i, value := range row {
				if i >= len(header) {
					break
				}
				record[header[i]] = value
			}
			if !yield(record, nil) {
				return
			}
		}
	}
}
