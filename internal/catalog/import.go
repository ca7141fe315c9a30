// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/models"
)

// Import formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// csvColumns holds the header positions of the required CSV columns.
// Column order is free and extra columns are ignored.
type csvColumns struct {
	title  int
	year   int
	genre  int
	author int
}

// importRow is one parsed input row. Number is 1-based and excludes
// the CSV header.
type importRow struct {
	Number int
	Input  models.BookInput
	Err    error
}

// BulkImport parses the payload and inserts each valid row. A bad row
// never aborts the batch; failures are reported per row in the order
// they appeared.
func (s *Service) BulkImport(ctx context.Context, format string, r io.Reader) (models.ImportReport, error) {
	var (
		rows []importRow
		err  error
	)
	switch strings.ToLower(format) {
	case FormatCSV:
		rows, err = parseCSV(r)
	case FormatJSON:
		rows, err = parseJSON(r)
	default:
		return models.ImportReport{}, fmt.Errorf("unsupported import format %q", format)
	}
	if err != nil {
		return models.ImportReport{}, err
	}

	report := models.ImportReport{Errors: []string{}}
	for _, row := range rows {
		report.TotalProcessed++

		if row.Err == nil {
			row.Err = ValidateInput(row.Input)
		}
		if row.Err == nil {
			if _, createErr := s.Create(ctx, row.Input); createErr != nil {
				if errors.Is(createErr, ErrDuplicate) {
					row.Err = ErrDuplicate
				} else {
					row.Err = createErr
				}
			}
		}

		if row.Err != nil {
			report.FailedImports++
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: %s", row.Number, row.Err))
			metrics.ImportRowsTotal.WithLabelValues("failed").Inc()
			continue
		}
		report.SuccessfulImports++
		metrics.ImportRowsTotal.WithLabelValues("ok").Inc()
	}
	return report, nil
}

// parseCSV reads rows addressed by header name. The header row is
// required and must name title, published_year, genre and author_name;
// column order is free and unknown columns are ignored.
func parseCSV(r io.Reader) ([]importRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := mapCSVHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []importRow
	n := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			// Reader failures (body size cap, closed connection) are
			// persistent; only record-level parse errors are per-row.
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		n++
		row := importRow{Number: n}
		switch {
		case err != nil:
			row.Err = fmt.Errorf("malformed CSV record: %v", err)
		default:
			year, convErr := strconv.Atoi(strings.TrimSpace(record[cols.year]))
			if convErr != nil {
				row.Err = fmt.Errorf("published_year %q is not a number", record[cols.year])
				break
			}
			row.Input = models.BookInput{
				Title:         record[cols.title],
				PublishedYear: year,
				Genre:         record[cols.genre],
				AuthorName:    record[cols.author],
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func mapCSVHeader(header []string) (csvColumns, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var cols csvColumns
	for name, dst := range map[string]*int{
		"title":          &cols.title,
		"published_year": &cols.year,
		"genre":          &cols.genre,
		"author_name":    &cols.author,
	} {
		i, ok := index[name]
		if !ok {
			return csvColumns{}, fmt.Errorf("CSV header is missing column %q", name)
		}
		*dst = i
	}
	return cols, nil
}

// parseJSON reads a JSON array of book inputs.
func parseJSON(r io.Reader) ([]importRow, error) {
	var inputs []models.BookInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON array: %w", err)
	}

	rows := make([]importRow, len(inputs))
	for i, input := range inputs {
		rows[i] = importRow{Number: i + 1, Input: input}
	}
	return rows, nil
}
