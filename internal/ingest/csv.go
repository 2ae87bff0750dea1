// Package ingest parses a raw transaction batch into validated
// domain.Transaction records (SPEC_FULL.md §D.1). This is the one
// stdlib-only component of the ambient layer — no third-party CSV or
// date parser appears anywhere in the retrieval pack (see DESIGN.md).
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/shopspring/decimal"
)

// timestampLayouts are tried in order; the first to parse wins.
// Covers spec.md §6's accepted input formats: ISO-8601 with 'T' or
// space separator, date-only, and US MM/DD/YYYY [HH:MM:SS].
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// expectedHeader lists the columns this parser requires; they are
// matched by name, case-insensitively, in any order.
var expectedHeader = []string{"sender", "receiver", "amount", "timestamp"}

// FromCSV reads a header row (sender,receiver,amount,timestamp) plus
// one data row per transaction. An optional leading "id" column is
// accepted.
func FromCSV(r io.Reader) ([]domain.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, domain.ErrEmptyInput
		}
		return nil, fmt.Errorf("ingest: read header: %w", err)
	}

	idx, hasID, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var out []domain.Transaction
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read row: %w", err)
		}

		t, err := parseRow(row, idx, hasID)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if len(out) == 0 {
		return nil, domain.ErrEmptyInput
	}
	return out, nil
}

type columnIndex struct {
	id, sender, receiver, amount, timestamp int
}

func resolveColumns(header []string) (columnIndex, bool, error) {
	idx := columnIndex{id: -1}
	hasID := false

	positions := make(map[string]int, len(header))
	for i, col := range header {
		positions[strings.ToLower(strings.TrimSpace(col))] = i
	}

	if p, ok := positions["id"]; ok {
		idx.id = p
		hasID = true
	}

	for _, name := range expectedHeader {
		p, ok := positions[name]
		if !ok {
			return idx, false, fmt.Errorf("%w: missing column %q", domain.ErrInvalidTransaction, name)
		}
		switch name {
		case "sender":
			idx.sender = p
		case "receiver":
			idx.receiver = p
		case "amount":
			idx.amount = p
		case "timestamp":
			idx.timestamp = p
		}
	}
	return idx, hasID, nil
}

func parseRow(row []string, idx columnIndex, hasID bool) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(row[idx.amount]))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: invalid amount %q", domain.ErrInvalidTransaction, row[idx.amount])
	}

	ts, err := ParseTimestamp(strings.TrimSpace(row[idx.timestamp]))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: invalid timestamp %q", domain.ErrInvalidTransaction, row[idx.timestamp])
	}

	t := domain.Transaction{
		Sender:    strings.TrimSpace(row[idx.sender]),
		Receiver:  strings.TrimSpace(row[idx.receiver]),
		Amount:    amount,
		Timestamp: ts,
	}
	if hasID && idx.id >= 0 && idx.id < len(row) {
		t.ID = strings.TrimSpace(row[idx.id])
	}

	if err := t.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

// ParseTimestamp resolves raw against every accepted input layout and
// returns the UTC instant, so callers outside CSV ingestion (the JSON
// analysis-submission endpoint) share the same timestamp grammar.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}
