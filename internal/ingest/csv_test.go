package ingest

import (
	"strings"
	"testing"

	"github.com/mulewatch/mulewatch/internal/domain"
)

func TestFromCSVParsesBasicBatch(t *testing.T) {
	input := "sender,receiver,amount,timestamp\na,b,100.50,2026-01-01T00:00:00Z\nb,c,25,2026-01-02\n"
	txns, err := FromCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	if txns[0].Sender != "a" || txns[0].Receiver != "b" {
		t.Fatalf("unexpected first row: %+v", txns[0])
	}
	if f, _ := txns[0].Amount.Float64(); f != 100.50 {
		t.Fatalf("expected amount 100.50, got %v", f)
	}
}

func TestFromCSVEmptyReturnsErrEmptyInput(t *testing.T) {
	_, err := FromCSV(strings.NewReader(""))
	if err != domain.ErrEmptyInput {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestFromCSVHeaderOnlyReturnsErrEmptyInput(t *testing.T) {
	_, err := FromCSV(strings.NewReader("sender,receiver,amount,timestamp\n"))
	if err != domain.ErrEmptyInput {
		t.Fatalf("expected ErrEmptyInput for header-only input, got %v", err)
	}
}

func TestFromCSVMissingColumnErrors(t *testing.T) {
	_, err := FromCSV(strings.NewReader("sender,receiver,amount\na,b,10\n"))
	if err == nil {
		t.Fatalf("expected error for missing timestamp column")
	}
}

func TestFromCSVWithOptionalIDColumn(t *testing.T) {
	input := "id,sender,receiver,amount,timestamp\ntxn-1,a,b,10,2026-01-01\n"
	txns, err := FromCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	if txns[0].ID != "txn-1" {
		t.Fatalf("expected ID txn-1, got %q", txns[0].ID)
	}
}

func TestParseTimestampAcceptsMultipleLayouts(t *testing.T) {
	layouts := []string{
		"2026-01-01T12:30:00Z",
		"2026-01-01 12:30:00",
		"2026-01-01",
		"01/15/2026 09:00:00",
		"01/15/2026",
	}
	for _, raw := range layouts {
		if _, err := ParseTimestamp(raw); err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", raw, err)
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	if _, err := ParseTimestamp("not-a-date"); err == nil {
		t.Fatalf("expected error for unparseable timestamp")
	}
}
