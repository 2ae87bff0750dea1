package legitimacy

import (
	"testing"
	"time"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/shopspring/decimal"
)

func tx(sender, receiver string, amount float64, ts time.Time) domain.Transaction {
	return domain.Transaction{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    decimal.NewFromFloat(amount),
		Timestamp: ts,
	}
}

func buildProfiles(t *testing.T, txns []domain.Transaction) (*graph.Graph, map[string]*domain.AccountProfile) {
	t.Helper()
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g, graph.BuildProfiles(g)
}

func TestIsPayrollRegularMonthlyDeposits(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var txns []domain.Transaction
	for i := 0; i < 6; i++ {
		txns = append(txns, tx("employer", "worker", 3000, base.AddDate(0, i, 0)))
	}
	// a trickle of unrelated inbound noise that keeps the dominant
	// sender ratio above 0.80.
	txns = append(txns, tx("friend", "worker", 50, base.AddDate(0, 1, 2)))

	g, profiles := buildProfiles(t, txns)
	Apply(g, profiles)

	if !profiles["worker"].IsPayroll {
		t.Fatalf("expected worker to be classified as payroll")
	}
}

func TestIsPayrollFalseForIrregularDeposits(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		tx("a", "worker", 100, base),
		tx("b", "worker", 5000, base.Add(24*time.Hour)),
		tx("c", "worker", 10, base.Add(48*time.Hour)),
	}
	g, profiles := buildProfiles(t, txns)
	Apply(g, profiles)

	if profiles["worker"].IsPayroll {
		t.Fatalf("did not expect worker to be classified as payroll")
	}
}

func TestIsMerchantByBusinessToken(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		tx("customer", "acme-store", 50, base),
	}
	g, profiles := buildProfiles(t, txns)
	Apply(g, profiles)

	if !profiles["acme-store"].IsMerchant {
		t.Fatalf("expected acme-store to be classified as merchant via business token")
	}
}

func TestIsEstablishedBusinessRequiresHistoryAndCounterparties(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var txns []domain.Transaction
	for i := 0; i < 25; i++ {
		counterparty := "cust" + string(rune('a'+i%15))
		txns = append(txns, tx(counterparty, "longtime-corp", 20, base.AddDate(0, 0, i*8)))
	}
	g, profiles := buildProfiles(t, txns)
	Apply(g, profiles)

	if !profiles["longtime-corp"].IsEstablishedBusiness {
		t.Fatalf("expected longtime-corp to qualify as established business")
	}
}

func TestIsEstablishedBusinessFalseForShortHistory(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var txns []domain.Transaction
	for i := 0; i < 25; i++ {
		counterparty := "cust" + string(rune('a'+i%15))
		txns = append(txns, tx(counterparty, "newbiz", 20, base.Add(time.Duration(i)*time.Hour)))
	}
	g, profiles := buildProfiles(t, txns)
	Apply(g, profiles)

	if profiles["newbiz"].IsEstablishedBusiness {
		t.Fatalf("did not expect newbiz (short history) to qualify as established business")
	}
}
