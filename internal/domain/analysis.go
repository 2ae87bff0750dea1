package domain

import "time"

// AccountType business-token classification consts live in transaction.go.

// AccountProfile is the per-account aggregate produced by the profile
// builder and enriched in place by the legitimacy filter.
type AccountProfile struct {
	AccountID        string
	Inflow           float64
	Outflow          float64
	TransactionCount int
	FirstSeen        time.Time
	LastSeen         time.Time
	Classification   AccountType

	IsPayroll             bool
	IsMerchant            bool
	IsSalary              bool
	IsEstablishedBusiness bool
}

// CycleResult is one detected circular-routing pattern (spec.md §3).
type CycleResult struct {
	RingID       string
	Nodes        []string
	Length       int
	TotalAmount  float64
	TimeSpanHrs  float64
	EdgeCount    int
	PatternTag   string
}

// SmurfingResult is one detected fan-in/fan-out pattern.
type SmurfingResult struct {
	RingID               string
	AccountID            string
	PatternTag           string // "fan_in" or "fan_out"
	UniqueCounterparties int
	TotalAmount          float64
	VelocityPerHour      float64
	WindowStart          time.Time
	WindowEnd            time.Time
}

// ShellResult is one detected layered pass-through chain.
type ShellResult struct {
	RingID        string
	PatternTag    string // always "shell"
	Chain         []string
	Intermediates []string
	TotalAmount   float64
	ShellDepth    int
}

// SuspiciousAccount is a scored, report-ready account entry.
type SuspiciousAccount struct {
	AccountID        string
	SuspicionScore   float64
	DetectedPatterns []string
	PrimaryRingID    string
	RingIDs          []string
	Classification   AccountType
	Inflow           float64
	Outflow          float64
	TransactionCount int
	Neighbors        []string
}

// FraudRing is one globally-unique ring entry in the assembled report.
type FraudRing struct {
	RingID        string
	MemberAccounts []string
	PatternType   string
	RiskScore     float64
}

// AnalysisStatus is the lifecycle state of an analysis run.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusComplete   AnalysisStatus = "complete"
	StatusError      AnalysisStatus = "error"
)

// Summary carries the aggregate counters of a completed run.
type Summary struct {
	TotalTransactions        int
	AccountsAnalyzed         int
	SuspiciousAccountsCount  int
	FraudRingsCount          int
	PatternCounts            map[string]int
	TotalAmountAtRisk        float64
	ProcessingTimeSeconds    float64
}

// AnalysisResult is the sole output of a single analysis run (spec.md
// §6). AnalysisID is opaque to the core — chosen by the caller.
type AnalysisResult struct {
	AnalysisID string
	Status     AnalysisStatus
	Summary    Summary
	Accounts   []SuspiciousAccount
	Rings      []FraudRing
	Error      string
}

// statusWire maps AnalysisStatus to the external wire string (spec.md
// §6: PENDING→"pending", PROCESSING→"processing", COMPLETED→"complete",
// FAILED→"error" — the Go status consts already use those literal
// strings, so this is the identity map kept for documentation).
func statusWire(s AnalysisStatus) string { return string(s) }

// FullResult is the polling-surface projection (spec.md §6).
type FullResult struct {
	AnalysisID string          `json:"analysis_id"`
	Status     string          `json:"status"`
	Result     *FullResultBody `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// FullResultBody is the non-null payload of FullResult once complete.
type FullResultBody struct {
	Summary            SummaryView         `json:"summary"`
	SuspiciousAccounts []SuspiciousAccount `json:"suspicious_accounts"`
	FraudRings         []FraudRing         `json:"fraud_rings"`
}

// SummaryView is the serializable projection of Summary.
type SummaryView struct {
	TotalTransactions       int            `json:"total_transactions"`
	AccountsAnalyzed        int            `json:"accounts_analyzed"`
	SuspiciousAccountsCount int            `json:"suspicious_accounts_count"`
	FraudRingsCount         int            `json:"fraud_rings_count"`
	PatternCounts           map[string]int `json:"pattern_counts"`
	TotalAmountAtRisk       float64        `json:"total_amount_at_risk"`
	ProcessingTimeSeconds   float64        `json:"processing_time_seconds"`
}

// ToFullResult converts a core AnalysisResult into its polling projection.
func (r AnalysisResult) ToFullResult() FullResult {
	out := FullResult{
		AnalysisID: r.AnalysisID,
		Status:     statusWire(r.Status),
		Error:      r.Error,
	}
	if r.Status == StatusComplete {
		out.Result = &FullResultBody{
			Summary: SummaryView{
				TotalTransactions:       r.Summary.TotalTransactions,
				AccountsAnalyzed:        r.Summary.AccountsAnalyzed,
				SuspiciousAccountsCount: r.Summary.SuspiciousAccountsCount,
				FraudRingsCount:         r.Summary.FraudRingsCount,
				PatternCounts:           r.Summary.PatternCounts,
				TotalAmountAtRisk:       r.Summary.TotalAmountAtRisk,
				ProcessingTimeSeconds:   r.Summary.ProcessingTimeSeconds,
			},
			SuspiciousAccounts: r.Accounts,
			FraudRings:         r.Rings,
		}
	}
	return out
}

// DownloadResult is the reduced, spec-frozen export shape (spec.md §6).
type DownloadResult struct {
	SuspiciousAccounts []DownloadAccount `json:"suspicious_accounts"`
	FraudRings         []DownloadRing    `json:"fraud_rings"`
	Summary            DownloadSummary   `json:"summary"`
}

type DownloadAccount struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   float64  `json:"suspicion_score"`
	DetectedPatterns []string `json:"detected_patterns"`
	RingID           string   `json:"ring_id"`
}

type DownloadRing struct {
	RingID         string   `json:"ring_id"`
	MemberAccounts []string `json:"member_accounts"`
	PatternType    string   `json:"pattern_type"`
	RiskScore      float64  `json:"risk_score"`
}

type DownloadSummary struct {
	TotalAccountsAnalyzed    int     `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int    `json:"suspicious_accounts_flagged"`
	FraudRingsDetected       int     `json:"fraud_rings_detected"`
	ProcessingTimeSeconds    float64 `json:"processing_time_seconds"`
}

// ToDownloadResult converts a completed AnalysisResult into the
// reduced export shape. processing time is rounded to three decimals
// by the caller before assignment (report package owns rounding).
func (r AnalysisResult) ToDownloadResult() DownloadResult {
	accounts := make([]DownloadAccount, 0, len(r.Accounts))
	for _, a := range r.Accounts {
		accounts = append(accounts, DownloadAccount{
			AccountID:        a.AccountID,
			SuspicionScore:   a.SuspicionScore,
			DetectedPatterns: a.DetectedPatterns,
			RingID:           a.PrimaryRingID,
		})
	}
	rings := make([]DownloadRing, 0, len(r.Rings))
	for _, ring := range r.Rings {
		rings = append(rings, DownloadRing{
			RingID:         ring.RingID,
			MemberAccounts: ring.MemberAccounts,
			PatternType:    ring.PatternType,
			RiskScore:      ring.RiskScore,
		})
	}
	return DownloadResult{
		SuspiciousAccounts: accounts,
		FraudRings:         rings,
		Summary: DownloadSummary{
			TotalAccountsAnalyzed:     r.Summary.AccountsAnalyzed,
			SuspiciousAccountsFlagged: r.Summary.SuspiciousAccountsCount,
			FraudRingsDetected:        r.Summary.FraudRingsCount,
			ProcessingTimeSeconds:     r.Summary.ProcessingTimeSeconds,
		},
	}
}

// GraphNode and GraphEdge back the visualization projection (spec.md §6).
type GraphNode struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	AccountType      string   `json:"account_type"`
	SuspicionScore   float64  `json:"suspicion_score"`
	Inflow           float64  `json:"inflow"`
	Outflow          float64  `json:"outflow"`
	TransactionCount int      `json:"transaction_count"`
	IsSuspicious     bool     `json:"is_suspicious"`
	RingIDs          []string `json:"ring_ids"`
	Patterns         []string `json:"patterns"`
	DetectedPatterns []string `json:"detected_patterns"`
}

type GraphEdge struct {
	Source           string  `json:"source"`
	Target           string  `json:"target"`
	Amount           float64 `json:"amount"`
	TransactionCount int     `json:"transaction_count"`
	IsSuspicious     bool    `json:"is_suspicious"`
	PatternType      string  `json:"pattern_type"`
}

// GraphProjection is the visualization-surface output (spec.md §6).
type GraphProjection struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// SuspiciousThreshold is the score at which a node/edge is flagged
// is_suspicious in the graph projection (spec.md §6).
const SuspiciousThreshold = 25.0
