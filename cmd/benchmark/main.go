// Benchmark tool for exercising mulewatch against synthetic transaction
// batches with planted money-muling patterns.
//
// Usage:
//
//	go run cmd/benchmark/main.go -url http://localhost:8080 -accounts 500 -cycles 20 -fans 20 -shells 20
//
// This tool:
//  1. Generates a synthetic transaction graph: a pool of "clean" noise
//     accounts plus a configurable number of planted cycle, fan-in
//     (smurfing), and shell-chain patterns.
//  2. Submits the batch to POST /analyses and polls GET /analyses/{id}
//     until it completes.
//  3. Reports how many of the planted rings were recovered, plus
//     detector throughput and wall-clock latency.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"
)

type transactionInput struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

type analysisRequest struct {
	Transactions []transactionInput `json:"transactions"`
}

type analysisAccepted struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
}

type fraudRing struct {
	RingID         string   `json:"RingID"`
	MemberAccounts []string `json:"MemberAccounts"`
	PatternType    string   `json:"PatternType"`
	RiskScore      float64  `json:"RiskScore"`
}

type summaryView struct {
	TotalTransactions       int            `json:"total_transactions"`
	AccountsAnalyzed        int            `json:"accounts_analyzed"`
	SuspiciousAccountsCount int            `json:"suspicious_accounts_count"`
	FraudRingsCount         int            `json:"fraud_rings_count"`
	PatternCounts           map[string]int `json:"pattern_counts"`
	TotalAmountAtRisk       float64        `json:"total_amount_at_risk"`
	ProcessingTimeSeconds   float64        `json:"processing_time_seconds"`
}

type fullResultBody struct {
	Summary    summaryView `json:"summary"`
	FraudRings []fraudRing `json:"fraud_rings"`
}

type analysisResult struct {
	AnalysisID string          `json:"analysis_id"`
	Status     string          `json:"status"`
	Result     *fullResultBody `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// plantedRing records a pattern this tool injected so detection can be
// scored against ground truth.
type plantedRing struct {
	Kind     string
	Accounts map[string]bool
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "mulewatch base URL")
	noiseAccounts := flag.Int("accounts", 200, "number of clean noise accounts")
	noiseTxns := flag.Int("noise-txns", 1000, "number of clean noise transactions")
	cycles := flag.Int("cycles", 10, "number of planted cycles (length 3-5)")
	fans := flag.Int("fans", 10, "number of planted fan-in smurfing patterns")
	shells := flag.Int("shells", 10, "number of planted shell chains")
	seed := flag.Int64("seed", 42, "random seed")
	pollInterval := flag.Duration("poll", 500*time.Millisecond, "status poll interval")
	timeout := flag.Duration("timeout", 60*time.Second, "max time to wait for completion")
	flag.Parse()

	fmt.Println("mulewatch benchmark: synthetic transaction generator")
	fmt.Printf("  URL:            %s\n", *baseURL)
	fmt.Printf("  Noise accounts: %d (%d txns)\n", *noiseAccounts, *noiseTxns)
	fmt.Printf("  Planted cycles: %d\n", *cycles)
	fmt.Printf("  Planted fans:   %d\n", *fans)
	fmt.Printf("  Planted shells: %d\n", *shells)

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: mulewatch not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure mulewatch is running:")
		fmt.Println("  go run cmd/mulewatch/main.go")
		os.Exit(1)
	}
	fmt.Println("mulewatch is healthy")

	rng := rand.New(rand.NewSource(*seed))
	txns, planted := generateBatch(rng, *noiseAccounts, *noiseTxns, *cycles, *fans, *shells)
	fmt.Printf("\nGenerated %d transactions across %d planted rings\n", len(txns), len(planted))

	start := time.Now()
	analysisID, err := submitAnalysis(*baseURL, txns)
	if err != nil {
		fmt.Printf("ERROR: failed to submit analysis: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("submitted analysis %s, waiting for completion...\n", analysisID)

	result, err := pollUntilDone(*baseURL, analysisID, *pollInterval, *timeout)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	printResults(result, planted, elapsed)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func submitAnalysis(baseURL string, txns []transactionInput) (string, error) {
	body, err := json.Marshal(analysisRequest{Transactions: txns})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(baseURL+"/analyses", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("status %d submitting analysis", resp.StatusCode)
	}

	var accepted analysisAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", err
	}
	return accepted.AnalysisID, nil
}

func pollUntilDone(baseURL, analysisID string, interval, timeout time.Duration) (*analysisResult, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("%s/analyses/%s", baseURL, analysisID))
		if err != nil {
			return nil, err
		}

		var result analysisResult
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, decodeErr
		}

		switch result.Status {
		case "complete":
			return &result, nil
		case "error":
			return nil, fmt.Errorf("analysis failed: %s", result.Error)
		}

		time.Sleep(interval)
	}
	return nil, fmt.Errorf("timed out waiting for analysis to complete")
}

// generateBatch builds a noise pool of randomly-connected clean
// accounts plus planted cycle/fan/shell patterns, returning the full
// shuffled transaction list alongside the ground-truth ring membership.
func generateBatch(rng *rand.Rand, noiseAccounts, noiseTxns, cycles, fans, shells int) ([]transactionInput, []plantedRing) {
	var txns []transactionInput
	var planted []plantedRing

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	idSeq := 0
	nextAccount := func(prefix string) string {
		idSeq++
		return fmt.Sprintf("%s-%04d", prefix, idSeq)
	}

	noise := make([]string, noiseAccounts)
	for i := range noise {
		noise[i] = nextAccount("acct")
	}
	for i := 0; i < noiseTxns; i++ {
		from := noise[rng.Intn(len(noise))]
		to := noise[rng.Intn(len(noise))]
		if from == to {
			continue
		}
		txns = append(txns, txn(from, to, randomAmount(rng, 10, 2000), base.Add(time.Duration(rng.Intn(90*24))*time.Hour)))
	}

	for i := 0; i < cycles; i++ {
		length := 3 + rng.Intn(3)
		members := make([]string, length)
		for j := range members {
			members[j] = nextAccount("cyc")
		}
		t0 := base.Add(time.Duration(rng.Intn(60*24)) * time.Hour)
		amount := randomAmount(rng, 5000, 50000)
		ringAccounts := make(map[string]bool, length)
		for j := 0; j < length; j++ {
			from := members[j]
			to := members[(j+1)%length]
			ringAccounts[from] = true
			txns = append(txns, txn(from, to, amount, t0.Add(time.Duration(j)*2*time.Hour)))
		}
		planted = append(planted, plantedRing{Kind: "cycle", Accounts: ringAccounts})
	}

	for i := 0; i < fans; i++ {
		hub := nextAccount("fan")
		senderCount := 12 + rng.Intn(10)
		t0 := base.Add(time.Duration(rng.Intn(60*24)) * time.Hour)
		ringAccounts := map[string]bool{hub: true}
		for j := 0; j < senderCount; j++ {
			sender := nextAccount("mule")
			txns = append(txns, txn(sender, hub, randomAmount(rng, 500, 3000), t0.Add(time.Duration(j)*30*time.Minute)))
		}
		txns = append(txns, txn(hub, nextAccount("sink"), randomAmount(rng, 5000, 20000), t0.Add(time.Duration(senderCount)*30*time.Minute)))
		planted = append(planted, plantedRing{Kind: "fan_in", Accounts: ringAccounts})
	}

	for i := 0; i < shells; i++ {
		chainLen := 4 + rng.Intn(3)
		members := make([]string, chainLen)
		for j := range members {
			members[j] = nextAccount("shell")
		}
		t0 := base.Add(time.Duration(rng.Intn(60*24)) * time.Hour)
		amount := randomAmount(rng, 8000, 40000)
		ringAccounts := make(map[string]bool, chainLen)
		for j := 0; j < chainLen-1; j++ {
			ringAccounts[members[j]] = true
			txns = append(txns, txn(members[j], members[j+1], amount, t0.Add(time.Duration(j)*time.Hour)))
		}
		ringAccounts[members[chainLen-1]] = true
		planted = append(planted, plantedRing{Kind: "shell", Accounts: ringAccounts})
	}

	rng.Shuffle(len(txns), func(i, j int) { txns[i], txns[j] = txns[j], txns[i] })
	return txns, planted
}

func txn(from, to string, amount float64, ts time.Time) transactionInput {
	return transactionInput{
		Sender:    from,
		Receiver:  to,
		Amount:    strconv.FormatFloat(amount, 'f', 2, 64),
		Timestamp: ts.Format(time.RFC3339),
	}
}

func randomAmount(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

func printResults(result *analysisResult, planted []plantedRing, elapsed time.Duration) {
	fmt.Println("\n=== BENCHMARK RESULTS ===")
	fmt.Printf("Status:                  %s\n", result.Status)
	if result.Result == nil {
		fmt.Println("(no result body)")
		return
	}
	s := result.Result.Summary
	fmt.Printf("Accounts analyzed:       %d\n", s.AccountsAnalyzed)
	fmt.Printf("Suspicious accounts:     %d\n", s.SuspiciousAccountsCount)
	fmt.Printf("Rings detected:          %d\n", s.FraudRingsCount)
	fmt.Printf("Amount at risk:          %.2f\n", s.TotalAmountAtRisk)
	fmt.Printf("Detector processing:     %.3fs\n", s.ProcessingTimeSeconds)
	fmt.Printf("Wall-clock (incl HTTP):  %v\n", elapsed.Round(time.Millisecond))

	rings := result.Result.FraudRings
	recovered := 0
	for _, p := range planted {
		if ringRecovered(p, rings) {
			recovered++
		}
	}
	fmt.Printf("\nPlanted rings recovered: %d / %d (%.1f%%)\n",
		recovered, len(planted), 100*float64(recovered)/float64(len(planted)))

	byKind := map[string]int{}
	for _, r := range rings {
		byKind[r.PatternType]++
	}
	fmt.Println("\nDetected rings by pattern type:")
	for kind, count := range byKind {
		fmt.Printf("  %-10s %d\n", kind, count)
	}
}

// ringRecovered reports whether any detected ring of the same kind
// contains at least half of a planted ring's accounts.
func ringRecovered(p plantedRing, detected []fraudRing) bool {
	for _, ring := range detected {
		if ring.PatternType != p.Kind {
			continue
		}
		overlap := 0
		for _, acct := range ring.MemberAccounts {
			if p.Accounts[acct] {
				overlap++
			}
		}
		if overlap*2 >= len(p.Accounts) {
			return true
		}
	}
	return false
}
