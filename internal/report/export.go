// Package report serializes an engine.Report into the wire schema
// consumed downstream (the API response body, the Elasticsearch ring
// index, and the archived per-run JSON object).
package report

import (
	"sort"
	"time"

	"github.com/banking/muling-detector/internal/engine"
	"github.com/banking/muling-detector/internal/ledger"
)

// Pattern labels, verbatim as required by the export schema.
const (
	labelCircularRouting = "Circular Fund Routing"
	labelSmurfingFanIn   = "Smurfing (Fan-in)"
	labelSmurfingFanOut  = "Smurfing (Fan-out)"
	labelLayeredShell    = "Layered Shell Network"
)

// SuspiciousAccountEntry is one row of the export's suspicious_accounts
// list.
type SuspiciousAccountEntry struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   float64  `json:"suspicion_score"`
	DetectedPatterns []string `json:"detected_patterns"`
	RingID           string   `json:"ring_id"`
}

// FraudRingEntry is one row of the export's fraud_rings list.
type FraudRingEntry struct {
	RingID           string   `json:"ring_id"`
	Pattern          string   `json:"pattern"`
	InvolvedAccounts []string `json:"involved_accounts"`
	TotalAmount      float64  `json:"total_amount"`
	RiskScore        float64 `json:"risk_score"`
}

// Summary is the export's summary block.
type Summary struct {
	TotalAccountsAnalyzed     int     `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int     `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int     `json:"fraud_rings_detected"`
	ProcessingTimeSeconds     float64 `json:"processing_time_seconds"`
}

// Export is the full §6 export JSON document.
type Export struct {
	SuspiciousAccounts []SuspiciousAccountEntry `json:"suspicious_accounts"`
	FraudRings         []FraudRingEntry         `json:"fraud_rings"`
	Summary            Summary                  `json:"summary"`
}

// Build converts a completed engine.Report into the export schema.
// elapsed is the wall-clock duration of the Analyze call as measured
// by the caller (the core itself reads no clock).
func Build(r engine.Report, txAmounts map[string]ledger.Money, elapsed time.Duration) Export {
	ringsByAccount := make(map[ledger.AcctID][]engine.Ring)
	for _, ring := range r.FraudRings {
		for _, m := range ring.Members {
			ringsByAccount[m] = append(ringsByAccount[m], ring)
		}
	}

	accounts := make([]SuspiciousAccountEntry, 0, len(r.SuspiciousAccounts))
	for _, acct := range r.SuspiciousAccounts {
		memberships := ringsByAccount[acct.AccountID]
		accounts = append(accounts, SuspiciousAccountEntry{
			AccountID:        string(acct.AccountID),
			SuspicionScore:   round1dp(float64(acct.SuspicionScore)),
			DetectedPatterns: detectedPatterns(acct, memberships),
			RingID:           primaryRingID(memberships),
		})
	}

	rings := make([]FraudRingEntry, 0, len(r.FraudRings))
	for _, ring := range r.FraudRings {
		members := make([]string, len(ring.Members))
		for i, m := range ring.Members {
			members[i] = string(m)
		}
		rings = append(rings, FraudRingEntry{
			RingID:           ring.ID,
			Pattern:          patternLabel(ring),
			InvolvedAccounts: members,
			TotalAmount:      round2dp(sumTxAmounts(ring.Evidence.TxIDs, txAmounts)),
			RiskScore:        round1dp(float64(ring.RiskScore)),
		})
	}

	return Export{
		SuspiciousAccounts: accounts,
		FraudRings:         rings,
		Summary: Summary{
			TotalAccountsAnalyzed:     len(r.Graph.Nodes),
			SuspiciousAccountsFlagged: len(r.SuspiciousAccounts),
			FraudRingsDetected:        len(r.FraudRings),
			ProcessingTimeSeconds:     round3dp(elapsed.Seconds()),
		},
	}
}

// patternLabel distinguishes fan-in from fan-out within the Smurfing
// pattern family by the ring's pattern type (Smurfing is fan-in,
// Dispersal is fan-out), giving §6's four required labels.
func patternLabel(ring engine.Ring) string {
	switch ring.Pattern {
	case engine.PatternCircularRouting:
		return labelCircularRouting
	case engine.PatternLayeredShell:
		return labelLayeredShell
	case engine.PatternSmurfing:
		return labelSmurfingFanIn
	case engine.PatternDispersal:
		return labelSmurfingFanOut
	default:
		return string(ring.Pattern)
	}
}

// detectedPatterns prefers the specific pattern label of every ring
// the account belongs to; if the account has no ring membership, it
// falls back to the Cycle and Layering flags, per §6. The Smurfing
// flag alone yields no label, since it does not say fan-in or fan-out.
func detectedPatterns(acct engine.SuspiciousAccount, memberships []engine.Ring) []string {
	if len(memberships) > 0 {
		seen := make(map[string]struct{})
		var labels []string
		for _, ring := range memberships {
			label := patternLabel(ring)
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
		sort.Strings(labels)
		return labels
	}

	var labels []string
	if acct.Flags.Cycle {
		labels = append(labels, labelCircularRouting)
	}
	if acct.Flags.Layering {
		labels = append(labels, labelLayeredShell)
	}
	return labels
}

// primaryRingID picks the account's highest-priority, highest-risk
// ring membership as its representative ring_id, matching the
// §4.5 dedup ordering.
func primaryRingID(memberships []engine.Ring) string {
	if len(memberships) == 0 {
		return ""
	}
	best := memberships[0]
	for _, ring := range memberships[1:] {
		if ringOutranks(ring, best) {
			best = ring
		}
	}
	return best.ID
}

func ringOutranks(candidate, incumbent engine.Ring) bool {
	cp, ip := ringPriority(candidate.Pattern), ringPriority(incumbent.Pattern)
	if cp != ip {
		return cp > ip
	}
	if candidate.RiskScore != incumbent.RiskScore {
		return candidate.RiskScore > incumbent.RiskScore
	}
	return candidate.ID < incumbent.ID
}

func ringPriority(p engine.PatternType) int {
	switch p {
	case engine.PatternCircularRouting:
		return 4
	case engine.PatternSmurfing, engine.PatternDispersal:
		return 3
	case engine.PatternLayeredShell:
		return 2
	default:
		return 0
	}
}

// sumTxAmounts totals the amount of each tx_id in the ring's
// evidence; a tx_id absent from txAmounts (already pruned, or from a
// batch the caller never indexed) contributes 0, per §6.
func sumTxAmounts(txIDs []string, txAmounts map[string]ledger.Money) float64 {
	var total ledger.Money
	for _, id := range txIDs {
		if amt, ok := txAmounts[id]; ok {
			total = total.Add(amt)
		}
	}
	return total.Float64()
}

func round1dp(v float64) float64 {
	return roundTo(v, 10)
}

func round2dp(v float64) float64 {
	return roundTo(v, 100)
}

func round3dp(v float64) float64 {
	return roundTo(v, 1000)
}

func roundTo(v float64, factor float64) float64 {
	return float64(int64(v*factor+0.5)) / factor
}
