// Package engine is the forensic analysis core: a pure function from
// a transaction list to a report of suspicious accounts and fraud
// rings. It performs no I/O, reads no clock, and carries no state
// between calls to Analyze.
package engine

import (
	"time"

	"github.com/banking/muling-detector/internal/ledger"
)

// PatternType identifies which detector produced a Ring.
type PatternType string

const (
	PatternCircularRouting PatternType = "CircularRouting"
	PatternSmurfing        PatternType = "Smurfing"  // fan-in
	PatternDispersal       PatternType = "Dispersal"  // fan-out
	PatternLayeredShell    PatternType = "LayeredShell"
)

// dedupPriority is the §4.5 tie-break table: higher wins.
var dedupPriority = map[PatternType]int{
	PatternCircularRouting: 4,
	PatternSmurfing:        3,
	PatternDispersal:       3,
	PatternLayeredShell:    2,
}

// SmurfRoles records which side of a smurfing ring each member plays.
// Exactly one of Senders/Receivers is populated by a given ring,
// mirroring §4.3's roles metadata.
type SmurfRoles struct {
	Senders   []ledger.AcctID
	Receivers []ledger.AcctID
}

// RingEvidence is the supporting detail for a detected ring.
type RingEvidence struct {
	TxIDs   []string
	StartTs *ledger.EpochMs
	EndTs   *ledger.EpochMs
	Hops    *int
	Roles   *SmurfRoles
}

// Ring is a single detected pattern instance.
type Ring struct {
	ID        string
	Pattern   PatternType
	Members   []ledger.AcctID
	Evidence  RingEvidence
	RiskScore uint8
}

// NodeFlags records per-pattern ring membership for an account.
type NodeFlags struct {
	Cycle    bool
	Smurfing bool
	Layering bool
}

// Node is a per-account output record.
type Node struct {
	ID             ledger.AcctID
	SuspicionScore int
	Centrality     float64
	Flags          NodeFlags
}

// Edge is an aggregated (source,target) directed edge.
type Edge struct {
	Source    ledger.AcctID
	Target    ledger.AcctID
	AmountSum ledger.Money
	Count     int
}

// SuspiciousAccount is a Node with score > 0, as exported in the
// report's suspicious_accounts list.
type SuspiciousAccount struct {
	AccountID      ledger.AcctID
	SuspicionScore int
	Flags          NodeFlags
}

// Graph is the report's per-account node list and aggregated edge list.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Report is the full output of Analyze.
type Report struct {
	Graph              Graph
	SuspiciousAccounts []SuspiciousAccount
	FraudRings         []Ring
}

// DetectionConfig holds every pattern-detector threshold, injected
// rather than hard-coded so changing a value is a config change, not
// a code change.
type DetectionConfig struct {
	// Cycle Detector
	CycleMinLength int
	CycleMaxLength int

	// Smurfing Detector
	Window           time.Duration
	UniqueMinFanIn   int
	UniqueMinFanOut  int
	SmallTx          ledger.Money
	SmallCPRatio     float64
	VelocityWindow   time.Duration
	VelocityOutRatio float64
	VelocityBonus    int

	// Layering Detector
	MaxDepth       int
	MaxGap         time.Duration
	LowActivityMax int

	// Cost guards
	MaxAccountsForCycles     int
	MaxTransactionsForCycles int
	MaxAccountsForCentrality int
}

// DefaultDetectionConfig returns the baseline thresholds for every
// detector.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		CycleMinLength: 3,
		CycleMaxLength: 5,

		Window:           72 * time.Hour,
		UniqueMinFanIn:   10,
		UniqueMinFanOut:  10,
		SmallTx:          ledger.MustMoneyFromFloat(1000),
		SmallCPRatio:     0.70,
		VelocityWindow:   6 * time.Hour,
		VelocityOutRatio: 0.90,
		VelocityBonus:    15,

		MaxDepth:       6,
		MaxGap:         72 * time.Hour,
		LowActivityMax: 2,

		MaxAccountsForCycles:     2000,
		MaxTransactionsForCycles: 200000,
		MaxAccountsForCentrality: 2000,
	}
}
