package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/muling-detector/internal/engine"
	"github.com/banking/muling-detector/internal/ledger"
)

func TestBuild_CircularRoutingLabelAndTotals(t *testing.T) {
	ring := engine.Ring{
		ID:      "ring1",
		Pattern: engine.PatternCircularRouting,
		Members: []ledger.AcctID{"A", "B", "C"},
		Evidence: engine.RingEvidence{
			TxIDs: []string{"t1", "t2", "t3"},
		},
		RiskScore: 95,
	}
	r := engine.Report{
		Graph: engine.Graph{Nodes: make([]engine.Node, 3)},
		SuspiciousAccounts: []engine.SuspiciousAccount{
			{AccountID: "A", SuspicionScore: 45, Flags: engine.NodeFlags{Cycle: true}},
			{AccountID: "B", SuspicionScore: 45, Flags: engine.NodeFlags{Cycle: true}},
			{AccountID: "C", SuspicionScore: 45, Flags: engine.NodeFlags{Cycle: true}},
		},
		FraudRings: []engine.Ring{ring},
	}
	txAmounts := map[string]ledger.Money{
		"t1": ledger.MustMoneyFromFloat(1000),
		"t2": ledger.MustMoneyFromFloat(900),
		"t3": ledger.MustMoneyFromFloat(800),
	}

	exp := Build(r, txAmounts, 250*time.Millisecond)

	require.Len(t, exp.FraudRings, 1)
	assert.Equal(t, "Circular Fund Routing", exp.FraudRings[0].Pattern)
	assert.Equal(t, 2700.0, exp.FraudRings[0].TotalAmount)
	assert.Equal(t, 95.0, exp.FraudRings[0].RiskScore)

	require.Len(t, exp.SuspiciousAccounts, 3)
	for _, sa := range exp.SuspiciousAccounts {
		assert.Equal(t, []string{"Circular Fund Routing"}, sa.DetectedPatterns)
		assert.Equal(t, "ring1", sa.RingID)
	}

	assert.Equal(t, 3, exp.Summary.TotalAccountsAnalyzed)
	assert.Equal(t, 3, exp.Summary.SuspiciousAccountsFlagged)
	assert.Equal(t, 1, exp.Summary.FraudRingsDetected)
	assert.Equal(t, 0.25, exp.Summary.ProcessingTimeSeconds)
}

func TestBuild_SmurfingDirectionLabels(t *testing.T) {
	fanIn := engine.Ring{ID: "r-in", Pattern: engine.PatternSmurfing, Members: []ledger.AcctID{"a", "b", "HUB"}}
	fanOut := engine.Ring{ID: "r-out", Pattern: engine.PatternDispersal, Members: []ledger.AcctID{"SRC", "x", "y"}}

	assert.Equal(t, "Smurfing (Fan-in)", patternLabel(fanIn))
	assert.Equal(t, "Smurfing (Fan-out)", patternLabel(fanOut))
}

func TestDetectedPatterns_FallsBackToFlagsWithoutRingMembership(t *testing.T) {
	acct := engine.SuspiciousAccount{
		AccountID:      "A",
		SuspicionScore: 40,
		Flags:          engine.NodeFlags{Layering: true},
	}

	labels := detectedPatterns(acct, nil)
	assert.Equal(t, []string{"Layered Shell Network"}, labels)
}

func TestDetectedPatterns_SmurfingFlagAloneYieldsNoLabel(t *testing.T) {
	acct := engine.SuspiciousAccount{
		AccountID:      "A",
		SuspicionScore: 25,
		Flags:          engine.NodeFlags{Smurfing: true},
	}

	labels := detectedPatterns(acct, nil)
	assert.Empty(t, labels, "the coarse smurfing flag alone can't disambiguate fan-in from fan-out")
}

func TestPrimaryRingID_PrefersHigherPriorityPattern(t *testing.T) {
	cycle := engine.Ring{ID: "cycle1", Pattern: engine.PatternCircularRouting, RiskScore: 50}
	layer := engine.Ring{ID: "layer1", Pattern: engine.PatternLayeredShell, RiskScore: 90}

	id := primaryRingID([]engine.Ring{layer, cycle})
	assert.Equal(t, "cycle1", id)
}

func TestSumTxAmounts_MissingTxContributesZero(t *testing.T) {
	txAmounts := map[string]ledger.Money{"t1": ledger.MustMoneyFromFloat(100)}
	total := sumTxAmounts([]string{"t1", "missing"}, txAmounts)
	assert.Equal(t, 100.0, total)
}

func TestRoundTo_Helpers(t *testing.T) {
	assert.Equal(t, 1.2, round1dp(1.24))
	assert.Equal(t, 1.23, round2dp(1.234))
	assert.Equal(t, 1.235, round3dp(1.2346))
}
