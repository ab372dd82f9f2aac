package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/muling-detector/internal/ledger"
)

func TestAnalyze_EmptyInputProducesEmptyReport(t *testing.T) {
	r := Analyze(nil, DefaultDetectionConfig())
	assert.Empty(t, r.Graph.Nodes)
	assert.Empty(t, r.Graph.Edges)
	assert.Empty(t, r.SuspiciousAccounts)
	assert.Empty(t, r.FraudRings)
}

func TestAnalyze_CircularRoutingEndToEnd(t *testing.T) {
	txs := []ledger.Transaction{
		txn("t1", "A", "B", 5000, 1000),
		txn("t2", "B", "C", 4800, 2000),
		txn("t3", "C", "A", 4600, 3000),
	}

	r := Analyze(txs, DefaultDetectionConfig())
	require.Len(t, r.FraudRings, 1)
	assert.Equal(t, PatternCircularRouting, r.FraudRings[0].Pattern)
	assert.Len(t, r.SuspiciousAccounts, 3)
	assert.Len(t, r.Graph.Nodes, 3)

	for _, sa := range r.SuspiciousAccounts {
		assert.Equal(t, 65, sa.SuspicionScore, "cycle base 45 plus centrality bonus 20")
	}
}

func TestAnalyze_ResultOrderIsDeterministic(t *testing.T) {
	txs := []ledger.Transaction{
		txn("t1", "A", "B", 5000, 1000),
		txn("t2", "B", "C", 4800, 2000),
		txn("t3", "C", "A", 4600, 3000),
	}
	cfg := DefaultDetectionConfig()

	first := Analyze(txs, cfg)
	second := Analyze(txs, cfg)

	require.Equal(t, len(first.FraudRings), len(second.FraudRings))
	for i := range first.FraudRings {
		assert.Equal(t, first.FraudRings[i].ID, second.FraudRings[i].ID)
	}
	require.Equal(t, len(first.Graph.Nodes), len(second.Graph.Nodes))
	for i := range first.Graph.Nodes {
		assert.Equal(t, first.Graph.Nodes[i].ID, second.Graph.Nodes[i].ID)
	}
}

func TestAnalyze_NoPatternMeansNoSuspiciousAccounts(t *testing.T) {
	txs := []ledger.Transaction{
		txn("t1", "A", "B", 100, 1000),
	}
	r := Analyze(txs, DefaultDetectionConfig())
	assert.Empty(t, r.SuspiciousAccounts)
	assert.Empty(t, r.FraudRings)
	assert.Len(t, r.Graph.Nodes, 2)
}
