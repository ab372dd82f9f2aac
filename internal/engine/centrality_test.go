package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/muling-detector/internal/ledger"
)

func TestComputeCentrality_LinearChainPeaksAtMiddle(t *testing.T) {
	// A -> B -> C: every shortest path between A and C passes through B,
	// so B must have the highest normalized betweenness.
	g := buildGraph([]ledger.Transaction{
		txn("t1", "A", "B", 100, 1),
		txn("t2", "B", "C", 100, 2),
	})
	cfg := DefaultDetectionConfig()

	result := computeCentrality(g, cfg)
	require.Len(t, result, 3)
	assert.Equal(t, 1.0, result["B"], "B is the sole intermediary on the only A-C path")
	assert.Less(t, result["A"], result["B"])
	assert.Less(t, result["C"], result["B"])
}

func TestComputeCentrality_DisconnectedGraphIsZero(t *testing.T) {
	g := buildGraph([]ledger.Transaction{
		txn("t1", "A", "B", 100, 1),
		txn("t2", "C", "D", 100, 2),
	})
	cfg := DefaultDetectionConfig()

	result := computeCentrality(g, cfg)
	for id, v := range result {
		assert.Zero(t, v, "no shortest path passes through any intermediary in two disjoint edges: %s", id)
	}
}

func TestComputeCentrality_SkippedAboveAccountGuard(t *testing.T) {
	g := buildGraph([]ledger.Transaction{
		txn("t1", "A", "B", 100, 1),
		txn("t2", "B", "C", 100, 2),
	})
	cfg := DefaultDetectionConfig()
	cfg.MaxAccountsForCentrality = 1

	result := computeCentrality(g, cfg)
	for _, v := range result {
		assert.Zero(t, v)
	}
}
