package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/muling-detector/internal/ledger"
)

func findNode(nodes []Node, id ledger.AcctID) Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return Node{}
}

func TestScoreAccounts_CycleMemberGetsBaseScore(t *testing.T) {
	g := buildGraph([]ledger.Transaction{
		txn("t1", "A", "B", 100, 1),
		txn("t2", "B", "C", 100, 2),
		txn("t3", "C", "A", 100, 3),
	})
	ring := Ring{ID: "r1", Pattern: PatternCircularRouting, Members: []ledger.AcctID{"A", "B", "C"}, RiskScore: 70}
	centrality := map[ledger.AcctID]float64{"A": 0, "B": 0, "C": 0}

	nodes, suspicious := scoreAccounts(g, []Ring{ring}, centrality)
	require.Len(t, nodes, 3)
	require.Len(t, suspicious, 3)
	for _, n := range nodes {
		assert.Equal(t, 45, n.SuspicionScore)
		assert.True(t, n.Flags.Cycle)
	}
}

func TestScoreAccounts_FanInAggregatorOutranksSenders(t *testing.T) {
	senders := []ledger.AcctID{"a", "b", "c"}
	members := append(append([]ledger.AcctID{}, senders...), "HUB")
	ring := Ring{
		ID:      "r1",
		Pattern: PatternSmurfing,
		Members: members,
		Evidence: RingEvidence{
			Roles: &SmurfRoles{Senders: senders},
		},
		RiskScore: 70,
	}
	g := buildGraph([]ledger.Transaction{
		txn("t1", "a", "HUB", 100, 1),
		txn("t2", "b", "HUB", 100, 2),
		txn("t3", "c", "HUB", 100, 3),
	})
	centrality := map[ledger.AcctID]float64{"a": 0, "b": 0, "c": 0, "HUB": 0}

	nodes, _ := scoreAccounts(g, []Ring{ring}, centrality)
	hub := findNode(nodes, "HUB")
	sender := findNode(nodes, "a")

	assert.Equal(t, 50, hub.SuspicionScore, "aggregator role bonus is 50")
	assert.Equal(t, 25, sender.SuspicionScore, "fan-in sender role bonus is 25")
}

func TestScoreAccounts_ScoreIsClampedTo100(t *testing.T) {
	members := []ledger.AcctID{"A", "B", "C"}
	cycle := Ring{ID: "r1", Pattern: PatternCircularRouting, Members: members, RiskScore: 90}
	layer := Ring{ID: "r2", Pattern: PatternLayeredShell, Members: members, RiskScore: 90}
	g := buildGraph([]ledger.Transaction{
		txn("t1", "A", "B", 100, 1),
		txn("t2", "B", "C", 100, 2),
		txn("t3", "C", "A", 100, 3),
	})
	centrality := map[ledger.AcctID]float64{"A": 1, "B": 1, "C": 1}

	nodes, _ := scoreAccounts(g, []Ring{cycle, layer}, centrality)
	for _, n := range nodes {
		assert.LessOrEqual(t, n.SuspicionScore, 100)
	}
}

func TestScoreAccounts_ZeroScoreAccountsExcludedFromSuspiciousList(t *testing.T) {
	g := buildGraph([]ledger.Transaction{
		txn("t1", "A", "B", 100, 1),
	})
	centrality := map[ledger.AcctID]float64{"A": 0, "B": 0}

	nodes, suspicious := scoreAccounts(g, nil, centrality)
	assert.Len(t, nodes, 2)
	assert.Empty(t, suspicious)
}

func TestClampScore_Bounds(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 100, clampScore(200))
	assert.Equal(t, 50, clampScore(50))
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 2.0, roundHalfAwayFromZero(1.5))
	assert.Equal(t, -2.0, roundHalfAwayFromZero(-1.5))
	assert.Equal(t, 1.0, roundHalfAwayFromZero(1.4))
}
