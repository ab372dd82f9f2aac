package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/muling-detector/internal/ledger"
)

func TestDedupRings_HigherPriorityPatternWins(t *testing.T) {
	members := []ledger.AcctID{"A", "B", "C"}
	cycle := Ring{ID: "cycle1", Pattern: PatternCircularRouting, Members: members, RiskScore: 70}
	layer := Ring{ID: "layer1", Pattern: PatternLayeredShell, Members: members, RiskScore: 90}

	out := dedupRings([]Ring{layer, cycle})
	require.Len(t, out, 1)
	assert.Equal(t, PatternCircularRouting, out[0].Pattern, "circular routing outranks layering regardless of risk score")
}

func TestDedupRings_SamePriorityTieBreaksOnRiskThenID(t *testing.T) {
	members := []ledger.AcctID{"A", "B"}
	a := Ring{ID: "zzz", Pattern: PatternSmurfing, Members: members, RiskScore: 80}
	b := Ring{ID: "aaa", Pattern: PatternDispersal, Members: members, RiskScore: 80}

	out := dedupRings([]Ring{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, "aaa", out[0].ID, "equal priority and risk score tie-break on lexicographically smaller ring id")
}

func TestDedupRings_DistinctMemberSetsBothSurvive(t *testing.T) {
	r1 := Ring{ID: "r1", Pattern: PatternCircularRouting, Members: []ledger.AcctID{"A", "B", "C"}, RiskScore: 70}
	r2 := Ring{ID: "r2", Pattern: PatternCircularRouting, Members: []ledger.AcctID{"D", "E", "F"}, RiskScore: 70}

	out := dedupRings([]Ring{r1, r2})
	assert.Len(t, out, 2)
}
