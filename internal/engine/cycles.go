package engine

import (
	"strings"

	"github.com/banking/muling-detector/internal/ledger"
)

// detectCycles implements §4.2: bounded-depth DFS enumeration of
// simple directed cycles of length 3-5 with chronologically ordered
// edges ("circular fund routing").
func detectCycles(g *builtGraph, cfg DetectionConfig) []Ring {
	if len(g.accounts) > cfg.MaxAccountsForCycles {
		return nil
	}
	if txCount := countTxs(g); txCount > cfg.MaxTransactionsForCycles {
		return nil
	}

	seen := make(map[string]struct{})
	var rings []Ring

	for _, start := range g.accounts {
		walkCycle(g, cfg, start, []ledger.AcctID{start}, nil, minEpoch, seen, &rings)
	}
	return rings
}

const minEpoch = ledger.EpochMs(-1 << 62)

func walkCycle(
	g *builtGraph,
	cfg DetectionConfig,
	start ledger.AcctID,
	members []ledger.AcctID,
	txPath []string,
	lastTs ledger.EpochMs,
	seen map[string]struct{},
	out *[]Ring,
) {
	current := members[len(members)-1]
	for _, e := range g.outAdj[current] {
		if e.Ts < lastTs {
			continue
		}
		if e.Peer == start {
			length := len(members)
			if length >= cfg.CycleMinLength && length <= cfg.CycleMaxLength {
				emitCycle(members, append(append([]string{}, txPath...), e.TxID), seen, out)
			}
			continue
		}
		if containsAcct(members, e.Peer) {
			continue
		}
		if len(members) < cfg.CycleMaxLength {
			walkCycle(g, cfg,
				start,
				append(append([]ledger.AcctID{}, members...), e.Peer),
				append(append([]string{}, txPath...), e.TxID),
				e.Ts, seen, out,
			)
		}
	}
}

func containsAcct(path []ledger.AcctID, id ledger.AcctID) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}

func emitCycle(members []ledger.AcctID, txIDs []string, seen map[string]struct{}, out *[]Ring) {
	identity := canonicalCycleIdentity(members)
	if _, ok := seen[identity]; ok {
		return
	}
	seen[identity] = struct{}{}

	ring := Ring{
		ID:        ringID("cycle|" + identity),
		Pattern:   PatternCircularRouting,
		Members:   append([]ledger.AcctID{}, members...),
		Evidence:  RingEvidence{TxIDs: txIDs},
		RiskScore: clampRisk(70 + 5*len(members)),
	}
	*out = append(*out, ring)
}

// canonicalCycleIdentity rotates the member sequence so the
// lexicographically smallest id comes first, keeping relative order,
// and joins it into a stable identity string (§4.2 canonicalization).
func canonicalCycleIdentity(members []ledger.AcctID) string {
	minIdx := 0
	for i, m := range members {
		if m < members[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, len(members))
	for i := range members {
		rotated[i] = string(members[(minIdx+i)%len(members)])
	}
	return strings.Join(rotated, ",")
}

func countTxs(g *builtGraph) int {
	total := 0
	for _, e := range g.edges {
		total += e.Count
	}
	return total
}

func clampRisk(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return uint8(v)
}
