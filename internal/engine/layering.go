package engine

import (
	"sort"
	"strings"

	"github.com/banking/muling-detector/internal/ledger"
)

// detectLayering implements §4.4: bounded-depth DFS over chains of
// length >= 3 hops whose interior nodes are "low-activity" and whose
// edges are chronologically ordered with bounded gaps
// ("layered shell chains").
func detectLayering(g *builtGraph, cfg DetectionConfig) []Ring {
	seen := make(map[string]struct{})
	var rings []Ring
	maxGapMs := ledger.EpochMs(cfg.MaxGap.Milliseconds())

	for _, start := range g.accounts {
		if len(g.outAdj[start]) == 0 {
			continue
		}
		walkChain(g, cfg, start, []ledger.AcctID{start}, nil, minEpoch, maxGapMs, seen, &rings)
	}
	return rings
}

func isLowActivity(g *builtGraph, id ledger.AcctID, cfg DetectionConfig) bool {
	return g.statsOf(id).TotalCount() <= cfg.LowActivityMax
}

func walkChain(
	g *builtGraph,
	cfg DetectionConfig,
	start ledger.AcctID,
	members []ledger.AcctID,
	txPath []string,
	lastTs ledger.EpochMs,
	maxGapMs ledger.EpochMs,
	seen map[string]struct{},
	out *[]Ring,
) {
	current := members[len(members)-1]
	depth := len(members) - 1
	interior := depth >= 1 && current != start
	if interior && !isLowActivity(g, current, cfg) {
		return
	}
	if depth >= cfg.MaxDepth {
		return
	}

	for _, e := range g.outAdj[current] {
		if containsAcct(members, e.Peer) {
			continue
		}
		if e.Ts < lastTs {
			continue
		}
		if lastTs != minEpoch && e.Ts-lastTs > maxGapMs {
			continue
		}

		newMembers := append(append([]ledger.AcctID{}, members...), e.Peer)
		newTxPath := append(append([]string{}, txPath...), e.TxID)
		hops := len(newMembers) - 1

		if hops >= 3 {
			interiorNodes := newMembers[1 : len(newMembers)-1]
			if allLowActivity(g, interiorNodes, cfg) {
				emitChain(newMembers, newTxPath, seen, out)
			}
		}

		walkChain(g, cfg, start, newMembers, newTxPath, e.Ts, maxGapMs, seen, out)
	}
}

func allLowActivity(g *builtGraph, ids []ledger.AcctID, cfg DetectionConfig) bool {
	for _, id := range ids {
		if !isLowActivity(g, id, cfg) {
			return false
		}
	}
	return true
}

func emitChain(members []ledger.AcctID, txIDs []string, seen map[string]struct{}, out *[]Ring) {
	identity := sortedMemberIdentity(members)
	if _, ok := seen[identity]; ok {
		return
	}
	seen[identity] = struct{}{}

	interiorCount := len(members) - 2
	hops := len(members) - 1
	ring := Ring{
		ID:      ringID("layer|" + identity),
		Pattern: PatternLayeredShell,
		Members: append([]ledger.AcctID{}, members...),
		Evidence: RingEvidence{
			TxIDs: txIDs,
			Hops:  &hops,
		},
		RiskScore: clampRisk(65 + min(25, 5*interiorCount)),
	}
	*out = append(*out, ring)
}

// sortedMemberIdentity is the sorted member-set identity used for
// both layering canonicalization (§4.4) and cross-detector dedup
// (§4.5).
func sortedMemberIdentity(members []ledger.AcctID) string {
	sorted := make([]string, len(members))
	for i, m := range members {
		sorted[i] = string(m)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
