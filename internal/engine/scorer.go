package engine

import (
	"sort"

	"github.com/banking/muling-detector/internal/ledger"
)

// scoreAccounts implements §4.7: combine per-pattern flags, smurfing
// role, and centrality into a clamped [0,100] suspicion score per
// account, and assemble the sorted suspicious-accounts list.
func scoreAccounts(g *builtGraph, rings []Ring, centrality map[ledger.AcctID]float64) ([]Node, []SuspiciousAccount) {
	flags := make(map[ledger.AcctID]*NodeFlags, len(g.accounts))
	for _, id := range g.accounts {
		flags[id] = &NodeFlags{}
	}

	aggregators := make(map[ledger.AcctID]struct{})
	fanInSenders := make(map[ledger.AcctID]struct{})
	fanOutReceivers := make(map[ledger.AcctID]struct{})

	for _, r := range rings {
		switch r.Pattern {
		case PatternCircularRouting:
			for _, m := range r.Members {
				flags[m].Cycle = true
			}
		case PatternLayeredShell:
			for _, m := range r.Members {
				flags[m].Layering = true
			}
		case PatternSmurfing:
			for _, m := range r.Members {
				flags[m].Smurfing = true
			}
			if len(r.Members) > 0 {
				aggregators[r.Members[len(r.Members)-1]] = struct{}{}
			}
			if r.Evidence.Roles != nil {
				for _, s := range r.Evidence.Roles.Senders {
					fanInSenders[s] = struct{}{}
				}
			}
		case PatternDispersal:
			for _, m := range r.Members {
				flags[m].Smurfing = true
			}
			if r.Evidence.Roles != nil {
				for _, rcv := range r.Evidence.Roles.Receivers {
					fanOutReceivers[rcv] = struct{}{}
				}
			}
		}
	}

	nodes := make([]Node, 0, len(g.accounts))
	var suspicious []SuspiciousAccount

	for _, id := range g.accounts {
		f := *flags[id]
		base := 0
		if f.Cycle {
			base += 45
		}
		if f.Layering {
			base += 40
		}

		roleBonus := 0
		switch {
		case inSet(aggregators, id):
			roleBonus = 50
		case inSet(fanInSenders, id):
			roleBonus = 25
		case inSet(fanOutReceivers, id):
			roleBonus = 10
		case f.Smurfing:
			roleBonus = 25
		}

		stats := g.statsOf(id)
		k := 0.10
		bonusCap := 10
		if stats.TotalCount() <= 6 {
			k = 0.20
			bonusCap = 20
		}
		centralityBonus := int(roundHalfAwayFromZero(centrality[id] * 100 * k))
		if centralityBonus > bonusCap {
			centralityBonus = bonusCap
		}
		// Centrality points only count for an account that carries at
		// least one ring flag; an unflagged account scores 0.
		if !f.Cycle && !f.Smurfing && !f.Layering {
			centralityBonus = 0
		}

		score := clampScore(base + roleBonus + centralityBonus)

		nodes = append(nodes, Node{
			ID:             id,
			SuspicionScore: score,
			Centrality:     centrality[id],
			Flags:          f,
		})

		if score > 0 {
			suspicious = append(suspicious, SuspiciousAccount{
				AccountID:      id,
				SuspicionScore: score,
				Flags:          f,
			})
		}
	}

	sort.Slice(suspicious, func(i, j int) bool {
		if suspicious[i].SuspicionScore != suspicious[j].SuspicionScore {
			return suspicious[i].SuspicionScore > suspicious[j].SuspicionScore
		}
		return suspicious[i].AccountID < suspicious[j].AccountID
	})

	return nodes, suspicious
}

func inSet(set map[ledger.AcctID]struct{}, id ledger.AcctID) bool {
	_, ok := set[id]
	return ok
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func roundHalfAwayFromZero(f float64) float64 {
	if f >= 0 {
		return float64(int(f + 0.5))
	}
	return -float64(int(-f + 0.5))
}
