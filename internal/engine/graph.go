package engine

import (
	"sort"

	"github.com/banking/muling-detector/internal/ledger"
)

// AdjEntry is one entry in a per-account adjacency list: a peer
// reached (or reached from) via a single transaction.
type AdjEntry struct {
	Peer   ledger.AcctID
	TxID   string
	Amount ledger.Money
	Ts     ledger.EpochMs
}

// AcctStats are the per-account flow statistics of §3, mutated only
// while the graph is being built.
type AcctStats struct {
	InCount  int
	OutCount int
	InSum    ledger.Money
	OutSum   ledger.Money
}

// TotalCount is in_count + out_count.
func (s AcctStats) TotalCount() int {
	return s.InCount + s.OutCount
}

type edgeKey struct {
	source ledger.AcctID
	target ledger.AcctID
}

// builtGraph is the internal representation handed from the builder
// to the detectors: two sorted adjacency indexes, per-account stats,
// and the aggregated edge list.
type builtGraph struct {
	outAdj map[ledger.AcctID][]AdjEntry
	inAdj  map[ledger.AcctID][]AdjEntry
	stats  map[ledger.AcctID]*AcctStats
	// accounts is the deterministic, sorted universe of account ids
	// seen as a sender or receiver.
	accounts []ledger.AcctID
	edges    []Edge
}

// buildGraph implements §4.1: a single pass over the transaction list
// folds adjacency, stats, and edge aggregates; a second pass sorts
// each adjacency list ascending by (ts, tx_id) for deterministic,
// chronological iteration by the detectors.
func buildGraph(txs []ledger.Transaction) *builtGraph {
	g := &builtGraph{
		outAdj: make(map[ledger.AcctID][]AdjEntry),
		inAdj:  make(map[ledger.AcctID][]AdjEntry),
		stats:  make(map[ledger.AcctID]*AcctStats),
	}
	edgeAgg := make(map[edgeKey]*Edge)
	seen := make(map[ledger.AcctID]struct{})

	touch := func(id ledger.AcctID) *AcctStats {
		s, ok := g.stats[id]
		if !ok {
			s = &AcctStats{}
			g.stats[id] = s
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			g.accounts = append(g.accounts, id)
		}
		return s
	}

	for _, tx := range txs {
		senderStats := touch(tx.Sender)
		receiverStats := touch(tx.Receiver)

		senderStats.OutCount++
		senderStats.OutSum = senderStats.OutSum.Add(tx.Amount)
		receiverStats.InCount++
		receiverStats.InSum = receiverStats.InSum.Add(tx.Amount)

		g.outAdj[tx.Sender] = append(g.outAdj[tx.Sender], AdjEntry{
			Peer: tx.Receiver, TxID: tx.TxID, Amount: tx.Amount, Ts: tx.Ts,
		})
		g.inAdj[tx.Receiver] = append(g.inAdj[tx.Receiver], AdjEntry{
			Peer: tx.Sender, TxID: tx.TxID, Amount: tx.Amount, Ts: tx.Ts,
		})

		key := edgeKey{source: tx.Sender, target: tx.Receiver}
		e, ok := edgeAgg[key]
		if !ok {
			e = &Edge{Source: tx.Sender, Target: tx.Receiver}
			edgeAgg[key] = e
		}
		e.AmountSum = e.AmountSum.Add(tx.Amount)
		e.Count++
	}

	for acct := range g.outAdj {
		sortAdj(g.outAdj[acct])
	}
	for acct := range g.inAdj {
		sortAdj(g.inAdj[acct])
	}

	sort.Slice(g.accounts, func(i, j int) bool { return g.accounts[i] < g.accounts[j] })

	g.edges = make([]Edge, 0, len(edgeAgg))
	for _, e := range edgeAgg {
		g.edges = append(g.edges, *e)
	}
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].Source != g.edges[j].Source {
			return g.edges[i].Source < g.edges[j].Source
		}
		return g.edges[i].Target < g.edges[j].Target
	})

	return g
}

// sortAdj orders entries ascending by (ts, tx_id), ties on tx_id
// lexicographic, per §3's adjacency-entry invariant.
func sortAdj(entries []AdjEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Ts != entries[j].Ts {
			return entries[i].Ts < entries[j].Ts
		}
		return entries[i].TxID < entries[j].TxID
	})
}

func (g *builtGraph) statsOf(id ledger.AcctID) AcctStats {
	if s, ok := g.stats[id]; ok {
		return *s
	}
	return AcctStats{}
}
