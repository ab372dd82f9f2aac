package engine

import "github.com/banking/muling-detector/internal/ledger"

// computeCentrality implements §4.6: unweighted Brandes betweenness
// over the simple directed graph obtained by collapsing out_adj's
// multi-edges (and dropping self-loops, which never participate in a
// shortest path). Results are normalized into [0,1] by dividing by
// the maximum observed raw score; if the graph exceeds the size cap,
// every account gets 0 (cost guard).
func computeCentrality(g *builtGraph, cfg DetectionConfig) map[ledger.AcctID]float64 {
	result := make(map[ledger.AcctID]float64, len(g.accounts))
	for _, id := range g.accounts {
		result[id] = 0
	}
	if len(g.accounts) > cfg.MaxAccountsForCentrality {
		return result
	}

	simple := simpleAdjacency(g)
	raw := brandesBetweenness(g.accounts, simple)

	maxVal := 0.0
	for _, v := range raw {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return result
	}
	for id, v := range raw {
		result[id] = v / maxVal
	}
	return result
}

func simpleAdjacency(g *builtGraph) map[ledger.AcctID][]ledger.AcctID {
	simple := make(map[ledger.AcctID][]ledger.AcctID, len(g.accounts))
	for _, id := range g.accounts {
		seen := make(map[ledger.AcctID]struct{})
		var peers []ledger.AcctID
		for _, e := range g.outAdj[id] {
			if e.Peer == id {
				continue
			}
			if _, ok := seen[e.Peer]; ok {
				continue
			}
			seen[e.Peer] = struct{}{}
			peers = append(peers, e.Peer)
		}
		simple[id] = peers
	}
	return simple
}

// brandesBetweenness is the standard single-source-shortest-paths
// accumulation algorithm, run once per source node over an unweighted
// directed graph (no 1/2 factor, unlike the undirected variant).
func brandesBetweenness(accounts []ledger.AcctID, adj map[ledger.AcctID][]ledger.AcctID) map[ledger.AcctID]float64 {
	cb := make(map[ledger.AcctID]float64, len(accounts))
	for _, id := range accounts {
		cb[id] = 0
	}

	for _, s := range accounts {
		stack := make([]ledger.AcctID, 0, len(accounts))
		pred := make(map[ledger.AcctID][]ledger.AcctID, len(accounts))
		sigma := make(map[ledger.AcctID]float64, len(accounts))
		dist := make(map[ledger.AcctID]int, len(accounts))
		for _, id := range accounts {
			sigma[id] = 0
			dist[id] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []ledger.AcctID{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make(map[ledger.AcctID]float64, len(accounts))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				if sigma[w] != 0 {
					delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
				}
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}
	return cb
}
