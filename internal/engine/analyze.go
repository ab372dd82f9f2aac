package engine

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/banking/muling-detector/internal/ledger"
)

// Analyze is the sole entry point of the forensic core: it builds the
// transaction graph, runs the three pattern detectors and centrality
// concurrently (§5), deduplicates their rings, scores every account, and returns a
// Report whose contents do not depend on goroutine scheduling order.
func Analyze(txs []ledger.Transaction, cfg DetectionConfig) Report {
	g := buildGraph(txs)

	var cycleRings, smurfRings, layerRings []Ring
	var centrality map[ledger.AcctID]float64

	var grp errgroup.Group
	grp.Go(func() error {
		cycleRings = detectCycles(g, cfg)
		return nil
	})
	grp.Go(func() error {
		smurfRings = detectSmurfing(g, cfg)
		return nil
	})
	grp.Go(func() error {
		layerRings = detectLayering(g, cfg)
		return nil
	})
	grp.Go(func() error {
		centrality = computeCentrality(g, cfg)
		return nil
	})
	_ = grp.Wait() // detectors never return an error

	all := make([]Ring, 0, len(cycleRings)+len(smurfRings)+len(layerRings))
	all = append(all, cycleRings...)
	all = append(all, smurfRings...)
	all = append(all, layerRings...)

	rings := dedupRings(all)
	sort.Slice(rings, func(i, j int) bool {
		if rings[i].RiskScore != rings[j].RiskScore {
			return rings[i].RiskScore > rings[j].RiskScore
		}
		return rings[i].ID < rings[j].ID
	})

	nodes, suspicious := scoreAccounts(g, rings, centrality)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return Report{
		Graph: Graph{
			Nodes: nodes,
			Edges: g.edges,
		},
		SuspiciousAccounts: suspicious,
		FraudRings:         rings,
	}
}
