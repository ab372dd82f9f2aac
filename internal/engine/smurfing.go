package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banking/muling-detector/internal/ledger"
)

// detectSmurfing implements §4.3: a sliding window over each
// account's incoming (fan-in) and outgoing (fan-out) transaction
// stream. At most one ring per account per direction is emitted; the
// scan stops at the first qualifying window (§4.9: terminal state is
// emitted ∨ exhausted).
func detectSmurfing(g *builtGraph, cfg DetectionConfig) []Ring {
	var rings []Ring
	windowMs := ledger.EpochMs(cfg.Window.Milliseconds())

	for _, acct := range g.accounts {
		if ring, ok := scanFanIn(g, cfg, acct, windowMs); ok {
			rings = append(rings, ring)
		}
		if ring, ok := scanFanOut(g, cfg, acct, windowMs); ok {
			rings = append(rings, ring)
		}
	}
	return rings
}

// windowResult is the state of a qualifying sliding window at the
// point it first satisfies the unique-peer threshold (and, for
// fan-in, the small-counterparty ratio).
type windowResult struct {
	peers     []ledger.AcctID
	txIDs     []string
	startTs   ledger.EpochMs
	endTs     ledger.EpochMs
	amountSum ledger.Money
}

// slideWindow runs the two-pointer scan shared by both directions:
// expand right, evict stale entries from the left, and report the
// first window whose distinct-peer count reaches uniqueMin and (when
// requireSmallRatio) whose small-counterparty fraction clears the
// ratio gate.
func slideWindow(entries []AdjEntry, windowMs ledger.EpochMs, uniqueMin int, smallTx ledger.Money, smallRatio float64, requireSmallRatio bool) (windowResult, bool) {
	peerCount := make(map[ledger.AcctID]int)
	peerSmallCount := make(map[ledger.AcctID]int)
	left := 0

	for right := 0; right < len(entries); right++ {
		e := entries[right]
		peerCount[e.Peer]++
		if e.Amount.LessThanOrEqual(smallTx) {
			peerSmallCount[e.Peer]++
		}

		for entries[left].Ts < e.Ts-windowMs {
			le := entries[left]
			peerCount[le.Peer]--
			if peerCount[le.Peer] == 0 {
				delete(peerCount, le.Peer)
			}
			if le.Amount.LessThanOrEqual(smallTx) {
				peerSmallCount[le.Peer]--
			}
			left++
		}

		distinct := len(peerCount)
		if distinct < uniqueMin {
			continue
		}

		if requireSmallRatio {
			withSmall := 0
			for _, c := range peerSmallCount {
				if c > 0 {
					withSmall++
				}
			}
			if float64(withSmall)/float64(distinct) < smallRatio {
				continue
			}
		}

		window := entries[left : right+1]
		peerSet := make(map[ledger.AcctID]struct{}, distinct)
		txIDs := make([]string, 0, len(window))
		var amountSum ledger.Money
		for _, w := range window {
			peerSet[w.Peer] = struct{}{}
			txIDs = append(txIDs, w.TxID)
			amountSum = amountSum.Add(w.Amount)
		}
		peers := make([]ledger.AcctID, 0, len(peerSet))
		for p := range peerSet {
			peers = append(peers, p)
		}
		sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })

		return windowResult{
			peers:     peers,
			txIDs:     txIDs,
			startTs:   window[0].Ts,
			endTs:     window[len(window)-1].Ts,
			amountSum: amountSum,
		}, true
	}
	return windowResult{}, false
}

func scanFanIn(g *builtGraph, cfg DetectionConfig, receiver ledger.AcctID, windowMs ledger.EpochMs) (Ring, bool) {
	entries := g.inAdj[receiver]
	if len(entries) == 0 {
		return Ring{}, false
	}

	res, ok := slideWindow(entries, windowMs, cfg.UniqueMinFanIn, cfg.SmallTx, cfg.SmallCPRatio, true)
	if !ok {
		return Ring{}, false
	}

	bonus := 0
	if velocityQualifies(g.outAdj[receiver], res.endTs, ledger.EpochMs(cfg.VelocityWindow.Milliseconds()), res.amountSum, cfg.VelocityOutRatio) {
		bonus = cfg.VelocityBonus
	}

	members := append(append([]ledger.AcctID{}, res.peers...), receiver)
	startTs, endTs := res.startTs, res.endTs

	ring := Ring{
		ID:      ringID(fmt.Sprintf("smurf|%s|%s|%d|%d", receiver, acctCSV(res.peers), startTs, endTs)),
		Pattern: PatternSmurfing,
		Members: members,
		Evidence: RingEvidence{
			TxIDs:   res.txIDs,
			StartTs: &startTs,
			EndTs:   &endTs,
			Roles:   &SmurfRoles{Senders: res.peers},
		},
		RiskScore: clampRisk(60 + min(20, len(res.peers)) + bonus),
	}
	return ring, true
}

func scanFanOut(g *builtGraph, cfg DetectionConfig, sender ledger.AcctID, windowMs ledger.EpochMs) (Ring, bool) {
	entries := g.outAdj[sender]
	if len(entries) == 0 {
		return Ring{}, false
	}

	res, ok := slideWindow(entries, windowMs, cfg.UniqueMinFanOut, cfg.SmallTx, cfg.SmallCPRatio, false)
	if !ok {
		return Ring{}, false
	}

	members := append([]ledger.AcctID{sender}, res.peers...)
	startTs, endTs := res.startTs, res.endTs

	ring := Ring{
		ID:      ringID(fmt.Sprintf("smurf|%s|%s|%d|%d", sender, acctCSV(res.peers), startTs, endTs)),
		Pattern: PatternDispersal,
		Members: members,
		Evidence: RingEvidence{
			TxIDs:   res.txIDs,
			StartTs: &startTs,
			EndTs:   &endTs,
			Roles:   &SmurfRoles{Receivers: res.peers},
		},
		RiskScore: clampRisk(60 + min(20, len(res.peers))),
	}
	return ring, true
}

// velocityQualifies scans the receiver's outgoing entries within
// [endTs, endTs+velocityWindow] and reports whether out_sum/in_sum
// clears the velocity ratio gate (§4.3 velocity bonus, fan-in only).
func velocityQualifies(outEntries []AdjEntry, endTs, velocityWindowMs ledger.EpochMs, inSum ledger.Money, ratio float64) bool {
	if inSum.Amount().IsZero() {
		return false
	}
	var outSum ledger.Money
	for _, e := range outEntries {
		if e.Ts < endTs || e.Ts > endTs+velocityWindowMs {
			continue
		}
		outSum = outSum.Add(e.Amount)
	}
	return outSum.DivRatio(inSum) >= ratio
}

func acctCSV(ids []ledger.AcctID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
