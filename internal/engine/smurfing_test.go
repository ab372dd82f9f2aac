package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/muling-detector/internal/ledger"
)

func fanInTxs(receiver ledger.AcctID, n int, amount float64, startTs ledger.EpochMs) []ledger.Transaction {
	txs := make([]ledger.Transaction, 0, n)
	for i := 0; i < n; i++ {
		sender := ledger.AcctID(string(rune('a' + i)))
		txs = append(txs, txn("fi"+string(rune('0'+i)), sender, receiver, amount, startTs+ledger.EpochMs(i)))
	}
	return txs
}

func TestDetectSmurfing_FanInQualifies(t *testing.T) {
	cfg := DefaultDetectionConfig()
	cfg.UniqueMinFanIn = 3
	txs := fanInTxs("HUB", 3, 500, 1000)

	g := buildGraph(txs)
	rings := detectSmurfing(g, cfg)

	require.Len(t, rings, 1)
	assert.Equal(t, PatternSmurfing, rings[0].Pattern)
	assert.Contains(t, rings[0].Members, ledger.AcctID("HUB"))
	require.NotNil(t, rings[0].Evidence.Roles)
	assert.Len(t, rings[0].Evidence.Roles.Senders, 3)
}

func TestDetectSmurfing_BelowRatioGateNotEmitted(t *testing.T) {
	cfg := DefaultDetectionConfig()
	cfg.UniqueMinFanIn = 3
	cfg.SmallTx = ledger.MustMoneyFromFloat(1000)
	cfg.SmallCPRatio = 0.70

	// All three counterparties send amounts above the small-tx floor,
	// so the small-counterparty ratio gate (70%) is never cleared.
	g := buildGraph(fanInTxs("HUB", 3, 50000, 1000))
	rings := detectSmurfing(g, cfg)

	assert.Empty(t, rings, "fan-in with no small-counterparty ratio must not qualify")
}

func TestDetectSmurfing_FanOutQualifies(t *testing.T) {
	cfg := DefaultDetectionConfig()
	cfg.UniqueMinFanOut = 3

	txs := []ledger.Transaction{
		txn("o1", "SRC", "a", 500, 1000),
		txn("o2", "SRC", "b", 500, 1001),
		txn("o3", "SRC", "c", 500, 1002),
	}
	g := buildGraph(txs)
	rings := detectSmurfing(g, cfg)

	require.Len(t, rings, 1)
	assert.Equal(t, PatternDispersal, rings[0].Pattern)
	require.NotNil(t, rings[0].Evidence.Roles)
	assert.Len(t, rings[0].Evidence.Roles.Receivers, 3)
}

func TestDetectSmurfing_OutsideWindowNotEmitted(t *testing.T) {
	cfg := DefaultDetectionConfig()
	cfg.UniqueMinFanIn = 3
	cfg.Window = 1 // 1ns, truncated to a 0ms window: too tight for senders 1ms apart

	g := buildGraph(fanInTxs("HUB", 3, 500, 1000))
	rings := detectSmurfing(g, cfg)

	assert.Empty(t, rings)
}

func TestVelocityQualifies_RatioGate(t *testing.T) {
	inSum := ledger.MustMoneyFromFloat(1000)
	out := []AdjEntry{
		{Peer: "x", Amount: ledger.MustMoneyFromFloat(950), Ts: 100},
	}
	assert.True(t, velocityQualifies(out, 50, 1000, inSum, 0.90))

	lowOut := []AdjEntry{
		{Peer: "x", Amount: ledger.MustMoneyFromFloat(100), Ts: 100},
	}
	assert.False(t, velocityQualifies(lowOut, 50, 1000, inSum, 0.90))
}
