package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banking/muling-detector/internal/config"
	"github.com/banking/muling-detector/internal/crypto"
	"github.com/banking/muling-detector/internal/ledger"
	"github.com/banking/muling-detector/internal/repository/elasticsearch"
	"github.com/banking/muling-detector/internal/repository/postgres"
	"github.com/banking/muling-detector/internal/repository/s3"
	"github.com/banking/muling-detector/internal/service"
)

// TestMulingFlow requires Docker Compose environment running (postgres,
// elasticsearch, minio).
func TestMulingFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// 1. Setup
	cfg, err := config.Load()
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()

	signer, err := crypto.NewReportSigner(cfg.Signing.HMACSecret)
	require.NoError(t, err)

	pgRepo, err := postgres.NewReportRepository(cfg.Database)
	require.NoError(t, err)
	defer pgRepo.Close()

	esRepo, err := elasticsearch.NewRingSearchRepository(cfg.Elasticsearch)
	if err != nil {
		t.Logf("Elasticsearch not available, skipping ring search verification: %v", err)
	}

	s3Repo, err := s3.NewReportArchiveRepository(context.Background(), cfg.S3)
	require.NoError(t, err)

	mulingService := service.NewMulingService(cfg.Detection.ToEngine(), pgRepo, esRepo, s3Repo, signer, logger)

	// 2. Execution: a simple 3-hop cycle A->B->C->A, amounts above the
	// small-transaction floor so it can't also be mistaken for smurfing.
	txs := []ledger.Transaction{
		{TxID: "tx-1", Sender: "ACC-A", Receiver: "ACC-B", Amount: ledger.MustMoneyFromFloat(5000), Ts: 1_700_000_000_000},
		{TxID: "tx-2", Sender: "ACC-B", Receiver: "ACC-C", Amount: ledger.MustMoneyFromFloat(4800), Ts: 1_700_000_060_000},
		{TxID: "tx-3", Sender: "ACC-C", Receiver: "ACC-A", Amount: ledger.MustMoneyFromFloat(4600), Ts: 1_700_000_120_000},
	}

	result, err := mulingService.AnalyzeAndStore(context.Background(), txs)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.NotEmpty(t, result.Signature)

	// 3. Verification - detection result
	require.Len(t, result.Export.FraudRings, 1)
	ring := result.Export.FraudRings[0]
	assert.Equal(t, "Circular Fund Routing", ring.Pattern)
	assert.ElementsMatch(t, []string{"ACC-A", "ACC-B", "ACC-C"}, ring.InvolvedAccounts)
	assert.Len(t, result.Export.SuspiciousAccounts, 3)

	// 4. Verification - persistence & signature
	summary, rings, err := mulingService.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assert.Equal(t, 3, summary.TotalAccountsAnalyzed)
	assert.Equal(t, 1, summary.FraudRingsDetected)

	valid := signer.VerifyRunSignature(
		result.RunID,
		summary.TotalAccountsAnalyzed,
		summary.SuspiciousAccountsFlagged,
		summary.FraudRingsDetected,
		result.Signature,
	)
	assert.True(t, valid, "run signature must verify")

	t.Log("Muling detection flow integration test passed")
}
