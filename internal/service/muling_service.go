package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banking/muling-detector/internal/crypto"
	"github.com/banking/muling-detector/internal/engine"
	"github.com/banking/muling-detector/internal/ledger"
	"github.com/banking/muling-detector/internal/report"
	"github.com/banking/muling-detector/internal/repository/elasticsearch"
	"github.com/banking/muling-detector/internal/repository/postgres"
	"github.com/banking/muling-detector/internal/repository/s3"
)

// MulingService orchestrates one analysis run: call the pure engine,
// persist the result to the immutable ledger (critical path), then
// archive and index it best-effort.
type MulingService struct {
	cfg     engine.DetectionConfig
	pgRepo  *postgres.ReportRepository
	esRepo  *elasticsearch.RingSearchRepository
	s3Repo  *s3.ReportArchiveRepository
	signer  *crypto.ReportSigner
	logger  *zap.Logger
}

func NewMulingService(
	cfg engine.DetectionConfig,
	pgRepo *postgres.ReportRepository,
	esRepo *elasticsearch.RingSearchRepository,
	s3Repo *s3.ReportArchiveRepository,
	signer *crypto.ReportSigner,
	logger *zap.Logger,
) *MulingService {
	return &MulingService{
		cfg:    cfg,
		pgRepo: pgRepo,
		esRepo: esRepo,
		s3Repo: s3Repo,
		signer: signer,
		logger: logger,
	}
}

// RunResult is what a caller (the API handler or the Kafka consumer)
// gets back from an analysis run.
type RunResult struct {
	RunID     string
	Export    report.Export
	Signature string
}

// AnalyzeAndStore runs the engine over txs, persists the result to
// the ledger (critical path), then best-effort archives the JSON
// report to S3 and indexes its rings into Elasticsearch.
func (s *MulingService) AnalyzeAndStore(ctx context.Context, txs []ledger.Transaction) (RunResult, error) {
	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	r := engine.Analyze(txs, s.cfg)
	elapsed := time.Since(startedAt)

	txAmounts := make(map[string]ledger.Money, len(txs))
	for _, tx := range txs {
		txAmounts[tx.TxID] = tx.Amount
	}
	exp := report.Build(r, txAmounts, elapsed)
	completedAt := time.Now().UTC()

	sig := s.signer.SignRun(runID, exp.Summary.TotalAccountsAnalyzed, exp.Summary.SuspiciousAccountsFlagged, exp.Summary.FraudRingsDetected)

	if err := s.pgRepo.StoreRun(ctx, runID, exp, startedAt, completedAt); err != nil {
		s.logger.Error("failed to persist analysis run",
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return RunResult{}, fmt.Errorf("run persistence failed: %w", err)
	}

	s.asyncArchiveAndIndex(runID, exp)

	return RunResult{RunID: runID, Export: exp, Signature: sig}, nil
}

// asyncArchiveAndIndex handles the non-critical-path fan-out with
// panic protection: a failure here must never fail the run itself.
func (s *MulingService) asyncArchiveAndIndex(runID string, exp report.Export) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in async archive/index", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data, err := json.Marshal(exp)
		if err != nil {
			s.logger.Error("failed to marshal report for archive", zap.String("run_id", runID), zap.Error(err))
			return
		}

		if err := s.s3Repo.StoreReport(asyncCtx, runID, data); err != nil {
			s.logger.Error("failed to archive report", zap.String("run_id", runID), zap.Error(err))
		}

		for _, ring := range exp.FraudRings {
			if err := s.esRepo.IndexRing(asyncCtx, runID, ring); err != nil {
				s.logger.Error("failed to index ring",
					zap.String("run_id", runID),
					zap.String("ring_id", ring.RingID),
					zap.Error(err),
				)
			}
		}
	}()
}

// GetRun retrieves a previously stored run's summary and rings.
func (s *MulingService) GetRun(ctx context.Context, runID string) (report.Summary, []report.FraudRingEntry, error) {
	summary, err := s.pgRepo.GetRunSummary(ctx, runID)
	if err != nil {
		return report.Summary{}, nil, err
	}
	rings, err := s.pgRepo.GetRings(ctx, runID)
	if err != nil {
		return report.Summary{}, nil, err
	}
	return summary, rings, nil
}
