package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banking/muling-detector/internal/config"
	"github.com/banking/muling-detector/internal/report"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository persists analysis runs. Every table here is
// APPEND-ONLY: a run's rings and flagged accounts are never updated
// or deleted once stored.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository opens a pgx connection pool sized per cfg.
func NewReportRepository(cfg config.DatabaseConfig) (*ReportRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &ReportRepository{pool: pool}, nil
}

// StoreRun inserts the run header and, in the same call, every fraud
// ring and suspicious account it produced.
func (r *ReportRepository) StoreRun(ctx context.Context, runID string, exp report.Export, startedAt, completedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const runQuery = `
		INSERT INTO analysis_runs (
			run_id, total_accounts_analyzed, suspicious_accounts_flagged,
			fraud_rings_detected, processing_time_seconds, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, runQuery,
		runID, exp.Summary.TotalAccountsAnalyzed, exp.Summary.SuspiciousAccountsFlagged,
		exp.Summary.FraudRingsDetected, exp.Summary.ProcessingTimeSeconds, startedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}

	const ringQuery = `
		INSERT INTO fraud_rings (
			run_id, ring_id, pattern, involved_accounts, total_amount, risk_score
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, ring := range exp.FraudRings {
		_, err = tx.Exec(ctx, ringQuery,
			runID, ring.RingID, ring.Pattern, ring.InvolvedAccounts, ring.TotalAmount, ring.RiskScore,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fraud ring %s: %w", ring.RingID, err)
		}
	}

	const acctQuery = `
		INSERT INTO suspicious_accounts (
			run_id, account_id, suspicion_score, detected_patterns, ring_id
		) VALUES ($1, $2, $3, $4, $5)
	`
	for _, acct := range exp.SuspiciousAccounts {
		_, err = tx.Exec(ctx, acctQuery,
			runID, acct.AccountID, acct.SuspicionScore, acct.DetectedPatterns, acct.RingID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert suspicious account %s: %w", acct.AccountID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}
	return nil
}

// GetRings retrieves every fraud ring recorded for a run.
func (r *ReportRepository) GetRings(ctx context.Context, runID string) ([]report.FraudRingEntry, error) {
	const query = `
		SELECT ring_id, pattern, involved_accounts, total_amount, risk_score
		FROM fraud_rings
		WHERE run_id = $1
		ORDER BY risk_score DESC, ring_id ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fraud rings: %w", err)
	}
	defer rows.Close()

	var rings []report.FraudRingEntry
	for rows.Next() {
		var ring report.FraudRingEntry
		if err := rows.Scan(&ring.RingID, &ring.Pattern, &ring.InvolvedAccounts, &ring.TotalAmount, &ring.RiskScore); err != nil {
			return nil, fmt.Errorf("failed to scan fraud ring: %w", err)
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// GetRunSummary retrieves the summary row for a previously stored run.
func (r *ReportRepository) GetRunSummary(ctx context.Context, runID string) (report.Summary, error) {
	const query = `
		SELECT total_accounts_analyzed, suspicious_accounts_flagged,
		       fraud_rings_detected, processing_time_seconds
		FROM analysis_runs
		WHERE run_id = $1
	`
	var s report.Summary
	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&s.TotalAccountsAnalyzed, &s.SuspiciousAccountsFlagged,
		&s.FraudRingsDetected, &s.ProcessingTimeSeconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report.Summary{}, fmt.Errorf("run %s not found", runID)
		}
		return report.Summary{}, fmt.Errorf("failed to query run summary: %w", err)
	}
	return s, nil
}

// Close closes the database connection pool.
func (r *ReportRepository) Close() {
	r.pool.Close()
}
