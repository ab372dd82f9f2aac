package postgres

import (
	"context"
	"fmt"

	"github.com/banking/muling-detector/internal/report"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportAccessLogRepository records who viewed or downloaded a
// generated fraud report.
type ReportAccessLogRepository struct {
	pool *pgxpool.Pool
}

// NewReportAccessLogRepository creates a new report access log repository.
func NewReportAccessLogRepository(pool *pgxpool.Pool) *ReportAccessLogRepository {
	return &ReportAccessLogRepository{
		pool: pool,
	}
}

// LogAccess records who accessed a stored analysis run.
func (r *ReportAccessLogRepository) LogAccess(ctx context.Context, entry *report.AccessEntry) error {
	const query = `
		INSERT INTO report_access_logs (
			access_id, run_id, accessor_id, access_type, ip_address, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.AccessID, entry.RunID, entry.AccessorID, entry.AccessType, entry.IPAddress, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report access log: %w", err)
	}
	return nil
}
