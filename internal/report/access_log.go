package report

import "time"

// AccessEntry records who retrieved a previously generated report.
type AccessEntry struct {
	AccessID   string
	RunID      string
	AccessorID string
	AccessType string // VIEW, EXPORT
	IPAddress  string
	Timestamp  time.Time
}
