package dto

import "time"

// Pipeline job types carried on the redis job streams.
const (
	JobTypeSnapshotBuild    = "snapshot_build"
	JobTypeVerification     = "verification"
	JobTypeThemeAggregation = "theme_aggregation"
)

// PipelineJob is the payload enqueued by the scheduler and consumed by the
// stream workers, one job per (type, market, date).
type PipelineJob struct {
	Type       string    `json:"type"`
	Market     string    `json:"market"`
	TargetDate time.Time `json:"target_date"`
	// Snapshot builds cover a range; verification and aggregation ignore From.
	DateFrom   *time.Time `json:"date_from,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}
