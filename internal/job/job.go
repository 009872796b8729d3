// Package job implements the Job Runner: submit/status/log/download/list/
// reset_stale control surface wrapping a single backtest.Run invocation
// behind a persisted job record, grounded on
// original_source/backend/jobs/backtest_jobs.py's create_job/get_job_status/
// list_jobs/load_jobs_from_disk/run_backtest_worker, combined with the
// teacher's per-invocation run-folder convention
// (internal/trading/engine/engine_v1/session.SessionManager).
package job

import (
	"time"

	"github.com/argoquant/dexterio/internal/config"
	"github.com/argoquant/dexterio/internal/metrics"
)

// Status is the closed set of job lifecycle states, per spec.md §4.9:
// queued -> running -> {done, failed}.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// ErrorKind is the closed set of job-level failure reasons spec.md §7
// names: Cancelled, Timeout, WorkerLost, and the generic engine-error path.
type ErrorKind string

const (
	ErrorKindCancelled ErrorKind = "cancelled"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindWorkerLost ErrorKind = "worker_lost"
	ErrorKindEngine    ErrorKind = "engine_error"
)

// JobError is the job.json error record populated on failure.
type JobError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Record is the full job.json status record: status, progress, config,
// metrics, artifact_paths, error, exactly as spec.md §6 lists.
type Record struct {
	JobID     string    `json:"job_id"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Config config.RunConfig `json:"config"`

	Metrics       *metrics.Summary  `json:"metrics,omitempty"`
	ArtifactPaths map[string]string `json:"artifact_paths,omitempty"`
	Error         *JobError         `json:"error,omitempty"`
}

// ListEntry is the compact record list(limit) returns per job, per spec.md
// §6: {job_id, status, created_at, config_summary}.
type ListEntry struct {
	JobID         string               `json:"job_id"`
	Status        Status               `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	ConfigSummary config.ConfigSummary `json:"config_summary"`
}
