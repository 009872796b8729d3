package job

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/argoquant/dexterio/internal/backtest"
	"github.com/argoquant/dexterio/internal/config"
	"github.com/argoquant/dexterio/internal/logger"
	"github.com/argoquant/dexterio/internal/newsgate"
	"github.com/argoquant/dexterio/internal/playbook"
	"github.com/argoquant/dexterio/pkg/errors"
)

// DefaultTimeout is the per-run wall-clock ceiling spec.md §4.9 sets for
// backtests up to a month long.
const DefaultTimeout = 30 * time.Minute

// DefaultPoolConcurrency is the worker pool's goroutine cap, translated
// from the original's ProcessPoolExecutor(max_workers=2).
const DefaultPoolConcurrency = 2

// Runner submits, tracks, and executes backtest jobs against a bounded
// worker pool, wrapping internal/backtest.Run behind the persisted job
// record contract of spec.md §4.9/§6.
type Runner struct {
	store    Store
	repoRoot string
	log      *logger.Logger

	newsGateWasmPath string

	maxConcurrentJobs int
	timeout           time.Duration

	sem chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	live    map[string]bool
}

// NewRunner creates a Runner rooted at repoRoot, persisting jobs under
// <repoRoot>/results/jobs. maxConcurrentJobs governs how many jobs may be
// queued/running at once (spec.md's "a job is already running or queued"
// single-flight guard, promoted to a configurable count); the pool itself
// is bounded independently at DefaultPoolConcurrency goroutines.
func NewRunner(repoRoot string, maxConcurrentJobs int, newsGateWasmPath string, log *logger.Logger) (*Runner, error) {
	if maxConcurrentJobs <= 0 {
		maxConcurrentJobs = 1
	}

	store, err := NewFSStore(filepath.Join(repoRoot, "results", "jobs"))
	if err != nil {
		return nil, err
	}

	r := &Runner{
		store:             store,
		repoRoot:          repoRoot,
		log:               log,
		newsGateWasmPath:  newsGateWasmPath,
		maxConcurrentJobs: maxConcurrentJobs,
		timeout:           DefaultTimeout,
		sem:               make(chan struct{}, DefaultPoolConcurrency),
		cancels:           map[string]context.CancelFunc{},
		live:              map[string]bool{},
	}

	r.ResetStale()

	return r, nil
}

// ResetStale implements spec.md §4.9's startup contract: any job in
// running whose worker handle is gone (true of every job at process
// startup, since Runner tracks live workers only in memory) is moved to
// failed with reason worker_lost.
func (r *Runner) ResetStale() {
	records, err := r.store.List()
	if err != nil {
		return
	}

	for _, sr := range records {
		if sr.Record.Status != StatusRunning {
			continue
		}

		r.mu.Lock()
		alive := r.live[sr.Record.JobID]
		r.mu.Unlock()

		if alive {
			continue
		}

		rec := sr.Record
		rec.Status = StatusFailed
		rec.UpdatedAt = stamp()
		rec.Error = &JobError{Kind: ErrorKindWorkerLost, Message: "worker handle lost across process restart"}

		_ = r.store.Save(rec)
	}
}

// Submit creates a queued job record and dispatches its worker, returning
// the new job_id. Fails with ErrCodeJobQueueFull if maxConcurrentJobs
// active jobs (queued or running) already exist.
func (r *Runner) Submit(cfg config.RunConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	active, err := r.activeCount()
	if err != nil {
		return "", err
	}

	if active >= r.maxConcurrentJobs {
		return "", errors.Newf(errors.ErrCodeJobQueueFull,
			"max_concurrent_jobs=%d reached, job not admitted", r.maxConcurrentJobs)
	}

	jobID := uuid.New().String()
	now := stamp()

	rec := Record{
		JobID:     jobID,
		Status:    StatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		Config:    cfg,
	}

	if err := r.store.Save(rec); err != nil {
		return "", err
	}

	go r.runWorker(jobID, cfg)

	return jobID, nil
}

func (r *Runner) activeCount() (int, error) {
	records, err := r.store.List()
	if err != nil {
		return 0, err
	}

	count := 0

	for _, sr := range records {
		if sr.Record.Status == StatusQueued || sr.Record.Status == StatusRunning {
			count++
		}
	}

	return count, nil
}

// runWorker is the body of one job's goroutine: acquires a pool slot,
// transitions the record to running, calls backtest.Run under a
// wall-clock timeout, and finalizes the record on completion, cancellation
// or timeout. A deferred guarantee mirrors the original's "job must exit
// running state" finally block: if the record is still running when this
// function returns for any reason, it is force-failed as worker_lost.
func (r *Runner) runWorker(jobID string, cfg config.RunConfig) {
	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	r.mu.Lock()
	r.live[jobID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.live, jobID)
		delete(r.cancels, jobID)
		r.mu.Unlock()

		r.guaranteeTerminal(jobID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	r.mu.Lock()
	r.cancels[jobID] = cancel
	r.mu.Unlock()

	rec, err := r.store.Load(jobID)
	if err != nil {
		return
	}

	rec.Status = StatusRunning
	rec.UpdatedAt = stamp()

	if err := r.store.Save(rec); err != nil {
		return
	}

	jobDir := r.store.JobDir(jobID)

	jobLog, err := logger.NewJobLogger(filepath.Join(jobDir, "job.log"))
	if err != nil {
		jobLog = r.log
	}

	newsGate := r.loadNewsGate(ctx, jobLog)

	progress := func(p backtest.Progress) {
		r.saveProgress(jobID, p)
	}

	result, runErr := backtest.Run(ctx, cfg, r.repoRoot, jobDir, jobLog, newsGate, progress)

	rec, loadErr := r.store.Load(jobID)
	if loadErr != nil {
		return
	}

	rec.UpdatedAt = stamp()

	if runErr != nil {
		rec.Status = StatusFailed
		rec.Error = classifyFailure(ctx, runErr)
		_ = r.store.Save(rec)

		return
	}

	if err := writeSummaryArtifacts(jobDir, result); err != nil {
		jobLog.Error("failed to write summary artifacts", zap.Error(err))
	}

	rec.Status = StatusDone
	rec.Progress = 1
	rec.Metrics = &result.Summary
	rec.ArtifactPaths = result.ArtifactPaths
	rec.ArtifactPaths["job.log"] = filepath.Join(jobDir, "job.log")
	rec.ArtifactPaths["summary.json"] = filepath.Join(jobDir, "summary.json")
	rec.ArtifactPaths["debug_counts.json"] = filepath.Join(jobDir, "debug_counts.json")

	_ = r.store.Save(rec)
}

// guaranteeTerminal force-fails a job that is somehow still running after
// its worker goroutine has returned, per spec.md §7's defense-in-depth.
func (r *Runner) guaranteeTerminal(jobID string) {
	rec, err := r.store.Load(jobID)
	if err != nil || rec.Status != StatusRunning {
		return
	}

	rec.Status = StatusFailed
	rec.UpdatedAt = stamp()
	rec.Error = &JobError{Kind: ErrorKindWorkerLost, Message: "worker exited without reaching a terminal state"}

	_ = r.store.Save(rec)
}

func (r *Runner) saveProgress(jobID string, p backtest.Progress) {
	rec, err := r.store.Load(jobID)
	if err != nil || rec.Status != StatusRunning {
		return
	}

	if p.TotalBars > 0 {
		rec.Progress = float64(p.BarsProcessed) / float64(p.TotalBars)
	}

	rec.UpdatedAt = stamp()

	_ = r.store.Save(rec)
}

func (r *Runner) loadNewsGate(ctx context.Context, log *logger.Logger) playbook.NewsGate {
	if r.newsGateWasmPath == "" {
		return nil
	}

	gate, err := newsgate.Load(ctx, r.newsGateWasmPath)
	if err != nil {
		log.Error("failed to load news gate module, running without it", zap.Error(err))
		return nil
	}

	return gate.AsPlaybookGate(ctx)
}

// classifyFailure maps a run failure to the job-level ErrorKind taxonomy:
// cancelled/timeout are read off ctx, everything else is a generic engine
// error carrying the underlying message.
func classifyFailure(ctx context.Context, err error) *JobError {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return &JobError{Kind: ErrorKindTimeout, Message: "run exceeded the wall-clock timeout"}
	case context.Canceled:
		return &JobError{Kind: ErrorKindCancelled, Message: "run was cancelled"}
	default:
		return &JobError{Kind: ErrorKindEngine, Message: err.Error()}
	}
}

// Cancel requests cancellation of a running job. Cancellation cannot
// preempt the atomic "process one bar" unit; the job transitions to
// failed with reason cancelled once the in-flight bar completes.
func (r *Runner) Cancel(jobID string) error {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()

	if !ok {
		return errors.Newf(errors.ErrCodeJobNotFound, "job %s is not running", jobID)
	}

	cancel()

	return nil
}

// Status returns the current record for job_id.
func (r *Runner) Status(jobID string) (Record, error) {
	return r.store.Load(jobID)
}

// Log returns the accumulated job.log text for job_id.
func (r *Runner) Log(jobID string) (string, error) {
	if _, err := r.store.Load(jobID); err != nil {
		return "", err
	}

	path := filepath.Join(r.store.JobDir(jobID), "job.log")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to read job.log", err)
	}

	return string(data), nil
}

// Download returns the bytes of one named artifact for job_id.
func (r *Runner) Download(jobID, artifactName string) ([]byte, error) {
	rec, err := r.store.Load(jobID)
	if err != nil {
		return nil, err
	}

	path, ok := rec.ArtifactPaths[artifactName]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "artifact %s not found for job %s", artifactName, jobID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read artifact %s", artifactName)
	}

	return data, nil
}

// List returns up to limit jobs, sorted created_at descending with mtime
// as tiebreaker, per spec.md §6.
func (r *Runner) List(limit int) ([]ListEntry, error) {
	records, err := r.store.List()
	if err != nil {
		return nil, err
	}

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	out := make([]ListEntry, 0, len(records))

	for _, sr := range records {
		out = append(out, ListEntry{
			JobID:         sr.Record.JobID,
			Status:        sr.Record.Status,
			CreatedAt:     sr.Record.CreatedAt,
			ConfigSummary: sr.Record.Config.Summarize(),
		})
	}

	return out, nil
}

func stamp() time.Time {
	return time.Now().UTC()
}
