package job

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/argoquant/dexterio/pkg/errors"
)

// Store persists job records under a fixed results/jobs/<job_id>/ layout,
// one job.json per directory, per spec.md §6.
type Store interface {
	Save(rec Record) error
	Load(jobID string) (Record, error)
	List() ([]storedRecord, error)
	JobDir(jobID string) string
}

// storedRecord pairs a Record with the mtime of its job.json, used by
// list(limit)'s created_at-desc / mtime tiebreak sort.
type storedRecord struct {
	Record Record
	MTime  int64
}

// FSStore is the filesystem-backed Store rooted at
// <repoRoot>/results/jobs/.
type FSStore struct {
	mu   sync.Mutex
	root string
}

// NewFSStore creates a Store rooted at jobsRoot, creating it if absent.
func NewFSStore(jobsRoot string) (*FSStore, error) {
	if err := os.MkdirAll(jobsRoot, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to create jobs root", err)
	}

	return &FSStore{root: jobsRoot}, nil
}

// JobDir returns the directory a job's artifacts live under.
func (s *FSStore) JobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

func (s *FSStore) recordPath(jobID string) string {
	return filepath.Join(s.JobDir(jobID), "job.json")
}

// Save writes rec's job.json, creating the job directory if needed.
func (s *FSStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.JobDir(rec.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to create job dir", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to marshal job record", err)
	}

	if err := os.WriteFile(s.recordPath(rec.JobID), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to write job.json", err)
	}

	return nil
}

// Load reads one job's record.
func (s *FSStore) Load(jobID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(jobID)
}

func (s *FSStore) loadLocked(jobID string) (Record, error) {
	data, err := os.ReadFile(s.recordPath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, errors.Newf(errors.ErrCodeJobNotFound, "job not found: %s", jobID)
		}

		return Record{}, errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to read job.json", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to unmarshal job.json", err)
	}

	return rec, nil
}

// List loads every job under the store root, per load_jobs_from_disk.
func (s *FSStore) List() ([]storedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errors.Wrap(errors.ErrCodeJobArtifactWrite, "failed to list jobs root", err)
	}

	out := make([]storedRecord, 0, len(entries))

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		rec, err := s.loadLocked(e.Name())
		if err != nil {
			continue
		}

		info, err := os.Stat(s.recordPath(e.Name()))
		mtime := int64(0)

		if err == nil {
			mtime = info.ModTime().UnixNano()
		}

		out = append(out, storedRecord{Record: rec, MTime: mtime})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Record.CreatedAt.Equal(out[j].Record.CreatedAt) {
			return out[i].Record.CreatedAt.After(out[j].Record.CreatedAt)
		}

		return out[i].MTime > out[j].MTime
	})

	return out, nil
}
