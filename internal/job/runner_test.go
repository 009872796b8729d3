package job

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/pkg/errors"
)

type RunnerTestSuite struct {
	suite.Suite
	dir    string
	runner *Runner
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (s *RunnerTestSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "job-runner-*")
	s.Require().NoError(err)
	s.dir = dir

	runner, err := NewRunner(dir, 1, "", nil)
	s.Require().NoError(err)
	s.runner = runner
}

func (s *RunnerTestSuite) TearDownTest() {
	os.RemoveAll(s.dir)
}

func (s *RunnerTestSuite) TestResetStaleFailsOrphanedRunningJob() {
	rec := Record{JobID: "orphan", Status: StatusRunning, CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.runner.store.Save(rec))

	s.runner.ResetStale()

	loaded, err := s.runner.Status("orphan")
	s.Require().NoError(err)
	s.Equal(StatusFailed, loaded.Status)
	s.Require().NotNil(loaded.Error)
	s.Equal(ErrorKindWorkerLost, loaded.Error.Kind)
}

func (s *RunnerTestSuite) TestResetStaleLeavesLiveWorkerAlone() {
	rec := Record{JobID: "alive", Status: StatusRunning, CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.runner.store.Save(rec))

	s.runner.mu.Lock()
	s.runner.live["alive"] = true
	s.runner.mu.Unlock()

	s.runner.ResetStale()

	loaded, err := s.runner.Status("alive")
	s.Require().NoError(err)
	s.Equal(StatusRunning, loaded.Status)
}

func (s *RunnerTestSuite) TestCancelUnknownJobReturnsJobNotFound() {
	err := s.runner.Cancel("no-such-job")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeJobNotFound))
}

func (s *RunnerTestSuite) TestClassifyFailureDeadlineExceeded() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	jobErr := classifyFailure(ctx, context.DeadlineExceeded)
	s.Equal(ErrorKindTimeout, jobErr.Kind)
}

func (s *RunnerTestSuite) TestClassifyFailureCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobErr := classifyFailure(ctx, context.Canceled)
	s.Equal(ErrorKindCancelled, jobErr.Kind)
}

func (s *RunnerTestSuite) TestClassifyFailureGenericEngineError() {
	jobErr := classifyFailure(context.Background(), errors.New(errors.ErrCodeAggregationFailed, "boom"))
	s.Equal(ErrorKindEngine, jobErr.Kind)
}

func (s *RunnerTestSuite) TestListRespectsLimit() {
	for i := 0; i < 3; i++ {
		id := time.Now().Add(time.Duration(i) * time.Millisecond).Format("150405.000000000")
		rec := Record{JobID: id, Status: StatusDone, CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second)}
		s.Require().NoError(s.runner.store.Save(rec))
	}

	entries, err := s.runner.List(2)
	s.Require().NoError(err)
	s.Len(entries, 2)
}
