package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/pkg/config"
)

type fakeBackfill struct {
	runs int32
	err  error
}

func (f *fakeBackfill) Run(ctx context.Context) (*dto.BackfillResult, error) {
	atomic.AddInt32(&f.runs, 1)
	return &dto.BackfillResult{}, f.err
}

func (f *fakeBackfill) BackfillRepo(ctx context.Context, repo string) (*dto.BackfillRepoResult, error) {
	return &dto.BackfillRepoResult{Repo: repo}, f.err
}

func TestStart_Disabled(t *testing.T) {
	backfill := &fakeBackfill{}
	s := NewScheduler(backfill, zap.NewNop())

	require.NoError(t, s.Start(&config.BackfillConfig{Enabled: false, Cron: "* * * * * *"}))
	assert.Empty(t, s.cronSchedules)
	s.Stop()
}

func TestStart_InvalidCron(t *testing.T) {
	s := NewScheduler(&fakeBackfill{}, zap.NewNop())
	assert.Error(t, s.Start(&config.BackfillConfig{Enabled: true, Cron: "not a cron"}))
}

func TestStart_RunsBackfill(t *testing.T) {
	backfill := &fakeBackfill{err: assert.AnError}
	s := NewScheduler(backfill, zap.NewNop())

	require.NoError(t, s.Start(&config.BackfillConfig{Enabled: true, Cron: "* * * * * *"}))
	assert.Contains(t, s.cronSchedules, "backfill")

	// 任务失败只记录日志，调度继续
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&backfill.runs) >= 1
	}, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestStart_DefaultCron(t *testing.T) {
	s := NewScheduler(&fakeBackfill{}, zap.NewNop())
	require.NoError(t, s.Start(&config.BackfillConfig{Enabled: true}))

	entry := s.cron.Entry(s.cronSchedules["backfill"])
	assert.True(t, entry.Valid())
	s.Stop()
}

func TestTriggerBackfill(t *testing.T) {
	backfill := &fakeBackfill{}
	s := NewScheduler(backfill, zap.NewNop())

	require.NoError(t, s.TriggerBackfill(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&backfill.runs))

	backfill.err = assert.AnError
	assert.ErrorIs(t, s.TriggerBackfill(context.Background()), assert.AnError)
}
