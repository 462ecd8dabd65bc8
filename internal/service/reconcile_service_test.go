package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/model"
	"ci-dashboard/internal/repository"
	"ci-dashboard/internal/testutil"
	"ci-dashboard/pkg/constants"
)

const testRepo = "octo/widgets"

var baseTime = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

func newTestReconcile(t *testing.T) (ReconcileService, *repository.Repositories) {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewDB(t))
	return NewReconcileService(repos, zap.NewNop()), repos
}

// runEvent created -> +createdToStart 开始 -> +startToEnd 结束
func runEvent(gitID int64, status string, conclusion *string, created time.Time, createdToStart, startToEnd time.Duration) *dto.WorkflowRunEvent {
	started := created.Add(createdToStart)
	updated := started.Add(startToEnd)
	return &dto.WorkflowRunEvent{
		GitID:        gitID,
		Repo:         testRepo,
		Status:       status,
		Conclusion:   conclusion,
		CreatedAt:    &created,
		RunStartedAt: &started,
		UpdatedAt:    &updated,
		BranchName:   "main",
		CommitHash:   "abc123",
		WorkflowName: "pull",
		Author:       "alice",
		URL:          "https://github.com/octo/widgets/actions/runs/1",
	}
}

func countRuns(t *testing.T, repos *repository.Repositories) int64 {
	t.Helper()
	_, total, err := repos.WorkflowRun.List(context.Background(), 0, 0)
	require.NoError(t, err)
	return total
}

func TestRecordWorkflowRun_Idempotent(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	event := runEvent(1001, constants.RunStatusCompleted, testutil.Ptr("success"), baseTime, time.Minute, 10*time.Minute)
	require.NoError(t, svc.RecordWorkflowRun(ctx, event))
	first, err := repos.WorkflowRun.FindByGitID(ctx, 1001)
	require.NoError(t, err)

	require.NoError(t, svc.RecordWorkflowRun(ctx, event))
	second, err := repos.WorkflowRun.FindByGitID(ctx, 1001)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRuns(t, repos))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Runtime, second.Runtime)
	assert.Equal(t, first.QueueTime, second.QueueTime)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Conclusion, second.Conclusion)
	assert.Equal(t, first.CreateTime, second.CreateTime)
	assert.Equal(t, first.ArchivedCommitHash, second.ArchivedCommitHash)
}

func TestRecordWorkflowRun_StatusTransition(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(7, constants.RunStatusInProgress, nil, baseTime, 2*time.Minute, time.Minute)))
	require.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(7, constants.RunStatusCompleted, testutil.Ptr("failure"), baseTime, 2*time.Minute, 5*time.Minute)))

	run, err := repos.WorkflowRun.FindByGitID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCompleted, run.Status)
	assert.Equal(t, constants.ConclusionFailure, run.ConclusionValue())
	assert.Equal(t, float64(300), run.Runtime)
	assert.Equal(t, float64(120), run.QueueTime)
	assert.Equal(t, int64(1), countRuns(t, repos))
}

func TestRecordWorkflowRun_Derivations(t *testing.T) {
	tests := []struct {
		name           string
		event          func() *dto.WorkflowRunEvent
		wantRuntime    float64
		wantQueueTime  float64
		wantConclusion *string
	}{
		{
			name: "wall clock runtime",
			event: func() *dto.WorkflowRunEvent {
				return runEvent(1, constants.RunStatusCompleted, testutil.Ptr("success"), baseTime, 30*time.Second, 90*time.Second)
			},
			wantRuntime:    90,
			wantQueueTime:  30,
			wantConclusion: testutil.Ptr("success"),
		},
		{
			name: "reported duration in milliseconds",
			event: func() *dto.WorkflowRunEvent {
				e := runEvent(2, constants.RunStatusCompleted, testutil.Ptr("success"), baseTime, 30*time.Second, 90*time.Second)
				e.RunDurationMs = testutil.Ptr(int64(45500))
				return e
			},
			wantRuntime:    45.5,
			wantQueueTime:  30,
			wantConclusion: testutil.Ptr("success"),
		},
		{
			name: "queued waits until updated and has no conclusion",
			event: func() *dto.WorkflowRunEvent {
				return runEvent(3, "QUEUED", testutil.Ptr("success"), baseTime, 0, 40*time.Second)
			},
			wantRuntime:    40,
			wantQueueTime:  40,
			wantConclusion: nil,
		},
		{
			name: "negative intervals clamp to zero",
			event: func() *dto.WorkflowRunEvent {
				return runEvent(4, constants.RunStatusCompleted, testutil.Ptr(""), baseTime, -time.Minute, -time.Minute)
			},
			wantRuntime:    0,
			wantQueueTime:  0,
			wantConclusion: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repos := newTestReconcile(t)
			ctx := context.Background()
			event := tt.event()

			require.NoError(t, svc.RecordWorkflowRun(ctx, event))
			run, err := repos.WorkflowRun.FindByGitID(ctx, event.GitID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRuntime, run.Runtime)
			assert.Equal(t, tt.wantQueueTime, run.QueueTime)
			assert.Equal(t, tt.wantConclusion, run.Conclusion)
		})
	}
}

func TestRecordWorkflowRun_DropsIncompleteEvent(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	missingTimestamp := runEvent(11, constants.RunStatusCompleted, nil, baseTime, 0, 0)
	missingTimestamp.UpdatedAt = nil
	missingRepo := runEvent(12, constants.RunStatusCompleted, nil, baseTime, 0, 0)
	missingRepo.Repo = ""

	assert.NoError(t, svc.RecordWorkflowRun(ctx, missingTimestamp))
	assert.NoError(t, svc.RecordWorkflowRun(ctx, missingRepo))
	assert.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(13, constants.RunStatusCompleted, nil, baseTime, 0, 0)))

	assert.Equal(t, int64(1), countRuns(t, repos))
}

func TestRecordWorkflowRun_DeferredForeignKeys(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(21, constants.RunStatusCompleted, testutil.Ptr("success"), baseTime, 0, time.Minute)))

	run, err := repos.WorkflowRun.FindByGitID(ctx, 21)
	require.NoError(t, err)
	assert.Nil(t, run.CommitID)
	assert.Nil(t, run.WorkflowID)
	require.NotNil(t, run.BranchID)
	assert.Equal(t, "abc123", run.ArchivedCommitHash)
	assert.Equal(t, "pull", run.ArchivedWorkflowName)

	result, err := svc.RecordCommits(ctx, &dto.PushEvent{
		Repo:    testRepo,
		Commits: []dto.CommitRecord{{Hash: "abc123", Author: "alice", Message: "fix flaky test", Time: baseTime.Unix()}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stored)

	_, err = svc.RecordWorkflows(ctx, &dto.WorkflowsEvent{
		Repo:      testRepo,
		Workflows: []dto.WorkflowRecord{{Name: "pull", URL: "https://github.com/octo/widgets/blob/main/.github/workflows/pull.yml"}},
	})
	require.NoError(t, err)

	run, err = repos.WorkflowRun.FindByGitID(ctx, 21)
	require.NoError(t, err)
	commit, err := repos.Commit.FindByHash(ctx, testRepo, "abc123")
	require.NoError(t, err)
	workflow, err := repos.Workflow.FindByName(ctx, testRepo, "pull")
	require.NoError(t, err)

	require.NotNil(t, run.CommitID)
	assert.Equal(t, commit.ID, *run.CommitID)
	require.NotNil(t, run.WorkflowID)
	assert.Equal(t, workflow.ID, *run.WorkflowID)

	// 之后的运行直接关联
	require.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(22, constants.RunStatusCompleted, nil, baseTime, 0, time.Minute)))
	run, err = repos.WorkflowRun.FindByGitID(ctx, 22)
	require.NoError(t, err)
	require.NotNil(t, run.CommitID)
	assert.Equal(t, commit.ID, *run.CommitID)
}

func TestReconcileLinks_LinksOnlyMatchingRepo(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	other := runEvent(31, constants.RunStatusCompleted, nil, baseTime, 0, 0)
	other.Repo = "octo/other"
	require.NoError(t, svc.RecordWorkflowRun(ctx, other))

	// 只写入 testRepo 的提交，octo/other 的运行不应被关联
	require.NoError(t, repos.Commit.Upsert(ctx, &model.Commit{Hash: "abc123", Repo: testRepo, Time: baseTime.Unix()}))
	linked, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), linked)

	run, err := repos.WorkflowRun.FindByGitID(ctx, 31)
	require.NoError(t, err)
	assert.Nil(t, run.CommitID)
}

func TestRecordQueueStart_GuardedUpdate(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	// 刚进入排队，queuetime 仍为 0
	require.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(41, constants.RunStatusQueued, nil, baseTime, 0, 0)))

	started := baseTime.Add(30 * time.Second)
	require.NoError(t, svc.RecordQueueStart(ctx, &dto.QueueStartEvent{RunID: 41, StartedAt: &started}))

	run, err := repos.WorkflowRun.FindByGitID(ctx, 41)
	require.NoError(t, err)
	assert.Equal(t, float64(30), run.QueueTime)
	require.NotNil(t, run.StartTime)
	assert.Equal(t, started.Unix(), *run.StartTime)

	late := baseTime.Add(90 * time.Second)
	require.NoError(t, svc.RecordQueueStart(ctx, &dto.QueueStartEvent{RunID: 41, StartedAt: &late}))

	run, err = repos.WorkflowRun.FindByGitID(ctx, 41)
	require.NoError(t, err)
	assert.Equal(t, float64(30), run.QueueTime)
	assert.Equal(t, started.Unix(), *run.StartTime)
}

func TestRecordQueueStart_OutOfOrder(t *testing.T) {
	ctx := context.Background()
	started := baseTime.Add(45 * time.Second)
	inProgress := runEvent(51, constants.RunStatusInProgress, nil, baseTime, 45*time.Second, 0)
	queueStart := &dto.QueueStartEvent{RunID: 51, StartedAt: &started}

	svcA, reposA := newTestReconcile(t)
	require.NoError(t, svcA.RecordQueueStart(ctx, queueStart))
	require.NoError(t, svcA.RecordWorkflowRun(ctx, inProgress))
	runA, err := reposA.WorkflowRun.FindByGitID(ctx, 51)
	require.NoError(t, err)

	svcB, reposB := newTestReconcile(t)
	require.NoError(t, svcB.RecordWorkflowRun(ctx, inProgress))
	require.NoError(t, svcB.RecordQueueStart(ctx, queueStart))
	runB, err := reposB.WorkflowRun.FindByGitID(ctx, 51)
	require.NoError(t, err)

	assert.Equal(t, runA.QueueTime, runB.QueueTime)
	assert.Equal(t, runA.StartTime, runB.StartTime)
	assert.Equal(t, runA.Status, runB.Status)
	assert.Equal(t, float64(45), runB.QueueTime)
}

func TestRecordQueueStart_Labels(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(61, constants.RunStatusQueued, nil, baseTime, 0, 0)))
	require.NoError(t, svc.RecordQueueStart(ctx, &dto.QueueStartEvent{
		RunID:  61,
		Labels: []string{"self-hosted", "windows", "win-gpu"},
	}))

	run, err := repos.WorkflowRun.FindByGitID(ctx, 61)
	require.NoError(t, err)
	assert.Equal(t, constants.OSWindows, run.OS)
	assert.Equal(t, "win-gpu", run.RunnerType)
	assert.Equal(t, []string{"self-hosted", "windows", "win-gpu"}, []string(run.Labels))
	assert.Equal(t, float64(0), run.QueueTime)

	// 后续不带标签的运行事件不覆盖运行器维度
	require.NoError(t, svc.RecordWorkflowRun(ctx, runEvent(61, constants.RunStatusCompleted, testutil.Ptr("success"), baseTime, time.Minute, time.Minute)))
	run, err = repos.WorkflowRun.FindByGitID(ctx, 61)
	require.NoError(t, err)
	assert.Equal(t, constants.OSWindows, run.OS)
	assert.Equal(t, "win-gpu", run.RunnerType)
}

func TestRecordQueueStart_DropsEmptyEvent(t *testing.T) {
	svc, _ := newTestReconcile(t)
	assert.NoError(t, svc.RecordQueueStart(context.Background(), &dto.QueueStartEvent{RunID: 99}))
	assert.NoError(t, svc.RecordQueueStart(context.Background(), &dto.QueueStartEvent{}))
}

func TestRecordCommits_DropsOnlyBadCommits(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	result, err := svc.RecordCommits(ctx, &dto.PushEvent{
		Repo: testRepo,
		Commits: []dto.CommitRecord{
			{Hash: "c1", Author: "alice", Message: "one", Time: baseTime.Unix()},
			{Hash: "", Author: "bob", Message: "no hash", Time: baseTime.Unix()},
			{Hash: "c3", Author: "carol", Message: "no time"},
			{Hash: "c4", Author: "dave", Message: "four", Time: baseTime.Unix()},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 2, result.Dropped)

	total, err := repos.Commit.Count(ctx, testRepo)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// 同一哈希再次推送时后写覆盖
	_, err = svc.RecordCommits(ctx, &dto.PushEvent{
		Repo:    testRepo,
		Commits: []dto.CommitRecord{{Hash: "c1", Author: "alice", Message: "one (amended)", Time: baseTime.Unix()}},
	})
	require.NoError(t, err)
	commit, err := repos.Commit.FindByHash(ctx, testRepo, "c1")
	require.NoError(t, err)
	assert.Equal(t, "one (amended)", commit.Message)
}

func TestRecordBranch(t *testing.T) {
	svc, repos := newTestReconcile(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordBranch(ctx, &dto.BranchEvent{RefName: "refs/heads/feature/x", Repo: testRepo, Author: "alice"}))
	require.NoError(t, svc.RecordBranch(ctx, &dto.BranchEvent{RefName: "feature/x", Repo: testRepo, Author: "bob"}))
	require.NoError(t, svc.RecordBranch(ctx, &dto.BranchEvent{RefName: "", Repo: testRepo}))

	branches, err := repos.Branch.ListByRepo(ctx, testRepo)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "feature/x", branches[0].Name)
	assert.Equal(t, "bob", branches[0].Author)
}

func TestDeriveHelpers(t *testing.T) {
	assert.Equal(t, 1.5, deriveRuntime(testutil.Ptr(int64(1500)), 0, 100))
	assert.Equal(t, float64(100), deriveRuntime(nil, 0, 100))
	assert.Equal(t, float64(100), deriveRuntime(testutil.Ptr(int64(-1)), 0, 100))

	assert.Equal(t, float64(20), deriveQueueTime(constants.RunStatusQueued, 10, 15, 30))
	assert.Equal(t, float64(5), deriveQueueTime(constants.RunStatusCompleted, 10, 15, 30))

	assert.Nil(t, normalizeConclusion(constants.RunStatusQueued, testutil.Ptr("failure")))
	assert.Equal(t, "failure", *normalizeConclusion(constants.RunStatusCompleted, testutil.Ptr(" Failure ")))
}
