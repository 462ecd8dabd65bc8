package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ci-dashboard/internal/adapter/notification"
	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/repository"
	"ci-dashboard/internal/testutil"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg *notification.NotificationMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockNotifier) SendRedSignal(ctx context.Context, signal *notification.RedSignal, notifyType notification.NotificationType) error {
	return m.Called(ctx, signal, notifyType).Error(0)
}

func newTestWebhook(t *testing.T) (WebhookService, *repository.Repositories, *mockNotifier) {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewDB(t))
	notifier := &mockNotifier{}
	svc := NewWebhookService(NewReconcileService(repos, zap.NewNop()), repos, notifier, "main", zap.NewNop())
	return svc, repos, notifier
}

func workflowRunPayload(id int64, branch, status, conclusion string) []byte {
	conclusionJSON := "null"
	if conclusion != "" {
		conclusionJSON = fmt.Sprintf("%q", conclusion)
	}
	return []byte(fmt.Sprintf(`{
		"action": "completed",
		"workflow_run": {
			"id": %d,
			"name": "pull",
			"status": %q,
			"conclusion": %s,
			"created_at": "2024-01-03T10:00:00Z",
			"run_started_at": "2024-01-03T10:01:00Z",
			"updated_at": "2024-01-03T10:11:00Z",
			"head_branch": %q,
			"head_sha": "abc123",
			"html_url": "https://github.com/octo/widgets/actions/runs/%d",
			"actor": {"login": "alice"}
		},
		"workflow": {"name": "pull", "html_url": "https://github.com/octo/widgets/blob/main/.github/workflows/pull.yml"},
		"repository": {"full_name": "octo/widgets"}
	}`, id, status, conclusionJSON, branch, id))
}

func TestHandleDelivery_WorkflowRun(t *testing.T) {
	svc, repos, _ := newTestWebhook(t)
	ctx := context.Background()

	result, err := svc.HandleDelivery(ctx, dto.GitHubEventWorkflowRun, workflowRunPayload(100, "feature", "completed", "success"))
	require.NoError(t, err)
	assert.Equal(t, &dto.WebhookResult{Event: dto.GitHubEventWorkflowRun, Action: "completed", Result: "accepted"}, result)

	run, err := repos.WorkflowRun.FindByGitID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, float64(600), run.Runtime)
	assert.Equal(t, float64(60), run.QueueTime)
	assert.Equal(t, "feature", run.ArchivedBranchName)
	assert.Equal(t, "alice", run.Author)
	// workflow 随负载一起入库，运行直接关联
	assert.NotNil(t, run.WorkflowID)
}

func TestHandleDelivery_DetectsEventFromPayload(t *testing.T) {
	svc, repos, _ := newTestWebhook(t)
	ctx := context.Background()

	push := []byte(`{
		"ref": "refs/heads/main",
		"repository": {"full_name": "octo/widgets"},
		"commits": [
			{"id": "c1", "message": "first", "timestamp": "2024-01-03T09:00:00Z", "author": {"name": "Alice", "username": "alice"}},
			{"id": "c2", "message": "second", "timestamp": "2024-01-03T09:05:00Z", "author": {"name": "Bob Builder"}}
		]
	}`)
	result, err := svc.HandleDelivery(ctx, "", push)
	require.NoError(t, err)
	assert.Equal(t, dto.GitHubEventPush, result.Event)

	c1, err := repos.Commit.FindByHash(ctx, testRepo, "c1")
	require.NoError(t, err)
	assert.Equal(t, "alice", c1.Author)
	c2, err := repos.Commit.FindByHash(ctx, testRepo, "c2")
	require.NoError(t, err)
	assert.Equal(t, "Bob Builder", c2.Author)

	create := []byte(`{"ref": "feature/x", "ref_type": "branch", "repository": {"full_name": "octo/widgets"}, "sender": {"login": "carol"}}`)
	result, err = svc.HandleDelivery(ctx, "", create)
	require.NoError(t, err)
	assert.Equal(t, dto.GitHubEventCreate, result.Event)
	branch, err := repos.Branch.FindByName(ctx, testRepo, "feature/x")
	require.NoError(t, err)
	assert.Equal(t, "carol", branch.Author)

	ping, err := svc.HandleDelivery(ctx, "", []byte(`{"zen": "Keep it logically awesome."}`))
	require.NoError(t, err)
	assert.Equal(t, dto.GitHubEventPing, ping.Event)
	assert.Equal(t, "skipped", ping.Result)
}

func TestHandleDelivery_SkipsTagCreate(t *testing.T) {
	svc, repos, _ := newTestWebhook(t)
	ctx := context.Background()

	result, err := svc.HandleDelivery(ctx, dto.GitHubEventCreate,
		[]byte(`{"ref": "v1.0.0", "ref_type": "tag", "repository": {"full_name": "octo/widgets"}}`))
	require.NoError(t, err)
	assert.Equal(t, "skipped", result.Result)

	branches, err := repos.Branch.ListByRepo(ctx, testRepo)
	require.NoError(t, err)
	assert.Empty(t, branches)
}

func TestHandleDelivery_WorkflowJob(t *testing.T) {
	svc, repos, _ := newTestWebhook(t)
	ctx := context.Background()

	// 运行刚创建，queuetime 为 0
	_, err := svc.HandleDelivery(ctx, dto.GitHubEventWorkflowRun, []byte(`{
		"action": "requested",
		"workflow_run": {
			"id": 200, "name": "pull", "status": "queued", "conclusion": null,
			"created_at": "2024-01-03T10:00:00Z", "run_started_at": "2024-01-03T10:00:00Z", "updated_at": "2024-01-03T10:00:00Z",
			"head_branch": "feature", "head_sha": "abc123", "actor": {"login": "alice"}
		},
		"repository": {"full_name": "octo/widgets"}
	}`))
	require.NoError(t, err)

	queued, err := svc.HandleDelivery(ctx, dto.GitHubEventWorkflowJob, []byte(`{
		"action": "queued",
		"workflow_job": {"id": 1, "run_id": 200, "labels": ["linux.2xlarge"]},
		"repository": {"full_name": "octo/widgets"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "accepted", queued.Result)

	started, err := svc.HandleDelivery(ctx, dto.GitHubEventWorkflowJob, []byte(`{
		"action": "in_progress",
		"workflow_job": {"id": 1, "run_id": 200, "started_at": "2024-01-03T10:02:30Z", "labels": ["linux.2xlarge"]},
		"repository": {"full_name": "octo/widgets"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "accepted", started.Result)

	completed, err := svc.HandleDelivery(ctx, dto.GitHubEventWorkflowJob, []byte(`{
		"action": "completed",
		"workflow_job": {"id": 1, "run_id": 200},
		"repository": {"full_name": "octo/widgets"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "skipped", completed.Result)

	run, err := repos.WorkflowRun.FindByGitID(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, float64(150), run.QueueTime)
	assert.Equal(t, "linux.2xlarge", run.RunnerType)
	assert.Equal(t, constants.OSLinux, run.OS)
}

func TestHandleDelivery_BadPayload(t *testing.T) {
	svc, _, _ := newTestWebhook(t)

	_, err := svc.HandleDelivery(context.Background(), "", []byte(`not json`))
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))

	_, err = svc.HandleDelivery(context.Background(), dto.GitHubEventPush, []byte(`{"commits": "oops"}`))
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))
}

func TestHandleDelivery_NotifiesMainTransitions(t *testing.T) {
	svc, _, notifier := newTestWebhook(t)
	ctx := context.Background()

	notifier.On("SendRedSignal", mock.Anything, mock.MatchedBy(func(s *notification.RedSignal) bool {
		return s.GitID == 300 && s.Conclusion == constants.ConclusionFailure && s.Branch == "main"
	}), notification.NotifyRedSignal).Return(nil).Once()
	notifier.On("SendRedSignal", mock.Anything, mock.MatchedBy(func(s *notification.RedSignal) bool {
		return s.GitID == 300 && s.Conclusion == constants.ConclusionSuccess
	}), notification.NotifyRecovered).Return(errors.New("webhook down")).Once()

	_, err := svc.HandleDelivery(ctx, dto.GitHubEventWorkflowRun, workflowRunPayload(300, "main", "in_progress", ""))
	require.NoError(t, err)
	_, err = svc.HandleDelivery(ctx, dto.GitHubEventWorkflowRun, workflowRunPayload(300, "main", "completed", "failure"))
	require.NoError(t, err)
	// 重复投递不重复通知
	_, err = svc.HandleDelivery(ctx, dto.GitHubEventWorkflowRun, workflowRunPayload(300, "main", "completed", "failure"))
	require.NoError(t, err)
	// 重跑成功，通知失败不影响入库
	_, err = svc.HandleDelivery(ctx, dto.GitHubEventWorkflowRun, workflowRunPayload(300, "main", "completed", "success"))
	require.NoError(t, err)
	// 非主干不通知
	_, err = svc.HandleDelivery(ctx, dto.GitHubEventWorkflowRun, workflowRunPayload(301, "feature", "completed", "failure"))
	require.NoError(t, err)

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "SendRedSignal", 2)
}
