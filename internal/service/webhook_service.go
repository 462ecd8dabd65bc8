package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"ci-dashboard/internal/adapter/notification"
	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/repository"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
)

// webhook 处理结果
const (
	webhookAccepted = "accepted"
	webhookSkipped  = "skipped"
)

// WebhookService GitHub webhook 分发
type WebhookService interface {
	// HandleDelivery 按事件名分发，事件名为空时根据负载字段推断
	HandleDelivery(ctx context.Context, event string, body []byte) (*dto.WebhookResult, error)
}

type webhookService struct {
	reconcile  ReconcileService
	repos      *repository.Repositories
	notifier   notification.Notifier
	mainBranch string
	logger     *zap.Logger
}

// NewWebhookService 创建 webhook 服务
func NewWebhookService(reconcile ReconcileService, repos *repository.Repositories, notifier notification.Notifier, mainBranch string, logger *zap.Logger) WebhookService {
	if mainBranch == "" {
		mainBranch = constants.DefaultMainBranch
	}
	return &webhookService{
		reconcile:  reconcile,
		repos:      repos,
		notifier:   notifier,
		mainBranch: mainBranch,
		logger:     logger.Named("webhook"),
	}
}

// HandleDelivery 处理一次投递
func (s *webhookService) HandleDelivery(ctx context.Context, event string, body []byte) (*dto.WebhookResult, error) {
	if event == "" {
		detected, err := detectEvent(body)
		if err != nil {
			return nil, err
		}
		event = detected
	}

	result := &dto.WebhookResult{Event: event, Result: webhookAccepted}
	var err error

	switch event {
	case dto.GitHubEventCreate:
		result.Result, err = s.handleCreate(ctx, body)
	case dto.GitHubEventPush:
		err = s.handlePush(ctx, body)
	case dto.GitHubEventWorkflowRun:
		result.Action, err = s.handleWorkflowRun(ctx, body)
	case dto.GitHubEventWorkflowJob:
		result.Action, result.Result, err = s.handleWorkflowJob(ctx, body)
	default:
		// ping 以及未订阅的事件
		result.Result = webhookSkipped
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("webhook 已处理",
		zap.String("event", result.Event),
		zap.String("action", result.Action),
		zap.String("result", result.Result))
	return result, nil
}

// detectEvent 没有 X-GitHub-Event 头时按负载字段判断
func detectEvent(body []byte) (string, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", pkgErrors.Wrap(pkgErrors.CodeBadRequest, "无法解析webhook负载", err)
	}

	switch {
	case probe["workflow_job"] != nil:
		return dto.GitHubEventWorkflowJob, nil
	case probe["workflow_run"] != nil:
		return dto.GitHubEventWorkflowRun, nil
	case probe["commits"] != nil:
		return dto.GitHubEventPush, nil
	case probe["ref_type"] != nil:
		return dto.GitHubEventCreate, nil
	case probe["zen"] != nil:
		return dto.GitHubEventPing, nil
	}
	return "", nil
}

func (s *webhookService) handleCreate(ctx context.Context, body []byte) (string, error) {
	var payload dto.GitHubCreatePayload
	if err := decodePayload(body, &payload); err != nil {
		return "", err
	}
	if payload.RefType != "branch" {
		return webhookSkipped, nil
	}

	return webhookAccepted, s.reconcile.RecordBranch(ctx, &dto.BranchEvent{
		RefName: payload.Ref,
		Repo:    payload.Repository.FullName,
		Author:  payload.Sender.Login,
	})
}

func (s *webhookService) handlePush(ctx context.Context, body []byte) error {
	var payload dto.GitHubPushPayload
	if err := decodePayload(body, &payload); err != nil {
		return err
	}

	event := &dto.PushEvent{
		Repo:    payload.Repository.FullName,
		Commits: make([]dto.CommitRecord, 0, len(payload.Commits)),
	}
	for _, c := range payload.Commits {
		author := c.Author.Username
		if author == "" {
			author = c.Author.Name
		}
		record := dto.CommitRecord{
			Hash:    c.ID,
			Author:  author,
			Message: c.Message,
		}
		if !c.Timestamp.IsZero() {
			record.Time = c.Timestamp.Unix()
		}
		event.Commits = append(event.Commits, record)
	}

	_, err := s.reconcile.RecordCommits(ctx, event)
	return err
}

func (s *webhookService) handleWorkflowRun(ctx context.Context, body []byte) (string, error) {
	var payload dto.GitHubWorkflowRunPayload
	if err := decodePayload(body, &payload); err != nil {
		return "", err
	}

	repo := payload.Repository.FullName
	run := payload.WorkflowRun
	workflowName := run.Name
	if payload.Workflow != nil {
		if workflowName == "" {
			workflowName = payload.Workflow.Name
		}
		if payload.Workflow.Name != "" {
			_, err := s.reconcile.RecordWorkflows(ctx, &dto.WorkflowsEvent{
				Repo:      repo,
				Workflows: []dto.WorkflowRecord{{Name: payload.Workflow.Name, URL: payload.Workflow.HTMLURL}},
			})
			if err != nil {
				return payload.Action, err
			}
		}
	}

	event := &dto.WorkflowRunEvent{
		GitID:        run.ID,
		Repo:         repo,
		Status:       run.Status,
		Conclusion:   run.Conclusion,
		CreatedAt:    run.CreatedAt,
		RunStartedAt: run.RunStartedAt,
		UpdatedAt:    run.UpdatedAt,
		BranchName:   run.HeadBranch,
		CommitHash:   run.HeadSHA,
		WorkflowName: workflowName,
		Author:       run.Actor.Login,
		URL:          run.HTMLURL,
	}

	onMain := event.BranchName == s.mainBranch
	var prior *string
	if onMain && event.GitID > 0 {
		previous, err := s.repos.WorkflowRun.FindByGitID(ctx, event.GitID)
		switch {
		case err == nil:
			prior = previous.Conclusion
		case !errors.Is(err, pkgErrors.ErrRecordNotFound):
			return payload.Action, err
		}
	}

	if err := s.reconcile.RecordWorkflowRun(ctx, event); err != nil {
		return payload.Action, err
	}

	if onMain {
		s.notifyTransition(ctx, event, prior)
	}
	return payload.Action, nil
}

// notifyTransition 主干运行转为失败或从失败恢复时发送通知，通知失败只记日志
func (s *webhookService) notifyTransition(ctx context.Context, event *dto.WorkflowRunEvent, prior *string) {
	current := conclusionOf(normalizeConclusion(event.Status, event.Conclusion))
	previous := conclusionOf(prior)

	var notifyType notification.NotificationType
	switch {
	case current == constants.ConclusionFailure && previous != constants.ConclusionFailure:
		notifyType = notification.NotifyRedSignal
	case current == constants.ConclusionSuccess && previous == constants.ConclusionFailure:
		notifyType = notification.NotifyRecovered
	default:
		return
	}

	signal := &notification.RedSignal{
		Repo:         event.Repo,
		Branch:       event.BranchName,
		WorkflowName: event.WorkflowName,
		CommitHash:   event.CommitHash,
		Author:       event.Author,
		URL:          event.URL,
		GitID:        event.GitID,
		Conclusion:   current,
	}
	if err := s.notifier.SendRedSignal(ctx, signal, notifyType); err != nil {
		s.logger.Warn("发送构建通知失败", zap.Int64("gitid", event.GitID), zap.Error(err))
	}
}

func (s *webhookService) handleWorkflowJob(ctx context.Context, body []byte) (string, string, error) {
	var payload dto.GitHubWorkflowJobPayload
	if err := decodePayload(body, &payload); err != nil {
		return "", "", err
	}

	job := payload.WorkflowJob
	event := &dto.QueueStartEvent{
		RunID:  job.RunID,
		Labels: job.Labels,
	}

	switch payload.Action {
	case constants.RunStatusInProgress:
		event.StartedAt = job.StartedAt
	case constants.RunStatusQueued:
		// 排队时只记录运行器标签，开始时间留给 in_progress
		if len(job.Labels) == 0 {
			return payload.Action, webhookSkipped, nil
		}
	default:
		return payload.Action, webhookSkipped, nil
	}

	return payload.Action, webhookAccepted, s.reconcile.RecordQueueStart(ctx, event)
}

func decodePayload(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeBadRequest, "无法解析webhook负载", err)
	}
	return nil
}
