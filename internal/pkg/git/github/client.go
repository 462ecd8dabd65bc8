package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ci-dashboard/internal/pkg/git/api"
	pkgErrors "ci-dashboard/pkg/errors"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	perPage        = 100
)

// Provider GitHub Actions 数据源
type Provider struct {
	config     *api.ProviderConfig
	httpClient *resty.Client
}

// NewProvider 创建GitHub提供者
func NewProvider(config *api.ProviderConfig) (api.ActionsProvider, error) {
	// GitHub可以省略BaseURL，使用默认值
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(config.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28")
	if config.Token != "" {
		client.SetAuthToken(config.Token)
	}

	return &Provider{
		config:     config,
		httpClient: client,
	}, nil
}

// GetPlatformType 获取平台类型
func (p *Provider) GetPlatformType() api.PlatformType {
	return api.PlatformGitHub
}

// ListBranches 获取分支列表
func (p *Provider) ListBranches(ctx context.Context, repo string) ([]api.BranchInfo, error) {
	var branches []api.BranchInfo
	err := p.paginate(ctx, "/repos/"+repo+"/branches", nil, 0, func(body []byte) (int, error) {
		var page []struct {
			Name   string `json:"name"`
			Commit struct {
				SHA string `json:"sha"`
			} `json:"commit"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, err
		}
		for _, b := range page {
			branches = append(branches, api.BranchInfo{Name: b.Name, CommitSHA: b.Commit.SHA})
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// ListWorkflows 获取工作流定义
func (p *Provider) ListWorkflows(ctx context.Context, repo string) ([]api.WorkflowInfo, error) {
	var workflows []api.WorkflowInfo
	err := p.paginate(ctx, "/repos/"+repo+"/actions/workflows", nil, 0, func(body []byte) (int, error) {
		var page struct {
			Workflows []api.WorkflowInfo `json:"workflows"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, err
		}
		workflows = append(workflows, page.Workflows...)
		return len(page.Workflows), nil
	})
	if err != nil {
		return nil, err
	}
	return workflows, nil
}

// ListCommits 获取 since 之后的提交
func (p *Provider) ListCommits(ctx context.Context, repo string, since time.Time, maxPages int) ([]api.CommitInfo, error) {
	params := map[string]string{"since": since.UTC().Format(time.RFC3339)}

	var commits []api.CommitInfo
	err := p.paginate(ctx, "/repos/"+repo+"/commits", params, maxPages, func(body []byte) (int, error) {
		var page []struct {
			SHA    string `json:"sha"`
			Commit struct {
				Message string `json:"message"`
				Author  struct {
					Name string    `json:"name"`
					Date time.Time `json:"date"`
				} `json:"author"`
			} `json:"commit"`
			Author *struct {
				Login string `json:"login"`
			} `json:"author"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, err
		}
		for _, c := range page {
			author := c.Commit.Author.Name
			if c.Author != nil && c.Author.Login != "" {
				author = c.Author.Login
			}
			commits = append(commits, api.CommitInfo{
				SHA:     c.SHA,
				Message: c.Commit.Message,
				Author:  author,
				Date:    c.Commit.Author.Date,
			})
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

// ListWorkflowRuns 获取 since 之后创建的运行
func (p *Provider) ListWorkflowRuns(ctx context.Context, repo string, since time.Time, maxPages int) ([]api.WorkflowRunInfo, error) {
	params := map[string]string{"created": ">=" + since.UTC().Format(time.RFC3339)}

	var runs []api.WorkflowRunInfo
	err := p.paginate(ctx, "/repos/"+repo+"/actions/runs", params, maxPages, func(body []byte) (int, error) {
		var page struct {
			WorkflowRuns []struct {
				ID           int64      `json:"id"`
				Name         string     `json:"name"`
				Status       string     `json:"status"`
				Conclusion   *string    `json:"conclusion"`
				CreatedAt    *time.Time `json:"created_at"`
				RunStartedAt *time.Time `json:"run_started_at"`
				UpdatedAt    *time.Time `json:"updated_at"`
				HeadBranch   string     `json:"head_branch"`
				HeadSHA      string     `json:"head_sha"`
				HTMLURL      string     `json:"html_url"`
				Actor        struct {
					Login string `json:"login"`
				} `json:"actor"`
			} `json:"workflow_runs"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, err
		}
		for _, r := range page.WorkflowRuns {
			runs = append(runs, api.WorkflowRunInfo{
				ID:           r.ID,
				Name:         r.Name,
				Status:       r.Status,
				Conclusion:   r.Conclusion,
				CreatedAt:    r.CreatedAt,
				RunStartedAt: r.RunStartedAt,
				UpdatedAt:    r.UpdatedAt,
				HeadBranch:   r.HeadBranch,
				HeadSHA:      r.HeadSHA,
				HTMLURL:      r.HTMLURL,
				Actor:        r.Actor.Login,
			})
		}
		return len(page.WorkflowRuns), nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRunTiming 获取运行计时
func (p *Provider) GetRunTiming(ctx context.Context, repo string, runID int64) (*api.RunTiming, error) {
	path := fmt.Sprintf("/repos/%s/actions/runs/%d/timing", repo, runID)
	resp, err := p.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var timing api.RunTiming
	if err := json.Unmarshal(resp.Body(), &timing); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeUpstreamError, "解析运行计时失败", err)
	}
	return &timing, nil
}

// ListRunJobs 获取运行下的 job
func (p *Provider) ListRunJobs(ctx context.Context, repo string, runID int64) ([]api.JobInfo, error) {
	path := fmt.Sprintf("/repos/%s/actions/runs/%d/jobs", repo, runID)

	var jobs []api.JobInfo
	err := p.paginate(ctx, path, nil, 0, func(body []byte) (int, error) {
		var page struct {
			Jobs []api.JobInfo `json:"jobs"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, err
		}
		jobs = append(jobs, page.Jobs...)
		return len(page.Jobs), nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// paginate 逐页请求直到不足一页或达到 maxPages（<=0 不限）
func (p *Provider) paginate(ctx context.Context, path string, params map[string]string, maxPages int, handle func(body []byte) (int, error)) error {
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		query := map[string]string{
			"per_page": strconv.Itoa(perPage),
			"page":     strconv.Itoa(page),
		}
		for k, v := range params {
			query[k] = v
		}

		resp, err := p.get(ctx, path, query)
		if err != nil {
			return err
		}

		n, err := handle(resp.Body())
		if err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeUpstreamError, "解析GitHub响应失败", err)
		}
		if n < perPage {
			return nil
		}
	}
	return nil
}

func (p *Provider) get(ctx context.Context, path string, query map[string]string) (*resty.Response, error) {
	req := p.httpClient.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeUpstreamError, "请求GitHub失败", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, pkgErrors.New(pkgErrors.CodeUpstreamError,
			fmt.Sprintf("GitHub API错误 %s (状态码: %d): %s", path, resp.StatusCode(), truncate(resp.String(), 200)))
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
