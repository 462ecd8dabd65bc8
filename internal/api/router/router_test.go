package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ci-dashboard/internal/adapter/notification"
	"ci-dashboard/internal/api/middleware"
	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/service"
	"ci-dashboard/internal/testutil"
	pkgErrors "ci-dashboard/pkg/errors"
)

const workflowRunBody = `{
	"action": "completed",
	"workflow_run": {
		"id": 700,
		"name": "pull",
		"status": "completed",
		"conclusion": "failure",
		"created_at": "2024-01-03T10:00:00Z",
		"run_started_at": "2024-01-03T10:01:00Z",
		"updated_at": "2024-01-03T10:11:00Z",
		"head_branch": "main",
		"head_sha": "abc123",
		"html_url": "https://github.com/octo/widgets/actions/runs/700",
		"actor": {"login": "alice"}
	},
	"repository": {"full_name": "octo/widgets"}
}`

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Total   int64           `json:"total"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Dashboard: config.DashboardConfig{
			MainBranch:            "main",
			StrictWorkflowPattern: "strict",
			Timezone:              "UTC",
			DefaultDays:           7,
		},
		Backfill: config.BackfillConfig{LookbackDays: 1, MaxPages: 1, Concurrency: 1},
	}
	services := service.NewServices(cfg, testutil.NewDB(t), nil, notification.NewLogNotifier(zap.NewNop()), zap.NewNop())
	return Setup(cfg, services)
}

func doRequest(r *gin.Engine, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthAndRequestID(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = doRequest(r, http.MethodGet, "/health", "", map[string]string{middleware.HeaderRequestID: "req-1"})
	assert.Equal(t, "req-1", w.Header().Get(middleware.HeaderRequestID))
}

func TestWebhookThenQuery(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/webhook", workflowRunBody, map[string]string{"X-GitHub-Event": "workflow_run"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pkgErrors.CodeSuccess, decode(t, w).Code)

	w = doRequest(r, http.MethodGet, "/api/v1/runs?repo=octo/widgets", "", nil)
	resp := decode(t, w)
	assert.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	assert.Equal(t, int64(1), resp.Total)

	w = doRequest(r, http.MethodGet, "/api/v1/runs/700", "", nil)
	resp = decode(t, w)
	require.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	var run map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &run))
	assert.Equal(t, "failure", run["conclusion"])

	w = doRequest(r, http.MethodGet, "/api/v1/runs/404", "", nil)
	assert.Equal(t, pkgErrors.CodeNotFound, decode(t, w).Code)

	w = doRequest(r, http.MethodGet, "/api/v1/runs/abc", "", nil)
	assert.Equal(t, pkgErrors.CodeBadRequest, decode(t, w).Code)
}

func TestWebhook_BadPayload(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/webhook", "not json", map[string]string{"X-GitHub-Event": "workflow_run"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, pkgErrors.CodeBadRequest, decode(t, w).Code)
}

func TestMetricsEndpoints(t *testing.T) {
	r := newTestRouter(t)

	// 缺少 repo 时业务码为 400
	w := doRequest(r, http.MethodGet, "/api/metrics/daily", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pkgErrors.CodeBadRequest, decode(t, w).Code)

	w = doRequest(r, http.MethodGet, "/api/metrics/daily?repo=octo/widgets&days=3", "", nil)
	assert.Equal(t, pkgErrors.CodeSuccess, decode(t, w).Code)

	w = doRequest(r, http.MethodGet, "/api/metrics/daily?repo=octo/widgets&days=-1", "", nil)
	assert.Equal(t, pkgErrors.CodeBadRequest, decode(t, w).Code)

	// 超大窗口在绑定时拒绝，不会溢出成负数窗口
	w = doRequest(r, http.MethodGet, "/api/metrics/daily?repo=octo/widgets&days=106752", "", nil)
	assert.Equal(t, pkgErrors.CodeBadRequest, decode(t, w).Code)

	w = doRequest(r, http.MethodGet, "/api/metrics/queue?repo=octo/widgets&hours=1000000000", "", nil)
	assert.Equal(t, pkgErrors.CodeBadRequest, decode(t, w).Code)

	w = doRequest(r, http.MethodGet, "/api/metrics/failure-rate?repo=octo/widgets&hours=24", "", nil)
	resp := decode(t, w)
	require.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	var rate map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &rate))
	assert.Equal(t, float64(0), rate["rate"])
}

func TestEventEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/events/branch", `{"repo": "octo/widgets", "ref_name": "refs/heads/main", "author": "alice"}`, nil)
	assert.Equal(t, pkgErrors.CodeSuccess, decode(t, w).Code)

	w = doRequest(r, http.MethodPost, "/api/v1/events/branch", `{"repo": `, nil)
	assert.Equal(t, pkgErrors.CodeBadRequest, decode(t, w).Code)
}

func TestBundleExport(t *testing.T) {
	r := newTestRouter(t)

	doRequest(r, http.MethodPost, "/webhook", workflowRunBody, map[string]string{"X-GitHub-Event": "workflow_run"})

	w := doRequest(r, http.MethodGet, "/api/v1/bundle/export?repo=octo/widgets&format=yaml", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "gitid: 700"))
}

func TestPrometheusEndpoint(t *testing.T) {
	r := newTestRouter(t)

	doRequest(r, http.MethodGet, "/health", "", nil)
	w := doRequest(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ci_dashboard_http_requests_total")
}
