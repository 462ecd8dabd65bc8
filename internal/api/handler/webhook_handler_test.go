package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ci-dashboard/internal/dto"
	pkgErrors "ci-dashboard/pkg/errors"
)

type mockWebhookService struct {
	mock.Mock
}

func (m *mockWebhookService) HandleDelivery(ctx context.Context, event string, body []byte) (*dto.WebhookResult, error) {
	args := m.Called(ctx, event, body)
	result, _ := args.Get(0).(*dto.WebhookResult)
	return result, args.Error(1)
}

func serveWebhook(svc *mockWebhookService, event, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", NewWebhookHandler(svc).Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set(headerGitHubEvent, event)
	req.Header.Set(headerGitHubDelivery, "delivery-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		result *dto.WebhookResult
		err    error
		status int
	}{
		{
			name:   "accepted",
			result: &dto.WebhookResult{Event: dto.GitHubEventPush, Result: "accepted"},
			status: http.StatusOK,
		},
		{
			name:   "bad payload",
			err:    pkgErrors.InvalidParams("malformed payload"),
			status: http.StatusBadRequest,
		},
		{
			// 存储失败返回 503，GitHub 会重新投递
			name:   "store unavailable",
			err:    pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入失败", assert.AnError),
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "unexpected error",
			err:    assert.AnError,
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWebhookService{}
			svc.On("HandleDelivery", mock.Anything, dto.GitHubEventPush, []byte(`{"ref": "refs/heads/main"}`)).
				Return(tt.result, tt.err)

			w := serveWebhook(svc, dto.GitHubEventPush, `{"ref": "refs/heads/main"}`)
			assert.Equal(t, tt.status, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
