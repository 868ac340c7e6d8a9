package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/boardpush/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRunner struct{ mock.Mock }

func (m *mockRunner) RunAgentByName(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockRunner) GetRegisteredAgents() []string {
	return m.Called().Get(0).([]string)
}

func newRouter(runner *mockRunner) *gin.Engine {
	h := NewAgentHandler(runner, zap.NewNop())
	r := gin.New()
	r.GET("/api/internal/agents", h.ListAgents)
	r.POST("/api/internal/agents/:name/run", h.RunAgent)
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestListAgents(t *testing.T) {
	runner := new(mockRunner)
	runner.On("GetRegisteredAgents").Return([]string{"board_index_sync"})

	w := serve(newRouter(runner), http.MethodGet, "/api/internal/agents")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":["board_index_sync"]}`, w.Body.String())
}

func TestRunAgent(t *testing.T) {
	tests := map[string]struct {
		err    error
		status int
	}{
		"completed": {nil, http.StatusOK},
		"unknown":   {fmt.Errorf("agent %q: %w", "board_index_sync", apperror.ErrNotFound), http.StatusNotFound},
		"failed":    {errors.New("meilisearch unreachable"), http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			runner := new(mockRunner)
			runner.On("RunAgentByName", mock.Anything, "board_index_sync").Return(tt.err).Once()

			w := serve(newRouter(runner), http.MethodPost, "/api/internal/agents/board_index_sync/run")

			assert.Equal(t, tt.status, w.Code)
			runner.AssertExpectations(t)
		})
	}
}
