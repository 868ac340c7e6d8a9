package handler

import (
	"context"
	"net/http"

	"anoa.com/boardpush/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AgentRunner is the slice of agent.Scheduler operators reach over HTTP.
type AgentRunner interface {
	RunAgentByName(ctx context.Context, name string) error
	GetRegisteredAgents() []string
}

type AgentHandler struct {
	runner AgentRunner
	logger *zap.Logger
}

func NewAgentHandler(runner AgentRunner, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		runner: runner,
		logger: logger.Named("agent_http"),
	}
}

func (h *AgentHandler) ListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.runner.GetRegisteredAgents()})
}

// RunAgent runs the named agent synchronously and reports once it finishes.
func (h *AgentHandler) RunAgent(c *gin.Context) {
	name := c.Param("name")
	if err := h.runner.RunAgentByName(c.Request.Context(), name); err != nil {
		response.ResponseError(c, err)
		return
	}

	h.logger.Info("agent run triggered", zap.String("agent", name))
	c.JSON(http.StatusOK, gin.H{"agent": name, "status": "completed"})
}
