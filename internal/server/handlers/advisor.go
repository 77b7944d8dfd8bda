package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/pkg/clients/advisor"
)

// AdvisorHandler proxies husbandry questions to the advisor collaborator.
type AdvisorHandler struct {
	client advisor.Client
	logger *zap.Logger
}

func NewAdvisorHandler(client advisor.Client, logger *zap.Logger) *AdvisorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisorHandler{client: client, logger: logger}
}

type advisorRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask forwards one question and returns the answer.
func (h *AdvisorHandler) Ask(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}

	var req advisorRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := h.client.Ask(c.Request.Context(), req.Question)
	if err != nil {
		h.logger.Error("advisor call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "advisor unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
