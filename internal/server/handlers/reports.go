package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/service/reporting"
)

// ReportHandler exposes the financial aggregation engine.
type ReportHandler struct {
	reportingSvc *reporting.Service
	logger       *zap.Logger
}

func NewReportHandler(reportingSvc *reporting.Service, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reportingSvc: reportingSvc, logger: logger}
}

// Financial computes the acting owner's report. The mortality loss figure
// is an opportunity-cost estimate, surfaced as such to the caller.
func (h *ReportHandler) Financial(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	report, err := h.reportingSvc.ComputeFinancialReport(c.Request.Context(), actor.OwnerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report": report,
		"notes": gin.H{
			"mortalityLoss": "estimated opportunity cost of lost future egg production, not a cash loss",
		},
	})
}
