package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/auth"
	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/service/ledger"
)

const dateLayout = "2006-01-02"

// BatchHandler exposes batch registration, listing and the manual count
// adjustment path.
type BatchHandler struct {
	ledgerSvc *ledger.Service
	logger    *zap.Logger
}

func NewBatchHandler(ledgerSvc *ledger.Service, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{ledgerSvc: ledgerSvc, logger: logger}
}

type createBatchRequest struct {
	Name          string  `json:"name" binding:"required"`
	Type          string  `json:"type"`
	Breed         string  `json:"breed"`
	InitialCount  int     `json:"initialCount"`
	Price         float64 `json:"price"`
	PlacementDate string  `json:"placementDate" binding:"required"`
	HealthStatus  string  `json:"healthStatus"`
}

type batchResponse struct {
	models.Batch
	DisplayedMortality int `json:"displayedMortality"`
}

func toBatchResponse(b models.Batch) batchResponse {
	return batchResponse{Batch: b, DisplayedMortality: b.DisplayedMortality()}
}

// Create registers a new batch for the acting owner.
func (h *BatchHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	placement, err := parseDate(req.PlacementDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, err := h.ledgerSvc.Register(c.Request.Context(), actor, ledger.RegisterInput{
		Name:          req.Name,
		Type:          req.Type,
		Breed:         req.Breed,
		InitialCount:  req.InitialCount,
		Price:         req.Price,
		PlacementDate: placement,
		HealthStatus:  models.HealthStatus(req.HealthStatus),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toBatchResponse(batch))
}

// List returns the acting owner's batches.
func (h *BatchHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	batches, err := h.ledgerSvc.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, toBatchResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one batch with its derived mortality.
func (h *BatchHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	batch, err := h.ledgerSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(batch))
}

type adjustCountRequest struct {
	CurrentCount int `json:"currentCount"`
}

// AdjustCount corrects an undercount on the batch.
func (h *BatchHandler) AdjustCount(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req adjustCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.ledgerSvc.AdjustCount(c.Request.Context(), actor, c.Param("id"), req.CurrentCount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(batch))
}

func actorFrom(c *gin.Context) (auth.Actor, bool) {
	actor, ok := auth.ActorFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return auth.Actor{}, false
	}
	return actor, true
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return t, nil
}
