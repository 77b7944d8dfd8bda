package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/domain/validation"
	"github.com/poultrypro/backend/internal/service/events"
	"github.com/poultrypro/backend/internal/service/ledger"
)

// idempotencyHeader carries the client token that makes mortality apply
// retries safe.
const idempotencyHeader = "Idempotency-Key"

// EventHandler exposes the four event streams. Feed, egg production and
// vaccination go through the event service; mortality goes through the
// ledger engine because it mutates the batch counter.
type EventHandler struct {
	eventsSvc *events.Service
	ledgerSvc *ledger.Service
	logger    *zap.Logger
}

func NewEventHandler(eventsSvc *events.Service, ledgerSvc *ledger.Service, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{eventsSvc: eventsSvc, ledgerSvc: ledgerSvc, logger: logger}
}

type feedRequest struct {
	Date     string  `json:"date" binding:"required"`
	FeedType string  `json:"feedType" binding:"required"`
	Grams    int     `json:"grams"`
	Price    float64 `json:"price"`
}

type mortalityRequest struct {
	Date         string `json:"date" binding:"required"`
	Deaths       int    `json:"deaths"`
	CauseOfDeath string `json:"causeOfDeath" binding:"required"`
}

type eggRequest struct {
	Date   string `json:"date" binding:"required"`
	Total  int    `json:"total"`
	Broken int    `json:"broken"`
}

type vaccinationRequest struct {
	Date  string  `json:"date" binding:"required"`
	Type  string  `json:"type" binding:"required"`
	Price float64 `json:"price"`
	Done  bool    `json:"done"`
}

// Create inserts one event of the kind named in the path.
func (h *EventHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	batchID := c.Param("id")

	switch models.EventKind(c.Param("kind")) {
	case models.KindFeed:
		var req feedRequest
		if !bind(c, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev, err := h.eventsSvc.CreateFeed(c.Request.Context(), actor, batchID, events.FeedInput{
			Date: date, FeedType: req.FeedType, Grams: req.Grams, Price: req.Price,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, ev)

	case models.KindMortality:
		var req mortalityRequest
		if !bind(c, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev, batch, err := h.ledgerSvc.ApplyMortality(c.Request.Context(), actor, ledger.ApplyMortalityInput{
			BatchID:        batchID,
			Date:           date,
			Deaths:         req.Deaths,
			Cause:          req.CauseOfDeath,
			IdempotencyKey: c.GetHeader(idempotencyHeader),
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"event": ev, "batch": toBatchResponse(batch)})

	case models.KindEggProduction:
		var req eggRequest
		if !bind(c, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev, err := h.eventsSvc.CreateEggProduction(c.Request.Context(), actor, batchID, events.EggInput{
			Date: date, Total: req.Total, Broken: req.Broken,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, ev)

	case models.KindVaccination:
		var req vaccinationRequest
		if !bind(c, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev, err := h.eventsSvc.CreateVaccination(c.Request.Context(), actor, batchID, events.VaccinationInput{
			Date: date, Type: req.Type, Price: req.Price, Done: req.Done,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, ev)

	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event kind"})
	}
}

// List returns the batch's events of the kind named in the path, oldest
// first.
func (h *EventHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	batchID := c.Param("id")
	ctx := c.Request.Context()

	switch models.EventKind(c.Param("kind")) {
	case models.KindFeed:
		evs, err := h.eventsSvc.ListFeed(ctx, actor, batchID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, evs)
	case models.KindMortality:
		evs, err := h.ledgerSvc.ListMortality(ctx, actor, batchID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, evs)
	case models.KindEggProduction:
		evs, err := h.eventsSvc.ListEggProduction(ctx, actor, batchID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, evs)
	case models.KindVaccination:
		evs, err := h.eventsSvc.ListVaccinations(ctx, actor, batchID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, evs)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event kind"})
	}
}

// Edit re-validates and replaces an event. Mortality records are
// append-only and rejected here.
func (h *EventHandler) Edit(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id := c.Param("id")

	switch models.EventKind(c.Param("kind")) {
	case models.KindFeed:
		var req feedRequest
		if !bind(c, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev, err := h.eventsSvc.UpdateFeed(c.Request.Context(), actor, id, events.FeedInput{
			Date: date, FeedType: req.FeedType, Grams: req.Grams, Price: req.Price,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, ev)

	case models.KindEggProduction:
		var req eggRequest
		if !bind(c, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev, err := h.eventsSvc.UpdateEggProduction(c.Request.Context(), actor, id, events.EggInput{
			Date: date, Total: req.Total, Broken: req.Broken,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, ev)

	case models.KindVaccination:
		var req vaccinationRequest
		if !bind(c, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev, err := h.eventsSvc.UpdateVaccination(c.Request.Context(), actor, id, events.VaccinationInput{
			Date: date, Type: req.Type, Price: req.Price, Done: req.Done,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, ev)

	case models.KindMortality:
		respondError(c, h.logger, validation.ErrImmutableEvent)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event kind"})
	}
}

// Delete removes an event. Mortality records are append-only and rejected.
func (h *EventHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	kind := models.EventKind(c.Param("kind"))
	if !models.ValidKind(kind) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event kind"})
		return
	}

	if err := h.eventsSvc.Delete(c.Request.Context(), actor, kind, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}
