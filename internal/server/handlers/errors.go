package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/domain/validation"
	"github.com/poultrypro/backend/internal/repository"
)

// respondError maps domain and store errors onto HTTP statuses. Validation
// failures are user-correctable; conflicts (duplicate day, lost CAS race,
// immutable stream) are retryable after a re-read; everything else is a
// server-side failure.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, validation.ErrDateOutOfRange),
		errors.Is(err, validation.ErrInvalidQuantity),
		errors.Is(err, validation.ErrDecreaseNotAllowed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, validation.ErrDuplicateDate),
		errors.Is(err, validation.ErrImmutableEvent),
		errors.Is(err, repository.ErrConcurrentModification),
		errors.Is(err, repository.ErrDuplicateKey):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, validation.ErrBatchNotFound),
		errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, validation.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
