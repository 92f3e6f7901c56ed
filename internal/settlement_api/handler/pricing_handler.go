package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/domain/content"
	"github.com/streampay-settlement-engine/internal/settlement_api/service"
)

// PricingHandler handles HTTP requests for content pricing
type PricingHandler struct {
	pricingService service.PricingService
	logger         *slog.Logger
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(logger *slog.Logger, pricingService service.PricingService) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

// GetPricing returns the quote for a content item
func (h *PricingHandler) GetPricing(c *gin.Context) {
	idParam := c.Param("id")
	contentID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid content ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid content ID")
		return
	}

	quote, err := h.pricingService.GetPricing(c.Request.Context(), contentID)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound{}) {
			RespondWithError(c, http.StatusNotFound, "CONTENT_NOT_FOUND", "Content not found")
			return
		}
		h.logger.Error("Failed to resolve pricing", "content_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, PricingResponse{
		ContentID:      quote.ContentID.String(),
		ProviderID:     quote.ProviderID.String(),
		Title:          quote.Title,
		Rating:         quote.Rating,
		PricePerMinute: quote.PricePerMinute,
		LockAmount:     quote.LockAmount,
	})
}
