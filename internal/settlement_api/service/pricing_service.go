package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/pricing"
)

// quoteResolver resolves content pricing
type quoteResolver interface {
	Resolve(ctx context.Context, contentID uuid.UUID) (*pricing.Quote, error)
}

// PricingServiceImpl implements the PricingService interface
type PricingServiceImpl struct {
	resolver quoteResolver
}

// NewPricingService creates a new pricing service
func NewPricingService(resolver quoteResolver) PricingService {
	return &PricingServiceImpl{
		resolver: resolver,
	}
}

// GetPricing returns the quote for a content item
func (s *PricingServiceImpl) GetPricing(ctx context.Context, contentID uuid.UUID) (*pricing.Quote, error) {
	return s.resolver.Resolve(ctx, contentID)
}
