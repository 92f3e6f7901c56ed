package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/domain/content"
	"github.com/streampay-settlement-engine/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPricingService struct {
	mock.Mock
}

func (m *MockPricingService) GetPricing(ctx context.Context, contentID uuid.UUID) (*pricing.Quote, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Quote), args.Error(1)
}

func TestPricingHandler_GetPricing(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPricingService)
		handler := NewPricingHandler(logger, mockService)

		contentID := uuid.New()
		mockService.On("GetPricing", mock.Anything, contentID).Return(&pricing.Quote{
			ContentID:      contentID,
			ProviderID:     uuid.New(),
			Title:          "Deep Sea Documentary",
			Rating:         3.0,
			PricePerMinute: 200,
			LockAmount:     3000,
		}, nil)

		router := setupTestRouter()
		router.GET("/content/:id/pricing", handler.GetPricing)

		req, _ := http.NewRequest(http.MethodGet, "/content/"+contentID.String()+"/pricing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp PricingResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, int64(200), resp.PricePerMinute)
		assert.Equal(t, int64(3000), resp.LockAmount)
		assert.Equal(t, 3.0, resp.Rating)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockPricingService)
		handler := NewPricingHandler(logger, mockService)

		contentID := uuid.New()
		mockService.On("GetPricing", mock.Anything, contentID).
			Return(nil, content.ErrContentNotFound{ContentID: contentID})

		router := setupTestRouter()
		router.GET("/content/:id/pricing", handler.GetPricing)

		req, _ := http.NewRequest(http.MethodGet, "/content/"+contentID.String()+"/pricing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockPricingService)
		handler := NewPricingHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/content/:id/pricing", handler.GetPricing)

		req, _ := http.NewRequest(http.MethodGet, "/content/abc/pricing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
