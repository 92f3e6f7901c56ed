package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/domain/content"
	"github.com/streampay-settlement-engine/internal/domain/session"
	"github.com/streampay-settlement-engine/internal/escrow"
	"github.com/streampay-settlement-engine/internal/settlement_api/middleware"
	"github.com/streampay-settlement-engine/internal/settlement_api/service"
)

// SessionHandler handles HTTP requests for the session lifecycle
type SessionHandler struct {
	sessionService service.SessionService
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(logger *slog.Logger, sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// Create locks funds for a new viewing session
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}
	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		RespondBadRequest(c, "Invalid content ID")
		return
	}

	lock, err := h.sessionService.Create(c.Request.Context(), userID, contentID, middleware.GetCorrelationID(c))
	if err != nil {
		var insufficientErr escrow.ErrInsufficientBalance
		if errors.As(err, &insufficientErr) {
			h.logger.Warn("Lock rejected for insufficient balance",
				"user_id", req.UserID,
				"required", insufficientErr.Required,
				"available", insufficientErr.Available)
			RespondWithError(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", insufficientErr.Error())
			return
		}
		if errors.Is(err, session.ErrSessionAlreadyActive{}) {
			RespondWithError(c, http.StatusConflict, "SESSION_ALREADY_ACTIVE", "User already has an open session")
			return
		}
		if errors.Is(err, content.ErrContentNotFound{}) {
			RespondWithError(c, http.StatusNotFound, "CONTENT_NOT_FOUND", "Content not found")
			return
		}
		h.logger.Error("Failed to create session", "user_id", req.UserID, "content_id", req.ContentID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, SessionCreatedResponse{
		SessionID:      lock.SessionID.String(),
		UserID:         lock.UserID.String(),
		ContentID:      lock.ContentID.String(),
		LockedAmount:   lock.LockedAmount,
		PricePerMinute: lock.PricePerMinute,
		CreatedAt:      lock.CreatedAt.Format(time.RFC3339),
	})
}

// Start transitions a locked session to active
func (h *SessionHandler) Start(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	sess, err := h.sessionService.Start(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.respondSessionError(c, sessionID, err)
		return
	}

	resp := SessionStartedResponse{SessionID: sess.ID.String()}
	if sess.StartTime != nil {
		resp.StartTime = sess.StartTime.Format(time.RFC3339)
	}
	RespondOK(c, resp)
}

// End settles a session and returns the final figures
func (h *SessionHandler) End(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	var req EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	result, err := h.sessionService.End(c.Request.Context(), sessionID, userID, req.DurationSeconds, middleware.GetCorrelationID(c))
	if err != nil {
		h.respondSessionError(c, sessionID, err)
		return
	}

	RespondOK(c, SessionEndedResponse{
		SessionID:     result.Settlement.SessionID.String(),
		AmountCharged: result.Settlement.AmountCharged,
		Refund:        result.Settlement.AmountRefunded,
		FinalBalance:  result.FinalBalance,
	})
}

// EndSignal handles the disconnect beacon. The response is always 200: the
// caller is a dying client that cannot act on an error anyway.
func (h *SessionHandler) EndSignal(c *gin.Context) {
	var req EndSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Malformed end signal", "error", err)
		RespondOK(c, EndSignalResponse{BestEffort: true})
		return
	}

	userID, userErr := uuid.Parse(req.UserID)
	sessionID, sessErr := uuid.Parse(req.SessionID)
	if userErr != nil || sessErr != nil {
		h.logger.Warn("End signal with unparseable identifiers",
			"user_id", req.UserID, "session_id", req.SessionID)
		RespondOK(c, EndSignalResponse{BestEffort: true})
		return
	}

	result := h.sessionService.EndSignal(c.Request.Context(), escrow.DetachedSignal{
		UserID:          userID,
		SessionID:       sessionID,
		DurationSeconds: req.DurationSeconds,
		LockedAmount:    req.LockedAmount,
		PricePerMinute:  req.PricePerMinute,
		CorrelationID:   middleware.GetCorrelationID(c),
	})

	RespondOK(c, EndSignalResponse{
		SessionID:     result.SessionID.String(),
		AmountCharged: result.AmountCharged,
		Refund:        result.AmountRefunded,
		BestEffort:    result.BestEffort,
	})
}

// GetByID returns a session view for its owner
func (h *SessionHandler) GetByID(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	userIDParam := c.Query("user_id")
	userID, err := uuid.Parse(userIDParam)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	sess, err := h.sessionService.GetByID(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.respondSessionError(c, sessionID, err)
		return
	}

	RespondOK(c, mapSessionToResponse(sess))
}

// GetActive returns the user's open session along with its accrued cost.
// Clients that lost the session ID recover it here so they can end the
// session and release the locked funds.
func (h *SessionHandler) GetActive(c *gin.Context) {
	userIDParam := c.Param("userID")
	userID, err := uuid.Parse(userIDParam)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	sess, err := h.sessionService.GetActive(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound{}) {
			RespondNotFound(c, "No open session for user")
			return
		}
		h.logger.Error("Failed to look up open session", "user_id", userIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, ActiveSessionResponse{
		SessionResponse: mapSessionToResponse(sess),
		CurrentCost:     sess.CurrentCost(time.Now().UTC()),
	})
}

func (h *SessionHandler) sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid session ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondSessionError maps session domain errors to HTTP responses
func (h *SessionHandler) respondSessionError(c *gin.Context, sessionID uuid.UUID, err error) {
	if errors.Is(err, session.ErrSessionNotFound{}) {
		RespondNotFound(c, "Session not found")
		return
	}
	var mismatchErr session.ErrStateMismatch
	if errors.As(err, &mismatchErr) {
		RespondWithError(c, http.StatusConflict, "STATE_MISMATCH", mismatchErr.Error())
		return
	}
	if errors.Is(err, session.ErrConcurrentModification{}) {
		RespondConflict(c, "Session was modified concurrently, retry the request")
		return
	}
	h.logger.Error("Session operation failed", "session_id", sessionID.String(), "error", err)
	RespondInternalError(c)
}

// mapSessionToResponse maps a session entity to a session response DTO
func mapSessionToResponse(sess *session.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:       sess.ID.String(),
		UserID:          sess.UserID.String(),
		ContentID:       sess.ContentID.String(),
		Status:          string(sess.Status),
		LockedAmount:    sess.LockedAmount,
		PricePerMinute:  sess.PricePerMinute,
		DurationSeconds: sess.DurationSeconds,
		FinalCost:       sess.FinalCost,
		AmountPaid:      sess.AmountPaid,
		AmountRefunded:  sess.AmountRefunded,
		CreatedAt:       sess.CreatedAt.Format(time.RFC3339),
	}
	if sess.StartTime != nil {
		resp.StartTime = sess.StartTime.Format(time.RFC3339)
	}
	if sess.EndTime != nil {
		resp.EndTime = sess.EndTime.Format(time.RFC3339)
	}
	return resp
}
