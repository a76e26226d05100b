package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/advisor"
	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
)

// Chatter runs advisor chat sessions. *advisor.Service implements it.
type Chatter interface {
	NewChat(ctx context.Context) (*advisor.ChatSession, error)
	Chat(ctx context.Context, req advisor.ChatRequest) (*advisor.ChatReply, error)
}

// ChatHandler handles advisor chat endpoints.
type ChatHandler struct {
	service Chatter
	logger  zerolog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(service Chatter, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// CreateSession handles POST /v1/chat/sessions - open a chat session.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.NewChat(r.Context())
	if err != nil {
		h.advisorError(w, r, err)
		return
	}

	out := models.ChatSession{
		SessionID:      session.ID,
		WelcomeMessage: session.WelcomeMessage,
		CreatedAt:      models.Timestamp(session.CreatedAt),
	}
	response.Created(w, r, "/v1/chat/sessions/"+session.ID, out)
}

// SendMessage handles POST /v1/chat/sessions/{sessionId}/messages.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		response.BadRequest(w, r, "sessionId is required", nil)
		return
	}

	var input models.ChatMessageRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	req := advisor.ChatRequest{SessionID: sessionID, Message: input.Message}
	if c := input.Context; c != nil {
		req.Context = advisor.CropData{
			State:      c.State,
			Soil:       c.Soil,
			LandArea:   c.LandArea,
			Irrigation: c.Irrigation,
			Fertilizer: c.Fertilizer,
		}
	}

	reply, err := h.service.Chat(r.Context(), req)
	if err != nil {
		h.advisorError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ChatMessageResponse{
		SessionID:          reply.SessionID,
		Response:           reply.Response,
		AgricultureRelated: reply.AgricultureRelated,
		Timestamp:          models.Timestamp(reply.Timestamp),
	})
}

func (h *ChatHandler) advisorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, advisor.ErrMessageTooLong):
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "message", Message: err.Error(), Code: "TOO_LONG"}})
	case errors.Is(err, advisor.ErrInvalidRequest):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, advisor.ErrDisabled):
		response.ServiceUnavailable(w, r, "chat is currently disabled")
	default:
		h.logger.Error().Err(err).Msg("advisor chat failed")
		response.ServiceUnavailable(w, r, "the advisor is temporarily unavailable")
	}
}
