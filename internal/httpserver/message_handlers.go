package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"zchat/internal/service"
)

type messageCreateRequest struct {
	ID     uuid.UUID `json:"id"`
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text"`
}

// @Summary      Send a message
// @Description  Stores the message and pushes it to the chat's other live devices
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        X-Device-ID header string true "Sending device"
// @Param        input body messageCreateRequest true "Message"
// @Success      201  {object}  service.MessageResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /messages [post]
func handleCreateMessage(msgSvc *service.MessageService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := strings.TrimSpace(r.Header.Get("X-Device-ID"))
		if deviceID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "missing X-Device-ID header")
			return
		}
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		msg, err := msgSvc.SendMessage(r.Context(), service.MessageCreateInput{
			ID:     req.ID,
			ChatID: req.ChatID,
			Text:   req.Text,
		}, CurrentUser(r).ID, deviceID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, service.NewMessageResponse(msg))
	}
}

// @Summary      Get a message
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        messageID path string true "Message id"
// @Success      200  {object}  service.MessageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /messages/{messageID} [get]
func handleGetMessage(msgSvc *service.MessageService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "messageID"))
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid message id")
			return
		}
		msg, err := msgSvc.GetMessage(r.Context(), id, CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, service.NewMessageResponse(msg))
	}
}
