package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"zchat/internal/service"
)

type groupCreateRequest struct {
	Name      string  `json:"name"`
	MemberIDs []int64 `json:"member_ids"`
}

type addMembersRequest struct {
	UserIDs []int64 `json:"user_ids"`
}

// @Summary      Create a private chat
// @Tags         chats
// @Security     BearerAuth
// @Produce      json
// @Param        userID path int true "Other user id"
// @Success      201  {object}  service.ChatResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /chats/private/{userID} [post]
func handleCreatePrivateChat(chatSvc *service.ChatService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := idParam(r, "userID")
		if !ok {
			writeErrorMessage(w, http.StatusBadRequest, "invalid user id")
			return
		}
		chat, err := chatSvc.CreatePrivateChat(r.Context(), userID, CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, service.NewChatResponse(chat))
	}
}

// @Summary      Create a group chat
// @Tags         chats
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body groupCreateRequest true "Group"
// @Success      201  {object}  service.ChatResponse
// @Failure      400  {object}  errorResponse
// @Router       /chats/groups [post]
func handleCreateGroupChat(chatSvc *service.ChatService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		chat, err := chatSvc.CreateGroupChat(r.Context(), service.GroupCreateInput{
			Name:      req.Name,
			MemberIDs: req.MemberIDs,
		}, CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, service.NewChatResponse(chat))
	}
}

// @Summary      Add members to a group chat
// @Tags         chats
// @Security     BearerAuth
// @Accept       json
// @Param        chatID path int true "Chat id"
// @Param        input body addMembersRequest true "Users"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /chats/{chatID}/members [post]
func handleAddMembers(chatSvc *service.ChatService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := idParam(r, "chatID")
		if !ok {
			writeErrorMessage(w, http.StatusBadRequest, "invalid chat id")
			return
		}
		var req addMembersRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if _, err := chatSvc.AddMembers(r.Context(), chatID, req.UserIDs, CurrentUser(r).ID); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      List the caller's chats
// @Tags         chats
// @Security     BearerAuth
// @Produce      json
// @Param        page query int false "Page (from 1)"
// @Param        size query int false "Page size (1-20)"
// @Success      200  {object}  service.Page[service.ChatResponse]
// @Router       /chats [get]
func handleListChats(chatSvc *service.ChatService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok1 := queryInt(r, "page", 0)
		size, ok2 := queryInt(r, "size", 0)
		if !ok1 || !ok2 {
			writeErrorMessage(w, http.StatusBadRequest, "page and size must be integers")
			return
		}
		resp, err := chatSvc.ListChats(r.Context(), CurrentUser(r).ID, page, size)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// @Summary      List chat members
// @Tags         chats
// @Security     BearerAuth
// @Produce      json
// @Param        chatID path  int true  "Chat id"
// @Param        page   query int false "Page (from 1)"
// @Param        size   query int false "Page size (1-20)"
// @Success      200  {object}  service.Page[domain.User]
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /chats/{chatID}/members [get]
func handleListMembers(chatSvc *service.ChatService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := idParam(r, "chatID")
		if !ok {
			writeErrorMessage(w, http.StatusBadRequest, "invalid chat id")
			return
		}
		page, ok1 := queryInt(r, "page", 0)
		size, ok2 := queryInt(r, "size", 0)
		if !ok1 || !ok2 {
			writeErrorMessage(w, http.StatusBadRequest, "page and size must be integers")
			return
		}
		resp, err := chatSvc.ListMembers(r.Context(), chatID, CurrentUser(r).ID, page, size)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// @Summary      Get a chat
// @Tags         chats
// @Security     BearerAuth
// @Produce      json
// @Param        chatID path int true "Chat id"
// @Success      200  {object}  service.ChatResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /chats/{chatID} [get]
func handleGetChat(chatSvc *service.ChatService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := idParam(r, "chatID")
		if !ok {
			writeErrorMessage(w, http.StatusBadRequest, "invalid chat id")
			return
		}
		chat, err := chatSvc.GetChat(r.Context(), chatID, CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, service.NewChatResponse(chat))
	}
}

// @Summary      Chat history
// @Description  Messages of a chat oldest first, optionally filtered by sender or text
// @Tags         chats
// @Security     BearerAuth
// @Produce      json
// @Param        chatID      path  int    true  "Chat id"
// @Param        page        query int    false "Page (from 1)"
// @Param        size        query int    false "Page size (1-20)"
// @Param        sender_id   query int    false "Only messages from this sender"
// @Param        search_term query string false "Case-insensitive text filter, at least 3 characters"
// @Success      200  {object}  service.Page[service.MessageResponse]
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /chats/{chatID}/history [get]
func handleChatHistory(msgSvc *service.MessageService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := idParam(r, "chatID")
		if !ok {
			writeErrorMessage(w, http.StatusBadRequest, "invalid chat id")
			return
		}
		page, ok1 := queryInt(r, "page", 0)
		size, ok2 := queryInt(r, "size", 0)
		if !ok1 || !ok2 {
			writeErrorMessage(w, http.StatusBadRequest, "page and size must be integers")
			return
		}

		in := service.HistoryInput{
			ChatID:     chatID,
			Page:       page,
			Size:       size,
			SearchTerm: r.URL.Query().Get("search_term"),
		}
		if raw := r.URL.Query().Get("sender_id"); raw != "" {
			senderID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeErrorMessage(w, http.StatusBadRequest, "invalid sender_id")
				return
			}
			in.SenderID = &senderID
		}

		resp, err := msgSvc.History(r.Context(), in, CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
