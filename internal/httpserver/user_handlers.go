package httpserver

import (
	"log/slog"
	"net/http"

	"zchat/internal/service"
)

func handleListUsers(userSvc *service.UserService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, ok1 := queryInt(r, "offset", 0)
		limit, ok2 := queryInt(r, "limit", 100)
		if !ok1 || !ok2 {
			writeErrorMessage(w, http.StatusBadRequest, "offset and limit must be integers")
			return
		}
		users, err := userSvc.List(r.Context(), offset, limit)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleGetUser(userSvc *service.UserService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "userID")
		if !ok {
			writeErrorMessage(w, http.StatusBadRequest, "invalid user id")
			return
		}
		user, err := userSvc.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
