package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"zchat/internal/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// @Summary      Register a new user
// @Description  Register a new user and return an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body registerRequest true "Register input"
// @Success      201  {object}  service.TokenResponse
// @Failure      400  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /auth/register [post]
func handleRegister(authSvc *service.AuthService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if _, err := authSvc.Register(r.Context(), service.RegisterInput{
			Username: req.Username,
			Password: req.Password,
		}); err != nil {
			writeError(w, r, log, err)
			return
		}

		// Auto-login after registration
		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// @Summary      Login
// @Description  Login with username and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body loginRequest true "Login input"
// @Success      200  {object}  service.TokenResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/login [post]
func handleLogin(authSvc *service.AuthService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// @Summary      Refresh tokens
// @Description  Exchange a refresh token for a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body refreshRequest false "Refresh token"
// @Param        token query string false "Refresh token"
// @Success      200  {object}  service.TokenResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/token/refresh [post]
func handleRefresh(authSvc *service.AuthService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			var req refreshRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			token = req.RefreshToken
		}
		if token == "" {
			writeErrorMessage(w, http.StatusBadRequest, "refresh token is required")
			return
		}

		resp, err := authSvc.Refresh(r.Context(), token)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// @Summary      Get Current User
// @Description  Get currently logged in user details
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
