package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"marketBack/internal/models"
	"marketBack/internal/services"
)

type UserHandler struct {
	Service *services.UserService
	Log     *zap.SugaredLogger
}

type signUpResponse struct {
	User   models.User   `json:"user"`
	Tokens models.Tokens `json:"tokens"`
}

func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}

	user, tokens, err := h.Service.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, signUpResponse{User: user, Tokens: tokens})
}

func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}

	tokens, err := h.Service.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshToken reads the token from the Refresh-Token header, falling back to
// a JSON body.
func refreshToken(w http.ResponseWriter, r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("Refresh-Token")); token != "" {
		return token
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.RefreshToken)
}

func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokens, _, err := h.Service.Refresh(r.Context(), refreshToken(w, r))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+tokens.AccessToken)
	writeJSON(w, http.StatusOK, tokens)
}

func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.SignOut(r.Context(), SessionFrom(r.Context()), refreshToken(w, r)); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "signed out")
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.Me(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	user, err := h.Service.UpdateProfile(r.Context(), SessionFrom(r.Context()), req)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type deviceTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *UserHandler) UpdateDeviceToken(w http.ResponseWriter, r *http.Request) {
	var req deviceTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	if err := h.Service.UpdateDeviceToken(r.Context(), SessionFrom(r.Context()), req.Token); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "device token updated")
}
