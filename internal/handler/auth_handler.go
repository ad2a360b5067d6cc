package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bot-dashboard/internal/middleware"
	"bot-dashboard/internal/model"
	"bot-dashboard/internal/service"
	"bot-dashboard/pkg/apierror"
)

type AuthHandler struct {
	auth *service.AuthService
	bot  *service.BotService
}

func NewAuthHandler(auth *service.AuthService, bot *service.BotService) *AuthHandler {
	return &AuthHandler{auth: auth, bot: bot}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payload.Code = strings.TrimSpace(payload.Code)
	if payload.Code == "" {
		writeError(w, apierror.New("BAD_REQUEST", "Authorization code is required", "code", http.StatusBadRequest))
		return
	}

	result, err := h.auth.Login(r.Context(), payload.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// Verify returns the profile of the identity the session token names.
// Token validation already happened in the auth middleware.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("BAD_REQUEST", "authentication required", "", http.StatusBadRequest))
		return
	}

	writeSuccess(w, http.StatusOK, identity)
}

// Logout revokes the vault credential stored under the presented session
// token. The browser discards the token itself.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.SessionTokenFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("BAD_REQUEST", "authentication required", "", http.StatusBadRequest))
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
}

func (h *AuthHandler) DiscordToken(w http.ResponseWriter, r *http.Request) {
	identity, credential, ok := h.sessionCredential(w, r)
	if !ok {
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"discordToken": credential,
		"user":         identity,
	})
}

func (h *AuthHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	_, credential, ok := h.sessionCredential(w, r)
	if !ok {
		return
	}

	info, err := h.bot.FetchUserInfo(r.Context(), credential)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, info)
}

func (h *AuthHandler) AdminCheck(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("BAD_REQUEST", "authentication required", "", http.StatusBadRequest))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"isAdmin": h.auth.IsAdmin(identity.DiscordID),
		"user":    identity,
	})
}

func (h *AuthHandler) AdminUserInfo(w http.ResponseWriter, r *http.Request) {
	_, credential, ok := h.sessionCredential(w, r)
	if !ok {
		return
	}

	discordID := chi.URLParam(r, "discordId")
	info, err := h.bot.FetchUserInfoByID(r.Context(), credential, discordID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, info)
}

func (h *AuthHandler) UserEdit(w http.ResponseWriter, r *http.Request) {
	identity, credential, ok := h.sessionCredential(w, r)
	if !ok {
		return
	}

	h.editSettings(w, r, credential, identity.DiscordID)
}

func (h *AuthHandler) AdminUserEdit(w http.ResponseWriter, r *http.Request) {
	_, credential, ok := h.sessionCredential(w, r)
	if !ok {
		return
	}

	h.editSettings(w, r, credential, chi.URLParam(r, "discordId"))
}

func (h *AuthHandler) editSettings(w http.ResponseWriter, r *http.Request, credential string, discordID string) {
	defer r.Body.Close()

	var payload model.UserEditRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.bot.EditUserSettings(r.Context(), credential, discordID, payload); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"message": "User settings updated successfully"})
}

func (h *AuthHandler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	_, credential, ok := h.sessionCredential(w, r)
	if !ok {
		return
	}

	if _, err := h.bot.TriggerUpdate(r.Context(), credential, true); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"message": "Test endpoint passed"})
}

func (h *AuthHandler) UpdateBot(w http.ResponseWriter, r *http.Request) {
	_, credential, ok := h.sessionCredential(w, r)
	if !ok {
		return
	}

	result, err := h.bot.TriggerUpdate(r.Context(), credential, false)
	if errors.Is(err, model.ErrBotRestarting) {
		// The connection dropping mid-update means the restart began.
		writeSuccess(w, http.StatusOK, map[string]any{
			"exitCode": 0,
			"output":   "Bot update initiated successfully. Connection dropped, indicating restart.",
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// sessionCredential resolves the Discord credential stored under the
// request's session token, writing the error response itself when the
// vault has no live entry.
func (h *AuthHandler) sessionCredential(w http.ResponseWriter, r *http.Request) (model.Identity, string, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("BAD_REQUEST", "authentication required", "", http.StatusBadRequest))
		return model.Identity{}, "", false
	}

	token, _ := middleware.SessionTokenFromContext(r.Context())
	credential, err := h.auth.ResolveCredential(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return model.Identity{}, "", false
	}

	return identity, credential, true
}
