package api

import (
	"net/http"

	"github.com/alwitt/halcyon/result"
	"github.com/alwitt/halcyon/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// gitHubStateCookieName cookie holding the pending GitHub OAuth state
const gitHubStateCookieName = "github_oauth_state"

// SettingRequest setting update body
type SettingRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// AssetRequest asset upload body
type AssetRequest struct {
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

// GitHubAuthorizeResponse where to send the user to link their GitHub account
type GitHubAuthorizeResponse struct {
	URL string `json:"url"`
}

func (h *handlerImpl) getSettings(w http.ResponseWriter, r *http.Request) {
	respond(h, w, r, http.StatusOK, h.store.Settings.AllWithDefaults(r.Context(), authOf(r), nil))
}

func (h *handlerImpl) updateSetting(w http.ResponseWriter, r *http.Request) {
	var body SettingRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(
		h, w, r, http.StatusOK,
		h.store.Settings.Update(r.Context(), authOf(r), body.Key, body.Value, nil),
	)
}

func (h *handlerImpl) listAssets(w http.ResponseWriter, r *http.Request) {
	respond(h, w, r, http.StatusOK, h.store.Assets.All(r.Context(), authOf(r), nil))
}

func (h *handlerImpl) createAsset(w http.ResponseWriter, r *http.Request) {
	var body AssetRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(
		h, w, r, http.StatusCreated,
		h.store.Assets.Create(r.Context(), authOf(r), body.FileName, body.Content, nil),
	)
}

func (h *handlerImpl) getAsset(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Assets.FromID(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}

func (h *handlerImpl) deleteAsset(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Assets.Delete(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}

func (h *handlerImpl) exportBackup(w http.ResponseWriter, r *http.Request) {
	auth := authOf(r)
	backup := h.store.Backups.Generate(r.Context(), auth, nil)
	if !backup.IsOk() {
		h.writeError(w, r, backup.Error())
		return
	}
	encrypted := h.store.Backups.AsEncryptedString(backup.Val(), auth.Key)
	if !encrypted.IsOk() {
		h.writeError(w, r, encrypted.Error())
		return
	}
	h.writeJSON(w, r, http.StatusOK, store.EncryptedBackup{Data: encrypted.Val()})
}

func (h *handlerImpl) importBackup(w http.ResponseWriter, r *http.Request) {
	var body store.EncryptedBackup
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(
		h, w, r, http.StatusOK,
		h.store.Backups.RestoreFromEncrypted(r.Context(), authOf(r), body.Data, nil),
	)
}

func (h *handlerImpl) gitHubAuthorize(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.writeError(w, r, result.Validation("GitHub integration is not configured"))
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     gitHubStateCookieName,
		Value:    state,
		Path:     "/api/oauth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	h.writeJSON(w, r, http.StatusOK, GitHubAuthorizeResponse{URL: h.github.AuthCodeURL(state)})
}

func (h *handlerImpl) gitHubCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	pending, err := r.Cookie(gitHubStateCookieName)
	if err != nil || pending.Value == "" || pending.Value != state {
		h.writeError(w, r, result.Validation("Invalid state or code"))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name: gitHubStateCookieName, Value: "", Path: "/api/oauth", MaxAge: -1, HttpOnly: true,
	})

	respond(
		h, w, r, http.StatusOK,
		h.store.Users.LinkGitHub(r.Context(), authOf(r), code, state, nil),
	)
}
