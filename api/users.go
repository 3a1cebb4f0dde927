package api

import (
	"net/http"

	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
)

// CredentialsRequest sign up and login body
type CredentialsRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// ChangePasswordRequest password change body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	RememberMe      bool   `json:"rememberMe"`
}

// openSession place the session cookies and return the identity
func (h *handlerImpl) openSession(
	w http.ResponseWriter, r *http.Request, status int, auth result.Result[models.Auth], rememberMe bool,
) {
	if !auth.IsOk() {
		h.writeError(w, r, auth.Error())
		return
	}
	if err := h.sessions.SetAuthCookies(w, auth.Val(), rememberMe); err != nil {
		h.writeError(w, r, result.Upstream(err))
		return
	}
	h.writeJSON(w, r, status, auth.Val())
}

func (h *handlerImpl) signUp(w http.ResponseWriter, r *http.Request) {
	var body CredentialsRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	created := h.store.Users.Create(r.Context(), body.Username, body.Password, nil)
	h.openSession(w, r, http.StatusCreated, created, body.RememberMe)
}

func (h *handlerImpl) login(w http.ResponseWriter, r *http.Request) {
	var body CredentialsRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	auth := h.store.Users.Login(r.Context(), body.Username, body.Password, nil)
	if !auth.IsOk() {
		h.sessions.ClearAuthCookies(w)
	}
	h.openSession(w, r, http.StatusOK, auth, body.RememberMe)
}

func (h *handlerImpl) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearAuthCookies(w)
	h.writeJSON(w, r, http.StatusOK, result.Void{})
}

func (h *handlerImpl) changePassword(w http.ResponseWriter, r *http.Request) {
	var body ChangePasswordRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	changed := h.store.Users.ChangePassword(
		r.Context(), authOf(r), body.CurrentPassword, body.NewPassword, nil,
	)
	h.openSession(w, r, http.StatusOK, changed, body.RememberMe)
}

func (h *handlerImpl) purgeUser(w http.ResponseWriter, r *http.Request) {
	purged := h.store.Users.Purge(r.Context(), authOf(r), nil)
	if purged.IsOk() {
		h.sessions.ClearAuthCookies(w)
	}
	respond(h, w, r, http.StatusOK, purged)
}

func (h *handlerImpl) auditTrail(w http.ResponseWriter, r *http.Request) {
	respond(h, w, r, http.StatusOK, h.store.Users.AuditTrail(r.Context(), authOf(r), nil))
}
