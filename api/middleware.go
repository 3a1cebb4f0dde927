package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type authContextKey struct{}

type requestStateKey struct{}

// requestState per-request values filled in by inner middlewares
type requestState struct {
	userID string
}

/*
requestLogger attach the request parameters to the context, log the request once
served, and record it in the page load log
*/
func (h *handlerImpl) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		state := &requestState{}
		ctx := context.WithValue(r.Context(), goutils.RestRequestParamKey{}, goutils.RestRequestParam{
			ID:         middleware.GetReqID(r.Context()),
			Host:       r.Host,
			URI:        r.URL.String(),
			Method:     r.Method,
			RemoteAddr: r.RemoteAddr,
			Timestamp:  startTime,
		})
		ctx = context.WithValue(ctx, requestStateKey{}, state)
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		latency := time.Since(startTime)
		route := ""
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			route = routeCtx.RoutePattern()
		}

		logTags := h.GetLogTagsForContext(ctx)
		log.WithFields(logTags).WithFields(log.Fields{
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"route":      route,
		}).Info("Served request")

		entry := models.PageLoad{
			UserID:       state.userID,
			Method:       r.Method,
			URL:          r.URL.RequestURI(),
			Route:        route,
			LoadTimeMs:   latency.Milliseconds(),
			ResponseCode: status,
			UserAgent:    r.UserAgent(),
			RequestSize:  max(r.ContentLength, 0),
			ResponseSize: int64(ww.BytesWritten()),
			IPAddress:    r.RemoteAddr,
		}
		if err := h.persistence.UseDatabase(
			context.WithoutCancel(ctx), func(ctx context.Context, dbClient db.Database) error {
				return dbClient.RecordPageLoad(ctx, entry)
			},
		); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to record page load")
		}
	})
}

// requireAuth reject requests without a valid session cookie
func (h *handlerImpl) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := h.sessions.TryGetAuthFromCookies(r.Context(), r)
		if auth == nil {
			h.sessions.ClearAuthCookies(w)
			h.writeError(w, r, result.Authentication())
			return
		}
		if state, ok := r.Context().Value(requestStateKey{}).(*requestState); ok {
			state.userID = auth.ID
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authContextKey{}, *auth)))
	})
}

// authOf the session identity placed by requireAuth. Panic indicates coding error.
func authOf(r *http.Request) models.Auth {
	auth, ok := r.Context().Value(authContextKey{}).(models.Auth)
	if !ok {
		panic("no session identity in request context")
	}
	return auth
}
