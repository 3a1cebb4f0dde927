package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/alwitt/halcyon/store"
	"github.com/go-chi/chi/v5"
)

// EventUpdateRequest event update body, only the given fields change
type EventUpdateRequest struct {
	Name    *string    `json:"name"`
	Start   *time.Time `json:"start"`
	End     *time.Time `json:"end"`
	LabelID *string    `json:"labelId"`
}

func (h *handlerImpl) listEvents(w http.ResponseWriter, r *http.Request) {
	if labelID := r.URL.Query().Get("labelId"); labelID != "" {
		respond(h, w, r, http.StatusOK, h.store.Events.WithLabel(r.Context(), authOf(r), labelID, nil))
		return
	}
	respond(h, w, r, http.StatusOK, h.store.Events.All(r.Context(), authOf(r), nil))
}

func (h *handlerImpl) createEvent(w http.ResponseWriter, r *http.Request) {
	var body store.EventContent
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(h, w, r, http.StatusCreated, h.store.Events.Create(r.Context(), authOf(r), body, nil))
}

func (h *handlerImpl) getEvent(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Events.FromID(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}

func (h *handlerImpl) updateEvent(w http.ResponseWriter, r *http.Request) {
	var body EventUpdateRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	auth := authOf(r)
	eventID := chi.URLParam(r, "id")
	events := h.store.Events

	updated := inTransaction(r.Context(), h, func(ctx context.Context, dbClient db.Database) result.Result[models.Event] {
		steps := []func() result.Result[models.Event]{}
		if body.Name != nil {
			steps = append(steps, func() result.Result[models.Event] {
				return events.UpdateName(ctx, auth, eventID, *body.Name, dbClient)
			})
		}
		switch {
		case body.Start != nil && body.End != nil:
			steps = append(steps, func() result.Result[models.Event] {
				return events.UpdateStartAndEnd(ctx, auth, eventID, *body.Start, *body.End, dbClient)
			})
		case body.Start != nil:
			steps = append(steps, func() result.Result[models.Event] {
				return events.UpdateStart(ctx, auth, eventID, *body.Start, dbClient)
			})
		case body.End != nil:
			steps = append(steps, func() result.Result[models.Event] {
				return events.UpdateEnd(ctx, auth, eventID, *body.End, dbClient)
			})
		}
		if body.LabelID != nil {
			steps = append(steps, func() result.Result[models.Event] {
				return events.UpdateLabel(ctx, auth, eventID, *body.LabelID, dbClient)
			})
		}

		for _, step := range steps {
			if changed := step(); !changed.IsOk() {
				return changed
			}
		}
		return events.FromID(ctx, auth, eventID, dbClient)
	})
	respond(h, w, r, http.StatusOK, updated)
}

func (h *handlerImpl) deleteEvent(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Events.Delete(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}
