package api

import (
	"context"
	"net/http"

	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/go-chi/chi/v5"
)

// LabelRequest label create body
type LabelRequest struct {
	Name   string `json:"name"`
	Colour string `json:"colour"`
}

// LabelUpdateRequest label update body, only the given fields change
type LabelUpdateRequest struct {
	Name   *string `json:"name"`
	Colour *string `json:"colour"`
}

func (h *handlerImpl) listLabels(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("counts") != "" {
		respond(h, w, r, http.StatusOK, h.store.Labels.AllWithCounts(r.Context(), authOf(r)))
		return
	}
	respond(h, w, r, http.StatusOK, h.store.Labels.All(r.Context(), authOf(r), nil))
}

func (h *handlerImpl) createLabel(w http.ResponseWriter, r *http.Request) {
	var body LabelRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(
		h, w, r, http.StatusCreated,
		h.store.Labels.Create(r.Context(), authOf(r), body.Name, body.Colour, nil),
	)
}

func (h *handlerImpl) getLabel(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Labels.FromID(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}

func (h *handlerImpl) updateLabel(w http.ResponseWriter, r *http.Request) {
	var body LabelUpdateRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	auth := authOf(r)
	labelID := chi.URLParam(r, "id")

	updated := inTransaction(r.Context(), h, func(ctx context.Context, dbClient db.Database) result.Result[models.Label] {
		if body.Name != nil {
			if renamed := h.store.Labels.UpdateName(ctx, auth, labelID, *body.Name, dbClient); !renamed.IsOk() {
				return renamed
			}
		}
		if body.Colour != nil {
			if recoloured := h.store.Labels.UpdateColour(
				ctx, auth, labelID, *body.Colour, dbClient,
			); !recoloured.IsOk() {
				return recoloured
			}
		}
		return h.store.Labels.FromID(ctx, auth, labelID, dbClient)
	})
	respond(h, w, r, http.StatusOK, updated)
}

func (h *handlerImpl) deleteLabel(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Labels.Delete(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}

/*
inTransaction run several controller calls in one transaction. A failed result rolls
the transaction back.

	@param ctx context.Context - execution context
	@param h *handlerImpl - the handlers
	@param coreLogic func(ctx context.Context, dbClient db.Database) result.Result[T] - the
	    controller calls
	@returns the result of the calls
*/
func inTransaction[T any](
	ctx context.Context,
	h *handlerImpl,
	coreLogic func(ctx context.Context, dbClient db.Database) result.Result[T],
) result.Result[T] {
	var res result.Result[T]
	err := h.persistence.UseDatabaseInTransaction(
		ctx, func(ctx context.Context, dbClient db.Database) error {
			res = coreLogic(ctx, dbClient)
			if !res.IsOk() {
				return res.Error()
			}
			return nil
		},
	)
	if err != nil {
		return result.Err[T](result.AsError(err))
	}
	return res
}
