package api

import (
	"net/http"
	"strconv"

	"github.com/alwitt/halcyon/result"
	"github.com/alwitt/halcyon/store"
	"github.com/go-chi/chi/v5"
)

// DefaultEntryPageSize entry listing page size when none is given
const DefaultEntryPageSize = 50

// EntryDeleteRequest entry delete body
type EntryDeleteRequest struct {
	// Restore undo a previous delete instead
	Restore bool `json:"restore"`
}

// EntryPinRequest entry pin body
type EntryPinRequest struct {
	Pinned bool `json:"pinned"`
}

// queryInt an integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, *result.Error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, result.Validationf("Invalid %s", name)
	}
	return value, nil
}

func (h *handlerImpl) listEntries(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize", DefaultEntryPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	deleted, _ := strconv.ParseBool(r.URL.Query().Get("deleted"))

	respond(h, w, r, http.StatusOK, h.store.Entries.List(r.Context(), authOf(r), store.EntryListQuery{
		Page:     page,
		PageSize: pageSize,
		Deleted:  deleted,
		Search:   r.URL.Query().Get("search"),
	}, nil))
}

func (h *handlerImpl) createEntry(w http.ResponseWriter, r *http.Request) {
	var body store.EntryContent
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(h, w, r, http.StatusCreated, h.store.Entries.Create(r.Context(), authOf(r), body, nil))
}

func (h *handlerImpl) getEntry(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Entries.FromID(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}

func (h *handlerImpl) editEntry(w http.ResponseWriter, r *http.Request) {
	var body store.EntryContent
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(
		h, w, r, http.StatusOK,
		h.store.Entries.Edit(r.Context(), authOf(r), chi.URLParam(r, "id"), body, nil),
	)
}

func (h *handlerImpl) deleteEntry(w http.ResponseWriter, r *http.Request) {
	var body EntryDeleteRequest
	if err := decodeBody(r, &body, true); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(
		h, w, r, http.StatusOK,
		h.store.Entries.Delete(r.Context(), authOf(r), chi.URLParam(r, "id"), body.Restore, nil),
	)
}

func (h *handlerImpl) entryEdits(w http.ResponseWriter, r *http.Request) {
	respond(
		h, w, r, http.StatusOK,
		h.store.Entries.Edits(r.Context(), authOf(r), chi.URLParam(r, "id"), nil),
	)
}

func (h *handlerImpl) pinEntry(w http.ResponseWriter, r *http.Request) {
	var body EntryPinRequest
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(
		h, w, r, http.StatusOK,
		h.store.Entries.SetPinned(r.Context(), authOf(r), chi.URLParam(r, "id"), body.Pinned, nil),
	)
}

func (h *handlerImpl) entryStreaks(w http.ResponseWriter, r *http.Request) {
	respond(h, w, r, http.StatusOK, h.store.Entries.Streaks(r.Context(), authOf(r), h.now(), nil))
}
