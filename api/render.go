package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
)

// maxBodyBytes largest accepted request body. Assets and backups are the large ones.
const maxBodyBytes = 32 * 1024 * 1024

// ErrorResponse body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusOf the HTTP status of a failure kind
func statusOf(kind result.Kind) int {
	switch kind {
	case result.KindValidation, result.KindDecryption:
		return http.StatusBadRequest
	case result.KindAuthentication:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeJSON write a JSON response body
func (h *handlerImpl) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).WithFields(h.GetLogTagsForContext(r.Context())).Error("Marshal output JSON")
		http.Error(w, result.UpstreamFailedMsg, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(bs); err != nil {
		log.WithError(err).WithFields(h.GetLogTagsForContext(r.Context())).Error("Response write")
	}
}

// writeError write a failure. Upstream failures never show their cause.
func (h *handlerImpl) writeError(w http.ResponseWriter, r *http.Request, failure *result.Error) {
	if failure.Kind == result.KindUpstream {
		log.WithError(failure).WithFields(h.GetLogTagsForContext(r.Context())).Error("Request failed")
		h.writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: result.UpstreamFailedMsg})
		return
	}
	h.writeJSON(w, r, statusOf(failure.Kind), ErrorResponse{Error: failure.Message})
}

// respond write a result, with the given status on success
func respond[T any](h *handlerImpl, w http.ResponseWriter, r *http.Request, status int, res result.Result[T]) {
	if !res.IsOk() {
		h.writeError(w, r, res.Error())
		return
	}
	h.writeJSON(w, r, status, res.Val())
}

/*
decodeBody parse a JSON request body

	@param r *http.Request - the request
	@param target any - the body destination
	@param optional bool - whether an empty body is accepted
*/
func decodeBody(r *http.Request, target any, optional bool) *result.Error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return result.Validation("Request body required")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return result.Validation("Request body required")
		}
		return result.Validationf("Invalid request body: %s", err.Error())
	}
	return nil
}
