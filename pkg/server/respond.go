package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/session"
)

type errorResponse struct {
	Error   string      `json:"error"`
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and writes a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if stderrors.Is(err, session.ErrNotFound) {
		code = errors.ErrCodeSessionNotFound
	}
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	writeJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: errors.UserMessage(err),
	})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeSessionNotFound,
		errors.ErrCodeProvinceNotFound, errors.ErrCodeBandNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidStrategy,
		errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidPath,
		errors.ErrCodeMissingCoordinate, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeDataFetchFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decode reads a JSON request body into v. An empty body leaves v
// unchanged.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
