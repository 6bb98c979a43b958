package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"vectortube/internal/errs"
)

type apiErrorResponse struct {
	Error   errs.Kind `json:"error"`
	Message string    `json:"message"`
}

type apiMessageResponse struct {
	Message string `json:"message"`
	Video   any    `json:"video,omitempty"`
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.Validation:
		return http.StatusBadRequest
	case errs.Unauthorized:
		return http.StatusUnauthorized
	case errs.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

// sendError writes the error envelope for err. Server-side failures are
// logged with their cause; the client only sees the detail.
func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		err = errs.Validationf("request", "request body exceeds %d bytes", maxErr.Limit)
	}

	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	s.sendJSON(w, apiErrorResponse{Error: kind, Message: errs.DetailOf(err)}, status)
}
