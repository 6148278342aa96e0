package http

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

// Response is the success envelope of the API.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WarnContext(r.Context(), "error encoding response", slog.Any("error", err))
	}
}

func (s *Service) writeSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	s.writeJSON(w, r, status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}
