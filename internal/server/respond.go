package server

import (
	"encoding/json"
	"net/http"

	"nvd-api/internal/database"
	"nvd-api/internal/models"

	"golang.org/x/xerrors"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.WithError(err).Error("error encoding response")
	}
}

// writeError maps err to a status code. Rejected path parameters are the
// client's fault and carry their validation message; store failures are
// logged and hidden behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case models.IsValidationError(err):
		s.writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case xerrors.Is(err, database.ErrStoreUnavailable):
		s.Logger.WithError(err).WithField("path", r.URL.Path).Warn("store unavailable")
		s.writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "store unavailable"})
	default:
		s.Logger.WithError(err).WithField("path", r.URL.Path).Error("query failed")
		s.writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
	}
}
