package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/devflow/backhaul/internal/api/response"
	"github.com/devflow/backhaul/internal/core"
	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/schedule"
	"github.com/devflow/backhaul/internal/storage"
)

// statusForError maps domain errors onto HTTP status codes. Anything the
// services don't classify is a 500.
func statusForError(err error) int {
	var policyErr *schedule.PolicyError
	switch {
	case errors.As(err, &policyErr):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrHasDependents):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	response.WriteError(w, statusForError(err), err.Error())
}
