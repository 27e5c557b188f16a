package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Validation failures carry the full per-field message map so the client can
// show every blocking reason at once.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	switch {
	case errors.As(err, &vErr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: vErr.Error(),
			Fields: vErr.Fields,
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Already Processed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
