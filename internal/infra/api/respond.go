package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"votelab/internal/domain"
	"votelab/internal/infra/logging"
)

// statusBody is the envelope of every non-data JSON answer.
type statusBody struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidVoteCount),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrAmountBelowFee),
		errors.Is(err, domain.ErrTooManyVotes),
		errors.Is(err, domain.ErrUnpayableVote),
		errors.Is(err, domain.ErrCodeNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPollNotFound),
		errors.Is(err, domain.ErrContestantNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPollInactive),
		errors.Is(err, domain.ErrPollTypeMismatch),
		errors.Is(err, domain.ErrCodeAlreadyUsed),
		errors.Is(err, domain.ErrVoteCapReached),
		errors.Is(err, domain.ErrCodeQuotaExceeded),
		errors.Is(err, domain.ErrAlreadyActivated),
		errors.Is(err, domain.ErrActivationNotNeeded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable),
		errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	detail := err.Error()
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		detail = "internal error"
		if id := logging.TraceID(r.Context()); id != "" {
			detail += " (trace " + id + ")"
		}
	}
	writeJSON(w, code, statusBody{Status: "error", Detail: detail})
}

func pollIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "pollID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return id, nil
}

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}
