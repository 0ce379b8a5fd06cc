package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/dispatch"
	"github.com/sells-group/visibility-cli/internal/store"
)

type errorBody struct {
	Error             string     `json:"error"`
	Reason            string     `json:"reason,omitempty"`
	Field             string     `json:"field,omitempty"`
	ExistingRunID     string     `json:"existing_run_id,omitempty"`
	RetryAfterSeconds int64      `json:"retry_after_seconds,omitempty"`
	CooldownEndsAt    *time.Time `json:"cooldown_ends_at,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}

// writeDispatchError maps gateway and store errors onto HTTP statuses.
func writeDispatchError(w http.ResponseWriter, err error) {
	var ve *dispatch.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Field: ve.Field})
		return
	}

	var pe *dispatch.PolicyError
	if errors.As(err, &pe) {
		body := errorBody{Error: pe.Error(), Reason: pe.Reason}
		switch pe.Reason {
		case dispatch.ReasonInFlight:
			body.ExistingRunID = pe.ExistingRunID
			writeError(w, http.StatusConflict, body)
		case dispatch.ReasonCooldownActive:
			secs := pe.RetryAfterSeconds()
			body.RetryAfterSeconds = secs
			body.CooldownEndsAt = pe.CooldownEndsAt
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
			writeError(w, http.StatusTooManyRequests, body)
		default:
			writeError(w, http.StatusForbidden, body)
		}
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}

	zap.L().Error("api: request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}
