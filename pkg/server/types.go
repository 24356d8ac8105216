package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bastion-hq/bastion/pkg/guard"
	"bastion-hq/bastion/pkg/guard/pause"
	"bastion-hq/bastion/pkg/guard/timelock"
)

// AuthorizeRequest is the body of an authorization check.
type AuthorizeRequest struct {
	Scope     string `json:"scope"`
	Subject   string `json:"subject"`
	Operation string `json:"operation"`
}

// RateLimitStatus reports quota consumption for an admitted call.
type RateLimitStatus struct {
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// AuthorizeResponse is the outcome of an authorization check.
type AuthorizeResponse struct {
	Allowed           bool             `json:"allowed"`
	Guard             string           `json:"guard,omitempty"`
	Reason            string           `json:"reason,omitempty"`
	RetryAfterSeconds int64            `json:"retry_after_seconds,omitempty"`
	RateLimit         *RateLimitStatus `json:"rate_limit,omitempty"`
}

// CompleteRequest reports the outcome of a previously authorized call.
type CompleteRequest struct {
	Operation string `json:"operation"`
	Success   bool   `json:"success"`
}

// ObserveRequest feeds a raw value into an anomaly series.
type ObserveRequest struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// ObserveResponse reports whether the observation was flagged.
type ObserveResponse struct {
	Anomaly bool `json:"anomaly"`
}

// PauseRequest activates an emergency pause on a scope.
type PauseRequest struct {
	Scope    string `json:"scope"`
	Reason   string `json:"reason"`
	Duration string `json:"duration"`
	Actor    string `json:"actor"`
}

// PauseStatusResponse reports a scope's pause state.
type PauseStatusResponse struct {
	Scope             string    `json:"scope"`
	Paused            bool      `json:"paused"`
	Reason            string    `json:"reason,omitempty"`
	PausedBy          string    `json:"paused_by,omitempty"`
	Expires           time.Time `json:"expires,omitzero"`
	RetryAfterSeconds int64     `json:"retry_after_seconds,omitempty"`
}

func pauseStatusResponse(scope string, st pause.Status) PauseStatusResponse {
	resp := PauseStatusResponse{
		Scope:    scope,
		Paused:   st.Paused,
		Reason:   st.Reason,
		PausedBy: st.PausedBy,
	}
	if st.Paused {
		resp.Expires = st.Expires
		resp.RetryAfterSeconds = retryAfterSeconds(st.RetryAfter)
	}
	return resp
}

// BreakerRequest trips or resets an operation's circuit breaker.
type BreakerRequest struct {
	Operation string `json:"operation"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// BreakerStateResponse reports an operation's breaker state.
type BreakerStateResponse struct {
	Operation string    `json:"operation"`
	Tripped   bool      `json:"tripped"`
	TripTime  time.Time `json:"trip_time,omitzero"`
	Failures  int       `json:"failures"`
	Successes int       `json:"successes"`
	Reason    string    `json:"reason,omitempty"`
}

// BreakerConfigRequest replaces the engine-wide breaker tuning.
type BreakerConfigRequest struct {
	MinSample           int    `json:"min_sample"`
	FailureThresholdPct int    `json:"failure_threshold_pct"`
	Cooldown            string `json:"cooldown"`
}

// TimelockProposeRequest schedules a delayed administrative action.
type TimelockProposeRequest struct {
	OperationHash string `json:"operation_hash"`
	Delay         string `json:"delay"`
	Description   string `json:"description"`
	Proposer      string `json:"proposer"`
}

// TimelockExecuteRequest executes a matured proposal.
type TimelockExecuteRequest struct {
	OperationHash string `json:"operation_hash"`
}

// ProposalResponse is the wire form of a timelock proposal.
type ProposalResponse struct {
	ID            string    `json:"id"`
	OperationHash string    `json:"operation_hash"`
	Description   string    `json:"description"`
	ProposedBy    string    `json:"proposed_by"`
	ProposalTime  time.Time `json:"proposal_time"`
	ExecutionTime time.Time `json:"execution_time"`
	Executed      bool      `json:"executed"`
	ExecutedAt    time.Time `json:"executed_at,omitzero"`
}

func proposalResponse(p *timelock.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:            p.ID,
		OperationHash: p.OperationHash,
		Description:   p.Description,
		ProposedBy:    p.ProposedBy,
		ProposalTime:  p.ProposalTime,
		ExecutionTime: p.ExecutionTime,
		Executed:      p.Executed,
		ExecutedAt:    p.ExecutedAt,
	}
}

// RuleBody is the wire form of one operation's admission rule.
// Durations are Go duration strings (e.g. "1m", "2h").
type RuleBody struct {
	MaxRequests int    `json:"max_requests"`
	Window      string `json:"window"`
	Cooldown    string `json:"cooldown,omitempty"`
	Metric      string `json:"metric,omitempty"`
}

func (b RuleBody) rule() (guard.OperationRule, error) {
	window, err := time.ParseDuration(b.Window)
	if err != nil {
		return guard.OperationRule{}, err
	}
	rule := guard.OperationRule{
		MaxRequests: b.MaxRequests,
		Window:      window,
		Metric:      b.Metric,
	}
	if b.Cooldown != "" {
		cooldown, err := time.ParseDuration(b.Cooldown)
		if err != nil {
			return guard.OperationRule{}, err
		}
		rule.Cooldown = cooldown
	}
	return rule, nil
}

func ruleBody(r guard.OperationRule) RuleBody {
	b := RuleBody{
		MaxRequests: r.MaxRequests,
		Window:      r.Window.String(),
		Metric:      r.Metric,
	}
	if r.Cooldown > 0 {
		b.Cooldown = r.Cooldown.String()
	}
	return b
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// retryAfterSeconds rounds a wait hint up to whole seconds for the
// Retry-After header.
func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// statusForError maps guard errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, guard.ErrInvalidConfiguration),
		errors.Is(err, pause.ErrInvalidDuration),
		errors.Is(err, timelock.ErrInvalidDelay):
		return http.StatusBadRequest
	case errors.Is(err, guard.ErrUnknownOperation),
		errors.Is(err, pause.ErrNotPaused),
		errors.Is(err, timelock.ErrUnknownProposal):
		return http.StatusNotFound
	case errors.Is(err, timelock.ErrAlreadyProposed),
		errors.Is(err, timelock.ErrAlreadyExecuted):
		return http.StatusConflict
	case errors.Is(err, timelock.ErrNotReady):
		return http.StatusTooEarly
	case errors.Is(err, timelock.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
