package server

import (
	"net/http"
	"strconv"
	"time"

	"bastion-hq/bastion/pkg/guard"
	"bastion-hq/bastion/pkg/guard/breaker"
	"bastion-hq/bastion/pkg/telemetry/health"
)

// HealthHandler handles liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new liveness handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ReadyHandler handles readiness probes.
type ReadyHandler struct {
	server *Server
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(s *Server) *ReadyHandler {
	return &ReadyHandler{server: s}
}

// ServeHTTP implements http.Handler for readiness checks.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !h.server.IsRunning() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "not_ready",
			"timestamp": time.Now().Unix(),
		})
		return
	}

	if h.server.checker != nil {
		status := h.server.checker.Readiness(r.Context())
		code := http.StatusOK
		if status.Status != health.StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

// AuthorizeHandler runs the admission hot path for one call.
type AuthorizeHandler struct {
	engine *guard.Engine
}

// NewAuthorizeHandler creates a new authorization handler.
func NewAuthorizeHandler(engine *guard.Engine) *AuthorizeHandler {
	return &AuthorizeHandler{engine: engine}
}

// ServeHTTP implements http.Handler for authorization checks.
// Denials carry the denying guard, a reason, and a Retry-After header
// when the denial is temporal.
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AuthorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Scope == "" || req.Subject == "" || req.Operation == "" {
		writeError(w, http.StatusBadRequest, "scope, subject and operation are required")
		return
	}

	decision := h.engine.Authorize(req.Scope, req.Subject, req.Operation)

	resp := AuthorizeResponse{Allowed: decision.Allowed}
	if decision.RateLimit != nil {
		resp.RateLimit = &RateLimitStatus{
			Count:     decision.RateLimit.Count,
			Limit:     decision.RateLimit.Limit,
			Remaining: decision.RateLimit.Remaining,
			Reset:     decision.RateLimit.Reset,
		}
	}

	if decision.Allowed {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Guard = string(decision.Guard)
	resp.Reason = decision.Reason
	resp.RetryAfterSeconds = retryAfterSeconds(decision.RetryAfter)

	status := http.StatusServiceUnavailable
	if decision.Guard == guard.NameRateLimiter {
		status = http.StatusTooManyRequests
	}
	if resp.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(resp.RetryAfterSeconds, 10))
	}
	writeJSON(w, status, resp)
}

// CompleteHandler reports the outcome of a previously authorized call.
type CompleteHandler struct {
	engine *guard.Engine
}

// NewCompleteHandler creates a new completion handler.
func NewCompleteHandler(engine *guard.Engine) *CompleteHandler {
	return &CompleteHandler{engine: engine}
}

// ServeHTTP implements http.Handler for outcome reporting.
func (h *CompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Operation == "" {
		writeError(w, http.StatusBadRequest, "operation is required")
		return
	}

	h.engine.Complete(req.Operation, req.Success)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ObserveHandler feeds raw values into anomaly series.
type ObserveHandler struct {
	engine *guard.Engine
}

// NewObserveHandler creates a new metric observation handler.
func NewObserveHandler(engine *guard.Engine) *ObserveHandler {
	return &ObserveHandler{engine: engine}
}

// ServeHTTP implements http.Handler for metric observations.
func (h *ObserveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ObserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Metric == "" {
		writeError(w, http.StatusBadRequest, "metric is required")
		return
	}

	flagged := h.engine.ObserveMetric(req.Metric, req.Value)
	writeJSON(w, http.StatusOK, ObserveResponse{Anomaly: flagged})
}

// PauseHandler manages scope-level emergency pauses.
type PauseHandler struct {
	engine *guard.Engine
}

// NewPauseHandler creates a new pause handler.
func NewPauseHandler(engine *guard.Engine) *PauseHandler {
	return &PauseHandler{engine: engine}
}

// ServeHTTP implements http.Handler for pause management: POST to
// activate, DELETE to deactivate, GET to inspect.
func (h *PauseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.activate(w, r)
	case http.MethodDelete:
		h.deactivate(w, r)
	case http.MethodGet:
		h.status(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *PauseHandler) activate(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Scope == "" {
		writeError(w, http.StatusBadRequest, "scope is required")
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid duration: "+err.Error())
		return
	}

	if err := h.engine.ActivatePause(req.Scope, req.Reason, duration, req.Actor); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pauseStatusResponse(req.Scope, h.engine.PauseStatus(req.Scope)))
}

func (h *PauseHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		writeError(w, http.StatusBadRequest, "scope query parameter is required")
		return
	}
	actor := r.URL.Query().Get("actor")

	if err := h.engine.DeactivatePause(scope, actor); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pauseStatusResponse(scope, h.engine.PauseStatus(scope)))
}

func (h *PauseHandler) status(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		writeError(w, http.StatusBadRequest, "scope query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, pauseStatusResponse(scope, h.engine.PauseStatus(scope)))
}

// BreakerHandler inspects and overrides circuit breakers.
type BreakerHandler struct {
	engine *guard.Engine
}

// NewBreakerHandler creates a new breaker handler.
func NewBreakerHandler(engine *guard.Engine) *BreakerHandler {
	return &BreakerHandler{engine: engine}
}

// ServeHTTP implements http.Handler for breaker management: GET to
// inspect, POST with an action of "trip" or "reset" to override.
func (h *BreakerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.state(w, r)
	case http.MethodPost:
		h.override(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *BreakerHandler) state(w http.ResponseWriter, r *http.Request) {
	operation := r.URL.Query().Get("operation")
	if operation == "" {
		writeError(w, http.StatusBadRequest, "operation query parameter is required")
		return
	}

	st := h.engine.BreakerState(operation)
	resp := BreakerStateResponse{Operation: operation}
	if st != nil {
		resp.Tripped = st.Tripped
		resp.TripTime = st.TripTime
		resp.Failures = st.Failures
		resp.Successes = st.Successes
		resp.Reason = st.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BreakerHandler) override(w http.ResponseWriter, r *http.Request) {
	var req BreakerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Operation == "" {
		writeError(w, http.StatusBadRequest, "operation is required")
		return
	}

	switch req.Action {
	case "trip":
		h.engine.TripBreaker(req.Operation, req.Reason, req.Actor)
	case "reset":
		h.engine.ResetBreaker(req.Operation, req.Actor)
	default:
		writeError(w, http.StatusBadRequest, "action must be trip or reset")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BreakerConfigHandler replaces the engine-wide breaker tuning.
type BreakerConfigHandler struct {
	engine *guard.Engine
}

// NewBreakerConfigHandler creates a new breaker tuning handler.
func NewBreakerConfigHandler(engine *guard.Engine) *BreakerConfigHandler {
	return &BreakerConfigHandler{engine: engine}
}

// ServeHTTP implements http.Handler for breaker tuning.
func (h *BreakerConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BreakerConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	cooldown, err := time.ParseDuration(req.Cooldown)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cooldown: "+err.Error())
		return
	}

	cfg := breaker.Config{
		MinSample:           req.MinSample,
		FailureThresholdPct: req.FailureThresholdPct,
		Cooldown:            cooldown,
	}
	if err := h.engine.ConfigureBreaker(cfg); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TimelockHandler inspects timelock proposals.
type TimelockHandler struct {
	engine *guard.Engine
}

// NewTimelockHandler creates a new timelock inspection handler.
func NewTimelockHandler(engine *guard.Engine) *TimelockHandler {
	return &TimelockHandler{engine: engine}
}

// ServeHTTP implements http.Handler for proposal inspection: GET with
// a hash query parameter returns one proposal, GET without it lists
// pending proposals.
func (h *TimelockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if hash := r.URL.Query().Get("hash"); hash != "" {
		p := h.engine.TimelockProposal(hash)
		if p == nil {
			writeError(w, http.StatusNotFound, "unknown timelocked operation")
			return
		}
		writeJSON(w, http.StatusOK, proposalResponse(p))
		return
	}

	pending := h.engine.PendingTimelocks()
	resps := make([]ProposalResponse, 0, len(pending))
	for _, p := range pending {
		resps = append(resps, proposalResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": resps})
}

// TimelockProposeHandler schedules delayed administrative actions.
type TimelockProposeHandler struct {
	engine *guard.Engine
}

// NewTimelockProposeHandler creates a new proposal handler.
func NewTimelockProposeHandler(engine *guard.Engine) *TimelockProposeHandler {
	return &TimelockProposeHandler{engine: engine}
}

// ServeHTTP implements http.Handler for proposal creation.
func (h *TimelockProposeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TimelockProposeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.OperationHash == "" {
		writeError(w, http.StatusBadRequest, "operation_hash is required")
		return
	}
	delay, err := time.ParseDuration(req.Delay)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delay: "+err.Error())
		return
	}

	p, err := h.engine.ProposeTimelock(req.OperationHash, delay, req.Description, req.Proposer)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, proposalResponse(p))
}

// TimelockExecuteHandler executes matured proposals.
type TimelockExecuteHandler struct {
	engine *guard.Engine
}

// NewTimelockExecuteHandler creates a new execution handler.
func NewTimelockExecuteHandler(engine *guard.Engine) *TimelockExecuteHandler {
	return &TimelockExecuteHandler{engine: engine}
}

// ServeHTTP implements http.Handler for proposal execution.
func (h *TimelockExecuteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TimelockExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.OperationHash == "" {
		writeError(w, http.StatusBadRequest, "operation_hash is required")
		return
	}

	p, err := h.engine.ExecuteTimelock(req.OperationHash)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p))
}

// RulesHandler reads and replaces the operation rule table.
type RulesHandler struct {
	engine *guard.Engine
}

// NewRulesHandler creates a new rule table handler.
func NewRulesHandler(engine *guard.Engine) *RulesHandler {
	return &RulesHandler{engine: engine}
}

// ServeHTTP implements http.Handler for the rule table: GET returns
// the current table, PUT atomically replaces it.
func (h *RulesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w)
	case http.MethodPut:
		h.replace(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *RulesHandler) list(w http.ResponseWriter) {
	rules := h.engine.Rules()
	bodies := make(map[string]RuleBody, len(rules))
	for name, rule := range rules {
		bodies[name] = ruleBody(rule)
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": bodies})
}

func (h *RulesHandler) replace(w http.ResponseWriter, r *http.Request) {
	var bodies map[string]RuleBody
	if err := decodeJSON(r, &bodies); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rules := make(map[string]guard.OperationRule, len(bodies))
	for name, body := range bodies {
		rule, err := body.rule()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid rule for "+name+": "+err.Error())
			return
		}
		rules[name] = rule
	}

	if err := h.engine.SetRules(rules); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
