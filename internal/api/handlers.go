package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"agent-world/internal/entry"
	"agent-world/internal/snapshot"
	"agent-world/internal/world"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the full Server.

const defaultLogLimit = 50

func (h *routerHandlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	sum := h.store.Summarize()
	writeJSON(w, map[string]any{
		"service":   "agent-world",
		"tick":      sum.Tick,
		"agents":    sum.AgentCount,
		"free_mode": h.gate.FreeMode(),
	})
}

func (h *routerHandlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetWorld(w http.ResponseWriter, r *http.Request) {
	sum := h.store.Summarize()
	writeJSON(w, map[string]any{
		"tick":           sum.Tick,
		"locations":      h.store.Locations(),
		"agents":         h.store.Agents(),
		"queued_actions": sum.QueuedActions,
	})
}

func (h *routerHandlers) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	agent, err := h.store.Agent(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, agent)
}

func (h *routerHandlers) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	events := h.store.TraceRecent(queryLimit(r, defaultLogLimit))
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, ev.Render())
	}
	writeJSON(w, map[string]any{"logs": lines})
}

// handleMetrics is the JSON counter view. The Prometheus endpoint lives on
// the localhost-only debug server, not here.
func (h *routerHandlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.Summarize())
}

func (h *routerHandlers) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Deposit int64  `json:"deposit"`
		Proof   string `json:"proof"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	agent, err := h.gate.Admit(r.Context(), req.Name, req.Deposit, req.Proof)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"agent": agent, "tick": h.store.Tick()})
}

func (h *routerHandlers) handleAct(w http.ResponseWriter, r *http.Request) {
	var req world.RawAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	act, err := h.store.SubmitAction(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"queued": true, "action": act})
}

func (h *routerHandlers) handleTick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Steps int `json:"steps"`
	}
	// An empty body means one step.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Steps < 1 {
		req.Steps = 1
	}
	if req.Steps > h.maxSteps {
		writeError(w, "steps exceeds the per-request maximum of "+strconv.Itoa(h.maxSteps), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res := h.store.Advance(req.Steps)
	RecordTick(time.Since(start))
	UpdateWorldGauges(h.store.Summarize())

	writeJSON(w, res)
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	h.store.Reset()
	UpdateWorldGauges(h.store.Summarize())
	writeJSON(w, map[string]any{"reset": true, "tick": h.store.Tick()})
}

func (h *routerHandlers) handleAutoEnable(w http.ResponseWriter, r *http.Request) {
	h.setAuto(w, r, true)
}

func (h *routerHandlers) handleAutoDisable(w http.ResponseWriter, r *http.Request) {
	h.setAuto(w, r, false)
}

func (h *routerHandlers) setAuto(w http.ResponseWriter, r *http.Request, enabled bool) {
	var req struct {
		AgentID int64 `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.store.SetAuto(req.AgentID, enabled); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"agent_id": req.AgentID, "auto": enabled})
}

func (h *routerHandlers) handleAutoEnableAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"auto": true, "changed": h.store.SetAutoAll(true)})
}

func (h *routerHandlers) handleAutoDisableAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"auto": false, "changed": h.store.SetAutoAll(false)})
}

func (h *routerHandlers) handleAutoGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID int64  `json:"agent_id"`
		Goal    string `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.store.SetGoal(req.AgentID, world.Goal(req.Goal)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"agent_id": req.AgentID, "goal": req.Goal})
}

// handleAutoStep runs one autonomy pass without advancing the tick, so the
// queued decisions can be inspected before /tick executes them.
func (h *routerHandlers) handleAutoStep(w http.ResponseWriter, r *http.Request) {
	actions := h.store.AutonomyStep(h.autonomyLimit)
	writeJSON(w, map[string]any{"queued": len(actions), "actions": actions})
}

func (h *routerHandlers) handleAutoTick(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res := h.store.Advance(1)
	RecordTick(time.Since(start))
	UpdateWorldGauges(h.store.Summarize())
	writeJSON(w, res)
}

func (h *routerHandlers) handleExplainRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, explainPayload(h.store.TraceRecent(queryLimit(r, defaultLogLimit))))
}

func (h *routerHandlers) handleExplainAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	events, err := h.store.TraceForAgent(id, queryLimit(r, defaultLogLimit))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, explainPayload(events))
}

// explainPayload pairs each raw event with its rendered line, so callers get
// both the machine-readable record and the human projection.
func explainPayload(events []world.TraceEvent) map[string]any {
	type explained struct {
		world.TraceEvent
		Line string `json:"line"`
	}
	out := make([]explained, 0, len(events))
	for _, ev := range events {
		out = append(out, explained{TraceEvent: ev, Line: ev.Render()})
	}
	return map[string]any{"events": out}
}

func (h *routerHandlers) handlePersistSave(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, "Persistence not configured", http.StatusNotImplemented)
		return
	}
	var req struct {
		Path         string `json:"path"`
		IncludeTrace *bool  `json:"include_trace"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	includeTrace := true
	if req.IncludeTrace != nil {
		includeTrace = *req.IncludeTrace
	}

	info, err := h.snapshots.Save(req.Path, includeTrace)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, info)
}

func (h *routerHandlers) handlePersistLoad(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, "Persistence not configured", http.StatusNotImplemented)
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	info, err := h.snapshots.Load(req.Path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	UpdateWorldGauges(h.store.Summarize())
	writeJSON(w, info)
}

func (h *routerHandlers) handlePersistStatus(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, "Persistence not configured", http.StatusNotImplemented)
		return
	}
	writeJSON(w, h.snapshots.CurrentStatus())
}

func (h *routerHandlers) handleScenarioBasic(w http.ResponseWriter, r *http.Request) {
	agents := h.store.LoadBasicScenario()
	writeJSON(w, map[string]any{"loaded": "basic", "agents": agents})
}

// handleDemoRun is the one-call demo: seed the basic scenario if the world
// is empty, enable autonomy everywhere, run a few ticks, return the story.
// The tick count comes from ?steps=N; a JSON body {"ticks": N} is accepted
// as an alias, with the query form winning when both are given.
func (h *routerHandlers) handleDemoRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticks int `json:"ticks"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	steps := req.Ticks
	if v := r.URL.Query().Get("steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, "steps must be a positive integer", http.StatusBadRequest)
			return
		}
		steps = n
	}
	if steps < 1 {
		steps = 5
	}
	if steps > h.maxSteps {
		steps = h.maxSteps
	}

	if len(h.store.Agents()) == 0 {
		h.store.LoadBasicScenario()
	}
	h.store.SetAutoAll(true)

	start := time.Now()
	res := h.store.Advance(steps)
	RecordTick(time.Since(start))
	UpdateWorldGauges(h.store.Summarize())

	events := h.store.TraceRecent(defaultLogLimit)
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, ev.Render())
	}
	writeJSON(w, map[string]any{
		"tick":            res.Tick,
		"applied_actions": res.Applied,
		"agents":          h.store.Agents(),
		"logs":            lines,
	})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeDomainError maps domain errors onto HTTP statuses. The taxonomy is
// deliberate: a malformed proof is the caller's fault (400), a missing or
// rejected payment is a payment problem (402), a replay is a conflict (409)
// and a verifier outage is upstream (502).
func writeDomainError(w http.ResponseWriter, err error) {
	var code int
	var reason string
	switch {
	case errors.Is(err, entry.ErrProofRequired), errors.Is(err, entry.ErrProofRejected):
		code, reason = http.StatusPaymentRequired, "proof_rejected"
	case errors.Is(err, entry.ErrProofInvalid):
		code, reason = http.StatusBadRequest, "proof_invalid"
	case errors.Is(err, world.ErrProofAlreadyUsed):
		code, reason = http.StatusConflict, "replay"
	case errors.Is(err, world.ErrValidation), errors.Is(err, snapshot.ErrCorrupted):
		code, reason = http.StatusBadRequest, "validation"
	case errors.Is(err, world.ErrNotFound):
		code, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, entry.ErrUpstreamUnavailable):
		code, reason = http.StatusBadGateway, "upstream"
	default:
		code, reason = http.StatusInternalServerError, "internal"
	}
	if code != http.StatusNotFound && code != http.StatusInternalServerError {
		RecordRequestRejected(reason)
	}
	writeError(w, err.Error(), code)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "Invalid agent id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
