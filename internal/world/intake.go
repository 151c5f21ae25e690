package world

import (
	"fmt"
	"math"
	"strings"
)

// RawAction is the untrusted wire shape of a submitted action. The payload
// is a loose map on purpose: everything that crosses the external boundary
// is validated and normalized into a typed Action before it can enter the
// pending queue.
type RawAction struct {
	AgentID int64          `json:"agent_id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// SubmitAction validates a raw action and appends it to the pending queue.
// Anything malformed is rejected with a ValidationError (or NotFound for an
// unknown agent) — intake never faults on bad shape.
func (s *Store) SubmitAction(raw RawAction) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[raw.AgentID]
	if !ok {
		return Action{}, fmt.Errorf("agent %d: %w", raw.AgentID, ErrNotFound)
	}
	if agent.Status != StatusActive {
		return Action{}, fmt.Errorf("agent %d is not active: %w", raw.AgentID, ErrValidation)
	}

	act, err := s.normalizeLocked(raw)
	if err != nil {
		return Action{}, err
	}
	act.QueuedAtTick = s.tick
	s.queue = append(s.queue, act)

	s.trace.Append(TraceEvent{
		Tick:    s.tick,
		Tag:     TagQueued,
		AgentID: act.AgentID,
		Reason:  string(act.Type),
	})
	return act, nil
}

// enqueueLocked appends an already-trusted internal action (autonomy).
func (s *Store) enqueueLocked(act Action) Action {
	act.QueuedAtTick = s.tick
	s.queue = append(s.queue, act)
	s.trace.Append(TraceEvent{
		Tick:    s.tick,
		Tag:     TagQueued,
		AgentID: act.AgentID,
		Reason:  string(act.Type),
	})
	return act
}

// normalizeLocked turns the loose payload into typed fields, validating
// per action type.
func (s *Store) normalizeLocked(raw RawAction) (Action, error) {
	t := ActionType(raw.Type)
	if !ValidActionType(t) {
		return Action{}, fmt.Errorf("unknown action type %q: %w", raw.Type, ErrValidation)
	}

	act := Action{AgentID: raw.AgentID, Type: t}
	switch t {
	case ActionMove:
		to, ok := payloadString(raw.Payload, "to")
		if !ok || to == "" {
			return Action{}, fmt.Errorf("move requires payload.to (string): %w", ErrValidation)
		}
		if !s.hasLocationLocked(to) {
			return Action{}, fmt.Errorf("move requires payload.to, one of: %s: %w",
				strings.Join(s.locations, ", "), ErrValidation)
		}
		act.To = to

	case ActionEarn:
		amount, ok := payloadInt(raw.Payload, "amount", 1)
		if !ok || amount <= 0 {
			return Action{}, fmt.Errorf("earn.amount must be a positive integer: %w", ErrValidation)
		}
		act.Amount = amount

	case ActionSay:
		text, ok := payloadString(raw.Payload, "text")
		if !ok || strings.TrimSpace(text) == "" {
			return Action{}, fmt.Errorf("say.text must be a non-empty string: %w", ErrValidation)
		}
		act.Text = text
	}
	return act, nil
}

func payloadString(payload map[string]any, key string) (string, bool) {
	if payload == nil {
		return "", false
	}
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// payloadInt reads an integer field, tolerating JSON's float64 numbers as
// long as they are integral. A missing key yields the default.
func payloadInt(payload map[string]any, key string, def int64) (int64, bool) {
	if payload == nil {
		return def, true
	}
	v, ok := payload[key]
	if !ok {
		return def, true
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
