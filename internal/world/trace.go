package world

import "fmt"

// TraceVersion is bumped when the TraceEvent schema changes, so replay
// tooling can tell old records apart.
const TraceVersion uint8 = 1

// Trace tags. The set is closed: rendering switches over these and falls
// back to a generic line for anything unknown (old snapshots, forward
// versions), so a read can never fail on an unexpected tag.
const (
	TagJoin        = "join"
	TagQueued      = "queued_action"
	TagMove        = "move"
	TagEarn        = "earn"
	TagSay         = "say"
	TagTick        = "tick"

	TagEarnDeniedCapacity = "earn_denied_capacity"
	TagEarnDeniedLocation = "earn_denied_wrong_location"
	TagMoveDeniedInvalid  = "move_denied_invalid_payload"
	TagSkippedUnknown     = "action_skipped_unknown_agent"
	TagSkippedInvalid     = "action_skipped_invalid"

	TagAutoDecision    = "auto_decision"
	TagAutoEnabled     = "auto_enabled"
	TagAutoDisabled    = "auto_disabled"
	TagAutoEnabledAll  = "auto_enabled_all"
	TagAutoDisabledAll = "auto_disabled_all"
	TagGoalSet         = "goal_set"
	TagGoalOverride    = "goal_override"
	TagGoalRestored    = "goal_restored"

	TagReset          = "reset"
	TagScenarioLoaded = "scenario_loaded"
	TagPersistSave    = "persist_save"
	TagPersistLoad    = "persist_load"
)

// TraceEvent is one append-only record of a state transition or denial.
// All fields are optional except Tick and Tag; zero values render as an
// empty projection instead of failing, which keeps every historical record
// readable no matter how it was produced.
//
// Deliberately no wall-clock field: rendering depends only on simulation
// state, so replaying the same action sequence yields byte-identical lines.
type TraceEvent struct {
	Version uint8  `json:"v"`
	Seq     uint64 `json:"seq"`
	Tick    uint64 `json:"tick"`
	Tag     string `json:"tag"`

	AgentID int64  `json:"agent_id,omitempty"` // 0 = no associated agent
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Balance int64  `json:"balance,omitempty"`
	Count   int    `json:"count,omitempty"`
	Goal    string `json:"goal,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Text    string `json:"text,omitempty"`
	Until   uint64 `json:"until,omitempty"`
}

// Render produces the human-readable projection of the event. It must not
// fail for any input: missing fields fall through to their zero values and
// unknown tags get the generic form.
func (ev TraceEvent) Render() string {
	switch ev.Tag {
	case TagJoin:
		return fmt.Sprintf("tick %d: agent %d joined as %q, deposit=%d", ev.Tick, ev.AgentID, ev.Text, ev.Amount)
	case TagQueued:
		return fmt.Sprintf("tick %d: queued %s by agent %d", ev.Tick, ev.Reason, ev.AgentID)
	case TagMove:
		return fmt.Sprintf("tick %d: agent %d moved %s -> %s", ev.Tick, ev.AgentID, ev.From, ev.To)
	case TagEarn:
		return fmt.Sprintf("tick %d: agent %d earned %d (balance=%d)", ev.Tick, ev.AgentID, ev.Amount, ev.Balance)
	case TagSay:
		return fmt.Sprintf("tick %d: agent %d said %q at %s", ev.Tick, ev.AgentID, ev.Text, ev.From)
	case TagTick:
		if ev.Count == 0 {
			return fmt.Sprintf("tick %d: world idle (no actions applied)", ev.Tick)
		}
		return fmt.Sprintf("tick %d: applied_actions=%d", ev.Tick, ev.Count)
	case TagEarnDeniedCapacity:
		return fmt.Sprintf("tick %d: earn denied for agent %d (reason=capacity)", ev.Tick, ev.AgentID)
	case TagEarnDeniedLocation:
		return fmt.Sprintf("tick %d: earn denied for agent %d (pos=%s)", ev.Tick, ev.AgentID, ev.From)
	case TagMoveDeniedInvalid:
		return fmt.Sprintf("tick %d: move denied for agent %d (to=%q)", ev.Tick, ev.AgentID, ev.To)
	case TagSkippedUnknown:
		return fmt.Sprintf("tick %d: skipped action for unknown agent %d", ev.Tick, ev.AgentID)
	case TagSkippedInvalid:
		return fmt.Sprintf("tick %d: skipped invalid action for agent %d (reason=%s)", ev.Tick, ev.AgentID, ev.Reason)
	case TagAutoDecision:
		return fmt.Sprintf("tick %d: auto decision agent=%d goal=%s reason=%s", ev.Tick, ev.AgentID, ev.Goal, ev.Reason)
	case TagAutoEnabled:
		return fmt.Sprintf("tick %d: auto enabled for agent %d", ev.Tick, ev.AgentID)
	case TagAutoDisabled:
		return fmt.Sprintf("tick %d: auto disabled for agent %d", ev.Tick, ev.AgentID)
	case TagAutoEnabledAll:
		return fmt.Sprintf("tick %d: auto enabled for all active agents (count=%d)", ev.Tick, ev.Count)
	case TagAutoDisabledAll:
		return fmt.Sprintf("tick %d: auto disabled for agents (count=%d)", ev.Tick, ev.Count)
	case TagGoalSet:
		return fmt.Sprintf("tick %d: goal set for agent %d -> %s", ev.Tick, ev.AgentID, ev.Goal)
	case TagGoalOverride:
		return fmt.Sprintf("tick %d: goal override for agent %d -> %s until tick %d (reason=%s)", ev.Tick, ev.AgentID, ev.Goal, ev.Until, ev.Reason)
	case TagGoalRestored:
		return fmt.Sprintf("tick %d: goal restored for agent %d -> %s", ev.Tick, ev.AgentID, ev.Goal)
	case TagReset:
		return fmt.Sprintf("tick %d: world reset", ev.Tick)
	case TagScenarioLoaded:
		return fmt.Sprintf("tick %d: scenario loaded: %s (agents=%d)", ev.Tick, ev.Text, ev.Count)
	case TagPersistSave:
		return fmt.Sprintf("tick %d: snapshot saved to %s", ev.Tick, ev.Text)
	case TagPersistLoad:
		return fmt.Sprintf("tick %d: snapshot loaded from %s", ev.Tick, ev.Text)
	}
	return fmt.Sprintf("tick %d: %s", ev.Tick, ev.Tag)
}

// Trace is an append-only ring buffer of TraceEvents with bounded capacity;
// the oldest entries are evicted first. Not safe for concurrent use on its
// own — the owning Store's lock guards it.
type Trace struct {
	events []TraceEvent
	start  int // index of the oldest event
	count  int
	seq    uint64
}

// NewTrace creates a trace with the given capacity (minimum 1).
func NewTrace(capacity int) *Trace {
	if capacity < 1 {
		capacity = 1
	}
	return &Trace{events: make([]TraceEvent, capacity)}
}

// Append stamps the event with version and sequence number and stores it,
// evicting the oldest event when full.
func (t *Trace) Append(ev TraceEvent) {
	t.seq++
	ev.Version = TraceVersion
	ev.Seq = t.seq

	if t.count < len(t.events) {
		t.events[(t.start+t.count)%len(t.events)] = ev
		t.count++
		return
	}
	t.events[t.start] = ev
	t.start = (t.start + 1) % len(t.events)
}

// Len returns the number of retained events.
func (t *Trace) Len() int { return t.count }

// Recent returns up to limit of the most recent events, oldest first.
func (t *Trace) Recent(limit int) []TraceEvent {
	if limit <= 0 || t.count == 0 {
		return nil
	}
	if limit > t.count {
		limit = t.count
	}
	out := make([]TraceEvent, 0, limit)
	for i := t.count - limit; i < t.count; i++ {
		out = append(out, t.events[(t.start+i)%len(t.events)])
	}
	return out
}

// ForAgent returns up to limit of the most recent events associated with
// the given agent, oldest first.
func (t *Trace) ForAgent(agentID int64, limit int) []TraceEvent {
	if limit <= 0 || t.count == 0 {
		return nil
	}
	picked := make([]TraceEvent, 0, limit)
	for i := t.count - 1; i >= 0 && len(picked) < limit; i-- {
		ev := t.events[(t.start+i)%len(t.events)]
		if ev.AgentID == agentID {
			picked = append(picked, ev)
		}
	}
	// reverse back to oldest-first
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

// All returns every retained event, oldest first. Used by the snapshot codec.
func (t *Trace) All() []TraceEvent {
	return t.Recent(t.count)
}

// Restore replaces the trace contents with the given events (oldest first)
// and continues the sequence counter from the highest restored seq.
func (t *Trace) Restore(events []TraceEvent) {
	t.start, t.count, t.seq = 0, 0, 0
	var maxSeq uint64
	for _, ev := range events {
		if ev.Seq > maxSeq {
			maxSeq = ev.Seq
		}
	}
	for _, ev := range events {
		if t.count < len(t.events) {
			t.events[(t.start+t.count)%len(t.events)] = ev
			t.count++
		} else {
			t.events[t.start] = ev
			t.start = (t.start + 1) % len(t.events)
		}
	}
	t.seq = maxSeq
}
