package world

// Goal drives an agent's autonomous behavior.
type Goal string

const (
	GoalEarn   Goal = "earn"
	GoalWander Goal = "wander"
	GoalIdle   Goal = "idle"
)

// ValidGoal reports whether g is a recognized goal.
func ValidGoal(g Goal) bool {
	switch g {
	case GoalEarn, GoalWander, GoalIdle:
		return true
	}
	return false
}

// Agent statuses. Agents are never deleted during a session; status changes instead.
const (
	StatusActive = "active"
	StatusFrozen = "frozen"
)

// Agent is a single participant in the world.
// IDs are assigned by a monotonic counter and never reused.
type Agent struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Pos     string         `json:"pos"`
	Balance int64          `json:"balance"`

	Inventory map[string]int `json:"inventory"`
	Status    string         `json:"status"`

	// Autonomy state
	Auto              bool   `json:"auto"`
	Goal              Goal   `json:"goal"`
	CooldownUntilTick uint64 `json:"cooldown_until_tick"`

	// Adaptive override bookkeeping: after ConsecutiveDenials reaches the
	// configured threshold the goal is temporarily forced to wander, and
	// SavedGoal is restored once OverrideUntilTick passes.
	ConsecutiveDenials int    `json:"consecutive_denials,omitempty"`
	OverrideUntilTick  uint64 `json:"override_until_tick,omitempty"`
	SavedGoal          Goal   `json:"saved_goal,omitempty"`
}

// ActionType enumerates the recognized action kinds.
type ActionType string

const (
	ActionMove ActionType = "move"
	ActionEarn ActionType = "earn"
	ActionSay  ActionType = "say"
)

// ValidActionType reports whether t is a recognized action type.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionMove, ActionEarn, ActionSay:
		return true
	}
	return false
}

// Action is a fully validated, immutable entry in the pending queue.
// The type-specific payload has already been normalized into typed fields
// by the intake path; the executor never re-parses loose maps.
type Action struct {
	AgentID      int64      `json:"agent_id"`
	Type         ActionType `json:"type"`
	QueuedAtTick uint64     `json:"queued_at_tick"`

	// move
	To string `json:"to,omitempty"`
	// earn
	Amount int64 `json:"amount,omitempty"`
	// say
	Text string `json:"text,omitempty"`
}

// State is a deep, self-contained copy of the whole world, used by the
// snapshot codec and by tests. Mutating a State never touches the live Store.
type State struct {
	Tick        uint64             `json:"tick"`
	NextAgentID int64              `json:"next_agent_id"`
	Locations   []string           `json:"locations"`
	Agents      []Agent            `json:"agents"`
	Queue       []Action           `json:"queue"`
	Capacity    map[string]int64   `json:"capacity"`
	UsedProofs  []string           `json:"used_proofs"`
	Trace       []TraceEvent       `json:"trace,omitempty"`
}
