package world

import (
	"fmt"
	"sort"
	"sync"
)

// Default world layout, mirroring the three-location economy the simulator
// started with.
const (
	LocationSpawn    = "spawn"
	LocationMarket   = "market"
	LocationWorkshop = "workshop"
)

// Config carries the tunables of the simulation core. All adaptive-override
// knobs are explicit here rather than buried as magic numbers.
type Config struct {
	Locations    []string
	SpawnLoc     string
	EarnLoc      string
	EarnAmount   int64            // payout per autonomous earn
	Capacity     map[string]int64 // per-resource per-tick capacity
	TraceCap     int              // trace ring buffer size

	// Autonomy
	DenialThreshold int    // consecutive capacity denials before override
	OverrideTicks   uint64 // how long the forced-wander override lasts
	AutonomyLimit   int    // max autonomous decisions per tick
}

// DefaultConfig returns the stock world configuration.
func DefaultConfig() Config {
	return Config{
		Locations:  []string{LocationSpawn, LocationMarket, LocationWorkshop},
		SpawnLoc:   LocationSpawn,
		EarnLoc:    LocationWorkshop,
		EarnAmount: 1,
		Capacity: map[string]int64{
			ResourceWorkshop: 2,
		},
		TraceCap:        1024,
		DenialThreshold: 2,
		OverrideTicks:   3,
		AutonomyLimit:   50,
	}
}

// Store owns the canonical mutable world. Every mutating operation takes
// the exclusive lock for its whole duration, so no caller can observe a
// world where the tick has advanced but balances have not. Read operations
// take the shared lock and return copies.
type Store struct {
	mu sync.RWMutex

	cfg Config

	tick        uint64
	locations   []string
	agents      map[int64]*Agent
	nextAgentID int64
	queue       []Action
	economy     *Economy
	usedProofs  map[string]struct{}
	trace       *Trace
}

// NewStore creates a world at tick zero with no agents.
func NewStore(cfg Config) *Store {
	if len(cfg.Locations) == 0 {
		cfg.Locations = []string{LocationSpawn, LocationMarket, LocationWorkshop}
	}
	if cfg.SpawnLoc == "" {
		cfg.SpawnLoc = cfg.Locations[0]
	}
	if cfg.EarnLoc == "" {
		cfg.EarnLoc = LocationWorkshop
	}
	if cfg.EarnAmount <= 0 {
		cfg.EarnAmount = 1
	}
	if cfg.TraceCap <= 0 {
		cfg.TraceCap = 1024
	}
	if cfg.DenialThreshold <= 0 {
		cfg.DenialThreshold = 2
	}
	if cfg.OverrideTicks == 0 {
		cfg.OverrideTicks = 3
	}
	if cfg.AutonomyLimit <= 0 {
		cfg.AutonomyLimit = 50
	}

	s := &Store{cfg: cfg}
	s.resetLocked()
	return s
}

// resetLocked re-creates the initial world in place. Caller holds the lock
// (or is the constructor).
func (s *Store) resetLocked() {
	s.tick = 0
	s.locations = append([]string(nil), s.cfg.Locations...)
	s.agents = make(map[int64]*Agent)
	s.nextAgentID = 0
	s.queue = nil
	s.economy = NewEconomy(s.cfg.Capacity)
	s.usedProofs = make(map[string]struct{})
	s.trace = NewTrace(s.cfg.TraceCap)
}

// Reset discards the world and starts over at tick zero. The trace is also
// discarded, then seeded with a reset marker.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.trace.Append(TraceEvent{Tick: s.tick, Tag: TagReset})
}

// Tick returns the current tick counter.
func (s *Store) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Locations returns a copy of the location set, in canonical order.
func (s *Store) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.locations...)
}

// Agent returns a copy of the agent record.
func (s *Store) Agent(id int64) (Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	return copyAgent(a), nil
}

// Agents returns copies of all agent records, ascending by id.
func (s *Store) Agents() []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Agent, 0, len(s.agents))
	for _, id := range s.sortedAgentIDs() {
		out = append(out, copyAgent(s.agents[id]))
	}
	return out
}

// QueueLen returns the number of pending actions.
func (s *Store) QueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue)
}

// TraceLen returns the number of retained trace events.
func (s *Store) TraceLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trace.Len()
}

// Summary is a consistent, copy-out view of the world's headline numbers.
type Summary struct {
	Tick          uint64 `json:"tick"`
	AgentCount    int    `json:"agents"`
	QueuedActions int    `json:"queued_actions"`
	TraceEvents   int    `json:"logs"`
	Locations     int    `json:"locations"`
}

// Summarize returns the headline numbers under a single read lock, so the
// values are mutually consistent.
func (s *Store) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		Tick:          s.tick,
		AgentCount:    len(s.agents),
		QueuedActions: len(s.queue),
		TraceEvents:   s.trace.Len(),
		Locations:     len(s.locations),
	}
}

// AdmitAgent creates a new agent atomically with the proof ledger update.
// An empty proof means entry was free-mode or scenario-seeded and no ledger
// entry is recorded. Exactly one of {no mutation, agent + ledger entry}
// happens; a replayed proof leaves the world untouched.
func (s *Store) AdmitAgent(name string, deposit int64, proof string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if proof != "" {
		if _, used := s.usedProofs[proof]; used {
			return Agent{}, fmt.Errorf("proof %s: %w", proof, ErrProofAlreadyUsed)
		}
	}
	if deposit < 0 {
		return Agent{}, fmt.Errorf("deposit must be non-negative: %w", ErrValidation)
	}

	s.nextAgentID++
	a := &Agent{
		ID:        s.nextAgentID,
		Name:      name,
		Pos:       s.cfg.SpawnLoc,
		Balance:   deposit,
		Inventory: make(map[string]int),
		Status:    StatusActive,
		Goal:      GoalEarn,
	}
	s.agents[a.ID] = a
	if proof != "" {
		s.usedProofs[proof] = struct{}{}
	}

	s.trace.Append(TraceEvent{
		Tick:    s.tick,
		Tag:     TagJoin,
		AgentID: a.ID,
		Text:    a.Name,
		Amount:  deposit,
	})
	return copyAgent(a), nil
}

// HasProof reports whether a proof reference is already in the ledger.
// Entry verification uses this as a cheap pre-check before doing external
// I/O; the authoritative check is the atomic one inside AdmitAgent.
func (s *Store) HasProof(proof string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, used := s.usedProofs[proof]
	return used
}

// SetAuto toggles the autonomy flag for one agent.
func (s *Store) SetAuto(id int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	a.Auto = enabled
	tag := TagAutoEnabled
	if !enabled {
		tag = TagAutoDisabled
	}
	s.trace.Append(TraceEvent{Tick: s.tick, Tag: tag, AgentID: id})
	return nil
}

// SetAutoAll toggles autonomy for every active agent and returns how many
// were changed.
func (s *Store) SetAutoAll(enabled bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range s.sortedAgentIDs() {
		a := s.agents[id]
		if enabled {
			if a.Status == StatusActive && !a.Auto {
				a.Auto = true
				count++
			}
		} else if a.Auto {
			a.Auto = false
			count++
		}
	}
	tag := TagAutoEnabledAll
	if !enabled {
		tag = TagAutoDisabledAll
	}
	s.trace.Append(TraceEvent{Tick: s.tick, Tag: tag, Count: count})
	return count
}

// SetGoal replaces an agent's goal and clears any adaptive override in
// progress — an explicit goal always wins over the policy's temporary one.
func (s *Store) SetGoal(id int64, goal Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ValidGoal(goal) {
		return fmt.Errorf("unknown goal %q: %w", goal, ErrValidation)
	}
	a, ok := s.agents[id]
	if !ok {
		return fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	a.Goal = goal
	a.SavedGoal = ""
	a.OverrideUntilTick = 0
	a.ConsecutiveDenials = 0
	s.trace.Append(TraceEvent{Tick: s.tick, Tag: TagGoalSet, AgentID: id, Goal: string(goal)})
	return nil
}

// TraceRecent returns the most recent events, oldest first.
func (s *Store) TraceRecent(limit int) []TraceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trace.Recent(limit)
}

// TraceForAgent returns the most recent events for one agent, oldest first.
// Unknown agents are a NotFound error; malformed historical records still
// render, they never fail the read.
func (s *Store) TraceForAgent(id int64, limit int) ([]TraceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.agents[id]; !ok {
		return nil, fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	return s.trace.ForAgent(id, limit), nil
}

// AppendTrace records an externally produced event (persistence markers,
// scenario loads). The tick is stamped by the store.
func (s *Store) AppendTrace(ev TraceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Tick = s.tick
	s.trace.Append(ev)
}

// ExportState deep-copies the whole world for the snapshot codec.
func (s *Store) ExportState(includeTrace bool) State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Tick:        s.tick,
		NextAgentID: s.nextAgentID,
		Locations:   append([]string(nil), s.locations...),
		Capacity:    s.economy.CapacityMap(),
		Queue:       append([]Action(nil), s.queue...),
	}
	for _, id := range s.sortedAgentIDs() {
		st.Agents = append(st.Agents, copyAgent(s.agents[id]))
	}
	st.UsedProofs = make([]string, 0, len(s.usedProofs))
	for p := range s.usedProofs {
		st.UsedProofs = append(st.UsedProofs, p)
	}
	sort.Strings(st.UsedProofs)
	if includeTrace {
		st.Trace = s.trace.All()
	}
	return st
}

// RestoreState replaces the live world with an already-normalized state.
// The snapshot codec is responsible for shape safety; this only re-derives
// internal bookkeeping (next id, proof set, economy counters).
func (s *Store) RestoreState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick = st.Tick
	if len(st.Locations) > 0 {
		s.locations = append([]string(nil), st.Locations...)
	} else {
		s.locations = append([]string(nil), s.cfg.Locations...)
	}

	capacity := st.Capacity
	if len(capacity) == 0 {
		capacity = s.cfg.Capacity
	}
	s.economy = NewEconomy(capacity)

	s.agents = make(map[int64]*Agent, len(st.Agents))
	maxID := int64(0)
	for i := range st.Agents {
		a := copyAgent(&st.Agents[i])
		s.agents[a.ID] = &a
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	s.nextAgentID = st.NextAgentID
	if s.nextAgentID < maxID {
		// Never reuse an id, even against a snapshot with a stale counter.
		s.nextAgentID = maxID
	}

	s.queue = append([]Action(nil), st.Queue...)

	s.usedProofs = make(map[string]struct{}, len(st.UsedProofs))
	for _, p := range st.UsedProofs {
		if p != "" {
			s.usedProofs[p] = struct{}{}
		}
	}

	s.trace = NewTrace(s.cfg.TraceCap)
	s.trace.Restore(st.Trace)
}

func (s *Store) sortedAgentIDs() []int64 {
	ids := make([]int64, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copyAgent(a *Agent) Agent {
	out := *a
	out.Inventory = make(map[string]int, len(a.Inventory))
	for k, v := range a.Inventory {
		out.Inventory[k] = v
	}
	return out
}

func (s *Store) hasLocationLocked(loc string) bool {
	for _, l := range s.locations {
		if l == loc {
			return true
		}
	}
	return false
}
