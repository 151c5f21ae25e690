package world

// Tick executor. advance is the only place the tick counter moves, and each
// tick is one atomic transition under the exclusive lock: capacity reset,
// autonomy pass, FIFO queue drain, counter increment, summary event. A
// caller can never observe the world mid-tick.

// AdvanceResult reports what one Advance call did.
type AdvanceResult struct {
	Tick    uint64 `json:"tick"`
	Applied int    `json:"applied_actions"`
}

// Advance runs the given number of full ticks and returns the final tick
// counter plus the total number of successfully applied actions. steps is
// clamped to at least 1; each step increments the tick by exactly one no
// matter how many actions were queued.
func (s *Store) Advance(steps int) AdvanceResult {
	if steps < 1 {
		steps = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for i := 0; i < steps; i++ {
		total += s.stepLocked()
	}
	return AdvanceResult{Tick: s.tick, Applied: total}
}

// stepLocked executes exactly one tick and returns the applied-action count.
func (s *Store) stepLocked() int {
	s.economy.ResetTick()
	s.autonomyStepLocked(s.cfg.AutonomyLimit)

	queue := s.queue
	s.queue = nil

	applied := 0
	for i := range queue {
		if s.applyLocked(queue[i]) {
			applied++
		}
	}

	s.tick++
	s.trace.Append(TraceEvent{Tick: s.tick, Tag: TagTick, Count: applied})
	return applied
}

// applyLocked routes one action to its handler. A failed action becomes a
// denial trace event and is dropped; it never aborts the rest of the tick.
func (s *Store) applyLocked(act Action) bool {
	agent, ok := s.agents[act.AgentID]
	if !ok {
		s.trace.Append(TraceEvent{Tick: s.tick, Tag: TagSkippedUnknown, AgentID: act.AgentID})
		return false
	}
	if agent.Status != StatusActive {
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagSkippedInvalid, AgentID: act.AgentID, Reason: "agent not active",
		})
		return false
	}

	switch act.Type {
	case ActionMove:
		return s.applyMoveLocked(agent, act)
	case ActionEarn:
		return s.applyEarnLocked(agent, act)
	case ActionSay:
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagSay, AgentID: agent.ID, Text: act.Text, From: agent.Pos,
		})
		return true
	}

	s.trace.Append(TraceEvent{
		Tick: s.tick, Tag: TagSkippedInvalid, AgentID: act.AgentID, Reason: "unknown type",
	})
	return false
}

func (s *Store) applyMoveLocked(agent *Agent, act Action) bool {
	// Revalidate at apply time: the location set could have changed between
	// queueing and execution (snapshot load).
	if !s.hasLocationLocked(act.To) {
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagMoveDeniedInvalid, AgentID: agent.ID, To: act.To,
		})
		return false
	}
	from := agent.Pos
	agent.Pos = act.To
	s.trace.Append(TraceEvent{
		Tick: s.tick, Tag: TagMove, AgentID: agent.ID, From: from, To: act.To,
	})
	return true
}

func (s *Store) applyEarnLocked(agent *Agent, act Action) bool {
	if agent.Pos != s.cfg.EarnLoc {
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagEarnDeniedLocation, AgentID: agent.ID, From: agent.Pos,
		})
		return false
	}
	// One unit of workshop capacity per paid-out agent, regardless of amount.
	if !s.economy.TryConsume(ResourceWorkshop, 1) {
		agent.ConsecutiveDenials++
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagEarnDeniedCapacity, AgentID: agent.ID, Reason: "capacity",
		})
		return false
	}

	amount := act.Amount
	if amount <= 0 {
		amount = s.cfg.EarnAmount
	}
	agent.Balance += amount
	agent.ConsecutiveDenials = 0
	s.trace.Append(TraceEvent{
		Tick: s.tick, Tag: TagEarn, AgentID: agent.ID, Amount: amount, Balance: agent.Balance,
	})
	return true
}
