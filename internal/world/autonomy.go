package world

// Autonomy policy: for every active, autonomy-enabled agent that has no
// externally queued action and is off cooldown, deterministically pick one
// of earn / move / nothing from current state. Agents are visited in
// ascending id order so a given world always produces the same decisions.
//
// No randomness anywhere: wandering walks the location list in a fixed
// cycle, and every decision pushes the agent's cooldown to the next tick so
// an agent can never decide twice within one tick.

// AutonomyStep runs one policy pass over at most limit agents and returns
// the actions it queued. Safe to call between ticks; a second call at the
// same tick is a no-op because of the cooldown.
func (s *Store) AutonomyStep(limit int) []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autonomyStepLocked(limit)
}

func (s *Store) autonomyStepLocked(limit int) []Action {
	if limit <= 0 {
		limit = s.cfg.AutonomyLimit
	}

	var chosen []Action
	considered := 0
	for _, id := range s.sortedAgentIDs() {
		if considered >= limit {
			break
		}
		a := s.agents[id]
		if !a.Auto || a.Status != StatusActive {
			continue
		}
		considered++

		if s.tick < a.CooldownUntilTick {
			s.trace.Append(TraceEvent{
				Tick: s.tick, Tag: TagAutoDecision, AgentID: a.ID,
				Goal: string(a.Goal), Reason: "cooldown",
			})
			continue
		}
		if s.hasQueuedActionLocked(a.ID) {
			// An externally submitted action wins this tick.
			continue
		}

		if act := s.decideLocked(a); act != nil {
			chosen = append(chosen, *act)
		}
	}
	return chosen
}

// decideLocked applies the decision rules to one agent and queues at most
// one action. Always advances the cooldown.
func (s *Store) decideLocked(a *Agent) *Action {
	// Restore an elapsed adaptive override before deciding.
	if a.OverrideUntilTick != 0 && s.tick >= a.OverrideUntilTick {
		restored := a.SavedGoal
		if !ValidGoal(restored) {
			restored = GoalEarn
		}
		a.Goal = restored
		a.SavedGoal = ""
		a.OverrideUntilTick = 0
		a.ConsecutiveDenials = 0
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagGoalRestored, AgentID: a.ID, Goal: string(restored),
		})
	}

	// Repeated capacity denial flips an earner to wandering for a bounded
	// window; the original goal comes back automatically.
	if a.Goal == GoalEarn && a.OverrideUntilTick == 0 &&
		a.ConsecutiveDenials >= s.cfg.DenialThreshold {
		a.SavedGoal = a.Goal
		a.Goal = GoalWander
		a.OverrideUntilTick = s.tick + s.cfg.OverrideTicks
		a.ConsecutiveDenials = 0
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagGoalOverride, AgentID: a.ID,
			Goal: string(GoalWander), Until: a.OverrideUntilTick,
			Reason: "repeated capacity denial",
		})
	}

	a.CooldownUntilTick = s.tick + 1

	switch a.Goal {
	case GoalIdle:
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagAutoDecision, AgentID: a.ID,
			Goal: string(a.Goal), Reason: "idle goal, no action",
		})
		return nil

	case GoalWander:
		to := s.nextLocationLocked(a.Pos)
		if to == a.Pos {
			s.trace.Append(TraceEvent{
				Tick: s.tick, Tag: TagAutoDecision, AgentID: a.ID,
				Goal: string(a.Goal), Reason: "nowhere to wander",
			})
			return nil
		}
		act := s.enqueueLocked(Action{AgentID: a.ID, Type: ActionMove, To: to})
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagAutoDecision, AgentID: a.ID,
			Goal: string(a.Goal), Reason: "wander", From: a.Pos, To: to,
		})
		return &act

	default: // GoalEarn
		if a.Pos != s.cfg.EarnLoc {
			act := s.enqueueLocked(Action{AgentID: a.ID, Type: ActionMove, To: s.cfg.EarnLoc})
			s.trace.Append(TraceEvent{
				Tick: s.tick, Tag: TagAutoDecision, AgentID: a.ID,
				Goal: string(a.Goal), Reason: "heading to " + s.cfg.EarnLoc,
				From: a.Pos, To: s.cfg.EarnLoc,
			})
			return &act
		}
		if s.economy.Remaining(ResourceWorkshop) <= 0 {
			// Capacity is already exhausted this tick, so the attempt is
			// denied at decision time. This still counts toward the
			// adaptive override.
			a.ConsecutiveDenials++
			s.trace.Append(TraceEvent{
				Tick: s.tick, Tag: TagEarnDeniedCapacity, AgentID: a.ID, Reason: "capacity",
			})
			s.trace.Append(TraceEvent{
				Tick: s.tick, Tag: TagAutoDecision, AgentID: a.ID,
				Goal: string(a.Goal), Reason: "capacity exhausted",
			})
			return nil
		}
		act := s.enqueueLocked(Action{AgentID: a.ID, Type: ActionEarn, Amount: s.cfg.EarnAmount})
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagAutoDecision, AgentID: a.ID,
			Goal: string(a.Goal), Reason: "at " + s.cfg.EarnLoc + ", earning",
		})
		return &act
	}
}

// nextLocationLocked walks the location list as a fixed cycle. Deterministic
// by construction: no randomness, order comes from the configured list.
func (s *Store) nextLocationLocked(current string) string {
	if len(s.locations) == 0 {
		return current
	}
	idx := -1
	for i, loc := range s.locations {
		if loc == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.locations[0]
	}
	if len(s.locations) == 1 {
		return current
	}
	return s.locations[(idx+1)%len(s.locations)]
}

func (s *Store) hasQueuedActionLocked(agentID int64) bool {
	for i := range s.queue {
		if s.queue[i].AgentID == agentID {
			return true
		}
	}
	return false
}
