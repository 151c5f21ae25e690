package world

import "testing"

// TestCooldownOneDecisionPerTick verifies no agent produces two autonomous
// decisions with the same queued_at_tick.
func TestCooldownOneDecisionPerTick(t *testing.T) {
	s := NewStore(testConfig())
	a, _ := s.AdmitAgent("alice", 0, "")
	s.SetAuto(a.ID, true)

	// An explicit policy pass followed by a tick must not double-decide.
	first := s.AutonomyStep(0)
	second := s.AutonomyStep(0)
	if len(first) != 1 {
		t.Fatalf("Expected 1 action from first pass, got %d", len(first))
	}
	if len(second) != 0 {
		t.Errorf("Expected cooldown to block the second pass, got %d actions", len(second))
	}

	for i := 0; i < 5; i++ {
		s.Advance(1)
	}
	seen := map[uint64]int{}
	for _, ev := range s.TraceRecent(1024) {
		if ev.Tag == TagQueued && ev.AgentID == a.ID {
			seen[ev.Tick]++
		}
	}
	for tick, n := range seen {
		if n > 1 {
			t.Errorf("Agent queued %d autonomous actions at tick %d", n, tick)
		}
	}
}

// TestEarnGoalWalksToWorkshop verifies an earner away from the workshop
// first queues a move there.
func TestEarnGoalWalksToWorkshop(t *testing.T) {
	s := NewStore(testConfig())
	a, _ := s.AdmitAgent("alice", 0, "")
	s.SetAuto(a.ID, true)

	s.Advance(1)
	got, _ := s.Agent(a.ID)
	if got.Pos != LocationWorkshop {
		t.Errorf("Expected agent at workshop, got %q", got.Pos)
	}

	s.Advance(1)
	got, _ = s.Agent(a.ID)
	if got.Balance != 1 {
		t.Errorf("Expected balance 1 after one earning tick, got %d", got.Balance)
	}
}

// TestWanderCyclesLocations verifies deterministic round-robin movement.
func TestWanderCyclesLocations(t *testing.T) {
	s := NewStore(testConfig())
	a, _ := s.AdmitAgent("alice", 0, "")
	s.SetAuto(a.ID, true)
	s.SetGoal(a.ID, GoalWander)

	want := []string{LocationMarket, LocationWorkshop, LocationSpawn, LocationMarket}
	for i, expected := range want {
		s.Advance(1)
		got, _ := s.Agent(a.ID)
		if got.Pos != expected {
			t.Errorf("Step %d: expected pos %q, got %q", i, expected, got.Pos)
		}
	}
}

func TestIdleGoalDoesNothing(t *testing.T) {
	s := NewStore(testConfig())
	a, _ := s.AdmitAgent("alice", 0, "")
	s.SetAuto(a.ID, true)
	s.SetGoal(a.ID, GoalIdle)

	res := s.Advance(3)
	if res.Applied != 0 {
		t.Errorf("Expected 0 applied actions for idle agent, got %d", res.Applied)
	}
	got, _ := s.Agent(a.ID)
	if got.Pos != LocationSpawn || got.Balance != 0 {
		t.Errorf("Idle agent mutated: pos=%q balance=%d", got.Pos, got.Balance)
	}
}

// TestAdaptiveOverride is the spec's zero-capacity scenario: two consecutive
// capacity denials flip the goal to wander, and after the override window
// the goal reverts with a restoration event.
func TestAdaptiveOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = map[string]int64{ResourceWorkshop: 0}
	cfg.DenialThreshold = 2
	cfg.OverrideTicks = 3
	s := NewStore(cfg)

	a, _ := s.AdmitAgent("alice", 0, "")
	s.SetAuto(a.ID, true)

	// Place the agent at the workshop so every decision is an earn attempt.
	s.SubmitAction(RawAction{AgentID: a.ID, Type: "move",
		Payload: map[string]any{"to": LocationWorkshop}})
	s.Advance(1)

	// Two denial ticks, then the override fires on the third.
	s.Advance(3)
	got, _ := s.Agent(a.ID)
	if got.Goal != GoalWander {
		t.Errorf("Expected goal wander after repeated denial, got %q", got.Goal)
	}
	if got.SavedGoal != GoalEarn {
		t.Errorf("Expected saved goal earn, got %q", got.SavedGoal)
	}

	overrides := 0
	for _, ev := range s.TraceRecent(1024) {
		if ev.Tag == TagGoalOverride && ev.AgentID == a.ID {
			overrides++
		}
	}
	if overrides != 1 {
		t.Errorf("Expected exactly 1 override event, got %d", overrides)
	}

	// Let the override window elapse.
	s.Advance(4)
	got, _ = s.Agent(a.ID)
	if got.Goal != GoalEarn {
		t.Errorf("Expected goal restored to earn, got %q", got.Goal)
	}

	restored := 0
	for _, ev := range s.TraceRecent(1024) {
		if ev.Tag == TagGoalRestored && ev.AgentID == a.ID {
			restored++
		}
	}
	if restored == 0 {
		t.Error("Expected a restoration trace event")
	}
}

// TestExternalActionSuppressesAutonomy verifies an externally queued action
// wins the tick over the policy.
func TestExternalActionSuppressesAutonomy(t *testing.T) {
	s := NewStore(testConfig())
	a, _ := s.AdmitAgent("alice", 0, "")
	s.SetAuto(a.ID, true)

	s.SubmitAction(RawAction{AgentID: a.ID, Type: "move",
		Payload: map[string]any{"to": LocationMarket}})
	s.Advance(1)

	got, _ := s.Agent(a.ID)
	if got.Pos != LocationMarket {
		t.Errorf("Expected external move to win, agent at %q", got.Pos)
	}
}

// TestAutonomyOrderIsStable verifies agents are considered in ascending id
// order, so capacity goes to the lowest ids first.
func TestAutonomyOrderIsStable(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = map[string]int64{ResourceWorkshop: 1}
	s := NewStore(cfg)

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		ag, _ := s.AdmitAgent(name, 0, "")
		ids = append(ids, ag.ID)
		s.SetAuto(ag.ID, true)
		s.SubmitAction(RawAction{AgentID: ag.ID, Type: "move",
			Payload: map[string]any{"to": LocationWorkshop}})
	}
	s.Advance(1)

	s.Advance(1)
	first, _ := s.Agent(ids[0])
	second, _ := s.Agent(ids[1])
	if first.Balance != 1 {
		t.Errorf("Expected lowest id to win capacity, balance=%d", first.Balance)
	}
	if second.Balance != 0 {
		t.Errorf("Expected second agent denied, balance=%d", second.Balance)
	}
}
