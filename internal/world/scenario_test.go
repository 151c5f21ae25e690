package world

import "testing"

func TestLoadBasicScenarioSeeds(t *testing.T) {
	s := NewStore(DefaultConfig())
	agents := s.LoadBasicScenario()

	want := []struct {
		name    string
		deposit int64
		goal    Goal
	}{
		{"alice", 10, GoalEarn},
		{"bob", 2, GoalEarn},
		{"charlie", 0, GoalWander},
	}
	if len(agents) != len(want) {
		t.Fatalf("Expected %d seeded agents, got %d", len(want), len(agents))
	}
	for i, w := range want {
		a := agents[i]
		if a.Name != w.name || a.Balance != w.deposit || a.Goal != w.goal {
			t.Errorf("Seed %d: got name=%q balance=%d goal=%q, want %q/%d/%q",
				i, a.Name, a.Balance, a.Goal, w.name, w.deposit, w.goal)
		}
		if !a.Auto || a.Status != StatusActive || a.Pos != LocationSpawn {
			t.Errorf("Seed %q must start auto-enabled, active, at spawn: %+v", a.Name, a)
		}
	}

	events := s.TraceRecent(10)
	found := false
	for _, ev := range events {
		if ev.Tag == TagScenarioLoaded && ev.Count == 3 {
			found = true
		}
	}
	if !found {
		t.Error("Expected a scenario_loaded trace event with count 3")
	}
}

func TestLoadBasicScenarioKeepsExistingAgents(t *testing.T) {
	s := NewStore(DefaultConfig())
	if _, err := s.AdmitAgent("dora", 1, ""); err != nil {
		t.Fatalf("AdmitAgent failed: %v", err)
	}

	seeded := s.LoadBasicScenario()
	if seeded[0].ID != 2 {
		t.Errorf("Seeds must continue the id sequence, got first id %d", seeded[0].ID)
	}
	if got := len(s.Agents()); got != 4 {
		t.Errorf("Expected 4 agents after seeding on top of one, got %d", got)
	}
}
