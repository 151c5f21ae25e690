package world

// Basic scenario seeds. Three agents with mixed goals give the autonomy
// loop something to do immediately: two earners contending for workshop
// capacity and one wanderer cycling locations.
var basicScenarioSeeds = []struct {
	name    string
	deposit int64
	goal    Goal
}{
	{"alice", 10, GoalEarn},
	{"bob", 2, GoalEarn},
	{"charlie", 0, GoalWander},
}

// LoadBasicScenario seeds the demo agents in one atomic step. Existing
// agents are kept; the seeds are admitted on top of them with autonomy
// already enabled. Returns copies of the seeded agents.
func (s *Store) LoadBasicScenario() []Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Agent, 0, len(basicScenarioSeeds))
	for _, seed := range basicScenarioSeeds {
		s.nextAgentID++
		a := &Agent{
			ID:        s.nextAgentID,
			Name:      seed.name,
			Pos:       s.cfg.SpawnLoc,
			Balance:   seed.deposit,
			Inventory: make(map[string]int),
			Status:    StatusActive,
			Auto:      true,
			Goal:      seed.goal,
		}
		s.agents[a.ID] = a
		s.trace.Append(TraceEvent{
			Tick: s.tick, Tag: TagJoin, AgentID: a.ID, Text: a.Name, Amount: seed.deposit,
		})
		out = append(out, copyAgent(a))
	}

	s.trace.Append(TraceEvent{Tick: s.tick, Tag: TagScenarioLoaded, Text: "basic", Count: len(out)})
	return out
}
