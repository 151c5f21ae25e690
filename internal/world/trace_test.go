package world

import (
	"strings"
	"testing"
)

func TestTraceRingEviction(t *testing.T) {
	tr := NewTrace(3)
	for i := 1; i <= 5; i++ {
		tr.Append(TraceEvent{Tick: uint64(i), Tag: TagTick})
	}

	if tr.Len() != 3 {
		t.Fatalf("Expected 3 retained events, got %d", tr.Len())
	}
	events := tr.Recent(10)
	if events[0].Tick != 3 || events[2].Tick != 5 {
		t.Errorf("Expected ticks 3..5 retained, got %d..%d", events[0].Tick, events[2].Tick)
	}
	if events[2].Seq != 5 {
		t.Errorf("Expected sequence numbers to keep counting, got %d", events[2].Seq)
	}
}

func TestTraceRecentLimit(t *testing.T) {
	tr := NewTrace(10)
	for i := 1; i <= 6; i++ {
		tr.Append(TraceEvent{Tick: uint64(i), Tag: TagTick})
	}

	events := tr.Recent(2)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Tick != 5 || events[1].Tick != 6 {
		t.Errorf("Expected the most recent two, got ticks %d, %d", events[0].Tick, events[1].Tick)
	}
	if got := tr.Recent(0); got != nil {
		t.Errorf("Expected nil for limit 0, got %v", got)
	}
}

func TestTraceForAgentFilters(t *testing.T) {
	tr := NewTrace(16)
	tr.Append(TraceEvent{Tick: 1, Tag: TagMove, AgentID: 1})
	tr.Append(TraceEvent{Tick: 1, Tag: TagMove, AgentID: 2})
	tr.Append(TraceEvent{Tick: 2, Tag: TagEarn, AgentID: 1})
	tr.Append(TraceEvent{Tick: 3, Tag: TagTick})

	events := tr.ForAgent(1, 10)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events for agent 1, got %d", len(events))
	}
	if events[0].Tick != 1 || events[1].Tick != 2 {
		t.Errorf("Expected oldest-first order, got ticks %d, %d", events[0].Tick, events[1].Tick)
	}

	events = tr.ForAgent(1, 1)
	if len(events) != 1 || events[0].Tick != 2 {
		t.Errorf("Expected only the most recent event, got %v", events)
	}
}

// TestRenderNeverFails feeds malformed and hostile events through the
// renderer; a read-path query must never fail on a bad historical record.
func TestRenderNeverFails(t *testing.T) {
	cases := []TraceEvent{
		{},
		{Tag: "something_new_v9"},
		{Tick: 7, Tag: TagEarn},                  // all payload fields missing
		{Tick: 7, Tag: TagJoin, AgentID: -4},     // nonsense agent id
		{Tick: 7, Tag: TagMove},                  // no from/to
		{Tick: 7, Tag: TagAutoDecision},          // no goal/reason
		{Tick: 7, Tag: TagGoalOverride},          // no until
		{Tick: 7, Tag: TagSay, Text: "\x00\xff"}, // binary text
	}
	for i, ev := range cases {
		line := ev.Render()
		if line == "" {
			t.Errorf("Case %d: rendering produced an empty line", i)
		}
		if !strings.HasPrefix(line, "tick ") {
			t.Errorf("Case %d: unexpected rendering %q", i, line)
		}
	}
}

func TestTraceRestoreContinuesSequence(t *testing.T) {
	tr := NewTrace(8)
	tr.Restore([]TraceEvent{
		{Seq: 3, Tick: 1, Tag: TagTick},
		{Seq: 9, Tick: 2, Tag: TagTick},
	})
	if tr.Len() != 2 {
		t.Fatalf("Expected 2 restored events, got %d", tr.Len())
	}

	tr.Append(TraceEvent{Tick: 3, Tag: TagTick})
	events := tr.Recent(10)
	if events[2].Seq != 10 {
		t.Errorf("Expected sequence to continue at 10, got %d", events[2].Seq)
	}
}
