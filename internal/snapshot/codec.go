// Package snapshot serializes the world to a persisted document and loads
// it back defensively: malformed entries are repaired or dropped, never
// trusted. The load path only guarantees type and shape safety — it does
// not guess business intent.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"agent-world/internal/world"
)

// SchemaVersion of the persisted document.
const SchemaVersion = 1

// ErrCorrupted marks a document that is not parseable at all. Anything less
// than that is normalized, not rejected.
var ErrCorrupted = errors.New("corrupted snapshot")

// Document is the persisted layout: a versioned envelope around the world
// state. Tick, agent cooldowns and the used-proof set are the minimum
// needed for exact behavioral continuation and always round-trip.
type Document struct {
	SchemaVersion int         `json:"schema_version"`
	SavedAt       int64       `json:"saved_at"`
	World         world.State `json:"world_state"`
}

// Codec encodes and decodes world state. Decoding normalizes against the
// configured defaults (spawn location, location set).
type Codec struct {
	cfg world.Config
}

// NewCodec creates a codec that normalizes against cfg.
func NewCodec(cfg world.Config) *Codec {
	return &Codec{cfg: cfg}
}

// Encode serializes a state into the persisted document.
func (c *Codec) Encode(st world.State, savedAt int64) ([]byte, error) {
	doc := Document{SchemaVersion: SchemaVersion, SavedAt: savedAt, World: st}
	return json.MarshalIndent(doc, "", "  ")
}

// rawDocument and friends keep every field loose so a single bad value
// cannot fail the whole decode.
type rawDocument struct {
	SchemaVersion json.RawMessage `json:"schema_version"`
	SavedAt       json.RawMessage `json:"saved_at"`
	World         json.RawMessage `json:"world_state"`
}

type rawWorld struct {
	Tick        json.RawMessage `json:"tick"`
	NextAgentID json.RawMessage `json:"next_agent_id"`
	Locations   json.RawMessage `json:"locations"`
	Agents      json.RawMessage `json:"agents"`
	Queue       json.RawMessage `json:"queue"`
	Capacity    json.RawMessage `json:"capacity"`
	UsedProofs  json.RawMessage `json:"used_proofs"`
	Trace       json.RawMessage `json:"trace"`
}

type rawAgent struct {
	ID                 json.RawMessage `json:"id"`
	Name               *string         `json:"name"`
	Pos                *string         `json:"pos"`
	Balance            json.RawMessage `json:"balance"`
	Inventory          json.RawMessage `json:"inventory"`
	Status             *string         `json:"status"`
	Auto               *bool           `json:"auto"`
	Goal               *string         `json:"goal"`
	CooldownUntilTick  json.RawMessage `json:"cooldown_until_tick"`
	ConsecutiveDenials json.RawMessage `json:"consecutive_denials"`
	OverrideUntilTick  json.RawMessage `json:"override_until_tick"`
	SavedGoal          *string         `json:"saved_goal"`
}

// Decode parses and normalizes a persisted document. It fails only when the
// bytes are not JSON or the envelope declares an unsupported schema; every
// shape problem below that is repaired with safe defaults or dropped.
func (c *Codec) Decode(data []byte) (world.State, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return world.State{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	version, ok := asInt(doc.SchemaVersion)
	if !ok || version != SchemaVersion {
		return world.State{}, fmt.Errorf("%w: unsupported schema_version", ErrCorrupted)
	}

	var rw rawWorld
	if err := json.Unmarshal(doc.World, &rw); err != nil {
		return world.State{}, fmt.Errorf("%w: world_state is not an object", ErrCorrupted)
	}

	st := world.State{}
	if tick, ok := asInt(rw.Tick); ok && tick >= 0 {
		st.Tick = uint64(tick)
	}
	if next, ok := asInt(rw.NextAgentID); ok && next >= 0 {
		st.NextAgentID = next
	}

	st.Locations = c.locations(rw.Locations)
	st.Agents = c.agents(rw.Agents, st.Locations)
	st.Queue = c.queue(rw.Queue)
	st.Capacity = c.capacity(rw.Capacity)
	st.UsedProofs = proofSet(rw.UsedProofs)
	st.Trace = traceEvents(rw.Trace)
	return st, nil
}

func (c *Codec) locations(raw json.RawMessage) []string {
	var locs []string
	if err := json.Unmarshal(raw, &locs); err != nil || len(locs) == 0 {
		return append([]string(nil), c.cfg.Locations...)
	}
	out := locs[:0]
	for _, l := range locs {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), c.cfg.Locations...)
	}
	return out
}

func (c *Codec) agents(raw json.RawMessage, locations []string) []world.Agent {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Non-list agents field: replaced with an empty instance rather
		// than propagating a type fault.
		return nil
	}

	spawn := c.cfg.SpawnLoc
	out := make([]world.Agent, 0, len(entries))
	for _, entry := range entries {
		var ra rawAgent
		if err := json.Unmarshal(entry, &ra); err != nil {
			continue
		}
		id, ok := asInt(ra.ID)
		if !ok || id <= 0 {
			// No usable identifier: dropped.
			continue
		}

		a := world.Agent{
			ID:        id,
			Pos:       spawn,
			Status:    world.StatusActive,
			Goal:      world.GoalEarn,
			Inventory: make(map[string]int),
		}
		if ra.Name != nil {
			a.Name = *ra.Name
		}
		if ra.Pos != nil && containsLocation(locations, *ra.Pos) {
			a.Pos = *ra.Pos
		}
		if bal, ok := asInt(ra.Balance); ok && bal > 0 {
			a.Balance = bal
		}
		if ra.Status != nil && *ra.Status != "" {
			a.Status = *ra.Status
		}
		if ra.Auto != nil {
			a.Auto = *ra.Auto
		}
		if ra.Goal != nil && world.ValidGoal(world.Goal(*ra.Goal)) {
			a.Goal = world.Goal(*ra.Goal)
		}
		if cd, ok := asInt(ra.CooldownUntilTick); ok && cd > 0 {
			a.CooldownUntilTick = uint64(cd)
		}
		if n, ok := asInt(ra.ConsecutiveDenials); ok && n > 0 {
			a.ConsecutiveDenials = int(n)
		}
		if u, ok := asInt(ra.OverrideUntilTick); ok && u > 0 {
			a.OverrideUntilTick = uint64(u)
		}
		if ra.SavedGoal != nil && world.ValidGoal(world.Goal(*ra.SavedGoal)) {
			a.SavedGoal = world.Goal(*ra.SavedGoal)
		}

		var inv map[string]int
		if err := json.Unmarshal(ra.Inventory, &inv); err == nil && inv != nil {
			for item, count := range inv {
				if count > 0 {
					a.Inventory[item] = count
				}
			}
		}
		out = append(out, a)
	}
	return out
}

func (c *Codec) queue(raw json.RawMessage) []world.Action {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	out := make([]world.Action, 0, len(entries))
	for _, entry := range entries {
		var act world.Action
		if err := json.Unmarshal(entry, &act); err != nil {
			continue
		}
		if act.AgentID <= 0 || !world.ValidActionType(act.Type) {
			continue
		}
		out = append(out, act)
	}
	return out
}

func (c *Codec) capacity(raw json.RawMessage) map[string]int64 {
	var caps map[string]int64
	if err := json.Unmarshal(raw, &caps); err != nil || len(caps) == 0 {
		return nil // store falls back to configured capacities
	}
	for res, v := range caps {
		if v < 0 {
			caps[res] = 0
		}
	}
	return caps
}

// proofSet coerces the used-proof field back into a true set: only strings,
// deduplicated, empties dropped. The anti-replay guarantee survives any
// shape the document arrives in.
func proofSet(raw json.RawMessage) []string {
	var entries []any
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Tolerate a map-shaped set ({"0xabc": true}).
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil
		}
		for p := range m {
			entries = append(entries, p)
		}
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		p, ok := e.(string)
		if !ok || p == "" {
			continue
		}
		p = strings.ToLower(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func traceEvents(raw json.RawMessage) []world.TraceEvent {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	out := make([]world.TraceEvent, 0, len(entries))
	for _, entry := range entries {
		var ev world.TraceEvent
		if err := json.Unmarshal(entry, &ev); err != nil {
			continue
		}
		if ev.Tag == "" {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// asInt reads an integer out of a loose JSON value, tolerating numbers,
// integral floats and digit strings.
func asInt(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func containsLocation(locations []string, loc string) bool {
	for _, l := range locations {
		if l == loc {
			return true
		}
	}
	return false
}
