package entry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agent-world/internal/world"
)

const goodProof = "0x" + "ab12cd34" + "ab12cd34" + "ab12cd34" + "ab12cd34" +
	"ab12cd34" + "ab12cd34" + "ab12cd34" + "ab12cd34"

// stubVerifier returns a canned result or error.
type stubVerifier struct {
	res   Verification
	err   error
	calls int
}

func (v *stubVerifier) Verify(ctx context.Context, proofRef string) (Verification, error) {
	v.calls++
	if v.err != nil {
		return Verification{}, v.err
	}
	return v.res, nil
}

func paidGate(store *world.Store, v Verifier) *Gate {
	return NewGate(store, v, Config{
		Recipient: "0xWORLD",
		MinValue:  5,
		NetworkID: 10143,
	})
}

func confirmed() Verification {
	return Verification{
		Confirmed: true,
		Recipient: "0xworld",
		Value:     100,
		NetworkID: 10143,
		Status:    "success",
	}
}

func TestAdmitFreeMode(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	v := &stubVerifier{}
	g := NewGate(store, v, Config{FreeMode: true})

	agent, err := g.Admit(context.Background(), "alice", 3, "")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if agent.Balance != 3 {
		t.Errorf("Expected declared deposit 3, got %d", agent.Balance)
	}
	if v.calls != 0 {
		t.Errorf("Free mode must not call the verifier, got %d calls", v.calls)
	}
}

func TestAdmitNameValidation(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	g := NewGate(store, &stubVerifier{}, Config{FreeMode: true})

	for _, name := range []string{"", "   ", strings.Repeat("x", 33)} {
		if _, err := g.Admit(context.Background(), name, 0, ""); !errors.Is(err, world.ErrValidation) {
			t.Errorf("Name %q: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestAdmitProofRequired(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	g := paidGate(store, &stubVerifier{res: confirmed()})

	_, err := g.Admit(context.Background(), "alice", 0, "")
	if !errors.Is(err, ErrProofRequired) {
		t.Errorf("Expected ErrProofRequired, got %v", err)
	}
}

func TestAdmitMalformedProof(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	v := &stubVerifier{res: confirmed()}
	g := paidGate(store, v)

	for _, ref := range []string{"nonsense", "0x1234", "0x" + strings.Repeat("g", 64)} {
		if _, err := g.Admit(context.Background(), "alice", 0, ref); !errors.Is(err, ErrProofInvalid) {
			t.Errorf("Proof %q: expected ErrProofInvalid, got %v", ref, err)
		}
	}
	if v.calls != 0 {
		t.Errorf("Malformed proofs must not reach the verifier, got %d calls", v.calls)
	}
}

func TestAdmitSuccess(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	g := paidGate(store, &stubVerifier{res: confirmed()})

	agent, err := g.Admit(context.Background(), "alice", 5, goodProof)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if agent.ID != 1 || agent.Balance != 5 {
		t.Errorf("Unexpected agent: %+v", agent)
	}
	if !store.HasProof(goodProof) {
		t.Error("Expected proof recorded in the ledger")
	}
}

func TestAdmitProofReplay(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	g := paidGate(store, &stubVerifier{res: confirmed()})

	if _, err := g.Admit(context.Background(), "alice", 5, goodProof); err != nil {
		t.Fatalf("First admit failed: %v", err)
	}

	// Same proof, different case: still a replay.
	upper := "0x" + strings.ToUpper(goodProof[2:])
	_, err := g.Admit(context.Background(), "mallory", 5, upper)
	if !errors.Is(err, world.ErrProofAlreadyUsed) {
		t.Errorf("Expected ErrProofAlreadyUsed, got %v", err)
	}
	if got := len(store.Agents()); got != 1 {
		t.Errorf("Expected 1 agent after replay, got %d", got)
	}
}

func TestAdmitRejections(t *testing.T) {
	cases := []struct {
		name string
		res  Verification
	}{
		{"unconfirmed", Verification{Confirmed: false, Status: "pending"}},
		{"wrong recipient", Verification{Confirmed: true, Recipient: "0xother", Value: 100, NetworkID: 10143}},
		{"wrong network", Verification{Confirmed: true, Recipient: "0xworld", Value: 100, NetworkID: 1}},
		{"insufficient value", Verification{Confirmed: true, Recipient: "0xworld", Value: 2, NetworkID: 10143}},
	}
	for _, tc := range cases {
		store := world.NewStore(world.DefaultConfig())
		g := paidGate(store, &stubVerifier{res: tc.res})

		_, err := g.Admit(context.Background(), "alice", 0, goodProof)
		if !errors.Is(err, ErrProofRejected) {
			t.Errorf("%s: expected ErrProofRejected, got %v", tc.name, err)
		}
		if len(store.Agents()) != 0 {
			t.Errorf("%s: rejected admit must not create an agent", tc.name)
		}
		if store.HasProof(goodProof) {
			t.Errorf("%s: rejected admit must not burn the proof", tc.name)
		}
	}
}

func TestAdmitValueMustCoverDeclaredDeposit(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	g := paidGate(store, &stubVerifier{res: Verification{
		Confirmed: true, Recipient: "0xworld", Value: 20, NetworkID: 10143,
	}})

	// Declared deposit above the proof's value is a rejection.
	if _, err := g.Admit(context.Background(), "alice", 50, goodProof); !errors.Is(err, ErrProofRejected) {
		t.Errorf("Expected ErrProofRejected for under-funded deposit, got %v", err)
	}
	// Within the value it is fine.
	if _, err := g.Admit(context.Background(), "alice", 20, goodProof); err != nil {
		t.Errorf("Expected success for covered deposit, got %v", err)
	}
}

func TestAdmitUpstreamFailureIsDistinct(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	g := paidGate(store, &stubVerifier{err: ErrUpstreamUnavailable})

	_, err := g.Admit(context.Background(), "alice", 0, goodProof)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Expected ErrUpstreamUnavailable, got %v", err)
	}
	if errors.Is(err, ErrProofRejected) || errors.Is(err, ErrProofInvalid) {
		t.Error("An outage must not be classified as a proof judgement")
	}
	if store.HasProof(goodProof) {
		t.Error("An outage must not burn the proof")
	}
}
