package entry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"agent-world/internal/world"
)

// Entry gate errors. Each maps to a distinct HTTP status in the api layer,
// so a caller can tell a malformed reference, a rejected payment, a replay,
// and a verifier outage apart.
var (
	// ErrProofRequired: entry is in paid mode and no reference was given.
	ErrProofRequired = errors.New("proof reference required")
	// ErrProofInvalid: the reference does not even look like a proof.
	ErrProofInvalid = errors.New("invalid proof reference")
	// ErrProofRejected: the verifier resolved the proof and it does not pay
	// for entry (unconfirmed, wrong recipient, wrong network, too small).
	ErrProofRejected = errors.New("proof rejected")
)

// proofPattern is the strict shape of a proof reference: a 32-byte
// transaction hash, 0x-prefixed hex.
var proofPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

const maxNameLen = 32

// Config sets the admission policy.
type Config struct {
	// FreeMode skips verification entirely; agents join with their declared
	// deposit. Meant for demos and local development.
	FreeMode bool

	// Recipient is the address a valid entry payment must have gone to.
	Recipient string
	// MinValue is the smallest accepted payment.
	MinValue int64
	// NetworkID pins the chain the payment must be on.
	NetworkID int64
}

// Gate admits agents into the world after proof verification.
type Gate struct {
	store    *world.Store
	verifier Verifier
	cfg      Config
}

// NewGate wires the gate to its world store and verifier.
func NewGate(store *world.Store, verifier Verifier, cfg Config) *Gate {
	return &Gate{store: store, verifier: verifier, cfg: cfg}
}

// FreeMode reports whether verification is disabled.
func (g *Gate) FreeMode() bool { return g.cfg.FreeMode }

// Admit validates the proof and creates the agent. The external verifier
// call runs outside the world lock; the ledger insert inside AdmitAgent
// re-checks the proof at commit time, so two concurrent admits carrying the
// same proof can never both succeed. Exactly one of {no mutation, agent +
// ledger entry} happens.
func (g *Gate) Admit(ctx context.Context, name string, deposit int64, proofRef string) (world.Agent, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return world.Agent{}, fmt.Errorf("name must be 1-%d characters: %w", maxNameLen, world.ErrValidation)
	}
	if deposit < 0 {
		return world.Agent{}, fmt.Errorf("deposit must be non-negative: %w", world.ErrValidation)
	}

	if g.cfg.FreeMode {
		return g.store.AdmitAgent(name, deposit, "")
	}

	if proofRef == "" {
		return world.Agent{}, ErrProofRequired
	}
	if !proofPattern.MatchString(proofRef) {
		return world.Agent{}, fmt.Errorf("%w: want 0x-prefixed 64-digit hex", ErrProofInvalid)
	}
	// Replay detection must be case-proof.
	proofRef = strings.ToLower(proofRef)

	// Cheap pre-check before doing external I/O. Not authoritative — the
	// atomic check happens at commit.
	if g.store.HasProof(proofRef) {
		return world.Agent{}, fmt.Errorf("proof %s: %w", proofRef, world.ErrProofAlreadyUsed)
	}

	res, err := g.verifier.Verify(ctx, proofRef)
	if err != nil {
		log.Printf("entry: verifier failed for %s: %v", proofRef, err)
		return world.Agent{}, err
	}
	if err := g.check(res, deposit); err != nil {
		return world.Agent{}, err
	}

	agent, err := g.store.AdmitAgent(name, deposit, proofRef)
	if err != nil {
		return world.Agent{}, err
	}
	log.Printf("entry: agent %d (%s) admitted, proof %s", agent.ID, agent.Name, proofRef)
	return agent, nil
}

// check judges a resolved verification against the admission policy.
func (g *Gate) check(res Verification, deposit int64) error {
	if !res.Confirmed {
		return fmt.Errorf("%w: payment not confirmed (status=%s)", ErrProofRejected, res.Status)
	}
	if g.cfg.Recipient != "" && !strings.EqualFold(res.Recipient, g.cfg.Recipient) {
		return fmt.Errorf("%w: wrong recipient", ErrProofRejected)
	}
	if g.cfg.NetworkID != 0 && res.NetworkID != g.cfg.NetworkID {
		return fmt.Errorf("%w: wrong network %d", ErrProofRejected, res.NetworkID)
	}
	min := g.cfg.MinValue
	if deposit > min {
		min = deposit
	}
	if res.Value < min {
		return fmt.Errorf("%w: value %d below required %d", ErrProofRejected, res.Value, min)
	}
	return nil
}
