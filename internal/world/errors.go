package world

import "errors"

// Error taxonomy for the simulation core. Per-action failures during a tick
// are converted into trace events and never surface as errors; these
// sentinels cover the request-scoped paths (intake, admission, queries).
var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks an unknown agent or location.
	ErrNotFound = errors.New("not found")

	// ErrCapacityDenied marks an economy constraint rejection. Expected
	// and logged, not exceptional.
	ErrCapacityDenied = errors.New("capacity denied")

	// ErrProofAlreadyUsed marks an entry proof replay. The ledger check is
	// atomic with agent creation, so two concurrent admits can never both
	// succeed on the same proof.
	ErrProofAlreadyUsed = errors.New("proof already used")
)
