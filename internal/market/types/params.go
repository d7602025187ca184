package types

import (
	"fmt"
	"time"
)

// DefaultClaimTimeout is the window after completion during which only the
// buyer can settle; once elapsed the provider may claim unilaterally.
const DefaultClaimTimeout = 24 * time.Hour

// Params holds the engine's governance-style parameters.
type Params struct {
	// ClaimTimeout is the fixed real-time window between MarkComplete and
	// ClaimAfterTimeout eligibility.
	ClaimTimeout time.Duration `json:"claim_timeout" yaml:"claim_timeout"`

	// Admin is the identity allowed to pause, unpause and emergency-withdraw.
	Admin string `json:"admin" yaml:"admin"`
}

// DefaultParams returns the default engine parameters.
func DefaultParams() Params {
	return Params{
		ClaimTimeout: DefaultClaimTimeout,
	}
}

// Validate checks parameter sanity.
func (p Params) Validate() error {
	if p.ClaimTimeout <= 0 {
		return fmt.Errorf("claim timeout must be positive, got %s", p.ClaimTimeout)
	}
	return nil
}
