package srs

import (
	"fmt"
	"time"

	"github.com/example/phrasebot/pkg/models"
)

// PolicyKind names a scheduling policy. Chosen by deployment configuration;
// states written under one policy are not migrated to the other.
type PolicyKind string

const (
	// PolicyClassical is the four-parameter ease/interval update.
	PolicyClassical PolicyKind = "classical"
	// PolicyFixed is the fixed-interval fallback with a three-level scale.
	PolicyFixed PolicyKind = "fixed"
)

// Policy applies a review outcome to a memory state. Apply is pure
// arithmetic: no side effects, no I/O, and it never fails — rating
// validation happens at the engine boundary.
type Policy interface {
	Kind() PolicyKind
	Scale() Scale
	// Apply updates state in place for a review at now.
	Apply(state *models.MemoryState, rating Rating, now time.Time)
	// QuotaCredit reports whether the rating counts toward the daily quota.
	QuotaCredit(rating Rating) bool
}

// NewPolicy constructs the policy named by kind. maxIntervalDays caps
// interval growth for the classical policy; zero means DefaultMaxInterval.
func NewPolicy(kind PolicyKind, maxIntervalDays int) (Policy, error) {
	switch kind {
	case PolicyClassical, "":
		return NewSM2(maxIntervalDays), nil
	case PolicyFixed:
		return NewFixedInterval(), nil
	default:
		return nil, fmt.Errorf("srs: unknown policy %q", kind)
	}
}
