package srs

import "fmt"

// Rating is the ordinal outcome of a review. Valid values depend on the
// scale of the active policy: the classical policy uses the four-level
// Again..Easy scale, the fixed-interval policy the three-level Hard..Easy
// "traffic light" scale.
type Rating int

// Four-level scale used by the classical policy.
const (
	Again Rating = 1 // Complete failure to recall
	Hard  Rating = 2 // Recalled with significant difficulty
	Good  Rating = 3 // Recalled with some effort
	Easy  Rating = 4 // Recalled effortlessly
)

// Three-level scale used by the fixed-interval policy.
const (
	FixedHard   Rating = 1
	FixedMedium Rating = 2
	FixedEasy   Rating = 3
)

// Scale bounds the valid ratings for a policy.
type Scale struct {
	Arity int
	names []string // indexed by Rating-1
}

var (
	// FourLevelScale is the classical Again/Hard/Good/Easy scale.
	FourLevelScale = Scale{Arity: 4, names: []string{"Again", "Hard", "Good", "Easy"}}
	// ThreeLevelScale is the reduced Hard/Medium/Easy scale.
	ThreeLevelScale = Scale{Arity: 3, names: []string{"Hard", "Medium", "Easy"}}
)

// Contains reports whether r is within the scale.
func (s Scale) Contains(r Rating) bool {
	return r >= 1 && int(r) <= s.Arity
}

// Validate returns ErrInvalidRating when r is outside the scale. Out-of-range
// values are rejected, never clamped.
func (s Scale) Validate(r Rating) error {
	if !s.Contains(r) {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidRating, int(r), s.Arity)
	}
	return nil
}

// Name returns the label of r on this scale, or "Rating(n)" when out of range.
func (s Scale) Name(r Rating) string {
	if s.Contains(r) {
		return s.names[r-1]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}
