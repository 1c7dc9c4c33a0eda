package srs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleValidate(t *testing.T) {
	tests := []struct {
		name   string
		scale  Scale
		rating Rating
		ok     bool
	}{
		{"four-level again", FourLevelScale, Again, true},
		{"four-level easy", FourLevelScale, Easy, true},
		{"four-level zero", FourLevelScale, 0, false},
		{"four-level above", FourLevelScale, 5, false},
		{"four-level negative", FourLevelScale, -1, false},
		{"three-level easy", ThreeLevelScale, FixedEasy, true},
		{"three-level four rejected", ThreeLevelScale, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scale.Validate(tt.rating)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidRating))
			}
		})
	}
}

func TestScaleName(t *testing.T) {
	assert.Equal(t, "Again", FourLevelScale.Name(Again))
	assert.Equal(t, "Easy", FourLevelScale.Name(Easy))
	assert.Equal(t, "Medium", ThreeLevelScale.Name(FixedMedium))
	assert.Equal(t, "Rating(9)", FourLevelScale.Name(9))
}
