package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("record purchase: %w", Store(cause))

	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, StoreUnavailable, ae.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StoreUnavailable, KindOf(err))
}

func TestIsMatchesByKind(t *testing.T) {
	err := E(PriceMismatch, "paid 0.5, expected 1.0")

	assert.True(t, errors.Is(err, E(PriceMismatch, "")))
	assert.False(t, errors.Is(err, E(WrongContract, "")))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, StoreUnavailable, KindOf(errors.New("boom")))
	assert.Equal(t, InvalidInput, KindOf(Invalid("bad")))
}
