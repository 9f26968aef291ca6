package service

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wei(t *testing.T, eth string) *big.Int {
	t.Helper()
	w, err := PriceToWei(eth)
	require.NoError(t, err)
	return w
}

func TestPriceToWei(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"1", "1000000000000000000"},
		{"0.5", "500000000000000000"},
		{"0", "0"},
		{"0.000000000000000001", "1"},
		{"12.345", "12345000000000000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wei(t, tt.price).String(), "price %s", tt.price)
	}

	_, err := PriceToWei("-1")
	assert.Error(t, err)
	_, err = PriceToWei("abc")
	assert.Error(t, err)
}

func TestWithinToleranceBoundary(t *testing.T) {
	expected := wei(t, "1.0")
	oneWei := big.NewInt(1)

	tests := []struct {
		name string
		paid *big.Int
		want bool
	}{
		{"exact", wei(t, "1.0"), true},
		{"lower bound 0.990", wei(t, "0.990"), true},
		{"upper bound 1.010", wei(t, "1.010"), true},
		{"0.989 rejected", wei(t, "0.989"), false},
		{"1.011 rejected", wei(t, "1.011"), false},
		{"one wei below lower bound", new(big.Int).Sub(wei(t, "0.990"), oneWei), false},
		{"one wei above upper bound", new(big.Int).Add(wei(t, "1.010"), oneWei), false},
		{"zero paid", big.NewInt(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinTolerance(tt.paid, expected))
		})
	}
}

func TestWithinToleranceFreeItem(t *testing.T) {
	assert.True(t, WithinTolerance(big.NewInt(0), big.NewInt(0)))
	assert.False(t, WithinTolerance(big.NewInt(1), big.NewInt(0)))
}

func TestFormatWei(t *testing.T) {
	assert.Equal(t, "0.5", FormatWei(wei(t, "0.5")))
}
