package service

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	weiDecimals = 18
	// Paid value may deviate from the listed price by up to 1/priceToleranceDivisor.
	priceToleranceDivisor = 100
)

// PriceToWei converts a decimal ETH amount to integer wei.
func PriceToWei(price string) (*big.Int, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("price %q is negative", price)
	}
	return d.Shift(weiDecimals).BigInt(), nil
}

// WithinTolerance reports whether paid is within ±1% of expected, bounds
// inclusive. The tolerance is floor(expected/100) wei.
func WithinTolerance(paid, expected *big.Int) bool {
	tolerance := new(big.Int).Quo(expected, big.NewInt(priceToleranceDivisor))
	diff := new(big.Int).Sub(paid, expected)
	return diff.CmpAbs(tolerance) <= 0
}

// FormatWei renders wei as a decimal ETH string for logs.
func FormatWei(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}
