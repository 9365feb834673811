package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the unit scale shared by ether and the MFT token.
const EtherDecimals = 18

// ParseAmount checks that an amount string is a well-formed, non-negative
// decimal and returns it parsed.
func ParseAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ToAtomic converts a whole-unit decimal amount string to atomic units
// (wei for ether, base units for tokens) with the given decimal scale.
func ToAtomic(amount string, decimals int) (*big.Int, error) {
	dec, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	multiplier := decimal.NewFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil), 0)
	result := dec.Mul(multiplier)

	if !result.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	return result.BigInt(), nil
}

// FromAtomic formats an atomic-unit amount as a whole-unit decimal string.
func FromAtomic(amount *big.Int, decimals int) string {
	dec := decimal.NewFromBigInt(amount, -int32(decimals))
	return dec.String()
}

// FromWei formats a wei amount as an ether string.
func FromWei(wei *big.Int) string {
	return FromAtomic(wei, EtherDecimals)
}

// ToWei converts an ether amount string to wei.
func ToWei(ether string) (*big.Int, error) {
	return ToAtomic(ether, EtherDecimals)
}
