// Package validation holds the pure input checks run before a payment is
// submitted. Every function returns a user-facing message, or "" when the
// input is acceptable; nothing here touches the network.
package validation

import (
	"github.com/shopspring/decimal"

	"github.com/mainframehq/paymo-go/types"
)

// Validation messages surfaced inline next to the offending form field.
const (
	MsgNotANumber        = "Amount must be a number"
	MsgNotPositive       = "Amount must be greater than zero"
	MsgInsufficientFunds = "Insufficient funds"
	MsgNoAddress         = "Invalid Contact: No ETH Address"
)

// Amount checks a candidate amount against the balance snapshot. A balance
// of "0" is the unknown sentinel and skips the funds comparison entirely
// (see types.Balance); every other balance is compared numerically.
func Amount(balance *types.Balance, amount string) string {
	val, err := decimal.NewFromString(amount)
	if err != nil {
		return MsgNotANumber
	}

	if val.LessThanOrEqual(decimal.Zero) {
		return MsgNotPositive
	}

	if !balance.Unknown() && !SufficientFunds(balance.Value, amount) {
		return MsgInsufficientFunds
	}

	return ""
}

// Recipient checks that the selected contact resolved to a usable chain
// address.
func Recipient(addressKnown bool) string {
	if !addressKnown {
		return MsgNoAddress
	}
	return ""
}

// SufficientFunds reports whether balance covers amount. Both are compared
// as decimals, never as strings.
func SufficientFunds(balance, amount string) bool {
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return false
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return false
	}
	return bal.GreaterThanOrEqual(amt)
}
