package types

import (
	"fmt"
	"time"
)

// Currency selects which asset a payment moves.
type Currency string

const (
	// CurrencyETH is the chain's native token.
	CurrencyETH Currency = "ETH"

	// CurrencyMFT is the ERC-20 token the wallet pays with by default.
	CurrencyMFT Currency = "MFT"
)

// IsToken reports whether the currency is an ERC-20 transfer rather than a
// native-value transfer.
func (c Currency) IsToken() bool {
	return c != CurrencyETH
}

func (c Currency) String() string {
	return string(c)
}

// Contact is the profile the wallet SDK hands back from contact selection.
// ETHAddress may be empty when the contact never published one.
type Contact struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ETHAddress string `json:"ethAddress,omitempty"`
}

// PaymentRequest carries everything the user entered on the payment form.
// It is ephemeral: created on submit, discarded when the workflow resets.
type PaymentRequest struct {
	// ContactID identifies the recipient in the wallet SDK's contact list.
	// Empty when the recipient was entered as a raw address.
	ContactID string `json:"contactId,omitempty"`

	// To is the recipient's chain address. Checksummed before submission.
	To string `json:"to" validate:"required_without=ContactID"`

	// Amount is the user-entered decimal amount, in whole units of the
	// currency (ether for ETH, tokens for ERC-20), not atomic units.
	Amount string `json:"amount" validate:"required"`

	Currency Currency `json:"currency" validate:"required,oneof=ETH MFT"`

	// Note is the optional free-text memo stored alongside the record.
	Note string `json:"note,omitempty"`
}

// Balance is a spendable-balance snapshot for one (account, currency) pair.
// It is fetched on every submission and never cached across attempts.
//
// Value "0" is the unknown sentinel: it means the balance has not been
// loaded yet and the funds check must be skipped. A genuinely zero balance
// is indistinguishable from this; the behavior is preserved deliberately.
type Balance struct {
	Account  string   `json:"account"`
	Currency Currency `json:"currency"`
	Value    string   `json:"value"`
}

// Unknown reports whether this balance is the not-yet-loaded sentinel.
func (b *Balance) Unknown() bool {
	return b == nil || b.Value == "0"
}

// TransactionRecord is the durable history entry written to the remote
// store once a payment confirms. Immutable after creation; written under
// both the sender's and the recipient's namespace.
type TransactionRecord struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Network string `json:"network"`
	TxHash  string `json:"txHash"`

	// Value is the human-readable amount with its currency, e.g. "1.5 ETH".
	Value string `json:"value"`

	Note string `json:"note,omitempty"`

	// Timestamp is seconds since the Unix epoch at confirmation time.
	Timestamp int64 `json:"timestamp"`
}

// WorkflowState tracks one payment attempt through the orchestrator.
type WorkflowState int

const (
	StateIdle WorkflowState = iota
	StateValidating
	StateAwaitingHash
	StateAwaitingConfirmation
	StateRecording
	StateSucceeded
	StateFailed
)

var stateNames = map[WorkflowState]string{
	StateIdle:                 "idle",
	StateValidating:           "validating",
	StateAwaitingHash:         "awaiting_hash",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateRecording:            "recording",
	StateSucceeded:            "succeeded",
	StateFailed:               "failed",
}

func (s WorkflowState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Terminal reports whether the workflow can accept a new payment from this
// state. Idle is both initial and reset state; Succeeded/Failed await a
// user acknowledgement before resetting.
func (s WorkflowState) Terminal() bool {
	return s == StateIdle || s == StateSucceeded || s == StateFailed
}

// Receipt is the outcome of one workflow run.
type Receipt struct {
	State  WorkflowState      `json:"state"`
	TxHash string             `json:"txHash,omitempty"`
	Record *TransactionRecord `json:"record,omitempty"`

	// Balance is the live balance fetched during validation, kept so the
	// caller can display it after an insufficient-funds rejection.
	Balance *Balance `json:"balance,omitempty"`

	// RecordErr reports a persistence failure. The payment itself has
	// already confirmed on chain, so a non-nil value never demotes the
	// receipt's state from Succeeded.
	RecordErr error `json:"-"`
}

// NetworkPolicy gates payment submission to one network. An empty
// RequiredNetwork allows any network.
type NetworkPolicy struct {
	RequiredNetwork string `json:"requiredNetwork,omitempty"`
}

// Allows reports whether a payment may be submitted on the named network.
func (p NetworkPolicy) Allows(network string) bool {
	return p.RequiredNetwork == "" || p.RequiredNetwork == network
}

// PaymoError is the structured error every operation returns.
type PaymoError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *PaymoError) Error() string {
	return e.Message
}

// Errorf builds a PaymoError with a formatted message.
func Errorf(code, format string, args ...interface{}) *PaymoError {
	return &PaymoError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Common error codes
const (
	ErrValidation       = "VALIDATION_FAILED"
	ErrWalletConnect    = "WALLET_UNAVAILABLE"
	ErrNetworkGated     = "NETWORK_NOT_ALLOWED"
	ErrSubmissionFailed = "SUBMISSION_FAILED"
	ErrConfirmTimeout   = "CONFIRMATION_TIMEOUT"
	ErrRecordFailed     = "RECORD_FAILED"
	ErrPaymentInFlight  = "PAYMENT_IN_FLIGHT"
	ErrBalanceRead      = "BALANCE_READ_FAILED"
	ErrStoreError       = "STORE_ERROR"
	ErrConfigError      = "CONFIG_ERROR"
)

// NewRecord assembles the immutable history entry for a confirmed payment.
func NewRecord(from, to string, network string, txHash string, req *PaymentRequest, at time.Time) *TransactionRecord {
	return &TransactionRecord{
		From:      from,
		To:        to,
		Network:   network,
		TxHash:    txHash,
		Value:     req.Amount + " " + req.Currency.String(),
		Note:      req.Note,
		Timestamp: at.Unix(),
	}
}
