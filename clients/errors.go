package clients

// Failure reasons reported through the payment event stream.
const (
	// -----------------------------
	// SESSION / CONNECTIVITY
	// -----------------------------
	ErrRPCUnavailable = "rpc_unavailable"
	ErrNoAccount      = "no_unlocked_account"
	ErrUnknownNetwork = "unknown_network"

	// -----------------------------
	// SUBMISSION
	// -----------------------------
	ErrInvalidRecipient     = "invalid_recipient_address"
	ErrTokenNotDeployed     = "token_not_deployed_on_network"
	ErrNonceRead            = "nonce_read_failed"
	ErrGasEstimate          = "gas_estimate_failed"
	ErrSignFailed           = "sign_tx_failed"
	ErrBroadcastFailed      = "broadcast_failed"
	ErrAmountNotConvertible = "amount_not_convertible"

	// -----------------------------
	// CONFIRMATION
	// -----------------------------
	ErrTxReverted          = "transaction_reverted"
	ErrConfirmationStopped = "confirmation_tracking_stopped"
)
