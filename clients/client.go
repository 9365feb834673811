package clients

import (
	"context"

	paymotypes "github.com/mainframehq/paymo-go/types"
)

// ChainClient is the RPC boundary to the blockchain: balance reads,
// address validation, and contract calls. The wallet SDK exposes one
// alongside its signing surface.
type ChainClient interface {
	// IsAddress reports whether addr is a well-formed chain address.
	IsAddress(addr string) bool

	// ChecksumAddress normalizes addr to its checksummed form.
	ChecksumAddress(addr string) (string, error)

	// Balance fetches the current spendable balance for the account in
	// the given currency. Never cached; callers re-fetch per attempt.
	Balance(ctx context.Context, account string, currency paymotypes.Currency) (*paymotypes.Balance, error)

	Close()
}
