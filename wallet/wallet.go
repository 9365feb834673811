// Package wallet defines the boundary to the account/wallet SDK: account
// and network enumeration, change notifications, contact lookup, and
// payment submission. Implementations live in clients.
package wallet

import (
	"context"

	"github.com/mainframehq/paymo-go/types"
)

// ChangeKind classifies a session change notification.
type ChangeKind int

const (
	AccountsChanged ChangeKind = iota
	NetworkChanged
)

// Change is a session change notification from the wallet SDK.
type Change struct {
	Kind ChangeKind
}

// PaymentParams is what the SDK needs to move funds to a contact.
type PaymentParams struct {
	ContactID string
	To        string
	Currency  types.Currency

	// Amount in whole units; the SDK converts to atomic units itself.
	Amount string
}

// SDK is the wallet/account boundary. It owns key custody and transaction
// signing; the library never sees private key material through this
// interface.
type SDK interface {
	// Accounts enumerates the unlocked accounts. The first entry is the
	// active one.
	Accounts(ctx context.Context) ([]string, error)

	// NetworkID reports the chain the wallet is currently connected to.
	NetworkID(ctx context.Context) (types.NetworkID, error)

	// Changes delivers account/network change notifications until ctx is
	// done. The returned channel is owned by the SDK and closed on
	// teardown.
	Changes(ctx context.Context) (<-chan Change, error)

	// Contact resolves a contact by ID from the SDK's contact list.
	Contact(ctx context.Context, id string) (*types.Contact, error)

	// PayContact submits a transfer and returns its event stream. The
	// stream emits at most one Submitted, then Confirmed or Failed.
	// A broadcast payment cannot be cancelled; cancelling ctx only stops
	// confirmation tracking, it does not recall the transaction.
	PayContact(ctx context.Context, params *PaymentParams) (*PaymentStream, error)

	Close()
}
