// Package store is the remote document-store boundary. Records live under
// path-style keys, account_transactions/{address}/{network}/{hash}, so a
// retried write for the same transaction lands on the same key and
// overwrites identically.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/mainframehq/paymo-go/types"
)

const keyPrefix = "account_transactions"

// Store persists transaction records and serves the history read path.
type Store interface {
	// Put writes rec under the given key. Fire-and-forget semantics from
	// the workflow's perspective: the caller reports failures but never
	// rolls anything back.
	Put(ctx context.Context, key string, rec *types.TransactionRecord) error

	// List returns the records under one account+network namespace,
	// ordered by ascending timestamp.
	List(ctx context.Context, account, network string) ([]*types.TransactionRecord, error)

	Close() error
}

// Key builds the storage key for one record.
func Key(account, network, txHash string) string {
	return fmt.Sprintf("%s/%s/%s/%s", keyPrefix, account, network, txHash)
}

// Namespace builds the listing prefix for one account+network pair.
func Namespace(account, network string) string {
	return fmt.Sprintf("%s/%s/%s", keyPrefix, account, network)
}

// SplitKey decomposes a storage key into account, network, and hash.
func SplitKey(key string) (account, network, txHash string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != keyPrefix {
		return "", "", "", fmt.Errorf("malformed record key %q", key)
	}
	return parts[1], parts[2], parts[3], nil
}
