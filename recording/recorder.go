// Package recording persists confirmed payments into the remote store,
// once under the sender's namespace and once under the recipient's, so
// each party's history view can find the transaction.
package recording

import (
	"context"
	"strings"

	"github.com/mainframehq/paymo-go/logger"
	"github.com/mainframehq/paymo-go/metrics"
	"github.com/mainframehq/paymo-go/store"
	"github.com/mainframehq/paymo-go/types"
)

type Recorder struct {
	store   store.Store
	log     logger.Logger
	metrics metrics.Recorder
}

func NewRecorder(s store.Store, log logger.Logger, rec metrics.Recorder) *Recorder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Recorder{store: s, log: log, metrics: rec}
}

// Record writes the transaction under both the sender's and the
// recipient's namespace. The writes are independent: a failure in either
// is reported but never rolls back the other, because the store has no
// multi-key atomicity. Both keys include the transaction hash, so a
// retried Record overwrites identically instead of duplicating.
func (r *Recorder) Record(ctx context.Context, rec *types.TransactionRecord) error {
	var failures []string

	for _, owner := range []string{rec.From, rec.To} {
		key := store.Key(owner, rec.Network, rec.TxHash)
		if err := r.store.Put(ctx, key, rec); err != nil {
			r.log.Error("record write failed", map[string]any{
				"key":    key,
				"txHash": rec.TxHash,
				"error":  err.Error(),
			})
			r.metrics.IncCounter("record_write_failed", map[string]string{"network": rec.Network})
			failures = append(failures, key+": "+err.Error())
			continue
		}
		r.metrics.IncCounter("record_written", map[string]string{"network": rec.Network})
	}

	if len(failures) > 0 {
		return types.Errorf(types.ErrRecordFailed, "failed to write transaction record: %s", strings.Join(failures, "; "))
	}
	return nil
}

// History returns the stored records for one account on one network,
// oldest first. This is the read path the transaction list consumes.
func (r *Recorder) History(ctx context.Context, account, network string) ([]*types.TransactionRecord, error) {
	return r.store.List(ctx, account, network)
}
