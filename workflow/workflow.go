// Package workflow drives a single payment attempt end to end: input
// validation against a live balance, network gating, submission through the
// wallet SDK, confirmation tracking, and dual-namespace recording. At most
// one attempt runs at a time; a finished attempt must be acknowledged
// before the next one starts.
package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mainframehq/paymo-go/clients"
	"github.com/mainframehq/paymo-go/logger"
	"github.com/mainframehq/paymo-go/metrics"
	"github.com/mainframehq/paymo-go/recording"
	"github.com/mainframehq/paymo-go/types"
	"github.com/mainframehq/paymo-go/utils"
	"github.com/mainframehq/paymo-go/validation"
	"github.com/mainframehq/paymo-go/wallet"
)

// TransitionHook observes every state change. Called synchronously from the
// workflow goroutine; keep it fast.
type TransitionHook func(from, to types.WorkflowState)

// Orchestrator runs the payment state machine.
//
//	Idle -> Validating -> AwaitingHash -> AwaitingConfirmation -> Recording -> Succeeded
//	             |                   \_____________|-> Failed
//	             +-> Idle (rejected)
//
// A validation or network-policy rejection returns straight to Idle: the
// caller shows the message and the user resubmits. Failed is reserved for
// attempts that reached submission; it and Succeeded hold until Acknowledge
// resets to Idle.
type Orchestrator struct {
	sdk      wallet.SDK
	chain    clients.ChainClient
	recorder *recording.Recorder

	policy         types.NetworkPolicy
	confirmTimeout time.Duration

	log     logger.Logger
	metrics metrics.Recorder
	hook    TransitionHook

	mu    sync.Mutex
	state types.WorkflowState
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithNetworkPolicy restricts submission to one network. The policy value
// may be a chain ID ("3") or a network name ("ropsten").
func WithNetworkPolicy(p types.NetworkPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithConfirmTimeout bounds how long a submitted payment may wait for its
// confirmation before the attempt fails. Zero waits indefinitely. The
// broadcast transaction is not recalled on expiry; only tracking stops.
func WithConfirmTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.confirmTimeout = d }
}

// WithTransitionHook registers a state change observer.
func WithTransitionHook(h TransitionHook) Option {
	return func(o *Orchestrator) { o.hook = h }
}

// WithLogger sets the workflow logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an Orchestrator in the Idle state.
func New(sdk wallet.SDK, chain clients.ChainClient, recorder *recording.Recorder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sdk:      sdk,
		chain:    chain,
		recorder: recorder,
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		state:    types.StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State reports the current workflow state.
func (o *Orchestrator) State() types.WorkflowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Acknowledge resets a finished attempt back to Idle so a new payment can
// start. Acknowledging while a payment is still running is an error;
// acknowledging from Idle is a no-op.
func (o *Orchestrator) Acknowledge() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case types.StateIdle:
		return nil
	case types.StateSucceeded, types.StateFailed:
		o.transitionLocked(types.StateIdle)
		return nil
	default:
		return types.Errorf(types.ErrPaymentInFlight, "cannot acknowledge: payment still %s", o.state)
	}
}

// Run executes one payment attempt. It returns a Receipt describing the
// outcome alongside the error that ended a failed attempt. A validation or
// network-policy rejection leaves the workflow Idle, ready for an immediate
// retry. A Succeeded receipt may still carry a RecordErr: the transfer
// confirmed on chain but writing the history entry failed, and that never
// demotes the outcome.
func (o *Orchestrator) Run(ctx context.Context, req *types.PaymentRequest) (*types.Receipt, error) {
	if err := o.begin(); err != nil {
		return &types.Receipt{State: o.State()}, err
	}

	start := time.Now()
	receipt, err := o.run(ctx, req)
	switch {
	case err == nil:
		o.transition(types.StateSucceeded)
		receipt.State = types.StateSucceeded
		o.count("workflow_succeeded", receipt.Record)
	case rejected(err):
		// Nothing reached the chain; the user fixes the input and
		// resubmits without acknowledging anything.
		o.transition(types.StateIdle)
		receipt.State = types.StateIdle
		o.count("workflow_rejected", receipt.Record)
	default:
		o.transition(types.StateFailed)
		receipt.State = types.StateFailed
		o.count("workflow_failed", receipt.Record)
	}

	network := ""
	if receipt.Record != nil {
		network = receipt.Record.Network
	}
	o.metrics.ObserveLatency("payment_workflow", time.Since(start), map[string]string{"network": network})

	return receipt, err
}

// rejected reports whether an attempt was turned back before submission,
// by input validation or the network policy.
func rejected(err error) bool {
	var perr *types.PaymoError
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Code == types.ErrValidation || perr.Code == types.ErrNetworkGated
}

// begin claims the single payment slot, moving Idle to Validating.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.Terminal() {
		return types.Errorf(types.ErrPaymentInFlight, "a payment is already %s", o.state)
	}
	if o.state != types.StateIdle {
		return types.Errorf(types.ErrPaymentInFlight, "previous payment not acknowledged: %s", o.state)
	}

	o.transitionLocked(types.StateValidating)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, req *types.PaymentRequest) (*types.Receipt, error) {
	receipt := &types.Receipt{}

	if err := utils.ValidateStruct(req); err != nil {
		return receipt, types.Errorf(types.ErrValidation, "malformed payment request: %v", err)
	}

	to, err := o.resolveRecipient(ctx, req)
	if err != nil {
		return receipt, err
	}

	from, err := o.activeAccount(ctx)
	if err != nil {
		return receipt, err
	}

	receipt.Balance = o.readBalance(ctx, from, req.Currency)
	if msg := validation.Amount(receipt.Balance, req.Amount); msg != "" {
		return receipt, types.Errorf(types.ErrValidation, "%s", msg)
	}

	network, err := o.gateNetwork(ctx)
	if err != nil {
		return receipt, err
	}

	o.transition(types.StateAwaitingHash)

	stream, err := o.sdk.PayContact(ctx, &wallet.PaymentParams{
		ContactID: req.ContactID,
		To:        to,
		Currency:  req.Currency,
		Amount:    req.Amount,
	})
	if err != nil {
		return receipt, types.Errorf(types.ErrSubmissionFailed, "payment submission failed: %v", err)
	}

	txHash, err := o.awaitOutcome(ctx, stream, receipt, network)
	if err != nil {
		return receipt, err
	}

	o.transition(types.StateRecording)

	record := types.NewRecord(from, to, network.Name(), txHash, req, time.Now())
	receipt.Record = record
	o.count("payment_recorded", record)

	if recErr := o.recorder.Record(ctx, record); recErr != nil {
		// the payment confirmed; the attempt still succeeds
		receipt.RecordErr = recErr
		o.log.Warn("transaction record write failed", map[string]any{
			"txHash": txHash,
			"error":  recErr.Error(),
		})
	}

	return receipt, nil
}

// resolveRecipient picks the destination address, preferring the contact's
// published address over a raw one, and checksums it.
func (o *Orchestrator) resolveRecipient(ctx context.Context, req *types.PaymentRequest) (string, error) {
	addr := req.To
	if req.ContactID != "" {
		contact, err := o.sdk.Contact(ctx, req.ContactID)
		if err != nil {
			return "", types.Errorf(types.ErrWalletConnect, "contact lookup failed: %v", err)
		}
		addr = contact.ETHAddress
	}

	if msg := validation.Recipient(addr != "" && o.chain.IsAddress(addr)); msg != "" {
		return "", types.Errorf(types.ErrValidation, "%s", msg)
	}

	checksummed, err := o.chain.ChecksumAddress(addr)
	if err != nil {
		return "", types.Errorf(types.ErrValidation, "recipient address rejected: %v", err)
	}
	return checksummed, nil
}

func (o *Orchestrator) activeAccount(ctx context.Context) (string, error) {
	accounts, err := o.sdk.Accounts(ctx)
	if err != nil {
		return "", types.Errorf(types.ErrWalletConnect, "account enumeration failed: %v", err)
	}
	if len(accounts) == 0 {
		return "", types.Errorf(types.ErrWalletConnect, "no unlocked account")
	}
	return accounts[0], nil
}

// readBalance fetches the live balance for validation. A failed read is
// logged and reported as the unknown sentinel so the funds check is
// skipped rather than blocking submission on an RPC hiccup.
func (o *Orchestrator) readBalance(ctx context.Context, account string, currency types.Currency) *types.Balance {
	balance, err := o.chain.Balance(ctx, account, currency)
	if err != nil {
		o.log.Warn("balance read failed, skipping funds check", map[string]any{
			"account": account,
			"error":   err.Error(),
		})
		return nil
	}
	return balance
}

func (o *Orchestrator) gateNetwork(ctx context.Context) (types.NetworkID, error) {
	network, err := o.sdk.NetworkID(ctx)
	if err != nil {
		return "", types.Errorf(types.ErrWalletConnect, "network lookup failed: %v", err)
	}

	// Records are namespaced by network name, so an unrecognized network
	// has nowhere to write.
	if !network.Known() {
		return "", types.Errorf(types.ErrNetworkGated, "unrecognized network %s", network)
	}

	if !o.policy.Allows(network.String()) && !o.policy.Allows(network.Name()) {
		return "", types.Errorf(types.ErrNetworkGated,
			"payments are restricted to %s, wallet is on %s", o.policy.RequiredNetwork, network)
	}
	return network, nil
}

// awaitOutcome consumes the payment stream until it confirms, honoring the
// configured confirmation deadline. Returns the transaction hash of a
// confirmed payment.
func (o *Orchestrator) awaitOutcome(ctx context.Context, stream *wallet.PaymentStream, receipt *types.Receipt, network types.NetworkID) (string, error) {
	var deadline <-chan time.Time
	if o.confirmTimeout > 0 {
		timer := time.NewTimer(o.confirmTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var txHash string
	labels := map[string]string{"network": network.Name()}

	for {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				return "", types.Errorf(types.ErrSubmissionFailed, "payment stream closed without an outcome")
			}
			switch ev.Kind {
			case wallet.EventSubmitted:
				txHash = ev.TxHash
				receipt.TxHash = txHash
				o.metrics.IncCounter("payment_submitted", labels)
				o.log.Info("payment submitted", map[string]any{
					"txHash":  txHash,
					"network": network.String(),
				})
				o.transition(types.StateAwaitingConfirmation)

			case wallet.EventConfirmed:
				o.metrics.IncCounter("payment_confirmed", labels)
				return txHash, nil

			case wallet.EventFailed:
				o.metrics.IncCounter("payment_failed", labels)
				return "", types.Errorf(types.ErrSubmissionFailed, "payment failed: %v", ev.Err)
			}

		case <-deadline:
			o.metrics.IncCounter("payment_confirm_timeout", labels)
			return "", types.Errorf(types.ErrConfirmTimeout,
				"no confirmation within %s (tx %s may still land on chain)", o.confirmTimeout, txHash)

		case <-ctx.Done():
			return "", types.Errorf(types.ErrSubmissionFailed, "payment wait cancelled: %v", ctx.Err())
		}
	}
}

func (o *Orchestrator) transition(to types.WorkflowState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitionLocked(to)
}

func (o *Orchestrator) transitionLocked(to types.WorkflowState) {
	from := o.state
	if from == to {
		return
	}
	o.state = to
	o.log.Debug("workflow transition", map[string]any{
		"from": from.String(),
		"to":   to.String(),
	})
	if o.hook != nil {
		o.hook(from, to)
	}
}

func (o *Orchestrator) count(event string, record *types.TransactionRecord) {
	network := ""
	if record != nil {
		network = record.Network
	}
	o.metrics.IncCounter(event, map[string]string{"network": network})
}
