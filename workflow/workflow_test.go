package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mainframehq/paymo-go/recording"
	"github.com/mainframehq/paymo-go/store"
	"github.com/mainframehq/paymo-go/types"
	"github.com/mainframehq/paymo-go/validation"
	"github.com/mainframehq/paymo-go/wallet"
)

const (
	senderAddr    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	recipientAddr = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

// script tells the fake SDK what to emit on the payment stream.
type script int

const (
	scriptConfirm script = iota
	scriptRejectBeforeHash
	scriptFailAfterHash
	scriptHang
)

type fakeSDK struct {
	accounts []string
	network  types.NetworkID
	contacts map[string]*types.Contact
	script   script

	mu        sync.Mutex
	submitted []*wallet.PaymentParams
}

func newFakeSDK() *fakeSDK {
	return &fakeSDK{
		accounts: []string{senderAddr},
		network:  "3",
		contacts: map[string]*types.Contact{
			"alice": {ID: "alice", Name: "Alice", ETHAddress: recipientAddr},
			"bob":   {ID: "bob", Name: "Bob"},
		},
	}
}

func (f *fakeSDK) Accounts(ctx context.Context) ([]string, error) {
	return f.accounts, nil
}

func (f *fakeSDK) NetworkID(ctx context.Context) (types.NetworkID, error) {
	return f.network, nil
}

func (f *fakeSDK) Changes(ctx context.Context) (<-chan wallet.Change, error) {
	ch := make(chan wallet.Change)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeSDK) Contact(ctx context.Context, id string) (*types.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, errors.New("unknown contact")
	}
	return c, nil
}

func (f *fakeSDK) PayContact(ctx context.Context, params *wallet.PaymentParams) (*wallet.PaymentStream, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, params)
	f.mu.Unlock()

	stream := wallet.NewPaymentStream()
	switch f.script {
	case scriptConfirm:
		go func() {
			stream.Submitted("0xabc")
			stream.Confirmed()
		}()
	case scriptRejectBeforeHash:
		go stream.Fail(errors.New("rejected"))
	case scriptFailAfterHash:
		go func() {
			stream.Submitted("0xabc")
			stream.Fail(errors.New("transaction reverted"))
		}()
	case scriptHang:
		// emit the hash, never resolve
		go stream.Submitted("0xabc")
	}
	return stream, nil
}

func (f *fakeSDK) Close() {}

func (f *fakeSDK) submissions() []*wallet.PaymentParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

type fakeChain struct {
	balance string
	readErr error
}

func (f *fakeChain) IsAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && len(addr) == 42
}

func (f *fakeChain) ChecksumAddress(addr string) (string, error) {
	return addr, nil
}

func (f *fakeChain) Balance(ctx context.Context, account string, currency types.Currency) (*types.Balance, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return &types.Balance{Account: account, Currency: currency, Value: f.balance}, nil
}

func (f *fakeChain) Close() {}

func request() *types.PaymentRequest {
	return &types.PaymentRequest{
		ContactID: "alice",
		Amount:    "50",
		Currency:  types.CurrencyMFT,
		Note:      "for drone blades",
	}
}

func setup(t *testing.T, s script, opts ...Option) (*Orchestrator, *fakeSDK, *store.MemoryStore) {
	t.Helper()
	sdk := newFakeSDK()
	sdk.script = s
	mem := store.NewMemoryStore()
	rec := recording.NewRecorder(mem, nil, nil)
	o := New(sdk, &fakeChain{balance: "100"}, rec, opts...)
	return o, sdk, mem
}

func TestRunConfirmedPayment(t *testing.T) {
	var transitions []types.WorkflowState
	var mu sync.Mutex
	hook := func(_, to types.WorkflowState) {
		mu.Lock()
		transitions = append(transitions, to)
		mu.Unlock()
	}

	o, sdk, mem := setup(t, scriptConfirm, WithTransitionHook(hook))

	receipt, err := o.Run(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, types.StateSucceeded, receipt.State)
	assert.Equal(t, "0xabc", receipt.TxHash)
	require.NotNil(t, receipt.Record)
	assert.Equal(t, senderAddr, receipt.Record.From)
	assert.Equal(t, recipientAddr, receipt.Record.To)
	assert.Equal(t, "ropsten", receipt.Record.Network)
	assert.Equal(t, "50 MFT", receipt.Record.Value)
	assert.Nil(t, receipt.RecordErr)

	// the contact's published address wins over anything typed in
	subs := sdk.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, recipientAddr, subs[0].To)

	// one history entry per namespace
	assert.Equal(t, 2, mem.Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []types.WorkflowState{
		types.StateValidating,
		types.StateAwaitingHash,
		types.StateAwaitingConfirmation,
		types.StateRecording,
		types.StateSucceeded,
	}, transitions)
}

func TestRunRejectedBeforeHash(t *testing.T) {
	o, _, mem := setup(t, scriptRejectBeforeHash)

	receipt, err := o.Run(context.Background(), request())
	require.Error(t, err)

	var perr *types.PaymoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrSubmissionFailed, perr.Code)

	assert.Equal(t, types.StateFailed, receipt.State)
	assert.Empty(t, receipt.TxHash)
	assert.Nil(t, receipt.Record)
	assert.Equal(t, 0, mem.Len(), "a rejected payment leaves no record")
}

func TestRunFailedAfterHash(t *testing.T) {
	o, _, mem := setup(t, scriptFailAfterHash)

	receipt, err := o.Run(context.Background(), request())
	require.Error(t, err)

	assert.Equal(t, types.StateFailed, receipt.State)
	assert.Equal(t, "0xabc", receipt.TxHash, "hash was observed before the failure")
	assert.Equal(t, 0, mem.Len(), "an unconfirmed payment is never recorded")
}

func TestRunConfirmTimeout(t *testing.T) {
	o, _, mem := setup(t, scriptHang, WithConfirmTimeout(30*time.Millisecond))

	receipt, err := o.Run(context.Background(), request())
	require.Error(t, err)

	var perr *types.PaymoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrConfirmTimeout, perr.Code)
	assert.Equal(t, types.StateFailed, receipt.State)
	assert.Equal(t, 0, mem.Len())
}

func TestRunValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*types.PaymentRequest)
		balance string
		wantMsg string
	}{
		{
			name:    "not a number",
			mutate:  func(r *types.PaymentRequest) { r.Amount = "fifty" },
			balance: "100",
			wantMsg: validation.MsgNotANumber,
		},
		{
			name:    "not positive",
			mutate:  func(r *types.PaymentRequest) { r.Amount = "0" },
			balance: "100",
			wantMsg: validation.MsgNotPositive,
		},
		{
			name:    "insufficient funds",
			mutate:  func(r *types.PaymentRequest) { r.Amount = "150" },
			balance: "100",
			wantMsg: validation.MsgInsufficientFunds,
		},
		{
			name:    "contact without address",
			mutate:  func(r *types.PaymentRequest) { r.ContactID = "bob" },
			balance: "100",
			wantMsg: validation.MsgNoAddress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sdk := newFakeSDK()
			mem := store.NewMemoryStore()
			o := New(sdk, &fakeChain{balance: tc.balance}, recording.NewRecorder(mem, nil, nil))

			req := request()
			tc.mutate(req)

			receipt, err := o.Run(context.Background(), req)
			require.Error(t, err)

			var perr *types.PaymoError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, types.ErrValidation, perr.Code)
			assert.Equal(t, tc.wantMsg, perr.Message)

			// a rejection returns straight to Idle, no acknowledgement
			assert.Equal(t, types.StateIdle, receipt.State)
			assert.Equal(t, types.StateIdle, o.State())
			assert.Empty(t, sdk.submissions(), "nothing reaches the chain on validation failure")
		})
	}
}

func TestRunMalformedRequest(t *testing.T) {
	cases := map[string]*types.PaymentRequest{
		"no recipient at all": {Amount: "1", Currency: types.CurrencyETH},
		"missing amount":      {ContactID: "alice", Currency: types.CurrencyETH},
		"unknown currency":    {ContactID: "alice", Amount: "1", Currency: "DOGE"},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			o, sdk, _ := setup(t, scriptConfirm)

			_, err := o.Run(context.Background(), req)
			require.Error(t, err)

			var perr *types.PaymoError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, types.ErrValidation, perr.Code)
			assert.Equal(t, types.StateIdle, o.State())
			assert.Empty(t, sdk.submissions())
		})
	}
}

func TestRunRejectionAllowsImmediateRetry(t *testing.T) {
	sdk := newFakeSDK()
	sdk.script = scriptConfirm
	mem := store.NewMemoryStore()
	o := New(sdk, &fakeChain{balance: "10"}, recording.NewRecorder(mem, nil, nil))

	req := request()
	req.Amount = "50"

	receipt, err := o.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, types.StateIdle, receipt.State)
	assert.Equal(t, types.StateIdle, o.State())

	// fix the amount and resubmit without acknowledging anything
	req.Amount = "5"
	receipt, err = o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.StateSucceeded, receipt.State)
}

func TestRunUnknownBalanceSkipsFundsCheck(t *testing.T) {
	sdk := newFakeSDK()
	sdk.script = scriptConfirm
	mem := store.NewMemoryStore()
	o := New(sdk, &fakeChain{balance: "0"}, recording.NewRecorder(mem, nil, nil))

	req := request()
	req.Amount = "150"

	receipt, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.StateSucceeded, receipt.State)
}

func TestRunBalanceReadFailureSkipsFundsCheck(t *testing.T) {
	sdk := newFakeSDK()
	sdk.script = scriptConfirm
	mem := store.NewMemoryStore()
	o := New(sdk, &fakeChain{readErr: errors.New("rpc down")}, recording.NewRecorder(mem, nil, nil))

	_, err := o.Run(context.Background(), request())
	require.NoError(t, err)
}

func TestRunNetworkGate(t *testing.T) {
	o, sdk, _ := setup(t, scriptConfirm, WithNetworkPolicy(types.NetworkPolicy{RequiredNetwork: "mainnet"}))

	receipt, err := o.Run(context.Background(), request())
	require.Error(t, err)

	var perr *types.PaymoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrNetworkGated, perr.Code)
	assert.Equal(t, types.StateIdle, receipt.State)
	assert.Empty(t, sdk.submissions())
}

func TestRunUnrecognizedNetwork(t *testing.T) {
	sdk := newFakeSDK()
	sdk.script = scriptConfirm
	sdk.network = "1337"
	mem := store.NewMemoryStore()
	o := New(sdk, &fakeChain{balance: "100"}, recording.NewRecorder(mem, nil, nil))

	_, err := o.Run(context.Background(), request())
	require.Error(t, err)

	var perr *types.PaymoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrNetworkGated, perr.Code)
	assert.Empty(t, sdk.submissions())
	assert.Equal(t, 0, mem.Len(), "no record lands under an empty network namespace")
}

func TestRunNetworkGateAcceptsNameOrID(t *testing.T) {
	for _, required := range []string{"3", "ropsten"} {
		o, _, _ := setup(t, scriptConfirm, WithNetworkPolicy(types.NetworkPolicy{RequiredNetwork: required}))
		_, err := o.Run(context.Background(), request())
		require.NoError(t, err, "policy %q should allow the ropsten wallet", required)
	}
}

func TestRunSingleFlight(t *testing.T) {
	o, _, _ := setup(t, scriptHang)

	release := make(chan struct{})
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-release
			cancel()
		}()
		_, _ = o.Run(ctx, request())
	}()

	// wait for the first run to occupy the slot
	require.Eventually(t, func() bool {
		return o.State() == types.StateAwaitingConfirmation
	}, time.Second, 5*time.Millisecond)

	_, err := o.Run(context.Background(), request())
	require.Error(t, err)

	var perr *types.PaymoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrPaymentInFlight, perr.Code)

	close(release)
}

func TestAcknowledgeResets(t *testing.T) {
	o, _, _ := setup(t, scriptConfirm)

	_, err := o.Run(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, types.StateSucceeded, o.State())

	// a finished attempt blocks the next one until acknowledged
	_, err = o.Run(context.Background(), request())
	require.Error(t, err)

	require.NoError(t, o.Acknowledge())
	assert.Equal(t, types.StateIdle, o.State())

	_, err = o.Run(context.Background(), request())
	require.NoError(t, err)
}

func TestRunRecordFailureStillSucceeds(t *testing.T) {
	sdk := newFakeSDK()
	sdk.script = scriptConfirm
	rec := recording.NewRecorder(&brokenStore{}, nil, nil)
	o := New(sdk, &fakeChain{balance: "100"}, rec)

	receipt, err := o.Run(context.Background(), request())
	require.NoError(t, err, "persistence failure never demotes a confirmed payment")

	assert.Equal(t, types.StateSucceeded, receipt.State)
	require.NotNil(t, receipt.RecordErr)

	var perr *types.PaymoError
	require.ErrorAs(t, receipt.RecordErr, &perr)
	assert.Equal(t, types.ErrRecordFailed, perr.Code)
}

func TestRunRawAddressRecipient(t *testing.T) {
	o, sdk, _ := setup(t, scriptConfirm)

	req := &types.PaymentRequest{
		To:       recipientAddr,
		Amount:   "1.5",
		Currency: types.CurrencyETH,
	}

	receipt, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1.5 ETH", receipt.Record.Value)

	subs := sdk.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, recipientAddr, subs[0].To)
}

// brokenStore fails every write.
type brokenStore struct{}

func (brokenStore) Put(ctx context.Context, key string, rec *types.TransactionRecord) error {
	return errors.New("store offline")
}

func (brokenStore) List(ctx context.Context, account, network string) ([]*types.TransactionRecord, error) {
	return nil, errors.New("store offline")
}

func (brokenStore) Close() error { return nil }
