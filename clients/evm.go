package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mainframehq/paymo-go/logger"
	paymotypes "github.com/mainframehq/paymo-go/types"
	"github.com/mainframehq/paymo-go/utils"
	"github.com/mainframehq/paymo-go/wallet"
)

var _ wallet.SDK = (*EVMWallet)(nil)
var _ ChainClient = (*EVMWallet)(nil)

const (
	defaultReceiptPollInterval = 4 * time.Second
	defaultNetworkPollInterval = 15 * time.Second
	nativeTransferGas          = 21000
)

// EVMWallet backs the wallet SDK and chain client boundaries with a
// go-ethereum RPC connection and a locally held signing key.
type EVMWallet struct {
	rpcURL  string
	client  *ethclient.Client
	signer  *ecdsa.PrivateKey
	chainID *big.Int

	// tokenContracts maps network IDs to the MFT contract deployed there.
	tokenContracts map[paymotypes.NetworkID]string

	receiptPollInterval time.Duration
	networkPollInterval time.Duration

	mu       sync.RWMutex
	contacts map[string]*paymotypes.Contact

	log logger.Logger
}

// EVMWalletOption tweaks the wallet before first use.
type EVMWalletOption func(*EVMWallet)

// WithTokenContracts overrides the default token contract registry.
func WithTokenContracts(contracts map[paymotypes.NetworkID]string) EVMWalletOption {
	return func(w *EVMWallet) {
		w.tokenContracts = contracts
	}
}

// WithReceiptPollInterval sets how often confirmation tracking polls for
// the transaction receipt.
func WithReceiptPollInterval(d time.Duration) EVMWalletOption {
	return func(w *EVMWallet) {
		w.receiptPollInterval = d
	}
}

// NewEVMWallet dials the RPC endpoint and loads the signing key. The chain
// ID is read once at connect time; the Changes subscription notices later
// network switches.
func NewEVMWallet(rpcURL, signerPrivHex string, log logger.Logger, opts ...EVMWalletOption) (*EVMWallet, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, paymotypes.Errorf(paymotypes.ErrWalletConnect, "failed to connect to Ethereum RPC: %v", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(signerPrivHex, "0x"))
	if err != nil {
		client.Close()
		return nil, paymotypes.Errorf(paymotypes.ErrWalletConnect, "invalid signing key: %v", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		client.Close()
		return nil, paymotypes.Errorf(paymotypes.ErrWalletConnect, "failed to read chain id: %v", err)
	}

	if log == nil {
		log = logger.NoopLogger{}
	}

	w := &EVMWallet{
		rpcURL:              rpcURL,
		client:              client,
		signer:              key,
		chainID:             chainID,
		tokenContracts:      paymotypes.DefaultTokenContracts,
		receiptPollInterval: defaultReceiptPollInterval,
		networkPollInterval: defaultNetworkPollInterval,
		contacts:            make(map[string]*paymotypes.Contact),
		log:                 log,
	}

	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Accounts implements wallet.SDK. A key-backed wallet has exactly one
// account.
func (w *EVMWallet) Accounts(ctx context.Context) ([]string, error) {
	return []string{crypto.PubkeyToAddress(w.signer.PublicKey).Hex()}, nil
}

// NetworkID implements wallet.SDK.
func (w *EVMWallet) NetworkID(ctx context.Context) (paymotypes.NetworkID, error) {
	chainID, err := w.client.ChainID(ctx)
	if err != nil {
		return "", paymotypes.Errorf(paymotypes.ErrWalletConnect, "failed to read chain id: %v", err)
	}

	w.mu.Lock()
	w.chainID = chainID
	w.mu.Unlock()

	return paymotypes.NetworkID(chainID.String()), nil
}

// Changes implements wallet.SDK. An RPC-backed wallet has a fixed account,
// so only network switches are observable; they are detected by polling
// the chain ID.
func (w *EVMWallet) Changes(ctx context.Context) (<-chan wallet.Change, error) {
	out := make(chan wallet.Change, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(w.networkPollInterval)
		defer ticker.Stop()

		w.mu.RLock()
		last := w.chainID.String()
		w.mu.RUnlock()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				chainID, err := w.client.ChainID(ctx)
				if err != nil {
					w.log.Warn("network poll failed", map[string]any{"error": err.Error()})
					continue
				}
				if chainID.String() != last {
					last = chainID.String()
					w.mu.Lock()
					w.chainID = chainID
					w.mu.Unlock()
					select {
					case out <- wallet.Change{Kind: wallet.NetworkChanged}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// Contact implements wallet.SDK.
func (w *EVMWallet) Contact(ctx context.Context, id string) (*paymotypes.Contact, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	contact, ok := w.contacts[id]
	if !ok {
		return nil, paymotypes.Errorf(paymotypes.ErrValidation, "unknown contact %q", id)
	}
	return contact, nil
}

// AddContact registers a contact in the wallet's contact list.
func (w *EVMWallet) AddContact(contact *paymotypes.Contact) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.contacts[contact.ID] = contact
}

// PayContact implements wallet.SDK. It signs and broadcasts the transfer,
// emits the hash once the network accepts it, then tracks the receipt to
// confirmation in the background. A broadcast transaction cannot be
// recalled; cancelling ctx only abandons tracking.
func (w *EVMWallet) PayContact(ctx context.Context, params *wallet.PaymentParams) (*wallet.PaymentStream, error) {
	stream := wallet.NewPaymentStream()

	signed, err := w.buildAndSign(ctx, params)
	if err != nil {
		// Submission never started: surface through the stream so the
		// caller has a single failure path.
		go stream.Fail(err)
		return stream, nil
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		go stream.Fail(paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %v", ErrBroadcastFailed, err))
		return stream, nil
	}

	txHash := signed.Hash().Hex()
	w.log.Info("payment broadcast", map[string]any{
		"txHash":   txHash,
		"to":       params.To,
		"currency": params.Currency.String(),
	})

	go func() {
		stream.Submitted(txHash)
		w.trackConfirmation(ctx, signed.Hash(), stream)
	}()

	return stream, nil
}

func (w *EVMWallet) buildAndSign(ctx context.Context, params *wallet.PaymentParams) (*gethtypes.Transaction, error) {
	if !common.IsHexAddress(params.To) {
		return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %q", ErrInvalidRecipient, params.To)
	}
	to := common.HexToAddress(params.To)
	from := crypto.PubkeyToAddress(w.signer.PublicKey)

	amount, err := utils.ToAtomic(params.Amount, utils.EtherDecimals)
	if err != nil {
		return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %v", ErrAmountNotConvertible, err)
	}

	nonce, err := w.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %v", ErrNonceRead, err)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %v", ErrGasEstimate, err)
	}

	var tx *gethtypes.Transaction
	if params.Currency.IsToken() {
		token, err := w.tokenForCurrentNetwork(ctx)
		if err != nil {
			return nil, err
		}

		callData, err := token.TransferData(to, amount)
		if err != nil {
			return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "pack transfer: %v", err)
		}

		contract := token.Address()
		gasLimit, err := w.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &contract, Data: callData})
		if err != nil {
			return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %v", ErrGasEstimate, err)
		}

		tx = gethtypes.NewTransaction(nonce, contract, big.NewInt(0), gasLimit, gasPrice, callData)
	} else {
		tx = gethtypes.NewTransaction(nonce, to, amount, nativeTransferGas, gasPrice, nil)
	}

	w.mu.RLock()
	chainID := w.chainID
	w.mu.RUnlock()

	signed, err := gethtypes.SignTx(tx, gethtypes.NewEIP155Signer(chainID), w.signer)
	if err != nil {
		return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %v", ErrSignFailed, err)
	}
	return signed, nil
}

// trackConfirmation polls for the receipt until the transaction is mined.
func (w *EVMWallet) trackConfirmation(ctx context.Context, txHash common.Hash, stream *wallet.PaymentStream) {
	ticker := time.NewTicker(w.receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stream.Fail(paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %v", ErrConfirmationStopped, ctx.Err()))
			return
		case <-ticker.C:
			receipt, err := w.client.TransactionReceipt(ctx, txHash)
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				w.log.Warn("receipt poll failed", map[string]any{"txHash": txHash.Hex(), "error": err.Error()})
				continue
			}

			if receipt.Status == gethtypes.ReceiptStatusSuccessful {
				stream.Confirmed()
			} else {
				stream.Fail(paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: %s", ErrTxReverted, txHash.Hex()))
			}
			return
		}
	}
}

// Balance implements ChainClient. Native balances come from eth_getBalance,
// token balances from the MFT contract deployed on the current network.
func (w *EVMWallet) Balance(ctx context.Context, account string, currency paymotypes.Currency) (*paymotypes.Balance, error) {
	addr := common.HexToAddress(account)

	var raw *big.Int
	if currency.IsToken() {
		token, err := w.tokenForCurrentNetwork(ctx)
		if err != nil {
			return nil, err
		}
		raw, err = token.BalanceOf(ctx, addr)
		if err != nil {
			return nil, paymotypes.Errorf(paymotypes.ErrBalanceRead, "token balance read failed: %v", err)
		}
	} else {
		var err error
		raw, err = w.client.BalanceAt(ctx, addr, nil)
		if err != nil {
			return nil, paymotypes.Errorf(paymotypes.ErrBalanceRead, "balance read failed: %v", err)
		}
	}

	return &paymotypes.Balance{
		Account:  account,
		Currency: currency,
		Value:    utils.FromAtomic(raw, utils.EtherDecimals),
	}, nil
}

// IsAddress implements ChainClient.
func (w *EVMWallet) IsAddress(addr string) bool {
	return common.IsHexAddress(addr)
}

// ChecksumAddress implements ChainClient.
func (w *EVMWallet) ChecksumAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", paymotypes.Errorf(paymotypes.ErrValidation, "%s: %q", ErrInvalidRecipient, addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

// Close implements wallet.SDK and ChainClient.
func (w *EVMWallet) Close() {
	w.client.Close()
}

func (w *EVMWallet) tokenForCurrentNetwork(ctx context.Context) (*erc20, error) {
	network, err := w.NetworkID(ctx)
	if err != nil {
		return nil, err
	}

	contract, ok := w.tokenContracts[network]
	if !ok {
		return nil, paymotypes.Errorf(paymotypes.ErrSubmissionFailed, "%s: network %s", ErrTokenNotDeployed, network)
	}
	return newERC20(contract, w.client)
}
