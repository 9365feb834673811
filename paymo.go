// Package paymo submits and confirms contact-to-contact crypto payments:
// it validates a payment against the live balance, moves ETH or the MFT
// token through the wallet, tracks the transaction to confirmation, and
// records it in the transaction history of both parties.
package paymo

import (
	"context"
	"time"

	"github.com/mainframehq/paymo-go/clients"
	"github.com/mainframehq/paymo-go/config"
	"github.com/mainframehq/paymo-go/logger"
	"github.com/mainframehq/paymo-go/metrics"
	"github.com/mainframehq/paymo-go/recording"
	"github.com/mainframehq/paymo-go/store"
	"github.com/mainframehq/paymo-go/types"
	"github.com/mainframehq/paymo-go/wallet"
	"github.com/mainframehq/paymo-go/workflow"
)

// Paymo is the library facade. One instance owns a wallet connection, a
// record store, and the payment workflow; it runs one payment at a time.
type Paymo struct {
	cfg *config.Config

	sdk   wallet.SDK
	chain clients.ChainClient

	store        store.Store
	recorder     *recording.Recorder
	orchestrator *workflow.Orchestrator

	log     logger.Logger
	metrics metrics.Recorder

	policy         types.NetworkPolicy
	confirmTimeout time.Duration
	hook           workflow.TransitionHook

	ownsWallet bool
	ownsStore  bool
}

// New assembles a Paymo instance from configuration. Options override the
// corresponding config-derived pieces; a wallet or store supplied through
// an option is not closed by Close.
func New(cfg *config.Config, opts ...Option) (*Paymo, error) {
	if cfg == nil {
		return nil, types.Errorf(types.ErrConfigError, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Paymo{
		cfg:            cfg,
		policy:         cfg.NetworkPolicy(),
		confirmTimeout: cfg.Chain.ConfirmTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logger.NewZapLogger(cfg.App.LogLevel)
	}
	if p.metrics == nil {
		if cfg.Metrics.Enabled {
			p.metrics = metrics.NewPrometheusRecorder()
		} else {
			p.metrics = metrics.NoopRecorder{}
		}
	}

	if p.store == nil {
		s, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		p.store = s
		p.ownsStore = true
	}

	if p.sdk == nil {
		w, err := openWallet(cfg, p.log)
		if err != nil {
			if p.ownsStore {
				_ = p.store.Close()
			}
			return nil, err
		}
		p.sdk = w
		p.chain = w
		p.ownsWallet = true
	}

	p.recorder = recording.NewRecorder(p.store, p.log, p.metrics)
	p.orchestrator = workflow.New(p.sdk, p.chain, p.recorder,
		workflow.WithNetworkPolicy(p.policy),
		workflow.WithConfirmTimeout(p.confirmTimeout),
		workflow.WithLogger(p.log),
		workflow.WithMetrics(p.metrics),
		workflow.WithTransitionHook(p.hook),
	)

	return p, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB), nil
	case "postgres":
		return store.NewPostgresStore(cfg.Store.PostgresDSN)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, types.Errorf(types.ErrConfigError, "unknown store backend %q", cfg.Store.Backend)
	}
}

func openWallet(cfg *config.Config, log logger.Logger) (*clients.EVMWallet, error) {
	var walletOpts []clients.EVMWalletOption
	if len(cfg.Chain.TokenContracts) > 0 {
		contracts := make(map[types.NetworkID]string, len(cfg.Chain.TokenContracts))
		for id, addr := range cfg.Chain.TokenContracts {
			contracts[types.NetworkID(id)] = addr
		}
		walletOpts = append(walletOpts, clients.WithTokenContracts(contracts))
	}
	return clients.NewEVMWallet(cfg.Chain.RPCURL, cfg.Chain.SignerKey, log, walletOpts...)
}

// Send runs one payment end to end and returns its receipt. Only one
// payment may be in flight; a finished one must be acknowledged first.
func (p *Paymo) Send(ctx context.Context, req *types.PaymentRequest) (*types.Receipt, error) {
	return p.orchestrator.Run(ctx, req)
}

// State reports the current workflow state.
func (p *Paymo) State() types.WorkflowState {
	return p.orchestrator.State()
}

// Acknowledge clears a finished payment so the next one can start.
func (p *Paymo) Acknowledge() error {
	return p.orchestrator.Acknowledge()
}

// Account returns the active account's address.
func (p *Paymo) Account(ctx context.Context) (string, error) {
	accounts, err := p.sdk.Accounts(ctx)
	if err != nil {
		return "", types.Errorf(types.ErrWalletConnect, "account enumeration failed: %v", err)
	}
	if len(accounts) == 0 {
		return "", types.Errorf(types.ErrWalletConnect, "no unlocked account")
	}
	return accounts[0], nil
}

// Network returns the chain the wallet is currently connected to.
func (p *Paymo) Network(ctx context.Context) (types.NetworkID, error) {
	return p.sdk.NetworkID(ctx)
}

// Balance fetches the active account's balance in the given currency.
func (p *Paymo) Balance(ctx context.Context, currency types.Currency) (*types.Balance, error) {
	account, err := p.Account(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := p.chain.Balance(ctx, account, currency)
	if err != nil {
		return nil, types.Errorf(types.ErrBalanceRead, "balance read failed: %v", err)
	}
	return balance, nil
}

// Transactions returns the active account's history on the current
// network, oldest first. History written by either side of a payment is
// visible here.
func (p *Paymo) Transactions(ctx context.Context) ([]*types.TransactionRecord, error) {
	account, err := p.Account(ctx)
	if err != nil {
		return nil, err
	}
	network, err := p.sdk.NetworkID(ctx)
	if err != nil {
		return nil, types.Errorf(types.ErrWalletConnect, "network lookup failed: %v", err)
	}
	return p.recorder.History(ctx, account, network.Name())
}

// Watch delivers account and network change notifications until ctx is
// done. Callers typically re-read Account, Network, and Balance on each
// notification.
func (p *Paymo) Watch(ctx context.Context) (<-chan wallet.Change, error) {
	return p.sdk.Changes(ctx)
}

// Close releases the wallet connection and the record store. Resources
// supplied through options are left open for their owner to close.
func (p *Paymo) Close() {
	if p.ownsWallet {
		p.sdk.Close()
	}
	if p.ownsStore {
		if err := p.store.Close(); err != nil {
			p.log.Warn("store close failed", map[string]any{"error": err.Error()})
		}
	}
}
