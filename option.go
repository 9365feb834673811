package paymo

import (
	"time"

	"github.com/mainframehq/paymo-go/clients"
	"github.com/mainframehq/paymo-go/logger"
	"github.com/mainframehq/paymo-go/metrics"
	"github.com/mainframehq/paymo-go/store"
	"github.com/mainframehq/paymo-go/types"
	"github.com/mainframehq/paymo-go/wallet"
	"github.com/mainframehq/paymo-go/workflow"
)

type Option func(*Paymo)

func WithLogger(l logger.Logger) Option {
	return func(p *Paymo) {
		p.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *Paymo) {
		p.metrics = r
	}
}

// WithStore replaces the config-selected record store. The caller keeps
// ownership; Close will not close it.
func WithStore(s store.Store) Option {
	return func(p *Paymo) {
		p.store = s
	}
}

// WithWallet replaces the config-built wallet connection. The caller keeps
// ownership; Close will not close it.
func WithWallet(sdk wallet.SDK, chain clients.ChainClient) Option {
	return func(p *Paymo) {
		p.sdk = sdk
		p.chain = chain
	}
}

func WithConfirmTimeout(d time.Duration) Option {
	return func(p *Paymo) {
		p.confirmTimeout = d
	}
}

func WithNetworkPolicy(policy types.NetworkPolicy) Option {
	return func(p *Paymo) {
		p.policy = policy
	}
}

// WithTransitionHook observes workflow state changes, for UIs that render
// submission progress.
func WithTransitionHook(h workflow.TransitionHook) Option {
	return func(p *Paymo) {
		p.hook = h
	}
}
