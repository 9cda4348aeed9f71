// Package nexus is the chain-abstraction settlement SDK: one balance across
// every supported network, spendable anywhere. It aggregates balances,
// builds fee-inclusive settlement intents, orchestrates vault allowances and
// drives requests through the relay to fulfillment.
package nexus

import (
	"context"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/availproject/nexus-sdk-sub001/internal/asset"
	"github.com/availproject/nexus-sdk-sub001/internal/balance"
	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/evm"
	"github.com/availproject/nexus-sdk-sub001/internal/intent"
	"github.com/availproject/nexus-sdk-sub001/internal/optimizer"
	"github.com/availproject/nexus-sdk-sub001/internal/permit"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/relay"
	"github.com/availproject/nexus-sdk-sub001/internal/settle"
	"github.com/availproject/nexus-sdk-sub001/internal/steps"
	"github.com/availproject/nexus-sdk-sub001/internal/tron"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

// defaultFulfillmentTimeout bounds the post-submission wait.
const defaultFulfillmentTimeout = 5 * time.Minute

// Aliases so consumers never import the internal packages directly.
type (
	Provider     = wallet.Provider
	TronSigner   = wallet.TronSigner
	Subscription = wallet.Subscription
	TxRequest    = wallet.TxRequest
	LogQuery     = wallet.LogQuery
	BuildRequest = intent.BuildRequest
	Intent       = intent.Intent
	Asset        = asset.Asset
	EvmClient    = evm.Client

	AllowanceRequirement = permit.Requirement
	AllowanceChoice      = permit.Choice
	StepEvent            = steps.Event
)

// Allowance choice kinds.
const (
	AllowanceMin   = permit.ChoiceMin
	AllowanceMax   = permit.ChoiceMax
	AllowanceExact = permit.ChoiceExact
)

// ErrRejected is the provider-side user-rejection sentinel.
var ErrRejected = wallet.ErrRejected

// Config tunes an SDK instance. Zero values fall back to production
// defaults.
type Config struct {
	RelayURL    string
	TronNodeURL string
	// Networks overrides the built-in registry.
	Networks *registry.Registry
	// Schedule overrides the built-in fee schedule.
	Schedule *intent.Schedule
	// FulfillmentTimeout bounds how long Execute waits for the destination
	// vault before resolving unconfirmed.
	FulfillmentTimeout time.Duration
	// GasBuffer reserves native gas headroom before balances are offered to
	// the intent builder.
	GasBuffer bool
	Logger    *logrus.Logger
	// EvmDialer overrides how per-network RPC clients are opened. Nil uses
	// the standard websocket/https dialer.
	EvmDialer func(ctx context.Context, rpcURL string) (EvmClient, error)
}

// SDK is the public facade. One instance serves one connected wallet.
type SDK struct {
	reg        *registry.Registry
	conn       *wallet.Connection
	clients    *evm.Manager
	aggregator *balance.Aggregator
	builder    *intent.Builder
	permits    *permit.Orchestrator
	protocol   *settle.Protocol
	actions    *optimizer.Optimizer
	logger     *logrus.Logger

	fulfillTimeout time.Duration
}

// New wires an SDK over a wallet provider. The Tron signer may be nil when no
// Tron-family account is connected.
func New(provider wallet.Provider, tronSigner wallet.TronSigner, cfg Config) *SDK {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	reg := cfg.Networks
	if reg == nil {
		reg = registry.Mainnet()
	}
	schedule := intent.DefaultSchedule()
	if cfg.Schedule != nil {
		schedule = *cfg.Schedule
	}
	timeout := cfg.FulfillmentTimeout
	if timeout <= 0 {
		timeout = defaultFulfillmentTimeout
	}

	dialer := evm.Dialer(cfg.EvmDialer)
	if dialer == nil {
		dialer = evm.Dial
	}

	conn := wallet.NewConnection(provider, tronSigner, logger)
	relayc := relay.NewClient(cfg.RelayURL)
	clients := evm.NewManager(reg, dialer)

	tronc := tron.NewClient(cfg.TronNodeURL)
	tronApprove := tron.NewApproveService(tronc)
	tronSign := tron.NewSignerService(tronc, logger)

	var aggOpts []balance.Option
	if cfg.GasBuffer {
		aggOpts = append(aggOpts, balance.WithGasBuffer())
	}
	dial := func(ctx context.Context, rpcURL string) (balance.EvmCaller, error) {
		return dialer(ctx, rpcURL)
	}

	return &SDK{
		reg:            reg,
		conn:           conn,
		clients:        clients,
		aggregator:     balance.NewAggregator(reg, relayc, dial, logger, aggOpts...),
		builder:        intent.NewBuilder(reg, schedule),
		permits:        permit.NewOrchestrator(reg, conn, clients, relayc, tronApprove, tronSign, logger),
		protocol:       settle.NewProtocol(reg, conn, clients, relayc, logger),
		actions:        optimizer.New(reg, conn, clients, logger),
		logger:         logger,
		fulfillTimeout: timeout,
	}
}

// Networks returns the active registry.
func (s *SDK) Networks() *registry.Registry { return s.reg }

// GetUnifiedBalances aggregates the connected wallet's balances across every
// registered network.
func (s *SDK) GetUnifiedBalances(ctx context.Context) ([]asset.Asset, error) {
	if err := s.conn.Revalidate(ctx); err != nil {
		return nil, err
	}
	return s.aggregator.Unified(ctx, balance.Holder{
		EVM:  s.conn.Address(),
		Tron: s.conn.TronAddress(),
	})
}

// GetAllowance reads the vault allowance the connected wallet has granted
// for a token on one network.
func (s *SDK) GetAllowance(ctx context.Context, networkID uint64, symbol string) (*big.Int, error) {
	if err := s.conn.Revalidate(ctx); err != nil {
		return nil, err
	}
	_, tok, err := s.reg.LookupToken(networkID, symbol)
	if err != nil {
		return nil, err
	}
	return s.permits.Allowance(ctx, networkID, tok.Address, s.conn.Address().Hex())
}

// BuildIntent builds an intent against fresh balances and validates it.
func (s *SDK) BuildIntent(ctx context.Context, req intent.BuildRequest) (*intent.Intent, error) {
	in, err := s.Simulate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// Simulate builds an intent and returns it without executing anything.
// Insufficient balance is reported on the intent, not as an error.
func (s *SDK) Simulate(ctx context.Context, req intent.BuildRequest) (*intent.Intent, error) {
	if err := s.conn.Revalidate(ctx); err != nil {
		return nil, err
	}
	assets, err := s.aggregator.Unified(ctx, balance.Holder{
		EVM:  s.conn.Address(),
		Tron: s.conn.TronAddress(),
	})
	if err != nil {
		return nil, err
	}
	if req.HolderEVM == "" {
		req.HolderEVM = s.conn.Address().Hex()
	}
	if req.HolderTron == "" {
		req.HolderTron = s.conn.TronAddress()
	}
	if req.Recipient == "" {
		recipient, err := s.defaultRecipient(req.NetworkID)
		if err != nil {
			return nil, err
		}
		req.Recipient = recipient
	}
	return s.builder.Build(req, assets)
}

// defaultRecipient picks the connected address matching the destination
// family. A Tron destination needs a connected Tron signer; an EVM hex
// address cannot receive there.
func (s *SDK) defaultRecipient(networkID uint64) (string, error) {
	net, err := s.reg.Network(networkID)
	if err != nil {
		return "", err
	}
	if net.Family == registry.FamilyTron {
		if s.conn.TronAddress() == "" {
			return "", cerrs.OnNetwork(cerrs.CodeUnsupported, net.ID, "no tron signer connected", nil)
		}
		return s.conn.TronAddress(), nil
	}
	return s.conn.Address().Hex(), nil
}
