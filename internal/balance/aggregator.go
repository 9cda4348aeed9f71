// Package balance aggregates the holder's balances across every registered
// network into one asset-indexed view.
//
// EVM networks without a provider-side balance index are read in a single
// multicall round trip (native + every known token + vault custody), all
// networks in parallel. Indexed networks and the Tron family are served by
// the relay. One network failing degrades that network to zero balances; it
// never fails the aggregate call.
package balance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/availproject/nexus-sdk-sub001/internal/asset"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/relay"
)

// EvmCaller is the read-only RPC surface the aggregator needs per network.
type EvmCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Dialer opens an EvmCaller for a network RPC URL. Injected for tests.
type Dialer func(ctx context.Context, rpcURL string) (EvmCaller, error)

// IndexSource serves relay-indexed balances (indexed EVM networks and Tron).
type IndexSource interface {
	IndexedBalances(ctx context.Context, networkID uint64, address string) ([]relay.IndexedBalance, error)
	TronBalances(ctx context.Context, address string) ([]relay.IndexedBalance, error)
}

// Holder carries one address per connected address family.
type Holder struct {
	EVM  ecommon.Address
	Tron string // empty when no Tron-family account is connected
}

type Aggregator struct {
	reg       *registry.Registry
	index     IndexSource
	dial      Dialer
	logger    *logrus.Logger
	gasBuffer bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithGasBuffer subtracts a conservative native-gas reservation from each
// network's native balance before it is offered to the fee waterfall.
func WithGasBuffer() Option {
	return func(a *Aggregator) { a.gasBuffer = true }
}

func NewAggregator(reg *registry.Registry, index IndexSource, dial Dialer, logger *logrus.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		reg:    reg,
		index:  index,
		dial:   dial,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Unified fetches balances on every registered network in parallel and folds
// them into immutable per-symbol assets.
func (a *Aggregator) Unified(ctx context.Context, holder Holder) ([]asset.Asset, error) {
	networks := a.reg.Networks()
	rows := make([][]relay.IndexedBalance, len(networks))

	g, gctx := errgroup.WithContext(ctx)
	for _i, _net := range networks {
		i, net := _i, _net
		g.Go(func() error {
			fetched, err := a.fetchNetwork(gctx, net, holder)
			if err != nil {
				// Degrade, never fail the join: this network contributes
				// zero balances to the snapshot.
				a.logger.WithFields(logrus.Fields{
					"pkg":     "balance",
					"network": net.Name,
				}).WithError(err).Warn("balance fetch degraded to zero")
				fetched = zeroRows(net)
			}
			rows[i] = fetched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fold(networks, rows), nil
}

func (a *Aggregator) fetchNetwork(ctx context.Context, net registry.Network, holder Holder) ([]relay.IndexedBalance, error) {
	if net.Family == registry.FamilyTron {
		if holder.Tron == "" {
			return zeroRows(net), nil
		}
		return a.index.TronBalances(ctx, holder.Tron)
	}
	if net.HasBalanceIndex {
		return a.index.IndexedBalances(ctx, net.ID, holder.EVM.Hex())
	}
	return a.fetchMulticall(ctx, net, holder.EVM)
}

// fetchMulticall reads native, every known token and vault custody in one
// aggregate3 round trip.
func (a *Aggregator) fetchMulticall(ctx context.Context, net registry.Network, holder ecommon.Address) ([]relay.IndexedBalance, error) {
	caller, err := a.dial(ctx, net.RPCURL)
	if err != nil {
		return nil, err
	}

	mc := net.MulticallAddress()
	vault := net.VaultAddress()

	nativeCall, err := multicallABI.Pack("getEthBalance", holder)
	if err != nil {
		return nil, err
	}
	calls := []call3{{Target: mc, AllowFailure: true, CallData: nativeCall}}

	nativeCustody, err := vaultABI.Pack("balances", holder, ecommon.Address{})
	if err != nil {
		return nil, err
	}
	calls = append(calls, call3{Target: vault, AllowFailure: true, CallData: nativeCustody})

	for _, tok := range net.Tokens {
		tokenAddr := ecommon.HexToAddress(tok.Address)
		balanceOf, er := tokenABI.Pack("balanceOf", holder)
		if er != nil {
			return nil, er
		}
		custody, er := vaultABI.Pack("balances", holder, tokenAddr)
		if er != nil {
			return nil, er
		}
		calls = append(calls,
			call3{Target: tokenAddr, AllowFailure: true, CallData: balanceOf},
			call3{Target: vault, AllowFailure: true, CallData: custody},
		)
	}

	payload, err := packAggregate3(calls)
	if err != nil {
		return nil, err
	}
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &mc, Data: payload}, nil)
	if err != nil {
		return nil, err
	}
	results, err := unpackAggregate3(raw)
	if err != nil {
		return nil, err
	}
	if len(results) != len(calls) {
		return zeroRows(net), nil
	}

	value := func(i int) *big.Int {
		if !results[i].Success {
			return new(big.Int)
		}
		return unpackUint(results[i].ReturnData)
	}

	native := value(0)
	if a.gasBuffer {
		native = a.bufferNative(ctx, caller, net, native)
	}

	out := []relay.IndexedBalance{{
		NetworkID: net.ID,
		Token:     registry.NativeToken,
		Symbol:    net.NativeSymbol,
		Decimals:  net.NativeDecimal,
		Direct:    native.String(),
		Custodial: value(1).String(),
	}}
	for i, tok := range net.Tokens {
		out = append(out, relay.IndexedBalance{
			NetworkID: net.ID,
			Token:     tok.Address,
			Symbol:    tok.Symbol,
			Decimals:  tok.Decimals,
			Direct:    value(2 + i*2).String(),
			Custodial: value(3 + i*2).String(),
		})
	}
	return out, nil
}

// bufferNative reserves bufferNum/bufferDen * maxFeePerGas * fixedGasUnits
// out of the native balance. A reservation, not a simulation; it errs high
// so the waterfall never strands the user without gas.
func (a *Aggregator) bufferNative(ctx context.Context, caller EvmCaller, net registry.Network, native *big.Int) *big.Int {
	if net.FixedGasUnits == 0 || net.GasBufferDen == 0 {
		return native
	}
	maxFee, err := caller.SuggestGasPrice(ctx)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"pkg":     "balance",
			"network": net.Name,
		}).WithError(err).Warn("gas buffer estimate failed, offering unbuffered balance")
		return native
	}

	reserve := new(big.Int).Mul(maxFee, big.NewInt(net.FixedGasUnits))
	reserve.Mul(reserve, big.NewInt(net.GasBufferNum))
	reserve.Quo(reserve, big.NewInt(net.GasBufferDen))

	out := new(big.Int).Sub(native, reserve)
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

func zeroRows(net registry.Network) []relay.IndexedBalance {
	out := []relay.IndexedBalance{{
		NetworkID: net.ID,
		Token:     registry.NativeToken,
		Symbol:    net.NativeSymbol,
		Decimals:  net.NativeDecimal,
		Direct:    "0",
		Custodial: "0",
	}}
	for _, tok := range net.Tokens {
		out = append(out, relay.IndexedBalance{
			NetworkID: net.ID,
			Token:     tok.Address,
			Symbol:    tok.Symbol,
			Decimals:  tok.Decimals,
			Direct:    "0",
			Custodial: "0",
		})
	}
	return out
}

// fold merges per-network rows into per-symbol assets, preserving registry
// order inside each breakdown.
func fold(networks []registry.Network, rows [][]relay.IndexedBalance) []asset.Asset {
	var order []string
	bySymbol := map[string]*asset.Asset{}

	for i := range networks {
		for _, row := range rows[i] {
			a, ok := bySymbol[row.Symbol]
			if !ok {
				order = append(order, row.Symbol)
				a = &asset.Asset{Symbol: row.Symbol, Decimals: row.Decimals}
				bySymbol[row.Symbol] = a
			}
			if row.Decimals > a.Decimals {
				a.Decimals = row.Decimals
			}
			a.Breakdown = append(a.Breakdown, asset.NetworkBalance{
				NetworkID: row.NetworkID,
				Token:     row.Token,
				Decimals:  row.Decimals,
				Direct:    parseAmount(row.Direct),
				Custodial: parseAmount(row.Custodial),
			})
		}
	}

	out := make([]asset.Asset, 0, len(order))
	for _, sym := range order {
		out = append(out, *bySymbol[sym])
	}
	return out
}

func parseAmount(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
