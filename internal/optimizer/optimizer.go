// Package optimizer decides whether a destination-chain action needs value
// moved in first, and runs the action itself. The decision snapshots the
// destination balances once: both shortfalls at zero means the movement leg
// is skipped entirely.
package optimizer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/availproject/nexus-sdk-sub001/internal/asset"
	"github.com/availproject/nexus-sdk-sub001/internal/balance"
	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/evm"
	"github.com/availproject/nexus-sdk-sub001/internal/gasprice"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

// gasBufferPct pads simulated gas before it is priced.
const gasBufferPct = 15

// The OP-stack oracle's L1 data fee read.
const l1OracleJSON = `[
	{"name":"getL1Fee","type":"function","stateMutability":"view",
	 "inputs":[{"name":"data","type":"bytes"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var l1OracleABI abi.ABI

func init() {
	var err error
	l1OracleABI, err = abi.JSON(strings.NewReader(l1OracleJSON))
	if err != nil {
		panic(fmt.Sprintf("optimizer: bad l1 oracle abi: %v", err))
	}
}

// Action is the destination-chain call to optimize for.
type Action struct {
	NetworkID uint64
	To        string
	Data      []byte
	// Value is the native amount sent with the call.
	Value *big.Int
	// TokenSymbol and TokenAmount describe the asset the call consumes.
	// Symbol matching the network's native currency makes it a native action.
	TokenSymbol string
	TokenAmount *big.Int
	// Spender is approved for TokenAmount before token actions.
	Spender string
	// GasTokenRate converts native gas units into action-token units, scaled
	// by 1e18. Required to fund a gas shortfall for token actions.
	GasTokenRate *big.Int
}

// Estimate is the priced gas budget of an action.
type Estimate struct {
	GasUnits      uint64
	GasPrice      *big.Int
	L1Fee         *big.Int
	NeedsApproval bool
}

// Budget is the total native cost of running the action.
func (e Estimate) Budget() *big.Int {
	out := new(big.Int).SetUint64(e.GasUnits)
	out.Mul(out, e.GasPrice)
	if e.L1Fee != nil {
		out.Add(out, e.L1Fee)
	}
	return out
}

// Plan is the movement decision for one action.
type Plan struct {
	// SkipBridge means the destination already holds enough token and gas.
	SkipBridge bool
	// TokenShortfall is how much of the action token must be moved in,
	// token decimals.
	TokenShortfall *big.Int
	// GasShortfall is the missing native gas budget, wei.
	GasShortfall *big.Int
}

// Optimizer estimates, decides and runs destination actions.
type Optimizer struct {
	reg     *registry.Registry
	conn    *wallet.Connection
	clients *evm.Manager
	logger  *logrus.Logger
}

func New(reg *registry.Registry, conn *wallet.Connection, clients *evm.Manager, logger *logrus.Logger) *Optimizer {
	return &Optimizer{
		reg:     reg,
		conn:    conn,
		clients: clients,
		logger:  logger,
	}
}

// Estimate simulates the action (plus its approval when the spender's
// allowance falls short), prices the buffered gas at the medium recommended
// tier and adds the L1 data fee on networks that charge one.
func (o *Optimizer) Estimate(ctx context.Context, action Action) (Estimate, error) {
	net, err := o.reg.Network(action.NetworkID)
	if err != nil {
		return Estimate{}, err
	}
	if net.Family != registry.FamilyEVM {
		return Estimate{}, cerrs.OnNetwork(cerrs.CodeUnsupported, action.NetworkID,
			"actions are only supported on evm networks", nil)
	}

	client, err := o.clients.Get(ctx, action.NetworkID)
	if err != nil {
		return Estimate{}, err
	}

	from := o.conn.Address()
	to := ecommon.HexToAddress(action.To)
	units, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: action.Value,
		Data:  action.Data,
	})
	if err != nil {
		return Estimate{}, cerrs.OnNetwork(cerrs.CodeOnChain, action.NetworkID,
			"action simulation failed", err)
	}

	est := Estimate{GasUnits: units}

	if tok, ok := o.actionToken(net, action); ok && action.Spender != "" {
		short, approveUnits, err := o.approvalCost(ctx, client, net, tok, action)
		if err != nil {
			return Estimate{}, err
		}
		if short {
			est.NeedsApproval = true
			est.GasUnits += approveUnits
		}
	}

	est.GasUnits += est.GasUnits * gasBufferPct / 100

	rec, err := gasprice.NewRecommender(client).Recommend(ctx)
	if err != nil {
		return Estimate{}, err
	}
	est.GasPrice = rec.For(gasprice.TierMedium)

	if net.L1FeeOracle != "" {
		fee, err := o.l1Fee(ctx, client, net, action.Data)
		if err != nil {
			return Estimate{}, cerrs.OnNetwork(cerrs.CodeOnChain, action.NetworkID,
				"failed to read l1 data fee", err)
		}
		est.L1Fee = fee
	}
	return est, nil
}

// Decide snapshots the destination balances against the action's needs.
// Native actions fold the token need into the gas budget and measure one
// combined shortfall; token actions measure the two independently.
func (o *Optimizer) Decide(action Action, assets []asset.Asset, est Estimate) (Plan, error) {
	net, err := o.reg.Network(action.NetworkID)
	if err != nil {
		return Plan{}, err
	}

	nativeAvail := availableOn(assets, net.NativeSymbol, action.NetworkID)
	budget := est.Budget()

	if action.TokenSymbol == "" || strings.EqualFold(action.TokenSymbol, net.NativeSymbol) {
		need := new(big.Int).Add(amountOrZero(action.TokenAmount), budget)
		short := new(big.Int).Sub(need, nativeAvail)
		if short.Sign() <= 0 {
			return Plan{SkipBridge: true, TokenShortfall: new(big.Int), GasShortfall: new(big.Int)}, nil
		}
		// The token need is covered first; whatever remains is gas.
		tokenShort := minBig(short, amountOrZero(action.TokenAmount))
		return Plan{
			TokenShortfall: tokenShort,
			GasShortfall:   new(big.Int).Sub(short, tokenShort),
		}, nil
	}

	tokenAvail := availableOn(assets, action.TokenSymbol, action.NetworkID)
	tokenShort := new(big.Int).Sub(amountOrZero(action.TokenAmount), tokenAvail)
	if tokenShort.Sign() < 0 {
		tokenShort = new(big.Int)
	}
	gasShort := new(big.Int).Sub(budget, nativeAvail)
	if gasShort.Sign() < 0 {
		gasShort = new(big.Int)
	}

	return Plan{
		SkipBridge:     tokenShort.Sign() == 0 && gasShort.Sign() == 0,
		TokenShortfall: tokenShort,
		GasShortfall:   gasShort,
	}, nil
}

// Execute runs the action on its network: approval first when the estimate
// called for one, then the action itself, both waited to a receipt. The
// wallet stays on the action network afterwards; it is the destination.
func (o *Optimizer) Execute(ctx context.Context, action Action, est Estimate) (string, error) {
	net, err := o.reg.Network(action.NetworkID)
	if err != nil {
		return "", err
	}
	if err := o.conn.SwitchTo(ctx, action.NetworkID); err != nil {
		if wallet.IsRejected(err) {
			return "", cerrs.Wrap(cerrs.CodeUserDeclined, "network switch declined", err)
		}
		return "", fmt.Errorf("failed to switch to network %d: %w", action.NetworkID, err)
	}

	client, err := o.clients.Get(ctx, action.NetworkID)
	if err != nil {
		return "", err
	}
	from := o.conn.Address()

	if est.NeedsApproval {
		tok, ok := o.actionToken(net, action)
		if !ok {
			return "", cerrs.OnNetwork(cerrs.CodeUnsupported, action.NetworkID,
				"unknown action token "+action.TokenSymbol, nil)
		}
		if err := o.approve(ctx, client, net, tok, action, from); err != nil {
			return "", err
		}
	}

	to := ecommon.HexToAddress(action.To)
	txHash, err := o.conn.Provider().SendTransaction(ctx, action.NetworkID, wallet.TxRequest{
		From:  from,
		To:    &to,
		Value: action.Value,
		Data:  action.Data,
		Gas:   est.GasUnits,
	})
	if wallet.IsRejected(err) {
		return "", cerrs.Wrap(cerrs.CodeUserDeclined, "action declined", err)
	}
	if err != nil {
		return "", cerrs.OnNetwork(cerrs.CodeOnChain, action.NetworkID, "failed to send action", err)
	}
	if _, err := evm.WaitMined(ctx, client, action.NetworkID, txHash); err != nil {
		return "", err
	}

	o.logger.WithFields(logrus.Fields{
		"pkg":     "optimizer",
		"network": action.NetworkID,
		"tx":      txHash.Hex(),
	}).Info("action executed")
	return txHash.Hex(), nil
}

func (o *Optimizer) actionToken(net registry.Network, action Action) (registry.Token, bool) {
	if action.TokenSymbol == "" || strings.EqualFold(action.TokenSymbol, net.NativeSymbol) {
		return registry.Token{}, false
	}
	for _, tok := range net.Tokens {
		if strings.EqualFold(tok.Symbol, action.TokenSymbol) {
			return tok, true
		}
	}
	return registry.Token{}, false
}

// approvalCost reads the spender's allowance and simulates the approve when
// it falls short.
func (o *Optimizer) approvalCost(ctx context.Context, client evm.Client, net registry.Network, tok registry.Token, action Action) (bool, uint64, error) {
	from := o.conn.Address()
	data, err := balance.ERC20ABI().Pack("allowance", from, ecommon.HexToAddress(action.Spender))
	if err != nil {
		return false, 0, fmt.Errorf("failed to pack allowance: %w", err)
	}
	tokenAddr := ecommon.HexToAddress(tok.Address)
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return false, 0, cerrs.OnNetwork(cerrs.CodeOnChain, net.ID, "failed to read spender allowance", err)
	}
	if new(big.Int).SetBytes(out).Cmp(amountOrZero(action.TokenAmount)) >= 0 {
		return false, 0, nil
	}

	approveData, err := balance.ERC20ABI().Pack("approve", ecommon.HexToAddress(action.Spender), amountOrZero(action.TokenAmount))
	if err != nil {
		return false, 0, fmt.Errorf("failed to pack approve: %w", err)
	}
	units, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &tokenAddr,
		Data: approveData,
	})
	if err != nil {
		return false, 0, cerrs.OnNetwork(cerrs.CodeOnChain, net.ID, "approval simulation failed", err)
	}
	return true, units, nil
}

func (o *Optimizer) approve(ctx context.Context, client evm.Client, net registry.Network, tok registry.Token, action Action, from ecommon.Address) error {
	data, err := balance.ERC20ABI().Pack("approve", ecommon.HexToAddress(action.Spender), amountOrZero(action.TokenAmount))
	if err != nil {
		return fmt.Errorf("failed to pack approve: %w", err)
	}
	tokenAddr := ecommon.HexToAddress(tok.Address)
	txHash, err := o.conn.Provider().SendTransaction(ctx, action.NetworkID, wallet.TxRequest{
		From: from,
		To:   &tokenAddr,
		Data: data,
	})
	if wallet.IsRejected(err) {
		return cerrs.Wrap(cerrs.CodeUserDeclined, "approval declined", err)
	}
	if err != nil {
		return cerrs.OnNetwork(cerrs.CodeOnChain, action.NetworkID, "failed to send approval", err)
	}
	_, err = evm.WaitMined(ctx, client, action.NetworkID, txHash)
	return err
}

func (o *Optimizer) l1Fee(ctx context.Context, client evm.Client, net registry.Network, txData []byte) (*big.Int, error) {
	data, err := l1OracleABI.Pack("getL1Fee", txData)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getL1Fee: %w", err)
	}
	oracle := ecommon.HexToAddress(net.L1FeeOracle)
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &oracle, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

// availableOn sums direct plus custodial for a symbol on one network.
func availableOn(assets []asset.Asset, symbol string, networkID uint64) *big.Int {
	a, ok := asset.Find(assets, symbol)
	if !ok {
		return new(big.Int)
	}
	row, ok := a.On(networkID)
	if !ok {
		return new(big.Int)
	}
	return row.Available()
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
