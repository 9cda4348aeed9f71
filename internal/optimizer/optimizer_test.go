package optimizer

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/availproject/nexus-sdk-sub001/internal/asset"
	"github.com/availproject/nexus-sdk-sub001/internal/balance"
	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/evm"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

const (
	holderHex = "0x1111111111111111111111111111111111111111"
	baseUSDC  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	router    = "0x2222222222222222222222222222222222222222"
)

var gwei = big.NewInt(1_000_000_000)

type rpcStub struct {
	allowance  *big.Int
	l1Fee      *big.Int
	actionGas  uint64
	approveGas uint64
	estimated  []ethereum.CallMsg
}

func (s *rpcStub) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	switch {
	case bytes.HasPrefix(msg.Data, balance.ERC20ABI().Methods["allowance"].ID):
		return ecommon.LeftPadBytes(s.allowance.Bytes(), 32), nil
	case bytes.HasPrefix(msg.Data, l1OracleABI.Methods["getL1Fee"].ID):
		return ecommon.LeftPadBytes(s.l1Fee.Bytes(), 32), nil
	}
	return nil, errors.New("unexpected call")
}

func (s *rpcStub) SuggestGasPrice(context.Context) (*big.Int, error) { return gwei, nil }

func (s *rpcStub) FeeHistory(context.Context, uint64, *big.Int, []float64) (*ethereum.FeeHistory, error) {
	reward := make([][]*big.Int, 5)
	for i := range reward {
		reward[i] = []*big.Int{
			big.NewInt(1_000_000_000), big.NewInt(2_000_000_000),
			big.NewInt(3_000_000_000), big.NewInt(4_000_000_000),
		}
	}
	baseFee := make([]*big.Int, 6)
	for i := range baseFee {
		baseFee[i] = big.NewInt(50_000_000_000)
	}
	return &ethereum.FeeHistory{Reward: reward, BaseFee: baseFee}, nil
}

func (s *rpcStub) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	s.estimated = append(s.estimated, msg)
	if bytes.HasPrefix(msg.Data, balance.ERC20ABI().Methods["approve"].ID) {
		return s.approveGas, nil
	}
	return s.actionGas, nil
}

func (s *rpcStub) TransactionReceipt(context.Context, ecommon.Hash) (*etypes.Receipt, error) {
	return &etypes.Receipt{Status: etypes.ReceiptStatusSuccessful}, nil
}

type fakeProvider struct {
	sent []wallet.TxRequest
}

func (p *fakeProvider) Accounts(context.Context) ([]ecommon.Address, error) {
	return []ecommon.Address{ecommon.HexToAddress(holderHex)}, nil
}

func (p *fakeProvider) ChainID(context.Context) (uint64, error) { return 8453, nil }

func (p *fakeProvider) SwitchNetwork(context.Context, uint64) error { return nil }

func (p *fakeProvider) SendTransaction(_ context.Context, _ uint64, tx wallet.TxRequest) (ecommon.Hash, error) {
	p.sent = append(p.sent, tx)
	return ecommon.HexToHash("0xeeee"), nil
}

func (p *fakeProvider) SignTypedData(context.Context, apitypes.TypedData) ([]byte, error) {
	return bytes.Repeat([]byte{0xab}, 65), nil
}

func (p *fakeProvider) SignMessage(context.Context, []byte) ([]byte, error) {
	return bytes.Repeat([]byte{0xcd}, 65), nil
}

func (p *fakeProvider) SubscribeLogs(context.Context, uint64, wallet.LogQuery) (wallet.Subscription, error) {
	return nil, errors.New("not implemented")
}

func newOptimizer(t *testing.T, stub *rpcStub, provider *fakeProvider) *Optimizer {
	t.Helper()
	reg := registry.Mainnet()
	logger := logrus.New()

	conn := wallet.NewConnection(provider, nil, logger)
	require.NoError(t, conn.Revalidate(context.Background()))

	dial := func(ctx context.Context, rpcURL string) (evm.Client, error) { return stub, nil }
	return New(reg, conn, evm.NewManager(reg, dial), logger)
}

func usdcAction(amount int64) Action {
	return Action{
		NetworkID:   8453,
		To:          router,
		Data:        []byte{0xaa, 0xbb},
		Value:       big.NewInt(0),
		TokenSymbol: "USDC",
		TokenAmount: big.NewInt(amount),
		Spender:     router,
	}
}

func holdings(usdc, eth int64) []asset.Asset {
	return []asset.Asset{
		{Symbol: "USDC", Decimals: 6, Breakdown: []asset.NetworkBalance{
			{NetworkID: 8453, Token: baseUSDC, Decimals: 6, Direct: big.NewInt(usdc), Custodial: big.NewInt(0)},
		}},
		{Symbol: "ETH", Decimals: 18, Breakdown: []asset.NetworkBalance{
			{NetworkID: 8453, Token: registry.NativeToken, Decimals: 18, Direct: big.NewInt(eth), Custodial: big.NewInt(0)},
		}},
	}
}

func TestEstimateAddsApprovalWhenAllowanceShort(t *testing.T) {
	stub := &rpcStub{allowance: big.NewInt(0), l1Fee: big.NewInt(7_000_000_000_000), actionGas: 100_000, approveGas: 50_000}
	o := newOptimizer(t, stub, &fakeProvider{})

	est, err := o.Estimate(context.Background(), usdcAction(25_000_000))
	require.NoError(t, err)

	require.True(t, est.NeedsApproval)
	// (100k action + 50k approve) buffered by 15%.
	require.Equal(t, uint64(172_500), est.GasUnits)
	// Medium tier: 50 gwei base fee buffered 12% plus the 35th-percentile
	// reward average.
	require.Equal(t, big.NewInt(58_000_000_000), est.GasPrice)
	// Base charges an L1 data fee.
	require.Equal(t, big.NewInt(7_000_000_000_000), est.L1Fee)

	want := new(big.Int).Mul(big.NewInt(172_500), big.NewInt(58_000_000_000))
	want.Add(want, big.NewInt(7_000_000_000_000))
	require.Equal(t, want, est.Budget())
}

func TestEstimateSkipsApprovalWhenAllowanceCovers(t *testing.T) {
	stub := &rpcStub{allowance: big.NewInt(1_000_000_000), actionGas: 100_000, approveGas: 50_000, l1Fee: big.NewInt(0)}
	o := newOptimizer(t, stub, &fakeProvider{})

	est, err := o.Estimate(context.Background(), usdcAction(25_000_000))
	require.NoError(t, err)
	require.False(t, est.NeedsApproval)
	require.Equal(t, uint64(115_000), est.GasUnits)
}

func TestDecideSkipsWhenFunded(t *testing.T) {
	o := newOptimizer(t, &rpcStub{}, &fakeProvider{})

	est := Estimate{GasUnits: 100_000, GasPrice: gwei}
	plan, err := o.Decide(usdcAction(25_000_000), holdings(30_000_000, 1_000_000_000_000_000), est)
	require.NoError(t, err)
	require.True(t, plan.SkipBridge)
	require.Zero(t, plan.TokenShortfall.Sign())
	require.Zero(t, plan.GasShortfall.Sign())
}

func TestDecideTokenActionIndependentShortfalls(t *testing.T) {
	o := newOptimizer(t, &rpcStub{}, &fakeProvider{})

	// Budget = 100k gas * 1 gwei = 1e14 wei.
	est := Estimate{GasUnits: 100_000, GasPrice: gwei}
	plan, err := o.Decide(usdcAction(25_000_000), holdings(10_000_000, 40_000_000_000_000), est)
	require.NoError(t, err)

	require.False(t, plan.SkipBridge)
	require.Equal(t, big.NewInt(15_000_000), plan.TokenShortfall)
	require.Equal(t, big.NewInt(60_000_000_000_000), plan.GasShortfall)
}

func TestDecideNativeActionCombinedShortfall(t *testing.T) {
	o := newOptimizer(t, &rpcStub{}, &fakeProvider{})

	action := Action{
		NetworkID:   8453,
		To:          router,
		Value:       big.NewInt(500_000_000_000_000),
		TokenSymbol: "ETH",
		TokenAmount: big.NewInt(500_000_000_000_000),
	}
	// Budget 1e14; need 5e14 + 1e14 = 6e14; available 2e14; short 4e14.
	est := Estimate{GasUnits: 100_000, GasPrice: gwei}
	plan, err := o.Decide(action, holdings(0, 200_000_000_000_000), est)
	require.NoError(t, err)

	require.False(t, plan.SkipBridge)
	// Token need absorbs the shortfall first.
	require.Equal(t, big.NewInt(400_000_000_000_000), plan.TokenShortfall)
	require.Zero(t, plan.GasShortfall.Sign())
}

func TestDecideNativeActionGasRemainder(t *testing.T) {
	o := newOptimizer(t, &rpcStub{}, &fakeProvider{})

	action := Action{
		NetworkID:   8453,
		To:          router,
		Value:       big.NewInt(100_000_000_000_000),
		TokenSymbol: "ETH",
		TokenAmount: big.NewInt(100_000_000_000_000),
	}
	// Need 1e14 + 1e14; nothing available: token part 1e14, gas part 1e14.
	est := Estimate{GasUnits: 100_000, GasPrice: gwei}
	plan, err := o.Decide(action, holdings(0, 0), est)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(100_000_000_000_000), plan.TokenShortfall)
	require.Equal(t, big.NewInt(100_000_000_000_000), plan.GasShortfall)
}

func TestExecuteSendsApprovalThenAction(t *testing.T) {
	stub := &rpcStub{allowance: big.NewInt(0), actionGas: 100_000, approveGas: 50_000}
	provider := &fakeProvider{}
	o := newOptimizer(t, stub, provider)

	est := Estimate{GasUnits: 172_500, GasPrice: gwei, NeedsApproval: true}
	txHash, err := o.Execute(context.Background(), usdcAction(25_000_000), est)
	require.NoError(t, err)
	require.Equal(t, ecommon.HexToHash("0xeeee").Hex(), txHash)

	require.Len(t, provider.sent, 2)
	require.Equal(t, baseUSDC, provider.sent[0].To.Hex())
	require.Equal(t, router, ecommon.HexToAddress(provider.sent[1].To.Hex()).Hex())
	require.Equal(t, uint64(172_500), provider.sent[1].Gas)
}

func TestEstimateRejectsTronAction(t *testing.T) {
	o := newOptimizer(t, &rpcStub{}, &fakeProvider{})

	_, err := o.Estimate(context.Background(), Action{NetworkID: registry.TronMainnetID, To: router})
	require.True(t, cerrs.Is(err, cerrs.CodeUnsupported))
}
