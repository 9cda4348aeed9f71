package balance

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/availproject/nexus-sdk-sub001/internal/asset"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/relay"
)

func testRegistry() *registry.Registry {
	return registry.New([]registry.Network{
		{
			ID: 10, Name: "optimism", Family: registry.FamilyEVM,
			RPCURL: "rpc://10", NativeSymbol: "ETH", NativeDecimal: 18,
			Vault:     "0x63aF1f6eE2e0bD7E1E7a549a14D1f4d289e19BA9",
			Multicall: "0xcA11bde05977b3631167028862bE2a173976CA11",
			Tokens: []registry.Token{
				{Symbol: "USDC", Address: "0x0b2C639c533813f4Aa9D7837CACdC7094355cAe2", Decimals: 6, Permit: registry.PermitEIP2612},
			},
			GasBufferNum: 3, GasBufferDen: 2, FixedGasUnits: 300_000,
		},
		{
			ID: 43114, Name: "avalanche", Family: registry.FamilyEVM,
			RPCURL: "rpc://43114", NativeSymbol: "AVAX", NativeDecimal: 18,
			HasBalanceIndex: true,
			Tokens: []registry.Token{
				{Symbol: "USDC", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Decimals: 6},
			},
		},
	})
}

// fakeCaller answers an aggregate3 round trip with fixed per-call values.
type fakeCaller struct {
	values   []*big.Int
	gasPrice *big.Int
	err      error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	results := make([]call3Result, len(f.values))
	for i, v := range f.values {
		word := make([]byte, 32)
		v.FillBytes(word)
		results[i] = call3Result{Success: true, ReturnData: word}
	}
	return multicallABI.Methods["aggregate3"].Outputs.Pack(results)
}

func (f *fakeCaller) SuggestGasPrice(context.Context) (*big.Int, error) {
	if f.gasPrice == nil {
		return big.NewInt(0), nil
	}
	return f.gasPrice, nil
}

type fakeIndex struct {
	rows []relay.IndexedBalance
	err  error
}

func (f *fakeIndex) IndexedBalances(context.Context, uint64, string) ([]relay.IndexedBalance, error) {
	return f.rows, f.err
}

func (f *fakeIndex) TronBalances(context.Context, string) ([]relay.IndexedBalance, error) {
	return f.rows, f.err
}

func holder() Holder {
	return Holder{EVM: ecommon.HexToAddress("0x1111111111111111111111111111111111111111")}
}

func TestUnifiedMergesMulticallAndIndex(t *testing.T) {
	// Multicall order: native, native custody, USDC, USDC custody.
	caller := &fakeCaller{values: []*big.Int{
		big.NewInt(2e18), big.NewInt(0), big.NewInt(60_000_000), big.NewInt(5_000_000),
	}}
	index := &fakeIndex{rows: []relay.IndexedBalance{
		{NetworkID: 43114, Token: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Symbol: "USDC", Decimals: 6, Direct: "40000000", Custodial: "0"},
	}}

	agg := NewAggregator(testRegistry(), index,
		func(context.Context, string) (EvmCaller, error) { return caller, nil },
		logrus.New())

	assets, err := agg.Unified(context.Background(), holder())
	require.NoError(t, err)

	usdc, ok := asset.Find(assets, "USDC")
	require.True(t, ok)
	// 60 direct + 5 custodial on optimism, 40 direct on avalanche.
	require.Equal(t, "105000000", usdc.Total().String())

	op, ok := usdc.On(10)
	require.True(t, ok)
	require.Equal(t, "60000000", op.Direct.String())
	require.Equal(t, "5000000", op.Custodial.String())

	eth, ok := asset.Find(assets, "ETH")
	require.True(t, ok)
	require.Equal(t, big.NewInt(2e18).String(), eth.Total().String())
}

func TestUnifiedDegradesFailedNetwork(t *testing.T) {
	index := &fakeIndex{err: errors.New("relay down")}
	caller := &fakeCaller{values: []*big.Int{
		big.NewInt(1e18), big.NewInt(0), big.NewInt(10_000_000), big.NewInt(0),
	}}

	agg := NewAggregator(testRegistry(), index,
		func(context.Context, string) (EvmCaller, error) { return caller, nil },
		logrus.New())

	assets, err := agg.Unified(context.Background(), holder())
	require.NoError(t, err, "a single network failure must not fail the aggregate")

	usdc, ok := asset.Find(assets, "USDC")
	require.True(t, ok)
	require.Equal(t, "10000000", usdc.Total().String())

	av, ok := usdc.On(43114)
	require.True(t, ok)
	require.Equal(t, "0", av.Direct.String())
}

func TestUnifiedDegradesFailedDial(t *testing.T) {
	agg := NewAggregator(testRegistry(), &fakeIndex{},
		func(context.Context, string) (EvmCaller, error) { return nil, errors.New("dial failed") },
		logrus.New())

	assets, err := agg.Unified(context.Background(), holder())
	require.NoError(t, err)

	eth, ok := asset.Find(assets, "ETH")
	require.True(t, ok)
	require.Equal(t, "0", eth.Total().String())
}

func TestGasBufferReservation(t *testing.T) {
	// 2 ETH native; reserve = 3/2 * 1 gwei * 300k = 0.00045 ETH.
	caller := &fakeCaller{
		values:   []*big.Int{big.NewInt(2e18), big.NewInt(0), big.NewInt(0), big.NewInt(0)},
		gasPrice: big.NewInt(1_000_000_000),
	}

	agg := NewAggregator(testRegistry(), &fakeIndex{},
		func(context.Context, string) (EvmCaller, error) { return caller, nil },
		logrus.New(), WithGasBuffer())

	assets, err := agg.Unified(context.Background(), holder())
	require.NoError(t, err)

	eth, _ := asset.Find(assets, "ETH")
	op, _ := eth.On(10)
	want := new(big.Int).Sub(big.NewInt(2e18), big.NewInt(450_000_000_000_000))
	require.Equal(t, want.String(), op.Direct.String())
}

func TestGasBufferNeverNegative(t *testing.T) {
	caller := &fakeCaller{
		values:   []*big.Int{big.NewInt(1000), big.NewInt(0), big.NewInt(0), big.NewInt(0)},
		gasPrice: big.NewInt(1_000_000_000),
	}

	agg := NewAggregator(testRegistry(), &fakeIndex{},
		func(context.Context, string) (EvmCaller, error) { return caller, nil },
		logrus.New(), WithGasBuffer())

	assets, err := agg.Unified(context.Background(), holder())
	require.NoError(t, err)

	eth, _ := asset.Find(assets, "ETH")
	op, _ := eth.On(10)
	require.Equal(t, "0", op.Direct.String())
}
