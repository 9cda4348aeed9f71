package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
)

type fakeClient struct {
	receipts []*etypes.Receipt
	errs     []error
	calls    int
}

func (f *fakeClient) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeClient) FeeHistory(context.Context, uint64, *big.Int, []float64) (*ethereum.FeeHistory, error) {
	return &ethereum.FeeHistory{}, nil
}

func (f *fakeClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeClient) TransactionReceipt(context.Context, ecommon.Hash) (*etypes.Receipt, error) {
	i := f.calls
	f.calls++
	if i >= len(f.receipts) {
		i = len(f.receipts) - 1
	}
	return f.receipts[i], f.errs[i]
}

func TestWaitMinedPollsUntilReceipt(t *testing.T) {
	client := &fakeClient{
		receipts: []*etypes.Receipt{nil, nil, {Status: etypes.ReceiptStatusSuccessful}},
		errs:     []error{ethereum.NotFound, ethereum.NotFound, nil},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	receipt, err := WaitMined(ctx, client, 10, ecommon.HexToHash("0x01"))
	require.NoError(t, err)
	require.Equal(t, etypes.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, 3, client.calls)
}

func TestWaitMinedRevert(t *testing.T) {
	client := &fakeClient{
		receipts: []*etypes.Receipt{{Status: etypes.ReceiptStatusFailed}},
		errs:     []error{nil},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := WaitMined(ctx, client, 137, ecommon.HexToHash("0x02"))
	require.True(t, cerrs.Is(err, cerrs.CodeOnChain))

	var cerr *cerrs.Error
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, uint64(137), cerr.NetworkID)
}

func TestWaitMinedTimeout(t *testing.T) {
	client := &fakeClient{
		receipts: []*etypes.Receipt{nil},
		errs:     []error{ethereum.NotFound},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	_, err := WaitMined(ctx, client, 1, ecommon.HexToHash("0x03"))
	require.True(t, cerrs.Is(err, cerrs.CodeTimeout))
}

func TestManagerCachesClients(t *testing.T) {
	reg := registry.Mainnet()

	var dials int
	dial := func(ctx context.Context, rpcURL string) (Client, error) {
		dials++
		return &fakeClient{}, nil
	}

	m := NewManager(reg, dial)
	ctx := context.Background()

	a, err := m.Get(ctx, 10)
	require.NoError(t, err)
	b, err := m.Get(ctx, 10)
	require.NoError(t, err)
	require.Same(t, a.(*fakeClient), b.(*fakeClient))
	require.Equal(t, 1, dials)

	_, err = m.Get(ctx, 42161)
	require.NoError(t, err)
	require.Equal(t, 2, dials)

	_, err = m.Get(ctx, 999)
	require.Error(t, err)
}
