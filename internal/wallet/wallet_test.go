package wallet

import (
	"context"
	"testing"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	accounts []ecommon.Address
	chainID  uint64
	switched []uint64
}

func (f *fakeProvider) Accounts(context.Context) ([]ecommon.Address, error) {
	return f.accounts, nil
}

func (f *fakeProvider) ChainID(context.Context) (uint64, error) {
	return f.chainID, nil
}

func (f *fakeProvider) SwitchNetwork(_ context.Context, id uint64) error {
	f.switched = append(f.switched, id)
	f.chainID = id
	return nil
}

func (f *fakeProvider) SendTransaction(context.Context, uint64, TxRequest) (ecommon.Hash, error) {
	return ecommon.Hash{}, nil
}

func (f *fakeProvider) SignTypedData(context.Context, apitypes.TypedData) ([]byte, error) {
	return nil, nil
}

func (f *fakeProvider) SignMessage(context.Context, []byte) ([]byte, error) {
	return nil, nil
}

func (f *fakeProvider) SubscribeLogs(context.Context, uint64, LogQuery) (Subscription, error) {
	return nil, nil
}

func TestNeedsReinit(t *testing.T) {
	a := ecommon.HexToAddress("0x1111111111111111111111111111111111111111")
	b := ecommon.HexToAddress("0x2222222222222222222222222222222222222222")

	tests := []struct {
		name    string
		last    ecommon.Address
		current ecommon.Address
		want    bool
	}{
		{name: "unchanged", last: a, current: a, want: false},
		{name: "changed", last: a, current: b, want: true},
		{name: "first observation", last: ecommon.Address{}, current: a, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, needsReinit(tt.last, tt.current))
		})
	}
}

func TestRevalidateTracksAddressAndNetwork(t *testing.T) {
	addr := ecommon.HexToAddress("0x1111111111111111111111111111111111111111")
	next := ecommon.HexToAddress("0x2222222222222222222222222222222222222222")
	p := &fakeProvider{accounts: []ecommon.Address{addr}, chainID: 10}

	conn := NewConnection(p, nil, logrus.New())
	require.NoError(t, conn.Revalidate(context.Background()))
	require.Equal(t, addr, conn.Address())
	require.Equal(t, uint64(10), conn.ActiveNetwork())

	p.accounts = []ecommon.Address{next}
	require.NoError(t, conn.Revalidate(context.Background()))
	require.Equal(t, next, conn.Address())
}

func TestRevalidateNoAccounts(t *testing.T) {
	conn := NewConnection(&fakeProvider{}, nil, logrus.New())
	require.Error(t, conn.Revalidate(context.Background()))
}

func TestSwitchToIsIdempotent(t *testing.T) {
	addr := ecommon.HexToAddress("0x1111111111111111111111111111111111111111")
	p := &fakeProvider{accounts: []ecommon.Address{addr}, chainID: 1}
	conn := NewConnection(p, nil, logrus.New())
	require.NoError(t, conn.Revalidate(context.Background()))

	require.NoError(t, conn.SwitchTo(context.Background(), 137))
	require.NoError(t, conn.SwitchTo(context.Background(), 137))
	require.Equal(t, []uint64{137}, p.switched)

	conn.Restore(context.Background(), 1)
	require.Equal(t, []uint64{137, 1}, p.switched)
}
