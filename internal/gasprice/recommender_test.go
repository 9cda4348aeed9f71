package gasprice

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/require"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

type fakeHistory struct {
	hist *ethereum.FeeHistory
	err  error
}

func (f *fakeHistory) FeeHistory(context.Context, uint64, *big.Int, []float64) (*ethereum.FeeHistory, error) {
	return f.hist, f.err
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestRecommendAveragesAndBuffers(t *testing.T) {
	// Two blocks of rewards; tier columns average to 1/2/3/4 gwei.
	f := &fakeHistory{hist: &ethereum.FeeHistory{
		Reward: [][]*big.Int{
			{gwei(1), gwei(2), gwei(3), gwei(4)},
			{gwei(1), gwei(2), gwei(3), gwei(4)},
		},
		BaseFee: []*big.Int{gwei(40), gwei(45), gwei(50)},
	}}

	rec, err := NewRecommender(f).Recommend(context.Background())
	require.NoError(t, err)

	// Buffered base: 50 gwei * 1.12 = 56 gwei.
	base := gwei(56)
	require.Equal(t, new(big.Int).Add(base, gwei(1)).String(), rec.Low.String())
	require.Equal(t, new(big.Int).Add(base, gwei(2)).String(), rec.Medium.String())
	require.Equal(t, new(big.Int).Add(base, gwei(3)).String(), rec.High.String())
	require.Equal(t, new(big.Int).Add(base, gwei(4)).String(), rec.UltraHigh.String())
}

func TestRecommendZeroTierFails(t *testing.T) {
	f := &fakeHistory{hist: &ethereum.FeeHistory{
		Reward:  [][]*big.Int{{big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0)}},
		BaseFee: []*big.Int{big.NewInt(0), big.NewInt(0)},
	}}

	_, err := NewRecommender(f).Recommend(context.Background())
	require.Error(t, err)
	require.Equal(t, cerrs.CodeGasPrice, cerrs.CodeOf(err))
}

func TestRecommendEmptyHistoryFails(t *testing.T) {
	f := &fakeHistory{hist: &ethereum.FeeHistory{}}
	_, err := NewRecommender(f).Recommend(context.Background())
	require.Error(t, err)
	require.Equal(t, cerrs.CodeGasPrice, cerrs.CodeOf(err))
}
