// Package gasprice recommends per-tier gas prices from recent priority-fee
// history: averaged percentile rewards over a fixed block window on top of a
// buffered next-block base fee.
package gasprice

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

const (
	// historyWindow is the number of recent blocks sampled.
	historyWindow = 5
	// baseFeeBufferPct is added to the next block's base fee.
	baseFeeBufferPct = 12
)

// percentiles are the four fixed tiers: low, medium, high, ultra-high.
var percentiles = []float64{10, 35, 60, 90}

// FeeHistoryClient is the RPC surface the recommender reads.
type FeeHistoryClient interface {
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
}

// Recommendation carries one price per tier, in wei.
type Recommendation struct {
	Low       *big.Int
	Medium    *big.Int
	High      *big.Int
	UltraHigh *big.Int
}

// Tier selects one recommendation tier.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierUltraHigh
)

// For returns the price for a tier.
func (r Recommendation) For(tier Tier) *big.Int {
	switch tier {
	case TierLow:
		return r.Low
	case TierMedium:
		return r.Medium
	case TierHigh:
		return r.High
	default:
		return r.UltraHigh
	}
}

type Recommender struct {
	client FeeHistoryClient
}

func NewRecommender(client FeeHistoryClient) *Recommender {
	return &Recommender{client: client}
}

// Recommend computes tier prices from the last historyWindow blocks. A tier
// resolving to zero is a hard failure: callers must never price a
// transaction at zero.
func (r *Recommender) Recommend(ctx context.Context) (Recommendation, error) {
	hist, err := r.client.FeeHistory(ctx, historyWindow, nil, percentiles)
	if err != nil {
		return Recommendation{}, cerrs.Wrap(cerrs.CodeGasPrice, "fee history fetch failed", err)
	}
	if len(hist.Reward) == 0 || len(hist.BaseFee) == 0 {
		return Recommendation{}, cerrs.New(cerrs.CodeGasPrice, "empty fee history")
	}

	// Average each percentile column across the window.
	tips := make([]*big.Int, len(percentiles))
	for i := range tips {
		tips[i] = new(big.Int)
	}
	counted := 0
	for _, row := range hist.Reward {
		if len(row) < len(percentiles) {
			continue
		}
		for i := range percentiles {
			tips[i].Add(tips[i], row[i])
		}
		counted++
	}
	if counted == 0 {
		return Recommendation{}, cerrs.New(cerrs.CodeGasPrice, "no usable reward rows")
	}
	for i := range tips {
		tips[i].Quo(tips[i], big.NewInt(int64(counted)))
	}

	// BaseFee has one more entry than Reward: the next block's base fee.
	base := new(big.Int).Set(hist.BaseFee[len(hist.BaseFee)-1])
	base.Mul(base, big.NewInt(100+baseFeeBufferPct))
	base.Quo(base, big.NewInt(100))

	rec := Recommendation{
		Low:       new(big.Int).Add(base, tips[0]),
		Medium:    new(big.Int).Add(base, tips[1]),
		High:      new(big.Int).Add(base, tips[2]),
		UltraHigh: new(big.Int).Add(base, tips[3]),
	}

	for _, tier := range []Tier{TierLow, TierMedium, TierHigh, TierUltraHigh} {
		if rec.For(tier).Sign() == 0 {
			return Recommendation{}, cerrs.New(cerrs.CodeGasPrice, "tier resolved to zero")
		}
	}
	return rec, nil
}
