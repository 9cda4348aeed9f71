// Package intent builds fee-inclusive settlement intents out of the unified
// balance view: which source networks to draw from, how much, and the full
// fee breakdown.
package intent

import (
	"math/big"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

// Destination is where value lands.
type Destination struct {
	NetworkID uint64
	Token     string // contract address or registry.NativeToken
	Symbol    string
	Decimals  int
	Amount    *big.Int
	// GasAmount is the optional destination-gas top-up, denominated in the
	// destination network's native currency.
	GasAmount *big.Int
	Recipient string
}

// Source is one (network, token, amount) draw.
type Source struct {
	NetworkID uint64
	Token     string
	Decimals  int
	Amount    *big.Int
	Holder    string
	// Custodial is how much of Amount is already vault-positioned and needs
	// no on-chain hop.
	Custodial *big.Int
	// Native marks the source as the network's native currency; native
	// sources require a client-side vault deposit.
	Native bool
}

// Fees is the waterfall's fee breakdown. Per-source fees are keyed by source
// network id. All amounts are in destination-token decimals except
// GasSupplied, which is destination-native.
type Fees struct {
	Protocol    *big.Int
	Fulfilment  *big.Int
	GasSupplied *big.Int
	Collection  map[uint64]*big.Int
	Solver      map[uint64]*big.Int
}

// Total sums every fee component in destination-token decimals.
func (f Fees) Total() *big.Int {
	out := new(big.Int)
	if f.Protocol != nil {
		out.Add(out, f.Protocol)
	}
	if f.Fulfilment != nil {
		out.Add(out, f.Fulfilment)
	}
	for _, v := range f.Collection {
		out.Add(out, v)
	}
	for _, v := range f.Solver {
		out.Add(out, v)
	}
	return out
}

// Candidate is one entry of the unfiltered source pool, kept on the intent
// for re-evaluation.
type Candidate struct {
	NetworkID uint64
	Token     string
	Decimals  int
	Available *big.Int
	Custodial *big.Int
	Native    bool
}

// Intent is the central settlement object. Built by the waterfall, it stays
// rebuildable until accepted; acceptance freezes it.
type Intent struct {
	Destination Destination
	Sources     []Source
	Fees        Fees
	// InsufficientBalance is set when the eligible sources cannot cover
	// borrow plus fees. Informational at build time; execution refuses it.
	InsufficientBalance bool
	// AllSources is the unfiltered candidate pool.
	AllSources []Candidate

	// Request echoes the inputs so the intent can be rebuilt.
	Request BuildRequest

	accepted bool
}

// Accept freezes the intent. After this the builder refuses to refresh it.
func (in *Intent) Accept() { in.accepted = true }

// Accepted reports whether the user accepted the intent.
func (in *Intent) Accepted() bool { return in.accepted }

// Validate checks the core invariant: sources cover destination amount plus
// every fee, unless the intent is flagged insufficient.
func (in *Intent) Validate() error {
	if in.InsufficientBalance {
		return nil
	}
	drawn := new(big.Int)
	for _, s := range in.Sources {
		drawn.Add(drawn, scale(s.Amount, s.Decimals, in.Destination.Decimals))
	}
	need := new(big.Int).Add(in.Destination.Amount, in.Fees.Total())
	if in.Fees.GasSupplied != nil && in.Fees.GasSupplied.Sign() > 0 {
		need.Add(need, scaleGas(in))
	}
	if drawn.Cmp(need) < 0 {
		return cerrs.Newf(cerrs.CodeInsufficientBalance,
			"sources %s below requirement %s", drawn, need)
	}
	return nil
}

// scaleGas converts the destination-native gas top-up into destination-token
// units for accounting. Gas is borrowed in the destination token and swapped
// by the solver; the schedule rate is carried in the request.
func scaleGas(in *Intent) *big.Int {
	if in.Request.GasTokenRate == nil || in.Request.GasTokenRate.Sign() == 0 {
		return new(big.Int)
	}
	// rate = destination-token base units per one native base unit, scaled
	// by 1e18 to keep precision.
	out := new(big.Int).Mul(in.Fees.GasSupplied, in.Request.GasTokenRate)
	return out.Quo(out, rateScale)
}

var rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func scale(v *big.Int, from, to int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	out := new(big.Int).Set(v)
	switch {
	case from < to:
		out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(to-from)), nil))
	case from > to:
		out.Quo(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(from-to)), nil))
	}
	return out
}
