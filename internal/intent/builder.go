package intent

import (
	"math/big"

	"github.com/availproject/nexus-sdk-sub001/internal/asset"
	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
)

// BuildRequest captures the caller's inputs. It is echoed on the built intent
// so a refresh can re-run the waterfall against fresh balances.
type BuildRequest struct {
	NetworkID uint64
	Symbol    string
	// Amount is in destination-token base units.
	Amount *big.Int
	// GasAmount is the optional destination-gas top-up in destination-native
	// base units.
	GasAmount *big.Int
	// GasTokenRate converts destination-native units into destination-token
	// units, scaled by 1e18. Zero disables gas borrowing.
	GasTokenRate *big.Int
	Recipient    string
	// SourceFilter restricts eligible source networks; empty means all.
	SourceFilter []uint64
	HolderEVM    string
	HolderTron   string
}

// Builder runs the fee waterfall. Greedy, deterministic, first-fit in
// registry order; it deliberately performs no balance- or fee-minimizing
// search.
type Builder struct {
	reg      *registry.Registry
	schedule Schedule
}

func NewBuilder(reg *registry.Registry, schedule Schedule) *Builder {
	return &Builder{reg: reg, schedule: schedule}
}

// Build assembles an intent from the current balance snapshot. Insufficiency
// is recorded on the intent, never returned as an error: simulate-time
// shortfalls are informational.
func (b *Builder) Build(req BuildRequest, assets []asset.Asset) (*Intent, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, cerrs.New(cerrs.CodeUnsupported, "amount must be positive")
	}

	_, dstToken, err := b.reg.LookupToken(req.NetworkID, req.Symbol)
	if err != nil {
		return nil, err
	}

	in := &Intent{
		Destination: Destination{
			NetworkID: req.NetworkID,
			Token:     dstToken.Address,
			Symbol:    dstToken.Symbol,
			Decimals:  dstToken.Decimals,
			Amount:    new(big.Int).Set(req.Amount),
			GasAmount: copyOrZero(req.GasAmount),
			Recipient: req.Recipient,
		},
		Fees: Fees{
			GasSupplied: copyOrZero(req.GasAmount),
			Collection:  map[uint64]*big.Int{},
			Solver:      map[uint64]*big.Int{},
		},
		Request: req,
	}

	in.AllSources = b.candidates(req, assets, dstToken)

	// borrow = amount + gas top-up converted into token units.
	borrow := new(big.Int).Set(req.Amount)
	borrow.Add(borrow, scaleGas(in))

	in.Fees.Protocol = b.schedule.protocolFee(req.Amount)
	in.Fees.Fulfilment = b.schedule.fulfilmentFee(req.NetworkID, dstToken.Symbol)

	// borrowWithFee is fixed up front; per-source fees grow the requirement
	// only as their source is drawn.
	required := new(big.Int).Set(borrow)
	required.Add(required, in.Fees.Protocol)
	required.Add(required, in.Fees.Fulfilment)

	accounted := new(big.Int)
	eligible := filterSet(req.SourceFilter)

	for _, cand := range in.AllSources {
		if accounted.Cmp(required) >= 0 {
			break
		}
		if eligible != nil && !eligible[cand.NetworkID] {
			continue
		}

		remaining := new(big.Int).Sub(required, accounted)
		colBps := b.schedule.collectionBps(cand.NetworkID)
		solBps := b.schedule.solverBps(cand.NetworkID, req.NetworkID)
		if colBps+solBps >= 10_000 {
			// A source taxed at or above 100% can never contribute.
			return nil, cerrs.OnNetwork(cerrs.CodeUnsupported, cand.NetworkID,
				"source fees meet or exceed the drawn amount", nil)
		}

		avail := scale(cand.Available, cand.Decimals, dstToken.Decimals)
		draw := drawFor(remaining, avail, colBps+solBps)
		if draw.Sign() == 0 {
			continue
		}

		colFee := bps(draw, colBps)
		solFee := bps(draw, solBps)
		if colFee.Sign() > 0 {
			in.Fees.Collection[cand.NetworkID] = colFee
			required.Add(required, colFee)
		}
		if solFee.Sign() > 0 {
			in.Fees.Solver[cand.NetworkID] = solFee
			required.Add(required, solFee)
		}
		accounted.Add(accounted, draw)

		custodial := scale(cand.Custodial, cand.Decimals, dstToken.Decimals)
		if custodial.Cmp(draw) > 0 {
			custodial = new(big.Int).Set(draw)
		}

		in.Sources = append(in.Sources, Source{
			NetworkID: cand.NetworkID,
			Token:     cand.Token,
			Decimals:  cand.Decimals,
			Amount:    scaleUp(draw, dstToken.Decimals, cand.Decimals),
			Holder:    b.holderFor(cand.NetworkID, req),
			Custodial: scaleUp(custodial, dstToken.Decimals, cand.Decimals),
			Native:    cand.Native,
		})
	}

	in.InsufficientBalance = accounted.Cmp(required) < 0
	return in, nil
}

// Refresh re-runs the waterfall for an unaccepted intent against a fresh
// balance snapshot. Idempotent for identical balances and inputs.
func (b *Builder) Refresh(in *Intent, assets []asset.Asset) (*Intent, error) {
	if in.Accepted() {
		return nil, cerrs.New(cerrs.CodeUnsupported, "accepted intent is immutable")
	}
	return b.Build(in.Request, assets)
}

// candidates lists every holding of the destination token outside the
// destination network, in registry order. The source filter is deliberately
// not applied here: AllSources is the unfiltered pool.
func (b *Builder) candidates(req BuildRequest, assets []asset.Asset, dstToken registry.Token) []Candidate {
	a, ok := asset.Find(assets, dstToken.Symbol)
	if !ok {
		return nil
	}

	var out []Candidate
	for _, net := range b.reg.Networks() {
		// The destination network never appears as a source.
		if net.ID == req.NetworkID {
			continue
		}
		row, ok := a.On(net.ID)
		if !ok {
			continue
		}
		available := row.Available()
		if available.Sign() == 0 {
			continue
		}
		out = append(out, Candidate{
			NetworkID: net.ID,
			Token:     row.Token,
			Decimals:  row.Decimals,
			Available: available,
			Custodial: copyOrZero(row.Custodial),
			Native:    registry.IsNative(row.Token),
		})
	}
	return out
}

func (b *Builder) holderFor(networkID uint64, req BuildRequest) string {
	net, err := b.reg.Network(networkID)
	if err == nil && net.Family == registry.FamilyTron {
		return req.HolderTron
	}
	return req.HolderEVM
}

// drawFor picks the smallest draw whose net contribution (draw minus its own
// collection and solver fees) meets remaining, capped by avail. Fees use
// floor division, so the net steps by at most one unit per unit drawn and an
// exact cover always exists when avail allows it.
func drawFor(remaining, avail *big.Int, feeBps int64) *big.Int {
	if remaining.Sign() <= 0 || avail.Sign() <= 0 {
		return new(big.Int)
	}
	if feeBps <= 0 {
		if avail.Cmp(remaining) < 0 {
			return new(big.Int).Set(avail)
		}
		return new(big.Int).Set(remaining)
	}

	one := big.NewInt(1)
	denom := big.NewInt(10_000 - feeBps)
	draw := new(big.Int).Mul(remaining, big.NewInt(10_000))
	draw.Quo(draw, denom)
	for netDraw(draw, feeBps).Cmp(remaining) < 0 {
		draw.Add(draw, one)
	}
	// Walk back to the minimal draw still covering remaining; the net
	// contribution steps by at most one unit, so the minimum is exact.
	for {
		prev := new(big.Int).Sub(draw, one)
		if prev.Sign() <= 0 || netDraw(prev, feeBps).Cmp(remaining) < 0 {
			break
		}
		draw = prev
	}
	if draw.Cmp(avail) > 0 {
		return new(big.Int).Set(avail)
	}
	return draw
}

// netDraw is the amount a draw contributes after its own fees.
func netDraw(draw *big.Int, feeBps int64) *big.Int {
	return new(big.Int).Sub(draw, bps(draw, feeBps))
}

func filterSet(filter []uint64) map[uint64]bool {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[uint64]bool, len(filter))
	for _, id := range filter {
		out[id] = true
	}
	return out
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func scaleUp(v *big.Int, from, to int) *big.Int {
	return scale(v, from, to)
}
