package intent

import "math/big"

// Route keys solver fees: they depend on the (source, destination) pair.
type Route struct {
	Src uint64
	Dst uint64
}

// Schedule is the protocol fee schedule applied by the waterfall, in the
// fixed order protocol -> fulfilment -> per-source collection -> per-source
// solver.
type Schedule struct {
	// ProtocolBps is charged on the destination amount.
	ProtocolBps int64

	// Fulfilment is the flat fee per destination (network, token symbol),
	// in destination-token base units.
	Fulfilment map[uint64]map[string]*big.Int

	// Collection fees are charged per non-destination source on the amount
	// drawn from it. CollectionBps overrides the default per source network.
	CollectionBps        map[uint64]int64
	DefaultCollectionBps int64

	// SolverBps overrides DefaultSolverBps for specific routes.
	SolverBps        map[Route]int64
	DefaultSolverBps int64
}

func (s Schedule) protocolFee(amount *big.Int) *big.Int {
	return bps(amount, s.ProtocolBps)
}

func (s Schedule) fulfilmentFee(networkID uint64, symbol string) *big.Int {
	if tokens, ok := s.Fulfilment[networkID]; ok {
		if fee, ok := tokens[symbol]; ok {
			return new(big.Int).Set(fee)
		}
	}
	return new(big.Int)
}

func (s Schedule) collectionBps(networkID uint64) int64 {
	if v, ok := s.CollectionBps[networkID]; ok {
		return v
	}
	return s.DefaultCollectionBps
}

func (s Schedule) solverBps(src, dst uint64) int64 {
	if v, ok := s.SolverBps[Route{Src: src, Dst: dst}]; ok {
		return v
	}
	return s.DefaultSolverBps
}

func bps(amount *big.Int, rate int64) *big.Int {
	if amount == nil || rate == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, big.NewInt(rate))
	return out.Quo(out, big.NewInt(10_000))
}

// DefaultSchedule mirrors the production fee schedule: 5 bps protocol,
// 2 bps collection, 3 bps solver, no flat fulfilment fees.
func DefaultSchedule() Schedule {
	return Schedule{
		ProtocolBps:          5,
		DefaultCollectionBps: 2,
		DefaultSolverBps:     3,
		CollectionBps:        map[uint64]int64{},
		SolverBps:            map[Route]int64{},
		Fulfilment:           map[uint64]map[string]*big.Int{},
	}
}
