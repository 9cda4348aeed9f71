// Package asset models the user's aggregated holdings: one Asset per symbol,
// with a per-network breakdown split into directly held funds and funds
// already pre-positioned in the protocol vault (usable without an extra
// on-chain hop).
//
// Assets are immutable snapshots. Refreshing produces a new slice; nothing
// mutates an existing breakdown.
package asset

import "math/big"

type NetworkBalance struct {
	NetworkID uint64
	// Token is the contract address on the network, or registry.NativeToken.
	Token    string
	Decimals int
	// Direct is the wallet-held balance.
	Direct *big.Int
	// Custodial is the vault-held balance already positioned with the
	// protocol.
	Custodial *big.Int
}

// Available is the total spendable balance on this network.
func (b NetworkBalance) Available() *big.Int {
	out := new(big.Int)
	if b.Direct != nil {
		out.Add(out, b.Direct)
	}
	if b.Custodial != nil {
		out.Add(out, b.Custodial)
	}
	return out
}

// Asset is one symbol aggregated across every supported network.
type Asset struct {
	Symbol    string
	Decimals  int
	Breakdown []NetworkBalance
}

// Total sums the breakdown, normalized to the asset's decimals.
func (a Asset) Total() *big.Int {
	out := new(big.Int)
	for _, b := range a.Breakdown {
		out.Add(out, scale(b.Available(), b.Decimals, a.Decimals))
	}
	return out
}

// On returns the breakdown entry for a network, or false when the asset is
// not tracked there.
func (a Asset) On(networkID uint64) (NetworkBalance, bool) {
	for _, b := range a.Breakdown {
		if b.NetworkID == networkID {
			return b, true
		}
	}
	return NetworkBalance{}, false
}

func scale(v *big.Int, from, to int) *big.Int {
	out := new(big.Int).Set(v)
	switch {
	case from < to:
		out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(to-from)), nil))
	case from > to:
		out.Quo(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(from-to)), nil))
	}
	return out
}

// Find returns the asset with the given symbol from a snapshot.
func Find(assets []Asset, symbol string) (Asset, bool) {
	for _, a := range assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return Asset{}, false
}
