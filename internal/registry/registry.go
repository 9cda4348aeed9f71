// Package registry holds the static per-network metadata the rest of the SDK
// keys off: chain ids, address families, native currencies, vault contracts
// and the known-token tables with their permit variants.
//
// Network order inside a Registry is load-bearing: the intent builder draws
// candidate sources in exactly this order.
package registry

import (
	"strings"

	ecommon "github.com/ethereum/go-ethereum/common"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

// Family is the address/signature convention group a network belongs to.
type Family string

const (
	FamilyEVM  Family = "evm"
	FamilyTron Family = "tron"
)

// PermitVariant is the off-chain allowance-signature scheme a token supports.
type PermitVariant string

const (
	// PermitEIP2612 is the canonical owner/spender/value/nonce/deadline permit.
	PermitEIP2612 PermitVariant = "eip2612"
	// PermitDAI is the holder/spender/nonce/expiry/allowed variant used by
	// DAI-style tokens.
	PermitDAI PermitVariant = "dai"
	// PermitNone means the token only supports on-chain approve.
	PermitNone PermitVariant = "none"
)

// NativeToken marks the native currency in token fields.
const NativeToken = "native"

// IsNative reports whether a token reference denotes the native currency.
func IsNative(token string) bool {
	return token == "" || strings.EqualFold(token, NativeToken)
}

type Token struct {
	Symbol   string
	Address  string // hex for EVM, base58check for Tron, NativeToken for native
	Decimals int
	Permit   PermitVariant
}

type Network struct {
	ID            uint64
	Name          string
	Family        Family
	RPCURL        string
	NativeSymbol  string
	NativeDecimal int
	// Vault is the settlement vault contract custodying deposits and emitting
	// fulfillment events on this network.
	Vault string
	// Multicall is the batching contract used by the balance aggregator on
	// EVM networks without a provider-side balance index.
	Multicall string
	// HasBalanceIndex routes balance reads through the relay's indexed
	// endpoint instead of multicall.
	HasBalanceIndex bool
	// ApprovalsOnly forces on-chain approvals even for permit-capable tokens.
	ApprovalsOnly bool
	// L1FeeOracle is set on rollups that charge a separate L1 data fee.
	L1FeeOracle string

	// Gas reservation applied to native balances before they are offered to
	// the waterfall: bufferNum/bufferDen * maxFeePerGas * fixedGasUnits.
	GasBufferNum  int64
	GasBufferDen  int64
	FixedGasUnits int64

	Tokens []Token
}

func (n Network) VaultAddress() ecommon.Address {
	return ecommon.HexToAddress(n.Vault)
}

func (n Network) MulticallAddress() ecommon.Address {
	return ecommon.HexToAddress(n.Multicall)
}

// Registry is an ordered set of supported networks.
type Registry struct {
	networks []Network
	byID     map[uint64]int
}

func New(networks []Network) *Registry {
	byID := make(map[uint64]int, len(networks))
	for i, n := range networks {
		byID[n.ID] = i
	}
	return &Registry{networks: networks, byID: byID}
}

// Networks returns all supported networks in registry order.
func (r *Registry) Networks() []Network {
	return r.networks
}

func (r *Registry) Network(id uint64) (Network, error) {
	i, ok := r.byID[id]
	if !ok {
		return Network{}, cerrs.Newf(cerrs.CodeUnsupported, "unknown network %d", id)
	}
	return r.networks[i], nil
}

// LookupToken resolves (networkID, symbol) to the network and its token entry.
// The native symbol resolves to a synthetic native token.
func (r *Registry) LookupToken(id uint64, symbol string) (Network, Token, error) {
	net, err := r.Network(id)
	if err != nil {
		return Network{}, Token{}, err
	}
	if strings.EqualFold(symbol, net.NativeSymbol) {
		return net, Token{
			Symbol:   net.NativeSymbol,
			Address:  NativeToken,
			Decimals: net.NativeDecimal,
			Permit:   PermitNone,
		}, nil
	}
	for _, t := range net.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return net, t, nil
		}
	}
	return Network{}, Token{}, cerrs.OnNetwork(cerrs.CodeUnsupported, id,
		"unknown token "+symbol, nil)
}

// TokenByAddress resolves (networkID, contractAddress) to a token entry.
func (r *Registry) TokenByAddress(id uint64, address string) (Token, error) {
	net, err := r.Network(id)
	if err != nil {
		return Token{}, err
	}
	if IsNative(address) {
		return Token{
			Symbol:   net.NativeSymbol,
			Address:  NativeToken,
			Decimals: net.NativeDecimal,
			Permit:   PermitNone,
		}, nil
	}
	for _, t := range net.Tokens {
		if strings.EqualFold(t.Address, address) {
			return t, nil
		}
	}
	return Token{}, cerrs.OnNetwork(cerrs.CodeUnsupported, id,
		"unknown token contract "+address, nil)
}

// Vault returns the vault contract address for a network.
func (r *Registry) Vault(id uint64) (string, error) {
	net, err := r.Network(id)
	if err != nil {
		return "", err
	}
	return net.Vault, nil
}

// PermitFor returns the effective permit variant for a token on a network.
// ApprovalsOnly networks and the Tron family always resolve to PermitNone.
func (r *Registry) PermitFor(id uint64, tokenAddress string) (PermitVariant, error) {
	net, err := r.Network(id)
	if err != nil {
		return PermitNone, err
	}
	if net.ApprovalsOnly || net.Family == FamilyTron {
		return PermitNone, nil
	}
	tok, err := r.TokenByAddress(id, tokenAddress)
	if err != nil {
		return PermitNone, err
	}
	return tok.Permit, nil
}
