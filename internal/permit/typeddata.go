package permit

import (
	"math/big"

	emath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/availproject/nexus-sdk-sub001/internal/registry"
)

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// permitDomain is the token's EIP-712 signing domain as read off-chain.
type permitDomain struct {
	Name    string
	Version string
	ChainID uint64
	Token   string
	Nonce   *big.Int
}

// typedDataFor builds the permit typed data for the token's variant.
func typedDataFor(
	variant registry.PermitVariant,
	dom permitDomain,
	owner, spender string,
	value *big.Int,
	deadline int64,
) apitypes.TypedData {
	data := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              dom.Name,
			Version:           dom.Version,
			ChainId:           emath.NewHexOrDecimal256(int64(dom.ChainID)),
			VerifyingContract: dom.Token,
		},
	}
	data.Types["EIP712Domain"] = domainType

	switch variant {
	case registry.PermitDAI:
		data.Types["Permit"] = []apitypes.Type{
			{Name: "holder", Type: "address"},
			{Name: "spender", Type: "address"},
			{Name: "nonce", Type: "uint256"},
			{Name: "expiry", Type: "uint256"},
			{Name: "allowed", Type: "bool"},
		}
		data.Message = apitypes.TypedDataMessage{
			"holder":  owner,
			"spender": spender,
			"nonce":   (*emath.HexOrDecimal256)(dom.Nonce),
			"expiry":  emath.NewHexOrDecimal256(deadline),
			"allowed": true,
		}
	default:
		data.Types["Permit"] = []apitypes.Type{
			{Name: "owner", Type: "address"},
			{Name: "spender", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
		}
		data.Message = apitypes.TypedDataMessage{
			"owner":    owner,
			"spender":  spender,
			"value":    (*emath.HexOrDecimal256)(value),
			"nonce":    (*emath.HexOrDecimal256)(dom.Nonce),
			"deadline": emath.NewHexOrDecimal256(deadline),
		}
	}
	return data
}
