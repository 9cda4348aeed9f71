package balance

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"
)

// Multicall3 aggregate3 plus its native-balance helper, and the minimal vault
// and erc20 fragments the aggregator batches into one round trip.
const multicall3ABI = `[
	{"name":"aggregate3","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"allowFailure","type":"bool"},
		{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		{"name":"success","type":"bool"},
		{"name":"returnData","type":"bytes"}]}]},
	{"name":"getEthBalance","type":"function","stateMutability":"view",
	 "inputs":[{"name":"addr","type":"address"}],
	 "outputs":[{"name":"balance","type":"uint256"}]}
]`

const erc20ABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"name":"nonces","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const vaultBalancesABI = `[
	{"name":"balances","type":"function","stateMutability":"view",
	 "inputs":[{"name":"holder","type":"address"},{"name":"token","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	multicallABI abi.ABI
	tokenABI     abi.ABI
	vaultABI     abi.ABI
)

func init() {
	var err error
	multicallABI, err = abi.JSON(strings.NewReader(multicall3ABI))
	if err != nil {
		panic(fmt.Sprintf("balance: bad multicall abi: %v", err))
	}
	tokenABI, err = abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(fmt.Sprintf("balance: bad erc20 abi: %v", err))
	}
	vaultABI, err = abi.JSON(strings.NewReader(vaultBalancesABI))
	if err != nil {
		panic(fmt.Sprintf("balance: bad vault abi: %v", err))
	}
}

// ERC20ABI exposes the shared token ABI to sibling packages.
func ERC20ABI() abi.ABI { return tokenABI }

type call3 struct {
	Target       ecommon.Address
	AllowFailure bool
	CallData     []byte
}

type call3Result struct {
	Success    bool
	ReturnData []byte
}

func packAggregate3(calls []call3) ([]byte, error) {
	return multicallABI.Pack("aggregate3", calls)
}

func unpackAggregate3(data []byte) ([]call3Result, error) {
	values, err := multicallABI.Unpack("aggregate3", data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack aggregate3: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected aggregate3 output arity %d", len(values))
	}

	out := *abi.ConvertType(values[0], new([]call3Result)).(*[]call3Result)
	return out, nil
}

func unpackUint(data []byte) *big.Int {
	if len(data) == 0 {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(data)
}
