package tron

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
)

// defaultFeeLimit caps energy spend on TRC-20 calls, in sun.
const defaultFeeLimit = 100_000_000

// ApproveService builds unsigned TRC-20 approve transactions.
type ApproveService struct {
	client NodeClient
}

func NewApproveService(client NodeClient) *ApproveService {
	return &ApproveService{client: client}
}

// BuildApprove builds an unsigned approve(spender, amount) call on a TRC-20
// token. Returns the raw_data bytes to sign plus the node-computed txID.
func (a *ApproveService) BuildApprove(
	ctx context.Context,
	owner string,
	token string,
	spender string,
	amount *big.Int,
) ([]byte, string, error) {
	parameter, err := encodeAddressAmount(spender, amount)
	if err != nil {
		return nil, "", fmt.Errorf("tron: failed to encode approve parameter: %w", err)
	}

	tx, err := a.client.TriggerSmartContract(ctx, &TriggerRequest{
		OwnerAddress:     owner,
		ContractAddress:  token,
		FunctionSelector: "approve(address,uint256)",
		Parameter:        parameter,
		FeeLimit:         defaultFeeLimit,
		Visible:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("tron: failed to build approve: %w", err)
	}

	rawData, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return nil, "", fmt.Errorf("tron: failed to decode raw_data_hex: %w", err)
	}
	return rawData, tx.TxID, nil
}

// encodeAddressAmount ABI-encodes an (address, uint256) parameter pair the
// way triggersmartcontract expects: two 32-byte words, the address stripped
// of its 0x41 version byte.
func encodeAddressAmount(address string, amount *big.Int) (string, error) {
	hexAddr, err := AddressToHex(address)
	if err != nil {
		return "", err
	}
	// Drop the 41 prefix, left-pad to 32 bytes.
	addressWord := fmt.Sprintf("%064s", hexAddr[2:])
	amountWord := fmt.Sprintf("%064x", amount)
	return addressWord + amountWord, nil
}
