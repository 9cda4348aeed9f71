package evm

import (
	"context"
	"errors"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

const pollInterval = time.Second

// WaitMined polls for the transaction receipt until it lands or ctx expires.
// A reverted receipt is an on-chain failure; a missing receipt keeps polling.
func WaitMined(ctx context.Context, client Client, networkID uint64, txHash ecommon.Hash) (*etypes.Receipt, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, cerrs.OnNetwork(cerrs.CodeTimeout, networkID,
				"timed out waiting for transaction "+txHash.Hex(), ctx.Err())
		case <-ticker.C:
			receipt, err := client.TransactionReceipt(ctx, txHash)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, cerrs.OnNetwork(cerrs.CodeTimeout, networkID,
					"timed out waiting for transaction "+txHash.Hex(), err)
			}
			if err != nil || receipt == nil {
				// Not mined yet, or a transient node error. Keep polling.
				continue
			}
			if receipt.Status != etypes.ReceiptStatusSuccessful {
				return receipt, cerrs.OnNetwork(cerrs.CodeOnChain, networkID,
					"transaction reverted: "+txHash.Hex(), nil)
			}
			return receipt, nil
		}
	}
}
