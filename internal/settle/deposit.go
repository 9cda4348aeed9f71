package settle

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/evm"
	"github.com/availproject/nexus-sdk-sub001/internal/intent"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/steps"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

// The vault's payable deposit entrypoint, keyed by request hash so the relay
// can attribute the funds.
const vaultDepositJSON = `[
	{"name":"deposit","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"requestHash","type":"bytes32"}],
	 "outputs":[]}
]`

var vaultDepositABI abi.ABI

func init() {
	var err error
	vaultDepositABI, err = abi.JSON(strings.NewReader(vaultDepositJSON))
	if err != nil {
		panic(fmt.Sprintf("settle: bad vault deposit abi: %v", err))
	}
}

// gasLimitBufferPct pads the simulated deposit gas.
const gasLimitBufferPct = 15

// Deposits funds every native source with a client-side vault deposit:
// simulate first, then send and wait for the receipt. Non-native sources are
// pulled by the relay and need no transaction here. The wallet ends up back
// on the destination network either way.
func (p *Protocol) Deposits(ctx context.Context, in *intent.Intent, sub Submission, ledger *steps.Ledger) error {
	defer p.conn.Restore(ctx, in.Destination.NetworkID)

	for _, src := range in.Sources {
		if !src.Native {
			continue
		}
		net, err := p.reg.Network(src.NetworkID)
		if err != nil {
			return err
		}
		if net.Family != registry.FamilyEVM {
			return cerrs.OnNetwork(cerrs.CodeUnsupported, src.NetworkID,
				"native deposits are only supported on evm networks", nil)
		}
		if err := p.depositNative(ctx, net, src, sub); err != nil {
			return err
		}
		ledger.Complete(steps.DepositStep(src.NetworkID))
	}
	return nil
}

func (p *Protocol) depositNative(ctx context.Context, net registry.Network, src intent.Source, sub Submission) error {
	// The custodial portion is already vault-positioned; only the direct
	// remainder moves.
	value := new(big.Int).Set(src.Amount)
	if src.Custodial != nil {
		value.Sub(value, src.Custodial)
	}
	if value.Sign() <= 0 {
		return nil
	}

	if err := p.conn.SwitchTo(ctx, net.ID); err != nil {
		if wallet.IsRejected(err) {
			return cerrs.Wrap(cerrs.CodeUserDeclined, "network switch declined", err)
		}
		return fmt.Errorf("failed to switch to network %d: %w", net.ID, err)
	}

	data, err := vaultDepositABI.Pack("deposit", requestTopic(sub.RequestHash))
	if err != nil {
		return fmt.Errorf("failed to pack deposit: %w", err)
	}

	client, err := p.clients.Get(ctx, net.ID)
	if err != nil {
		return err
	}

	from := ecommon.HexToAddress(src.Holder)
	vault := net.VaultAddress()
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &vault,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return cerrs.OnNetwork(cerrs.CodeOnChain, net.ID, "deposit simulation failed", err)
	}
	gas += gas * gasLimitBufferPct / 100

	txHash, err := p.conn.Provider().SendTransaction(ctx, net.ID, wallet.TxRequest{
		From:  from,
		To:    &vault,
		Value: value,
		Data:  data,
		Gas:   gas,
	})
	if wallet.IsRejected(err) {
		return cerrs.Wrap(cerrs.CodeUserDeclined, "deposit declined", err)
	}
	if err != nil {
		return cerrs.OnNetwork(cerrs.CodeOnChain, net.ID, "failed to send deposit", err)
	}

	if _, err := evm.WaitMined(ctx, client, net.ID, txHash); err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"pkg":     "settle",
		"network": net.ID,
		"tx":      txHash.Hex(),
		"value":   value.String(),
	}).Debug("native deposit mined")
	return nil
}
