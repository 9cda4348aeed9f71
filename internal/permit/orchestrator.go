package permit

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/availproject/nexus-sdk-sub001/internal/balance"
	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/evm"
	"github.com/availproject/nexus-sdk-sub001/internal/intent"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/relay"
	"github.com/availproject/nexus-sdk-sub001/internal/steps"
	"github.com/availproject/nexus-sdk-sub001/internal/tron"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

// permitTTL bounds how long a signed permit stays valid.
const permitTTL = 30 * time.Minute

// The EIP-712 domain reads. version() is optional; tokens without it use "1".
const readerJSON = `[
	{"name":"name","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"string"}]},
	{"name":"version","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"string"}]}
]`

var readerABI abi.ABI

func init() {
	var err error
	readerABI, err = abi.JSON(strings.NewReader(readerJSON))
	if err != nil {
		panic(fmt.Sprintf("permit: bad reader abi: %v", err))
	}
}

// Sponsor submits signed permit batches for relay-paid execution.
type Sponsor interface {
	SubmitSponsoredApprovals(ctx context.Context, approvals []relay.SponsoredApproval) error
}

// TronApprover builds unsigned TRC-20 approvals.
type TronApprover interface {
	BuildApprove(ctx context.Context, owner, token, spender string, amount *big.Int) ([]byte, string, error)
}

// TronBroadcaster signs, broadcasts and confirms Tron transactions.
type TronBroadcaster interface {
	SignAndBroadcast(ctx context.Context, signer tron.RawSigner, rawData []byte, txID string) (string, error)
	WaitConfirmed(ctx context.Context, txID string) error
}

// Orchestrator reads allowance requirements off an intent and grants the
// missing ones.
type Orchestrator struct {
	reg     *registry.Registry
	conn    *wallet.Connection
	clients *evm.Manager
	sponsor Sponsor
	tronApp TronApprover
	tronSig TronBroadcaster
	logger  *logrus.Logger
}

func NewOrchestrator(
	reg *registry.Registry,
	conn *wallet.Connection,
	clients *evm.Manager,
	sponsor Sponsor,
	tronApp TronApprover,
	tronSig TronBroadcaster,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		reg:     reg,
		conn:    conn,
		clients: clients,
		sponsor: sponsor,
		tronApp: tronApp,
		tronSig: tronSig,
		logger:  logger,
	}
}

// Requirements reads the vault allowance of every non-native source and
// classifies its permit variant. Fully custodial sources need no allowance
// and are skipped.
func (o *Orchestrator) Requirements(ctx context.Context, in *intent.Intent) ([]Requirement, error) {
	var out []Requirement
	for _, src := range in.Sources {
		if src.Native {
			continue
		}

		required := new(big.Int).Set(src.Amount)
		if src.Custodial != nil {
			required.Sub(required, src.Custodial)
		}
		if required.Sign() <= 0 {
			continue
		}

		net, err := o.reg.Network(src.NetworkID)
		if err != nil {
			return nil, err
		}
		variant, err := o.reg.PermitFor(src.NetworkID, src.Token)
		if err != nil {
			return nil, err
		}
		tok, err := o.reg.TokenByAddress(src.NetworkID, src.Token)
		if err != nil {
			return nil, err
		}

		req := Requirement{
			NetworkID: src.NetworkID,
			Token:     src.Token,
			Symbol:    tok.Symbol,
			Variant:   variant,
			Current:   new(big.Int),
			Required:  required,
		}

		// Tron allowances are not read back; the approve path grants the
		// exact requirement every time.
		if net.Family == registry.FamilyEVM {
			current, err := o.readAllowance(ctx, net, src.Token, src.Holder)
			if err != nil {
				return nil, cerrs.OnNetwork(cerrs.CodeAllowance, src.NetworkID,
					"failed to read vault allowance", err)
			}
			req.Current = current
		}

		out = append(out, req)
	}
	return out, nil
}

// Run grants every missing allowance: permit-capable sources are signed and
// submitted to the relay in one sponsored batch, the rest get on-chain
// approvals. The wallet is restored to the destination network regardless of
// outcome. needed is the caller's Requirements read, filtered to Needed();
// choices pair with it positionally, so the set the user saw is the set
// granted.
func (o *Orchestrator) Run(ctx context.Context, in *intent.Intent, needed []Requirement, choices []Choice, ledger *steps.Ledger) error {
	if len(needed) == 0 {
		return nil
	}

	values, err := resolveAll(needed, choices)
	if err != nil {
		return err
	}

	defer o.conn.Restore(ctx, in.Destination.NetworkID)

	var batch []relay.SponsoredApproval
	var permitNets []uint64
	for i, req := range needed {
		switch req.Variant {
		case registry.PermitEIP2612, registry.PermitDAI:
			approval, err := o.signPermit(ctx, in, req, values[i])
			if err != nil {
				return err
			}
			batch = append(batch, approval)
			permitNets = append(permitNets, req.NetworkID)
		}
	}
	if len(batch) > 0 {
		if err := o.sponsor.SubmitSponsoredApprovals(ctx, batch); err != nil {
			return err
		}
		for _, id := range permitNets {
			ledger.Complete(steps.PermitStep(id))
		}
	}

	for i, req := range needed {
		if req.Variant != registry.PermitNone {
			continue
		}
		net, err := o.reg.Network(req.NetworkID)
		if err != nil {
			return err
		}
		if net.Family == registry.FamilyTron {
			err = o.approveTron(ctx, in, req, values[i])
		} else {
			err = o.approveOnChain(ctx, in, req, values[i])
		}
		if err != nil {
			return err
		}
		ledger.Complete(steps.ApprovalStep(req.NetworkID))
	}
	return nil
}

// signPermit reads the token's signing domain and asks the wallet for the
// permit signature.
func (o *Orchestrator) signPermit(ctx context.Context, in *intent.Intent, req Requirement, value *big.Int) (relay.SponsoredApproval, error) {
	net, err := o.reg.Network(req.NetworkID)
	if err != nil {
		return relay.SponsoredApproval{}, err
	}
	owner := holderOf(in, req.NetworkID)

	dom, err := o.readDomain(ctx, net, req.Token, owner)
	if err != nil {
		return relay.SponsoredApproval{}, cerrs.OnNetwork(cerrs.CodeAllowance, req.NetworkID,
			"failed to read permit domain", err)
	}

	deadline := time.Now().Add(permitTTL).Unix()
	data := typedDataFor(req.Variant, dom, owner, net.Vault, value, deadline)

	sig, err := o.conn.Provider().SignTypedData(ctx, data)
	if wallet.IsRejected(err) {
		return relay.SponsoredApproval{}, cerrs.Wrap(cerrs.CodeUserDeclined, "permit signature declined", err)
	}
	if err != nil {
		return relay.SponsoredApproval{}, fmt.Errorf("failed to sign permit: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"pkg":     "permit",
		"network": req.NetworkID,
		"token":   req.Symbol,
		"variant": string(req.Variant),
	}).Debug("signed sponsored permit")

	return relay.SponsoredApproval{
		NetworkID: req.NetworkID,
		Token:     req.Token,
		Owner:     owner,
		Spender:   net.Vault,
		Value:     value.String(),
		Deadline:  deadline,
		Variant:   string(req.Variant),
		Signature: fmt.Sprintf("0x%x", sig),
	}, nil
}

// approveOnChain switches the wallet to the source network, sends the
// approve and waits for it to mine.
func (o *Orchestrator) approveOnChain(ctx context.Context, in *intent.Intent, req Requirement, value *big.Int) error {
	net, err := o.reg.Network(req.NetworkID)
	if err != nil {
		return err
	}
	if err := o.conn.SwitchTo(ctx, req.NetworkID); err != nil {
		if wallet.IsRejected(err) {
			return cerrs.Wrap(cerrs.CodeUserDeclined, "network switch declined", err)
		}
		return fmt.Errorf("failed to switch to network %d: %w", req.NetworkID, err)
	}

	data, err := balance.ERC20ABI().Pack("approve", net.VaultAddress(), value)
	if err != nil {
		return fmt.Errorf("failed to pack approve: %w", err)
	}

	token := ecommon.HexToAddress(req.Token)
	owner := ecommon.HexToAddress(holderOf(in, req.NetworkID))
	txHash, err := o.conn.Provider().SendTransaction(ctx, req.NetworkID, wallet.TxRequest{
		From: owner,
		To:   &token,
		Data: data,
	})
	if wallet.IsRejected(err) {
		return cerrs.Wrap(cerrs.CodeUserDeclined, "approval declined", err)
	}
	if err != nil {
		return cerrs.OnNetwork(cerrs.CodeOnChain, req.NetworkID, "failed to send approval", err)
	}

	client, err := o.clients.Get(ctx, req.NetworkID)
	if err != nil {
		return err
	}
	if _, err := evm.WaitMined(ctx, client, req.NetworkID, txHash); err != nil {
		return err
	}

	o.logger.WithFields(logrus.Fields{
		"pkg":     "permit",
		"network": req.NetworkID,
		"token":   req.Symbol,
		"tx":      txHash.Hex(),
	}).Debug("approval mined")
	return nil
}

// approveTron builds, signs and broadcasts a TRC-20 approve and polls for its
// confirmation.
func (o *Orchestrator) approveTron(ctx context.Context, in *intent.Intent, req Requirement, value *big.Int) error {
	signer := o.conn.TronSigner()
	if signer == nil {
		return cerrs.OnNetwork(cerrs.CodeUnsupported, req.NetworkID,
			"no tron signer connected", nil)
	}

	vault, err := o.reg.Vault(req.NetworkID)
	if err != nil {
		return err
	}

	rawData, txID, err := o.tronApp.BuildApprove(ctx, signer.Address(), req.Token, vault, value)
	if err != nil {
		return cerrs.OnNetwork(cerrs.CodeOnChain, req.NetworkID, "failed to build tron approval", err)
	}

	txID, err = o.tronSig.SignAndBroadcast(ctx, signer, rawData, txID)
	if err != nil {
		if wallet.IsRejected(err) {
			return cerrs.Wrap(cerrs.CodeUserDeclined, "tron approval declined", err)
		}
		return cerrs.OnNetwork(cerrs.CodeOnChain, req.NetworkID, "failed to broadcast tron approval", err)
	}
	return o.tronSig.WaitConfirmed(ctx, txID)
}

// Allowance reads the vault allowance a holder has granted on one token.
func (o *Orchestrator) Allowance(ctx context.Context, networkID uint64, token, holder string) (*big.Int, error) {
	net, err := o.reg.Network(networkID)
	if err != nil {
		return nil, err
	}
	if net.Family != registry.FamilyEVM {
		return nil, cerrs.OnNetwork(cerrs.CodeUnsupported, networkID,
			"allowance reads are only supported on evm networks", nil)
	}
	return o.readAllowance(ctx, net, token, holder)
}

// readAllowance reads allowance(holder, vault) on the token contract.
func (o *Orchestrator) readAllowance(ctx context.Context, net registry.Network, token, holder string) (*big.Int, error) {
	client, err := o.clients.Get(ctx, net.ID)
	if err != nil {
		return nil, err
	}

	data, err := balance.ERC20ABI().Pack("allowance", ecommon.HexToAddress(holder), net.VaultAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance: %w", err)
	}
	tokenAddr := ecommon.HexToAddress(token)
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

// readDomain fetches the token's EIP-712 domain fields and permit nonce.
func (o *Orchestrator) readDomain(ctx context.Context, net registry.Network, token, owner string) (permitDomain, error) {
	client, err := o.clients.Get(ctx, net.ID)
	if err != nil {
		return permitDomain{}, err
	}
	tokenAddr := ecommon.HexToAddress(token)

	name, err := o.readString(ctx, client, tokenAddr, "name")
	if err != nil {
		return permitDomain{}, err
	}
	version, err := o.readString(ctx, client, tokenAddr, "version")
	if err != nil || version == "" {
		version = "1"
	}

	data, err := balance.ERC20ABI().Pack("nonces", ecommon.HexToAddress(owner))
	if err != nil {
		return permitDomain{}, fmt.Errorf("failed to pack nonces: %w", err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return permitDomain{}, err
	}

	return permitDomain{
		Name:    name,
		Version: version,
		ChainID: net.ID,
		Token:   token,
		Nonce:   new(big.Int).SetBytes(out),
	}, nil
}

func (o *Orchestrator) readString(ctx context.Context, client evm.Client, contract ecommon.Address, method string) (string, error) {
	data, err := readerABI.Pack(method)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s: %w", method, err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return "", err
	}
	values, err := readerABI.Unpack(method, out)
	if err != nil || len(values) != 1 {
		return "", fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	s, _ := values[0].(string)
	return s, nil
}

// holderOf returns the source holder recorded for a network.
func holderOf(in *intent.Intent, networkID uint64) string {
	for _, s := range in.Sources {
		if s.NetworkID == networkID {
			return s.Holder
		}
	}
	return ""
}
