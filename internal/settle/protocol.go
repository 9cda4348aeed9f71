// Package settle turns an accepted intent into a signed settlement request,
// submits it to the relay, funds native sources with vault deposits and waits
// for the destination-side fulfillment.
package settle

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	emath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/evm"
	"github.com/availproject/nexus-sdk-sub001/internal/intent"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/relay"
	"github.com/availproject/nexus-sdk-sub001/internal/steps"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

// requestVersion is the settlement request wire version.
const requestVersion = 1

// requestTTL bounds how long a signed request stays submittable.
const requestTTL = 10 * time.Minute

// relayPollInterval paces the status polling fallback on non-EVM
// destinations.
const relayPollInterval = 3 * time.Second

// StatusFulfilled is the relay's terminal success status.
const StatusFulfilled = "fulfilled"

// fulfilledTopic is the destination vault's fulfillment event signature.
var fulfilledTopic = crypto.Keccak256Hash([]byte("Fulfilled(bytes32)"))

// signingDomain names the EIP-712 domain settlement requests are signed
// under.
const (
	signingDomainName    = "Nexus Settlement"
	signingDomainVersion = "1"
)

// Submitter is the relay surface the protocol needs.
type Submitter interface {
	SubmitRequest(ctx context.Context, req relay.SettlementRequest, signature []byte) (relay.SubmitResponse, error)
	ListRequests(ctx context.Context, address string) ([]relay.RequestStatus, error)
}

// Submission identifies a request accepted by the relay.
type Submission struct {
	RequestHash string
	ExplorerURL string
}

// Confirmation is the outcome of a fulfillment wait. Confirmed=false with a
// nil error means the wait timed out; the relay stays the source of truth.
type Confirmation struct {
	Confirmed bool
	TxHash    string
}

// Protocol drives one settlement round trip.
type Protocol struct {
	reg     *registry.Registry
	conn    *wallet.Connection
	clients *evm.Manager
	relayc  Submitter
	logger  *logrus.Logger

	// Overridable in tests.
	nonce func() string
	now   func() time.Time
}

func NewProtocol(reg *registry.Registry, conn *wallet.Connection, clients *evm.Manager, relayc Submitter, logger *logrus.Logger) *Protocol {
	return &Protocol{
		reg:     reg,
		conn:    conn,
		clients: clients,
		relayc:  relayc,
		logger:  logger,
		nonce:   uuid.NewString,
		now:     time.Now,
	}
}

// BuildRequest flattens an intent into its versioned wire form.
func (p *Protocol) BuildRequest(in *intent.Intent) relay.SettlementRequest {
	req := relay.SettlementRequest{
		Version: requestVersion,
		Nonce:   p.nonce(),
		Expiry:  p.now().Add(requestTTL).Unix(),
		Destination: relay.RequestDestination{
			NetworkID: in.Destination.NetworkID,
			Token:     in.Destination.Token,
			Amount:    in.Destination.Amount.String(),
			Recipient: in.Destination.Recipient,
		},
		Fees: relay.RequestFees{
			Protocol:   amountString(in.Fees.Protocol),
			Fulfilment: amountString(in.Fees.Fulfilment),
		},
	}
	if in.Destination.GasAmount != nil && in.Destination.GasAmount.Sign() > 0 {
		req.Destination.GasAmount = in.Destination.GasAmount.String()
		req.Fees.GasSupplied = amountString(in.Fees.GasSupplied)
	}

	for _, src := range in.Sources {
		row := relay.RequestSource{
			NetworkID: src.NetworkID,
			Token:     src.Token,
			Amount:    src.Amount.String(),
			Holder:    src.Holder,
		}
		if src.Custodial != nil && src.Custodial.Sign() > 0 {
			row.Custodial = src.Custodial.String()
		}
		req.Sources = append(req.Sources, row)
	}

	if len(in.Fees.Collection) > 0 {
		req.Fees.Collection = make(map[string]string, len(in.Fees.Collection))
		for id, v := range in.Fees.Collection {
			req.Fees.Collection[fmt.Sprint(id)] = v.String()
		}
	}
	if len(in.Fees.Solver) > 0 {
		req.Fees.Solver = make(map[string]string, len(in.Fees.Solver))
		for id, v := range in.Fees.Solver {
			req.Fees.Solver[fmt.Sprint(id)] = v.String()
		}
	}
	return req
}

// Sign produces the request signature for the destination's address family:
// EIP-712 over the request digest for EVM, a raw-data signature for Tron.
func (p *Protocol) Sign(ctx context.Context, in *intent.Intent, req relay.SettlementRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	net, err := p.reg.Network(in.Destination.NetworkID)
	if err != nil {
		return nil, err
	}

	if net.Family == registry.FamilyTron {
		signer := p.conn.TronSigner()
		if signer == nil {
			return nil, cerrs.OnNetwork(cerrs.CodeUnsupported, net.ID, "no tron signer connected", nil)
		}
		sig, err := signer.SignRawData(body)
		if err != nil {
			if wallet.IsRejected(err) {
				return nil, cerrs.Wrap(cerrs.CodeUserDeclined, "request signature declined", err)
			}
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
		return sig, nil
	}

	digest := sha256.Sum256(body)
	data := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Settlement": []apitypes.Type{
				{Name: "digest", Type: "bytes32"},
				{Name: "nonce", Type: "string"},
				{Name: "expiry", Type: "uint256"},
			},
		},
		PrimaryType: "Settlement",
		Domain: apitypes.TypedDataDomain{
			Name:    signingDomainName,
			Version: signingDomainVersion,
			ChainId: emath.NewHexOrDecimal256(int64(net.ID)),
		},
		Message: apitypes.TypedDataMessage{
			"digest": hexutil.Encode(digest[:]),
			"nonce":  req.Nonce,
			"expiry": emath.NewHexOrDecimal256(req.Expiry),
		},
	}

	sig, err := p.conn.Provider().SignTypedData(ctx, data)
	if wallet.IsRejected(err) {
		return nil, cerrs.Wrap(cerrs.CodeUserDeclined, "request signature declined", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	return sig, nil
}

// Submit signs the request and hands it to the relay. Relay collection of the
// non-native sources starts on acceptance, so their milestones complete here.
func (p *Protocol) Submit(ctx context.Context, in *intent.Intent, ledger *steps.Ledger) (Submission, error) {
	req := p.BuildRequest(in)
	sig, err := p.Sign(ctx, in, req)
	if err != nil {
		return Submission{}, err
	}
	ledger.Complete(steps.RequestSigned)

	resp, err := p.relayc.SubmitRequest(ctx, req, sig)
	if err != nil {
		return Submission{}, err
	}
	ledger.Complete(steps.RequestSubmitted)
	for _, src := range in.Sources {
		if !src.Native {
			ledger.Complete(steps.CollectionStep(src.NetworkID))
		}
	}

	p.logger.WithFields(logrus.Fields{
		"pkg":     "settle",
		"hash":    resp.RequestHash,
		"sources": len(in.Sources),
	}).Info("settlement request submitted")

	return Submission{RequestHash: resp.RequestHash, ExplorerURL: resp.ExplorerURL}, nil
}

// WaitFulfillment resolves when the destination vault reports the request
// fulfilled or the timeout passes. Timing out is not an error.
func (p *Protocol) WaitFulfillment(ctx context.Context, in *intent.Intent, sub Submission, timeout time.Duration, ledger *steps.Ledger) (Confirmation, error) {
	net, err := p.reg.Network(in.Destination.NetworkID)
	if err != nil {
		return Confirmation{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var conf Confirmation
	if net.Family == registry.FamilyEVM {
		conf, err = p.waitVaultLog(ctx, net, sub)
	} else {
		conf, err = p.waitRelayStatus(ctx, in, sub)
	}
	if err != nil {
		return Confirmation{}, err
	}
	if conf.Confirmed {
		ledger.Complete(steps.IntentFulfilled)
	}
	return conf, nil
}

// waitVaultLog subscribes to the destination vault's fulfillment event
// filtered by request hash.
func (p *Protocol) waitVaultLog(ctx context.Context, net registry.Network, sub Submission) (Confirmation, error) {
	hash := requestTopic(sub.RequestHash)
	logs, err := p.conn.Provider().SubscribeLogs(ctx, net.ID, wallet.LogQuery{
		Contract: net.VaultAddress(),
		Topics:   []ecommon.Hash{fulfilledTopic, hash},
	})
	if err != nil {
		return Confirmation{}, cerrs.OnNetwork(cerrs.CodeOnChain, net.ID,
			"failed to subscribe to vault logs", err)
	}
	defer logs.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return Confirmation{Confirmed: false}, nil
		case err := <-logs.Err():
			return Confirmation{}, cerrs.OnNetwork(cerrs.CodeOnChain, net.ID,
				"vault log subscription failed", err)
		case log := <-logs.Logs():
			return Confirmation{Confirmed: true, TxHash: log.TxHash.Hex()}, nil
		}
	}
}

// waitRelayStatus polls the relay's request list until the hash reports
// fulfilled. Used on destinations without a log subscription.
func (p *Protocol) waitRelayStatus(ctx context.Context, in *intent.Intent, sub Submission) (Confirmation, error) {
	ticker := time.NewTicker(relayPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Confirmation{Confirmed: false}, nil
		case <-ticker.C:
			rows, err := p.relayc.ListRequests(ctx, in.Destination.Recipient)
			if err != nil {
				if ctx.Err() != nil {
					return Confirmation{Confirmed: false}, nil
				}
				p.logger.WithField("pkg", "settle").WithError(err).Warn("failed to poll request status")
				continue
			}
			for _, row := range rows {
				if row.RequestHash == sub.RequestHash && strings.EqualFold(row.Status, StatusFulfilled) {
					return Confirmation{Confirmed: true}, nil
				}
			}
		}
	}
}

// requestTopic normalizes a request hash into its 32-byte topic form.
func requestTopic(hash string) ecommon.Hash {
	return ecommon.HexToHash(hash)
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
