package settle

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/evm"
	"github.com/availproject/nexus-sdk-sub001/internal/intent"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/relay"
	"github.com/availproject/nexus-sdk-sub001/internal/steps"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

const (
	holderHex = "0x1111111111111111111111111111111111111111"
	baseUSDC  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	arbUSDC   = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
)

type fakeSub struct {
	logs chan etypes.Log
	errs chan error
}

func (f *fakeSub) Logs() <-chan etypes.Log { return f.logs }
func (f *fakeSub) Err() <-chan error       { return f.errs }
func (f *fakeSub) Unsubscribe()            {}

type fakeProvider struct {
	switches []uint64
	sent     []wallet.TxRequest
	sentGas  []uint64
	signErr  error
	sub      *fakeSub
	subQuery wallet.LogQuery
}

func (p *fakeProvider) Accounts(context.Context) ([]ecommon.Address, error) {
	return []ecommon.Address{ecommon.HexToAddress(holderHex)}, nil
}

func (p *fakeProvider) ChainID(context.Context) (uint64, error) { return 8453, nil }

func (p *fakeProvider) SwitchNetwork(_ context.Context, networkID uint64) error {
	p.switches = append(p.switches, networkID)
	return nil
}

func (p *fakeProvider) SendTransaction(_ context.Context, _ uint64, tx wallet.TxRequest) (ecommon.Hash, error) {
	p.sent = append(p.sent, tx)
	p.sentGas = append(p.sentGas, tx.Gas)
	return ecommon.HexToHash("0xdead"), nil
}

func (p *fakeProvider) SignTypedData(_ context.Context, _ apitypes.TypedData) ([]byte, error) {
	if p.signErr != nil {
		return nil, p.signErr
	}
	return bytes.Repeat([]byte{0xab}, 65), nil
}

func (p *fakeProvider) SignMessage(context.Context, []byte) ([]byte, error) {
	return bytes.Repeat([]byte{0xcd}, 65), nil
}

func (p *fakeProvider) SubscribeLogs(_ context.Context, _ uint64, q wallet.LogQuery) (wallet.Subscription, error) {
	p.subQuery = q
	return p.sub, nil
}

type fakeRelay struct {
	submitted []relay.SettlementRequest
	sigs      [][]byte
	statuses  []relay.RequestStatus
	submitErr error
}

func (r *fakeRelay) SubmitRequest(_ context.Context, req relay.SettlementRequest, sig []byte) (relay.SubmitResponse, error) {
	if r.submitErr != nil {
		return relay.SubmitResponse{}, r.submitErr
	}
	r.submitted = append(r.submitted, req)
	r.sigs = append(r.sigs, sig)
	return relay.SubmitResponse{RequestHash: "0xabc123", ExplorerURL: "https://relay.example/r/0xabc123"}, nil
}

func (r *fakeRelay) ListRequests(context.Context, string) ([]relay.RequestStatus, error) {
	return r.statuses, nil
}

type fakeEvm struct {
	estimates []ethereum.CallMsg
}

func (f *fakeEvm) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeEvm) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeEvm) FeeHistory(context.Context, uint64, *big.Int, []float64) (*ethereum.FeeHistory, error) {
	return &ethereum.FeeHistory{}, nil
}

func (f *fakeEvm) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.estimates = append(f.estimates, msg)
	return 100_000, nil
}

func (f *fakeEvm) TransactionReceipt(context.Context, ecommon.Hash) (*etypes.Receipt, error) {
	return &etypes.Receipt{Status: etypes.ReceiptStatusSuccessful}, nil
}

func newProtocol(t *testing.T, provider *fakeProvider, relayc *fakeRelay, evmc *fakeEvm) *Protocol {
	t.Helper()
	reg := registry.Mainnet()
	logger := logrus.New()

	conn := wallet.NewConnection(provider, nil, logger)
	require.NoError(t, conn.Revalidate(context.Background()))

	dial := func(ctx context.Context, rpcURL string) (evm.Client, error) { return evmc, nil }
	p := NewProtocol(reg, conn, evm.NewManager(reg, dial), relayc, logger)
	p.nonce = func() string { return "nonce-1" }
	p.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return p
}

func testIntent() *intent.Intent {
	return &intent.Intent{
		Destination: intent.Destination{
			NetworkID: 8453,
			Token:     baseUSDC,
			Symbol:    "USDC",
			Decimals:  6,
			Amount:    big.NewInt(100_000_000),
			Recipient: holderHex,
		},
		Sources: []intent.Source{
			{NetworkID: 42161, Token: arbUSDC, Decimals: 6, Amount: big.NewInt(60_030_000), Custodial: big.NewInt(10_000_000), Holder: holderHex},
			{NetworkID: 10, Token: registry.NativeToken, Decimals: 18, Amount: big.NewInt(2_000_000_000), Custodial: big.NewInt(0), Native: true, Holder: holderHex},
		},
		Fees: intent.Fees{
			Protocol:   big.NewInt(50_000),
			Fulfilment: big.NewInt(250_000),
			Collection: map[uint64]*big.Int{42161: big.NewInt(12_000)},
			Solver:     map[uint64]*big.Int{10: big.NewInt(18_000)},
		},
	}
}

func TestBuildRequestShape(t *testing.T) {
	p := newProtocol(t, &fakeProvider{}, &fakeRelay{}, &fakeEvm{})
	req := p.BuildRequest(testIntent())

	require.Equal(t, 1, req.Version)
	require.Equal(t, "nonce-1", req.Nonce)
	require.Equal(t, time.Unix(1_700_000_000, 0).Add(10*time.Minute).Unix(), req.Expiry)
	require.Equal(t, "100000000", req.Destination.Amount)
	require.Empty(t, req.Destination.GasAmount)

	require.Len(t, req.Sources, 2)
	require.Equal(t, "60030000", req.Sources[0].Amount)
	require.Equal(t, "10000000", req.Sources[0].Custodial)
	require.Empty(t, req.Sources[1].Custodial)

	require.Equal(t, "50000", req.Fees.Protocol)
	require.Equal(t, "12000", req.Fees.Collection["42161"])
	require.Equal(t, "18000", req.Fees.Solver["10"])
}

func TestSubmitCompletesMilestones(t *testing.T) {
	relayc := &fakeRelay{}
	p := newProtocol(t, &fakeProvider{}, relayc, &fakeEvm{})
	in := testIntent()

	ledger := steps.New([]string{
		steps.RequestSigned, steps.RequestSubmitted, steps.CollectionStep(42161),
	}, nil)

	sub, err := p.Submit(context.Background(), in, ledger)
	require.NoError(t, err)
	require.Equal(t, "0xabc123", sub.RequestHash)

	require.Len(t, relayc.submitted, 1)
	require.Len(t, relayc.sigs[0], 65)
	require.True(t, ledger.Done(steps.RequestSigned))
	require.True(t, ledger.Done(steps.RequestSubmitted))
	// Only the non-native source is relay-collected.
	require.True(t, ledger.Done(steps.CollectionStep(42161)))
}

func TestSubmitUserDeclined(t *testing.T) {
	relayc := &fakeRelay{}
	p := newProtocol(t, &fakeProvider{signErr: wallet.ErrRejected}, relayc, &fakeEvm{})

	_, err := p.Submit(context.Background(), testIntent(), steps.New(nil, nil))
	require.True(t, cerrs.Is(err, cerrs.CodeUserDeclined))
	require.Empty(t, relayc.submitted)
}

func TestDepositsNativeSources(t *testing.T) {
	provider := &fakeProvider{}
	evmc := &fakeEvm{}
	p := newProtocol(t, provider, &fakeRelay{}, evmc)
	in := testIntent()

	ledger := steps.New([]string{steps.DepositStep(10)}, nil)
	err := p.Deposits(context.Background(), in, Submission{RequestHash: "0xabc123"}, ledger)
	require.NoError(t, err)

	// One deposit for the native source only, simulated then sent with the
	// buffered limit.
	require.Len(t, evmc.estimates, 1)
	require.Len(t, provider.sent, 1)
	require.Equal(t, uint64(115_000), provider.sentGas[0])
	require.Equal(t, big.NewInt(2_000_000_000), provider.sent[0].Value)
	require.True(t, ledger.Done(steps.DepositStep(10)))

	// Switched to the source network, then restored to the destination.
	require.Equal(t, []uint64{10, 8453}, provider.switches)
}

func TestWaitFulfillmentConfirmsOnVaultLog(t *testing.T) {
	sub := &fakeSub{logs: make(chan etypes.Log, 1), errs: make(chan error, 1)}
	sub.logs <- etypes.Log{TxHash: ecommon.HexToHash("0xfeed")}
	provider := &fakeProvider{sub: sub}
	p := newProtocol(t, provider, &fakeRelay{}, &fakeEvm{})

	ledger := steps.New([]string{steps.IntentFulfilled}, nil)
	conf, err := p.WaitFulfillment(context.Background(), testIntent(), Submission{RequestHash: "0xabc123"}, 5*time.Second, ledger)
	require.NoError(t, err)
	require.True(t, conf.Confirmed)
	require.Equal(t, ecommon.HexToHash("0xfeed").Hex(), conf.TxHash)
	require.True(t, ledger.Done(steps.IntentFulfilled))

	require.Equal(t, fulfilledTopic, provider.subQuery.Topics[0])
	require.Equal(t, requestTopic("0xabc123"), provider.subQuery.Topics[1])
}

func TestWaitFulfillmentTimeoutIsNotAnError(t *testing.T) {
	sub := &fakeSub{logs: make(chan etypes.Log), errs: make(chan error)}
	p := newProtocol(t, &fakeProvider{sub: sub}, &fakeRelay{}, &fakeEvm{})

	ledger := steps.New([]string{steps.IntentFulfilled}, nil)
	conf, err := p.WaitFulfillment(context.Background(), testIntent(), Submission{RequestHash: "0xabc123"}, 100*time.Millisecond, ledger)
	require.NoError(t, err)
	require.False(t, conf.Confirmed)
	require.False(t, ledger.Done(steps.IntentFulfilled))
}

func TestWaitFulfillmentPollsRelayForTron(t *testing.T) {
	relayc := &fakeRelay{statuses: []relay.RequestStatus{
		{RequestHash: "0xother", Status: "pending"},
		{RequestHash: "0xabc123", Status: "FULFILLED"},
	}}
	p := newProtocol(t, &fakeProvider{}, relayc, &fakeEvm{})

	in := testIntent()
	in.Destination.NetworkID = registry.TronMainnetID
	in.Destination.Token = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

	ledger := steps.New([]string{steps.IntentFulfilled}, nil)
	conf, err := p.WaitFulfillment(context.Background(), in, Submission{RequestHash: "0xabc123"}, 10*time.Second, ledger)
	require.NoError(t, err)
	require.True(t, conf.Confirmed)
}

func TestSubmitRelayFailure(t *testing.T) {
	relayc := &fakeRelay{submitErr: errors.New("relay: 502")}
	p := newProtocol(t, &fakeProvider{}, relayc, &fakeEvm{})

	ledger := steps.New([]string{steps.RequestSigned, steps.RequestSubmitted}, nil)
	_, err := p.Submit(context.Background(), testIntent(), ledger)
	require.Error(t, err)
	require.True(t, ledger.Done(steps.RequestSigned))
	require.False(t, ledger.Done(steps.RequestSubmitted))
}
