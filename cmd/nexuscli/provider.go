package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/wallet"
)

// keyProvider implements the wallet provider over a raw private key. It never
// prompts, so nothing it does can surface as a user rejection.
type keyProvider struct {
	key     *ecdsa.PrivateKey
	address ecommon.Address
	reg     *registry.Registry

	mu      sync.Mutex
	active  uint64
	clients map[uint64]*ethclient.Client
}

func newKeyProvider(hexKey string, reg *registry.Registry, home uint64) (*keyProvider, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &keyProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		reg:     reg,
		active:  home,
		clients: make(map[uint64]*ethclient.Client),
	}, nil
}

func (p *keyProvider) client(ctx context.Context, networkID uint64) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[networkID]; ok {
		return c, nil
	}
	net, err := p.reg.Network(networkID)
	if err != nil {
		return nil, err
	}
	c, err := ethclient.DialContext(ctx, net.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial network %d: %w", networkID, err)
	}
	p.clients[networkID] = c
	return c, nil
}

func (p *keyProvider) Accounts(context.Context) ([]ecommon.Address, error) {
	return []ecommon.Address{p.address}, nil
}

func (p *keyProvider) ChainID(context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, nil
}

func (p *keyProvider) SwitchNetwork(_ context.Context, networkID uint64) error {
	if _, err := p.reg.Network(networkID); err != nil {
		return err
	}
	p.mu.Lock()
	p.active = networkID
	p.mu.Unlock()
	return nil
}

func (p *keyProvider) SendTransaction(ctx context.Context, networkID uint64, req wallet.TxRequest) (ecommon.Hash, error) {
	client, err := p.client(ctx, networkID)
	if err != nil {
		return ecommon.Hash{}, err
	}

	nonce, err := client.PendingNonceAt(ctx, p.address)
	if err != nil {
		return ecommon.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return ecommon.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gas := req.Gas
	if gas == 0 {
		gas, err = client.EstimateGas(ctx, ethereum.CallMsg{
			From:  p.address,
			To:    req.To,
			Value: req.Value,
			Data:  req.Data,
		})
		if err != nil {
			return ecommon.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	tx := etypes.NewTx(&etypes.LegacyTx{
		Nonce:    nonce,
		To:       req.To,
		Value:    req.Value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	signed, err := etypes.SignTx(tx, etypes.LatestSignerForChainID(new(big.Int).SetUint64(networkID)), p.key)
	if err != nil {
		return ecommon.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return ecommon.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed.Hash(), nil
}

func (p *keyProvider) SignTypedData(_ context.Context, data apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	sig, err := crypto.Sign(hash, p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

func (p *keyProvider) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

func (p *keyProvider) SubscribeLogs(ctx context.Context, networkID uint64, q wallet.LogQuery) (wallet.Subscription, error) {
	client, err := p.client(ctx, networkID)
	if err != nil {
		return nil, err
	}

	topics := make([][]ecommon.Hash, len(q.Topics))
	for i, t := range q.Topics {
		topics[i] = []ecommon.Hash{t}
	}

	logs := make(chan etypes.Log, 8)
	sub, err := client.SubscribeFilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []ecommon.Address{q.Contract},
		Topics:    topics,
	}, logs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to logs: %w", err)
	}
	return &logSubscription{sub: sub, logs: logs}, nil
}

type logSubscription struct {
	sub  ethereum.Subscription
	logs chan etypes.Log
}

func (s *logSubscription) Logs() <-chan etypes.Log { return s.logs }
func (s *logSubscription) Err() <-chan error       { return s.sub.Err() }
func (s *logSubscription) Unsubscribe()            { s.sub.Unsubscribe() }
