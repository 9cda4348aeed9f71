// Package evm owns the JSON-RPC surface for EVM-family networks: a dialed
// client per network, cached for the process lifetime, plus receipt polling.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/availproject/nexus-sdk-sub001/internal/registry"
)

// Client is the RPC surface the SDK needs per network. *ethclient.Client
// satisfies it; tests substitute fakes.
type Client interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash ecommon.Hash) (*etypes.Receipt, error)
}

// Dialer opens a Client for an RPC URL. Injected for tests.
type Dialer func(ctx context.Context, rpcURL string) (Client, error)

// Dial is the production dialer.
func Dial(ctx context.Context, rpcURL string) (Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	return c, nil
}

// Manager hands out one client per network, dialing lazily and caching the
// result. Concurrent callers share the cached client.
type Manager struct {
	reg  *registry.Registry
	dial Dialer

	mu      sync.Mutex
	clients map[uint64]Client
}

func NewManager(reg *registry.Registry, dial Dialer) *Manager {
	return &Manager{
		reg:     reg,
		dial:    dial,
		clients: make(map[uint64]Client),
	}
}

// Get returns the client for a network, dialing it on first use.
func (m *Manager) Get(ctx context.Context, networkID uint64) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[networkID]; ok {
		return c, nil
	}

	net, err := m.reg.Network(networkID)
	if err != nil {
		return nil, err
	}
	c, err := m.dial(ctx, net.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial network %d: %w", networkID, err)
	}
	m.clients[networkID] = c
	return c, nil
}
