// Package wallet abstracts the user's wallet provider and owns the single
// piece of shared mutable state in the SDK: the active connection (address +
// active network). All on-chain work flows through a Connection so network
// switches stay paired with their restoring switch.
package wallet

import (
	"context"
	"errors"
	"math/big"

	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"
)

// ErrRejected is returned by providers when the user declines a prompt
// (signature, transaction or network switch). Callers must distinguish it
// from every other provider failure.
var ErrRejected = errors.New("wallet: request rejected by user")

// IsRejected reports whether err is a user rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// TxRequest is an unsigned transaction handed to the provider for signing and
// broadcast. Gas fields may be zero; the provider fills them in.
type TxRequest struct {
	From  ecommon.Address
	To    *ecommon.Address
	Value *big.Int
	Data  []byte
	Gas   uint64
}

// LogQuery selects vault logs for the fulfillment subscription.
type LogQuery struct {
	Contract ecommon.Address
	Topics   []ecommon.Hash
}

// Subscription delivers matching logs until Unsubscribe is called.
type Subscription interface {
	Logs() <-chan etypes.Log
	Err() <-chan error
	Unsubscribe()
}

// Provider is the wallet-side interface the SDK drives. Implementations wrap
// an injected browser wallet, a remote signer or a local key. Every call is
// fire-and-await; a user cancellation surfaces as ErrRejected.
type Provider interface {
	Accounts(ctx context.Context) ([]ecommon.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchNetwork(ctx context.Context, networkID uint64) error
	SendTransaction(ctx context.Context, networkID uint64, tx TxRequest) (ecommon.Hash, error)
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	SubscribeLogs(ctx context.Context, networkID uint64, q LogQuery) (Subscription, error)
}

// TronSigner signs for the Tron-family address, when one is connected.
type TronSigner interface {
	Address() string
	SignRawData(rawData []byte) ([]byte, error)
}

// Connection tracks the last-known connected address and the active network.
// It is owned by one coordinator and passed by reference; operations are
// serialized through Revalidate rather than locks.
type Connection struct {
	provider Provider
	tron     TronSigner
	logger   *logrus.Logger

	lastKnown ecommon.Address
	active    uint64
}

func NewConnection(provider Provider, tron TronSigner, logger *logrus.Logger) *Connection {
	return &Connection{
		provider: provider,
		tron:     tron,
		logger:   logger,
	}
}

func (c *Connection) Provider() Provider { return c.provider }

// TronSigner returns the connected Tron-family signer, or nil.
func (c *Connection) TronSigner() TronSigner { return c.tron }

// Address returns the last validated EVM address.
func (c *Connection) Address() ecommon.Address { return c.lastKnown }

// TronAddress returns the connected Tron address, or "".
func (c *Connection) TronAddress() string {
	if c.tron == nil {
		return ""
	}
	return c.tron.Address()
}

// needsReinit is the pure re-validation decision: reinitialize when the
// connected address changed since it was last observed.
func needsReinit(last, current ecommon.Address) bool {
	return last != current
}

// Revalidate re-checks the connected address immediately before an externally
// triggered operation and re-initializes the connection if it changed. This
// is the only serialization point for the shared wallet state.
func (c *Connection) Revalidate(ctx context.Context) error {
	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("wallet: no connected accounts")
	}

	current := accounts[0]
	if needsReinit(c.lastKnown, current) {
		c.logger.WithFields(logrus.Fields{
			"pkg":  "wallet",
			"prev": c.lastKnown.Hex(),
			"next": current.Hex(),
		}).Debug("connected address changed, reinitializing")
		c.lastKnown = current
	}

	id, err := c.provider.ChainID(ctx)
	if err != nil {
		return err
	}
	c.active = id
	return nil
}

// ActiveNetwork returns the network id observed at the last revalidation or
// switch.
func (c *Connection) ActiveNetwork() uint64 { return c.active }

// SwitchTo moves the wallet to the given network. Callers pair it with a
// deferred restore to the destination network around on-chain actions.
func (c *Connection) SwitchTo(ctx context.Context, networkID uint64) error {
	if c.active == networkID {
		return nil
	}
	if err := c.provider.SwitchNetwork(ctx, networkID); err != nil {
		return err
	}
	c.active = networkID
	return nil
}

// Restore switches back to networkID, logging instead of failing: it runs in
// defer paths where the original error must win.
func (c *Connection) Restore(ctx context.Context, networkID uint64) {
	if err := c.SwitchTo(ctx, networkID); err != nil {
		c.logger.WithFields(logrus.Fields{
			"pkg":     "wallet",
			"network": networkID,
		}).WithError(err).Warn("failed to restore wallet network")
	}
}
