package tron

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

// RawSigner produces a 65-byte recoverable secp256k1 signature over the
// sha256 digest of a transaction's raw_data. The connected wallet supplies
// the implementation.
type RawSigner interface {
	Address() string
	SignRawData(rawData []byte) ([]byte, error)
}

// SignerService signs and broadcasts Tron transactions and waits for their
// confirmation.
type SignerService struct {
	client NodeClient
	logger *logrus.Logger
}

func NewSignerService(client NodeClient, logger *logrus.Logger) *SignerService {
	return &SignerService{
		client: client,
		logger: logger,
	}
}

// TxID computes the transaction id: sha256 over raw_data.
func TxID(rawData []byte) string {
	sum := sha256.Sum256(rawData)
	return hex.EncodeToString(sum[:])
}

// SignAndBroadcast signs raw_data with the wallet signer and broadcasts the
// result. Returns the transaction id.
func (s *SignerService) SignAndBroadcast(
	ctx context.Context,
	signer RawSigner,
	rawData []byte,
	txID string,
) (string, error) {
	signature, err := signer.SignRawData(rawData)
	if err != nil {
		return "", fmt.Errorf("tron: failed to sign transaction: %w", err)
	}

	if txID == "" {
		txID = TxID(rawData)
	}

	_, err = s.client.BroadcastTransaction(ctx, &Transaction{
		TxID:       txID,
		RawDataHex: hex.EncodeToString(rawData),
		Visible:    true,
		Signature:  []string{hex.EncodeToString(signature)},
	})
	if err != nil {
		return "", fmt.Errorf("tron: failed to broadcast transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"pkg":  "tron",
		"txid": txID,
	}).Debug("broadcasted transaction")
	return txID, nil
}

// WaitConfirmed polls until the transaction lands in a block or ctx expires.
func (s *SignerService) WaitConfirmed(ctx context.Context, txID string) error {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return cerrs.Wrap(cerrs.CodeTimeout, "tron confirmation wait", ctx.Err())
		case <-ticker.C:
			info, err := s.client.GetTransactionInfo(ctx, txID)
			if err != nil {
				return fmt.Errorf("tron: failed to poll tx info: %w", err)
			}
			if info.ID == "" || info.BlockNumber == 0 {
				continue
			}
			if info.Receipt != nil && info.Receipt.Result != "" && info.Receipt.Result != "SUCCESS" {
				return cerrs.OnNetwork(cerrs.CodeOnChain, 0,
					fmt.Sprintf("tron tx %s failed: %s", txID, info.Receipt.Result), nil)
			}
			return nil
		}
	}
}
