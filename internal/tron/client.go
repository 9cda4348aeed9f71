// Package tron is the Tron-family submodule: account reads, TRC-20 contract
// triggers, raw-transaction signing and broadcast, and confirmation polling.
package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

// NodeClient defines the node calls the SDK needs.
type NodeClient interface {
	GetAccount(ctx context.Context, address string) (*AccountInfo, error)
	GetNowBlock(ctx context.Context) (*Block, error)
	TriggerSmartContract(ctx context.Context, req *TriggerRequest) (*Transaction, error)
	BroadcastTransaction(ctx context.Context, tx *Transaction) (*BroadcastResponse, error)
	GetTransactionInfo(ctx context.Context, txID string) (*TxInfo, error)
}

// Client implements NodeClient against a TronGrid-compatible HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetAccount fetches account information from the TRON network.
func (c *Client) GetAccount(ctx context.Context, address string) (*AccountInfo, error) {
	reqBody := struct {
		Address string `json:"address"`
		Visible bool   `json:"visible"`
	}{Address: address, Visible: true}

	var account AccountInfo
	if err := c.post(ctx, "/wallet/getaccount", reqBody, &account); err != nil {
		return nil, fmt.Errorf("tron: failed to get account: %w", err)
	}
	return &account, nil
}

// GetNowBlock fetches the current block.
func (c *Client) GetNowBlock(ctx context.Context) (*Block, error) {
	var block Block
	if err := c.post(ctx, "/wallet/getnowblock", nil, &block); err != nil {
		return nil, fmt.Errorf("tron: failed to get now block: %w", err)
	}
	return &block, nil
}

// TriggerSmartContract builds an unsigned smart-contract transaction.
func (c *Client) TriggerSmartContract(ctx context.Context, req *TriggerRequest) (*Transaction, error) {
	var resp TriggerResponse
	if err := c.post(ctx, "/wallet/triggersmartcontract", req, &resp); err != nil {
		return nil, fmt.Errorf("tron: failed to trigger contract: %w", err)
	}
	if resp.Transaction == nil || resp.Transaction.RawDataHex == "" {
		return nil, fmt.Errorf("tron: no transaction in trigger response")
	}
	return resp.Transaction, nil
}

// BroadcastTransaction submits a signed transaction.
func (c *Client) BroadcastTransaction(ctx context.Context, tx *Transaction) (*BroadcastResponse, error) {
	var resp BroadcastResponse
	if err := c.post(ctx, "/wallet/broadcasttransaction", tx, &resp); err != nil {
		return nil, fmt.Errorf("tron: failed to broadcast: %w", err)
	}
	if !resp.Result {
		return nil, cerrs.OnNetwork(cerrs.CodeOnChain, 0,
			fmt.Sprintf("tron broadcast rejected: %s %s", resp.Code, resp.Message), nil)
	}
	return &resp, nil
}

// GetTransactionInfo fetches on-chain execution info for confirmation polling.
// An unconfirmed transaction returns an empty TxInfo.
func (c *Client) GetTransactionInfo(ctx context.Context, txID string) (*TxInfo, error) {
	reqBody := struct {
		Value string `json:"value"`
	}{Value: txID}

	var info TxInfo
	if err := c.post(ctx, "/wallet/gettransactioninfobyid", reqBody, &info); err != nil {
		return nil, fmt.Errorf("tron: failed to get tx info: %w", err)
	}
	return &info, nil
}
