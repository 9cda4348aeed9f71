package relay

import (
	"context"
	"fmt"
	"net/http"
)

// SubmitRequest submits a signed settlement request. The relay answers with
// the request hash that identifies it from then on.
func (c *Client) SubmitRequest(ctx context.Context, req SettlementRequest, signature []byte) (SubmitResponse, error) {
	body := struct {
		Request   SettlementRequest `json:"request"`
		Signature string            `json:"signature"`
	}{
		Request:   req,
		Signature: fmt.Sprintf("0x%x", signature),
	}

	resp, err := call[SubmitResponse](ctx, c, http.MethodPost, "/v1/requests", body, nil)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("failed to submit settlement request: %w", err)
	}
	if resp.RequestHash == "" {
		return SubmitResponse{}, fmt.Errorf("relay returned empty request hash")
	}
	return resp, nil
}

// SubmitSponsoredApprovals submits a batch of signed permits in one call.
// The relay lands them on-chain; no client-side transaction or wait follows.
func (c *Client) SubmitSponsoredApprovals(ctx context.Context, approvals []SponsoredApproval) error {
	body := struct {
		Approvals []SponsoredApproval `json:"approvals"`
	}{Approvals: approvals}

	_, err := call[struct{}](ctx, c, http.MethodPost, "/v1/approvals", body, nil)
	if err != nil {
		return fmt.Errorf("failed to submit sponsored approvals: %w", err)
	}
	return nil
}

// ListRequests returns prior settlement requests for an address.
func (c *Client) ListRequests(ctx context.Context, address string) ([]RequestStatus, error) {
	resp, err := call[[]RequestStatus](ctx, c, http.MethodGet, "/v1/requests", nil, map[string]string{
		"address": address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return resp, nil
}

// IndexedBalances fetches indexed balances for an EVM address on networks the
// relay indexes.
func (c *Client) IndexedBalances(ctx context.Context, networkID uint64, address string) ([]IndexedBalance, error) {
	resp, err := call[[]IndexedBalance](ctx, c, http.MethodGet, "/v1/balances", nil, map[string]string{
		"networkId": fmt.Sprintf("%d", networkID),
		"address":   address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch indexed balances: %w", err)
	}
	return resp, nil
}

// TronBalances fetches balances for a Tron-family address.
func (c *Client) TronBalances(ctx context.Context, address string) ([]IndexedBalance, error) {
	resp, err := call[[]IndexedBalance](ctx, c, http.MethodGet, "/v1/tron/balances", nil, map[string]string{
		"address": address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tron balances: %w", err)
	}
	return resp, nil
}
