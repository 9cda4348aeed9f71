package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

func TestSubmitRequest(t *testing.T) {
	var gotPath, gotClient string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClient = r.Header.Get("X-Nexus-Client")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(SubmitResponse{
			RequestHash: "0xabc",
			ExplorerURL: "https://explorer.example/0xabc",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithClientID("client-1"))
	resp, err := c.SubmitRequest(context.Background(), SettlementRequest{
		Version: 1,
		Nonce:   "n-1",
	}, []byte{0xde, 0xad})
	require.NoError(t, err)
	require.Equal(t, "0xabc", resp.RequestHash)
	require.Equal(t, "/v1/requests", gotPath)
	require.Equal(t, "client-1", gotClient)
	require.Equal(t, "0xdead", gotBody["signature"])
}

func TestSubmitRequestEmptyHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(SubmitResponse{})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SubmitRequest(context.Background(), SettlementRequest{}, nil)
	require.Error(t, err)
}

func TestRelayErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListRequests(context.Background(), "0x1")
	require.Error(t, err)
	require.Equal(t, cerrs.CodeRelay, cerrs.CodeOf(err))
}

func TestGeneratedClientID(t *testing.T) {
	c := NewClient("http://relay.invalid")
	require.NotEmpty(t, c.ClientID())
}

func TestIndexedBalancesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "43114", r.URL.Query().Get("networkId"))
		require.Equal(t, "0xholder", r.URL.Query().Get("address"))
		json.NewEncoder(w).Encode([]IndexedBalance{
			{NetworkID: 43114, Symbol: "USDC", Decimals: 6, Direct: "1000000", Custodial: "0"},
		})
	}))
	defer srv.Close()

	rows, err := NewClient(srv.URL).IndexedBalances(context.Background(), 43114, "0xholder")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "USDC", rows[0].Symbol)
}
