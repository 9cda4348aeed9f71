package relay

// RequestSource is one source leg of a settlement request on the wire.
// Amounts are decimal strings in the token's base units.
type RequestSource struct {
	NetworkID uint64 `json:"networkId"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Holder    string `json:"holder"`
	Custodial string `json:"custodial,omitempty"`
}

// RequestDestination is the destination leg of a settlement request.
type RequestDestination struct {
	NetworkID uint64 `json:"networkId"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	GasAmount string `json:"gasAmount,omitempty"`
	Recipient string `json:"recipient"`
}

// RequestFees mirrors the intent fee breakdown on the wire.
type RequestFees struct {
	Protocol    string            `json:"protocol"`
	Fulfilment  string            `json:"fulfilment"`
	GasSupplied string            `json:"gasSupplied,omitempty"`
	Collection  map[string]string `json:"collection,omitempty"`
	Solver      map[string]string `json:"solver,omitempty"`
}

// SettlementRequest is the versioned wire form of an accepted intent.
type SettlementRequest struct {
	Version     int                `json:"version"`
	Nonce       string             `json:"nonce"`
	Expiry      int64              `json:"expiry"`
	Destination RequestDestination `json:"destination"`
	Sources     []RequestSource    `json:"sources"`
	Fees        RequestFees        `json:"fees"`
}

// SubmitResponse identifies a submitted request.
type SubmitResponse struct {
	RequestHash string `json:"requestHash"`
	ExplorerURL string `json:"explorerUrl"`
}

// SponsoredApproval is one signed permit in a sponsored batch.
type SponsoredApproval struct {
	NetworkID uint64 `json:"networkId"`
	Token     string `json:"token"`
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Value     string `json:"value"`
	Deadline  int64  `json:"deadline"`
	Variant   string `json:"variant"`
	Signature string `json:"signature"`
}

// RequestStatus is a prior settlement request as reported by the relay.
type RequestStatus struct {
	RequestHash string `json:"requestHash"`
	Status      string `json:"status"`
	ExplorerURL string `json:"explorerUrl"`
	CreatedAt   int64  `json:"createdAt"`
	FulfilledAt int64  `json:"fulfilledAt,omitempty"`
}

// IndexedBalance is one balance row from the relay's balance index. Used for
// networks with provider-side indexing and for the Tron family.
type IndexedBalance struct {
	NetworkID uint64 `json:"networkId"`
	Token     string `json:"token"`
	Symbol    string `json:"symbol"`
	Decimals  int    `json:"decimals"`
	Direct    string `json:"direct"`
	Custodial string `json:"custodial"`
}
