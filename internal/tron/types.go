package tron

// AccountInfo represents TRON account information.
type AccountInfo struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

// Block represents a TRON block.
type Block struct {
	BlockID     string       `json:"blockID"`
	BlockHeader *BlockHeader `json:"block_header"`
}

// BlockHeader represents a TRON block header.
type BlockHeader struct {
	RawData *BlockRawData `json:"raw_data"`
	Number  int64         `json:"number,omitempty"`
}

// BlockRawData represents raw data in a block header.
type BlockRawData struct {
	Number         int64  `json:"number"`
	TxTrieRoot     string `json:"txTrieRoot"`
	WitnessAddress string `json:"witness_address"`
	ParentHash     string `json:"parentHash"`
	Version        int    `json:"version"`
	Timestamp      int64  `json:"timestamp"`
}

// TriggerRequest asks the node to build an unsigned smart-contract call,
// e.g. a TRC-20 approve.
type TriggerRequest struct {
	OwnerAddress     string `json:"owner_address"`
	ContractAddress  string `json:"contract_address"`
	FunctionSelector string `json:"function_selector"`
	Parameter        string `json:"parameter"`
	FeeLimit         int64  `json:"fee_limit"`
	Visible          bool   `json:"visible"`
}

// TriggerResponse wraps the transaction built by the node.
type TriggerResponse struct {
	Transaction *Transaction `json:"transaction"`
}

// Transaction represents a TRON transaction.
type Transaction struct {
	TxID       string   `json:"txID"`
	RawDataHex string   `json:"raw_data_hex"`
	Visible    bool     `json:"visible,omitempty"`
	Signature  []string `json:"signature,omitempty"`
}

// BroadcastResponse is the node's answer to a broadcast.
type BroadcastResponse struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// TxInfo reports on-chain execution of a transaction, used for confirmation
// polling.
type TxInfo struct {
	ID             string `json:"id"`
	BlockNumber    int64  `json:"blockNumber"`
	BlockTimestamp int64  `json:"blockTimeStamp"`
	Receipt        *struct {
		Result string `json:"result"`
	} `json:"receipt,omitempty"`
}
