package solana

import "encoding/json"

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope. Result is decoded lazily
// into the caller's target type.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// tokenAccountsResult is the shape of getTokenAccountsByOwner.
type tokenAccountsResult struct {
	Value []struct {
		Pubkey string `json:"pubkey"`
	} `json:"value"`
}

// TokenAmount is the balance payload returned by getTokenAccountBalance.
// Amount is the raw integer balance in smallest units, as a decimal string.
type TokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
	UIAmount string `json:"uiAmountString"`
}

type tokenBalanceResult struct {
	Value TokenAmount `json:"value"`
}

// signatureStatusesResult is the shape of getSignatureStatuses.
type signatureStatusesResult struct {
	Value []*struct {
		ConfirmationStatus string `json:"confirmationStatus"`
		Err                any    `json:"err"`
	} `json:"value"`
}
