package jupiter

// quoteOutAmount extracts just the fields we read from a quote; the full body
// is forwarded opaquely to the swap endpoint.
type quoteOutAmount struct {
	OutAmount string `json:"outAmount"`
}

// swapRequest is the body of the swap-build endpoint.
type swapRequest struct {
	QuoteResponse             any    `json:"quoteResponse"`
	UserPublicKey             string `json:"userPublicKey"`
	WrapAndUnwrapSol          bool   `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool   `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// priceResponse is the shape of the price/v2 endpoint.
type priceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}
