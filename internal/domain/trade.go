package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SwapQuote is the opaque priced offer returned by the aggregator for a swap.
// Raw is forwarded verbatim to the swap-build endpoint; OutAmount is the
// quoted output in smallest units. Quotes are ephemeral and never persisted.
type SwapQuote struct {
	Raw       json.RawMessage
	OutAmount string
}

// TradeResult is what a completed buy hands back to the intake layer: the
// submitted transaction signature and the position opened from it.
type TradeResult struct {
	ID        string
	Mint      string
	Signature string
	Position  *Position
}

// ExitReport is delivered asynchronously when a monitored position reaches a
// terminal state. Signature is the liquidation transaction when one was
// submitted; Err carries the sell failure when the close is CLOSED_ERROR.
type ExitReport struct {
	Position  Position
	Signature string
	Price     decimal.Decimal
	Err       error
}
