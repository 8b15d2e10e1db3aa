package domain

import "errors"

// Sentinel errors for the trade pipeline and monitor. All are terminal for the
// operation that raised them; callers match with errors.Is and read the
// wrapped cause for diagnostics. The engine performs no automatic retries.
var (
	// ErrQuoteFailed: the aggregator quote request errored or returned a
	// non-success status.
	ErrQuoteFailed = errors.New("quote request failed")

	// ErrSwapBuild: construction or signing of the swap transaction failed.
	ErrSwapBuild = errors.New("swap transaction build failed")

	// ErrSubmissionFailed: the signed transaction was rejected by the ledger
	// or never reached confirmed commitment.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrPriceDerivation: the post-buy balance read found no token account or
	// a zero balance, so no entry price could be computed. The buy itself was
	// already submitted; callers must attempt a compensating sell.
	ErrPriceDerivation = errors.New("entry price derivation failed")

	// ErrZeroBalance: division-by-zero guard for execution-price computation.
	ErrZeroBalance = errors.New("zero token balance")

	// ErrNoPosition: nothing to sell; the token account is missing or empty.
	ErrNoPosition = errors.New("no position to liquidate")

	// ErrAlreadyMonitoring: a position is already OPEN in the single monitor
	// slot.
	ErrAlreadyMonitoring = errors.New("position already being monitored")

	// Transport-level sentinels shared by the platform clients.
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)
