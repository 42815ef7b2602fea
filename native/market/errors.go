package market

import "errors"

var (
	ErrNotFound            = errors.New("market: listing not found")
	ErrPaused              = errors.New("market: module paused")
	ErrUnauthorized        = errors.New("market: unauthorized caller")
	ErrProgrammaticAccount = errors.New("market: programmatic accounts not allowed")
	ErrIDMismatch          = errors.New("market: listing identifier mismatch")
	ErrInvalidAmount       = errors.New("market: amount must be positive")
	ErrFundsTooLow         = errors.New("market: attached funds below required price")
	ErrBidTooLow           = errors.New("market: bid does not exceed current highest")
	ErrInsufficientBalance = errors.New("market: insufficient balance")
	ErrDeadlineTooFar      = errors.New("market: deadline beyond allowed horizon")
	ErrDeadlineTooClose    = errors.New("market: deadline inside securing period")
	ErrBiddingClosed       = errors.New("market: bidding window closed")
	ErrListingExpired      = errors.New("market: listing past deadline")
	ErrNotExpired          = errors.New("market: listing not expired")
	ErrBuyerMismatch       = errors.New("market: buyer does not match listing")
	ErrInvalidPeriod       = errors.New("market: period must be non-negative")
	ErrSettingsNotFound    = errors.New("market: settings not initialised")
)
