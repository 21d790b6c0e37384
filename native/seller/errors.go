package seller

import (
	"errors"

	"sellerchain/core/gas"
	"sellerchain/native/common"
)

var (
	ErrUnauthorized              = errors.New("seller: caller rank too low")
	ErrInvalidRank               = errors.New("seller: rank outside the enumerated set")
	ErrProtectedAccount          = errors.New("seller: account holds full rank")
	ErrInvalidFraction           = errors.New("seller: reward denominator must be positive")
	ErrPurchaseUnavailable       = errors.New("seller: price not configured")
	ErrInsufficientPayment       = errors.New("seller: payment below unit price")
	ErrInsufficientCustodySupply = errors.New("seller: custody balance cannot cover purchase")
	ErrDisbursementFailed        = errors.New("seller: custody token transfer failed")
	ErrNothingToWithdraw         = errors.New("seller: native balance is zero")
	// ErrOutOfResources aborts a call that ran out of gas.
	ErrOutOfResources = gas.ErrOutOfGas

	ErrReentrantCall     = common.ErrReentrantCall
	ErrNotPayable        = errors.New("seller: method does not accept value")
	ErrUnknownMethod     = errors.New("seller: unknown method")
	ErrInvalidInput      = errors.New("seller: malformed call data")
	ErrInvalidAmount     = errors.New("seller: amount must be a non-negative 256-bit integer")
	ErrInsufficientFunds = errors.New("seller: buyer balance below payment")
	ErrNotDeployed       = errors.New("seller: contract not deployed")
	ErrAlreadyDeployed   = errors.New("seller: contract already deployed")

	errNilState = errors.New("seller engine: state not configured")
	errNoTokens = errors.New("seller engine: token resolver not configured")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidRank, "invalid_rank"},
	{ErrProtectedAccount, "protected_account"},
	{ErrInvalidFraction, "invalid_fraction"},
	{ErrPurchaseUnavailable, "purchase_unavailable"},
	{ErrInsufficientPayment, "insufficient_payment"},
	{ErrInsufficientCustodySupply, "insufficient_custody_supply"},
	{ErrDisbursementFailed, "disbursement_failed"},
	{ErrNothingToWithdraw, "nothing_to_withdraw"},
	{ErrOutOfResources, "out_of_resources"},
	{ErrReentrantCall, "reentrant_call"},
	{ErrNotPayable, "not_payable"},
	{ErrUnknownMethod, "unknown_method"},
	{ErrInvalidInput, "invalid_input"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrNotDeployed, "not_deployed"},
	{ErrAlreadyDeployed, "already_deployed"},
}

// Code maps err onto the stable identifier recorded in receipts. Unknown
// errors map to "internal" and nil maps to the empty string.
func Code(err error) string {
	if err == nil {
		return ""
	}
	// Disbursement failures wrap the collaborator error, so they are matched
	// before anything the collaborator may have returned.
	if errors.Is(err, ErrDisbursementFailed) {
		return "disbursement_failed"
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "internal"
}
