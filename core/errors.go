package core

import "errors"

// Rejections returned by ApplyTransaction before execution. A rejected
// transaction changes nothing and produces no receipt.
var (
	ErrInvalidSignature  = errors.New("core: invalid transaction signature")
	ErrChainIDMismatch   = errors.New("core: chain id mismatch")
	ErrNonceMismatch     = errors.New("core: nonce mismatch")
	ErrInvalidRecipient  = errors.New("core: recipient must be empty or 20 bytes")
	ErrInvalidAmount     = errors.New("core: negative value or gas price")
	ErrIntrinsicGas      = errors.New("core: gas limit below intrinsic cost")
	ErrInsufficientFunds = errors.New("core: insufficient funds for value and gas")
)

// Execution failures recorded in receipts.
var (
	ErrNotContract          = errors.New("core: address is not a contract")
	ErrInvalidDeployment    = errors.New("core: invalid deployment payload")
	ErrDeploymentNotPayable = errors.New("core: deployment cannot carry value")
)

// ErrUnknownReceipt is returned when no receipt is stored for a hash.
var ErrUnknownReceipt = errors.New("core: receipt not found")
