package token

import "errors"

var (
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrInvalidAmount       = errors.New("token: amount must be a non-negative 256-bit integer")
	ErrInvalidMetadata     = errors.New("token: name and symbol required")
	ErrNotDeployed         = errors.New("token: contract not deployed")
	ErrAlreadyDeployed     = errors.New("token: contract already deployed")
	ErrNotPayable          = errors.New("token: contract does not accept value")
	ErrUnknownMethod       = errors.New("token: unknown method")
	ErrInvalidInput        = errors.New("token: malformed call data")

	errNilState = errors.New("token ledger: state not configured")
)
