package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAllowanceExceeded   = errors.New("allowance exceeded")
	ErrTransferRejected    = errors.New("transfer rejected")
)

var (
	errNativePull   = errors.New("native value cannot be pulled from a third account")
	errTokenPaused  = errors.New("token is paused")
	errTokenBalance = errors.New("token balance too low")
)
