package withdrawal

import "errors"

// Service errors
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidAddress         = errors.New("invalid destination address")
	ErrBelowMinimum           = errors.New("amount below network minimum")
	ErrNetworkDisabled        = errors.New("network is disabled for withdrawals")
	ErrAmountTooSmall         = errors.New("amount too small after fee")
	ErrRequestNotFound        = errors.New("withdrawal request not found")
	ErrAlreadyProcessed       = errors.New("withdrawal request already processed")
	ErrReconciliationRequired = errors.New("refund failed, reconciliation required")
)
