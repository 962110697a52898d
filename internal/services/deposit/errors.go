package deposit

import "errors"

var (
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidCurrency        = errors.New("currency is required")
	ErrRequestNotFound        = errors.New("deposit request not found")
	ErrAlreadyProcessed       = errors.New("deposit request already processed")
	ErrReconciliationRequired = errors.New("deposit confirmed but credit failed, manual reconciliation required")
)
