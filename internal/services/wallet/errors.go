package wallet

import "errors"

// Service errors
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrActorRequired       = errors.New("actor id is required")
)
