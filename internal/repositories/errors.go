package repositories

import "errors"

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRequestNotFound     = errors.New("request not found")
	ErrRuleNotFound        = errors.New("recurring rule not found")
	ErrPlanNotFound        = errors.New("investment plan not found")
	ErrPositionNotFound    = errors.New("investment position not found")
	ErrNetworkNotFound     = errors.New("network config not found")
)
