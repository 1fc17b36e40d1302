package models

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrForbidden            = errors.New("forbidden")
	ErrGoalNotFound         = errors.New("goal not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrRewardNotFound       = errors.New("reward not found")
	ErrInsufficientTokens   = errors.New("insufficient token balance")
	ErrGenerationLimit      = errors.New("daily generation limit reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrDeviceTokenNotFound  = errors.New("device token not found")
)
