package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSubscriptionFailed = errors.New("subscription failed")
	ErrOrderRejected      = errors.New("order rejected")
	ErrGatewayDisconnect  = errors.New("gateway disconnected")
	ErrContextDone        = errors.New("context cancelled")
)
