package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBusy         = errors.New("request already in flight")
	ErrEmptyQuery   = errors.New("empty query")
	ErrModelCall    = errors.New("model call failed")
	ErrUnavailable  = errors.New("market data unavailable")
)
