package service

import "errors"

var (
	// ErrUnknownMarket is returned when a market code fails validation at a
	// call boundary, before any write occurs.
	ErrUnknownMarket = errors.New("unknown market code")

	// ErrInvalidConfig is returned when similarity-config values are out of
	// range.
	ErrInvalidConfig = errors.New("invalid similarity config")

	// ErrInvalidTier is returned for a feature tier outside 1..3.
	ErrInvalidTier = errors.New("invalid feature tier")
)
