package core

import "errors"

var (
	// ErrArgumentsRequired indicates a mandatory input was missing; raised before any network call.
	ErrArgumentsRequired = errors.New("arguments required")
	// ErrBadRequest indicates the caller supplied an invalid enum value (type, side, venue, limit, timeframe).
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidConfiguration indicates the process-wide configuration is unusable.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnknownSymbol indicates the symbol has no entry in the loaded market table.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrMissingCredentials indicates a private call was attempted without api key/secret.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrBadResponse indicates the venue reported a logical failure or returned an unparsable payload.
	ErrBadResponse = errors.New("bad response")
	// ErrOrderNotFound indicates the order does not exist or was already in a terminal state.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientFunds indicates the venue rejected the action due to insufficient balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransport wraps network and non-venue HTTP failures.
	ErrTransport = errors.New("transport error")
)
