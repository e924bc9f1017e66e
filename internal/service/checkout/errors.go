package checkout

import "errors"

var (
	ErrShowNotFound    = errors.New("show not found")
	ErrShowInactive    = errors.New("show is not on sale")
	ErrInvalidCode     = errors.New("discount code is not valid")
	ErrInvalidQuantity = errors.New("invalid ticket quantity")
	ErrProcessor       = errors.New("payment processor unavailable")
)
