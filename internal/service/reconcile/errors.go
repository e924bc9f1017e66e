package reconcile

import "errors"

var (
	ErrUnknownSession = errors.New("no purchase recorded for session")
	ErrUpstream       = errors.New("payment processor unavailable")
)
