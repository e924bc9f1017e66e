package scan

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketUnpaid   = errors.New("ticket is not paid")
)
