package repository

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyScanned = errors.New("ticket already scanned")
	ErrAlreadyWaiting = errors.New("already on waitlist")
	ErrOfferNotFound  = errors.New("offer not found")
	ErrUnknownSession = errors.New("unknown payment session")
	ErrTargetNotFound = errors.New("booking target not found")
	ErrContactExists  = errors.New("contact already subscribed")
	ErrCodeNotFound   = errors.New("discount code not found")
	ErrCodeExhausted  = errors.New("discount code usage cap reached")
)
