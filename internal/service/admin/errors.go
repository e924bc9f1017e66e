package admin

import "errors"

var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrShowNotFound        = errors.New("show not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantExists   = errors.New("participant already registered")
	ErrCodeNotFound        = errors.New("discount code not found")
	ErrCodeExists          = errors.New("discount code already exists")
	ErrContactNotFound     = errors.New("contact not found")
	ErrInvalidInput        = errors.New("invalid input")
)
