package booking

import "errors"

var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrCourseInactive   = errors.New("course is not open for booking")
	ErrDuplicateBooking = errors.New("email already booked for this course")
	ErrAlreadyWaiting   = errors.New("email already on the waitlist")
	ErrInvalidInput     = errors.New("invalid booking details")
)
