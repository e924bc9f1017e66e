package waitlist

import "errors"

var (
	ErrNotOnWaitlist  = errors.New("no waitlist entry for that email")
	ErrCourseNotFound = errors.New("course not found")
)
