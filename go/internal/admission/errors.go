package admission

import "errors"

var (
	ErrTooManyConnections = errors.New("too many connections from this address")
	ErrConnectionRate     = errors.New("connection rate exceeded")
	ErrEventRate          = errors.New("Rate limit exceeded. Please slow down.")
)
