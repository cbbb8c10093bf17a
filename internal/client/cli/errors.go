package cli

import "errors"

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrNoThreadOpen = errors.New("no thread is open, use: open <thread-id>")
	ErrEmptyInput   = errors.New("empty input")
	ErrInputTooLong = errors.New("input too long")
)

// usageError is returned when a command is called with the wrong arguments.
type usageError struct {
	usage string
}

func (e usageError) Error() string {
	return "usage: " + e.usage
}
