package cli

import "fmt"

// ExitError carries the process exit code a command wants main to use.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Exit codes.
const (
	exitSuccess    = 0
	exitRejected   = 1
	exitStorage    = 2
	exitConfig     = 3
	exitInputParse = 4
	exitPending    = 5
)
