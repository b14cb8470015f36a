package publish

import "fmt"

// HTTPError is a non-2xx response from a platform or bridge endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// RetriableExecutionError marks a publish failure as transient; the queue
// reschedules the item with backoff.
type RetriableExecutionError struct {
	Reason string
	Err    error
}

func (e *RetriableExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retriable: %s: %v", e.Reason, e.Err)
	}
	return "retriable: " + e.Reason
}

func (e *RetriableExecutionError) Unwrap() error { return e.Err }

// TerminalExecutionError marks a publish failure as permanent; the item moves
// straight to failed regardless of remaining attempts.
type TerminalExecutionError struct {
	Reason string
	Err    error
}

func (e *TerminalExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("terminal: %s: %v", e.Reason, e.Err)
	}
	return "terminal: " + e.Reason
}

func (e *TerminalExecutionError) Unwrap() error { return e.Err }
