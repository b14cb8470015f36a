package publish

import (
	"context"
	"errors"
	"net"
)

// ErrorKind is the retry disposition of a classified failure.
type ErrorKind string

const (
	KindRetriable ErrorKind = "retriable"
	KindTerminal  ErrorKind = "terminal"
)

// UnknownErrorAttemptCap bounds retries for failures we cannot classify, so
// recoverable work is not dropped silently but wasted attempts stay bounded.
const UnknownErrorAttemptCap = 3

// Classification is the verdict of Classify.
type Classification struct {
	Kind   ErrorKind
	Reason string
	// AttemptCap, when non-zero, lowers the effective maximum attempt count
	// for this item.
	AttemptCap int
}

// Classify maps a publish failure to a retry disposition. Network-level
// failures, timeouts, 429 and 5xx responses are retriable; other 4xx
// responses and explicitly terminal errors are not. Unclassified errors
// default to retriable with a low attempt cap.
func Classify(err error) Classification {
	var terminal *TerminalExecutionError
	if errors.As(err, &terminal) {
		return Classification{Kind: KindTerminal, Reason: terminal.Reason}
	}
	var retriable *RetriableExecutionError
	if errors.As(err, &retriable) {
		return Classification{Kind: KindRetriable, Reason: retriable.Reason}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 429:
			return Classification{Kind: KindRetriable, Reason: "rate limited"}
		case httpErr.StatusCode >= 500:
			return Classification{Kind: KindRetriable, Reason: "remote server error"}
		case httpErr.StatusCode >= 400:
			return Classification{Kind: KindTerminal, Reason: "remote client error"}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Kind: KindRetriable, Reason: "timeout"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Kind: KindRetriable, Reason: "network error"}
	}

	return Classification{
		Kind:       KindRetriable,
		Reason:     "unclassified error",
		AttemptCap: UnknownErrorAttemptCap,
	}
}
