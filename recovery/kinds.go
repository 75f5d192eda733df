package recovery

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for strategy selection.
type Kind string

const (
	// KindCapabilityTimeout marks a capability call that exceeded its deadline.
	KindCapabilityTimeout Kind = "capability-timeout"
	// KindCapabilityUnavailable marks a capability with no usable backend.
	KindCapabilityUnavailable Kind = "capability-unavailable"
	// KindResourceNotFound marks a missing artifact or record.
	KindResourceNotFound Kind = "resource-not-found"
	// KindResourceLocked marks a resource held by another writer.
	KindResourceLocked Kind = "resource-locked"
	// KindStateCorrupted marks unreadable or inconsistent persisted state.
	KindStateCorrupted Kind = "state-corrupted"
	// KindInvalidInput marks caller-supplied input that cannot be processed.
	KindInvalidInput Kind = "invalid-input"
	// KindValidationFailed marks input that parsed but failed validation rules.
	KindValidationFailed Kind = "validation-failed"
	// KindResourceExhaustion marks memory or capacity pressure.
	KindResourceExhaustion Kind = "resource-exhaustion"
	// KindRateLimited marks provider throttling.
	KindRateLimited Kind = "rate-limited"
	// KindNetworkFailure marks connectivity loss.
	KindNetworkFailure Kind = "network-failure"
	// KindUnknown is the catch-all for everything else.
	KindUnknown Kind = "unknown"
)

// Error tags an underlying error with an explicit Kind so classification
// does not have to rely on message text.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err.Error())
	}
	return e.Msg
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a tagged error from a message.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags an existing error with a kind.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Msg: string(kind), Err: err}
}

// matcher maps message substrings to a kind. Order is significant: the
// first matching rule wins.
type matcher struct {
	kind  Kind
	terms []string
}

var matchers = []matcher{
	{KindCapabilityTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{KindResourceNotFound, []string{"not found", "no such", "does not exist", "missing"}},
	{KindResourceLocked, []string{"locked", "lock held", "lock contention"}},
	{KindStateCorrupted, []string{"corrupt"}},
	{KindInvalidInput, []string{"invalid", "malformed", "unparsable"}},
	{KindNetworkFailure, []string{"network", "connection", "unreachable", "offline"}},
	{KindResourceExhaustion, []string{"memory", "capacity", "exhausted"}},
	{KindRateLimited, []string{"rate limit", "too many requests", "429"}},
}

// Classify determines the Kind of err. An explicit *Error tag wins; otherwise
// the message text is matched case-insensitively in fixed priority order.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	msg := strings.ToLower(err.Error())
	for _, m := range matchers {
		for _, term := range m.terms {
			if strings.Contains(msg, term) {
				return m.kind
			}
		}
	}
	return KindUnknown
}

// userMessages maps each kind to one short, non-technical status line.
var userMessages = map[Kind]string{
	KindCapabilityTimeout:     "The analysis took too long and was substituted with a faster local result.",
	KindCapabilityUnavailable: "An analysis helper is unavailable; a substitute was used.",
	KindResourceNotFound:      "A required item was missing and a default was created.",
	KindResourceLocked:        "Another operation is holding this item; retrying.",
	KindStateCorrupted:        "Saved progress was unreadable and has been reconstructed.",
	KindInvalidInput:          "The provided input could not be processed.",
	KindValidationFailed:      "The provided input did not pass validation.",
	KindResourceExhaustion:    "Running low on resources; continuing in reduced capacity.",
	KindRateLimited:           "The service is busy; the request was retried after a pause.",
	KindNetworkFailure:        "No network connection; continuing in offline mode.",
	KindUnknown:               "Something unexpected happened.",
}

// UserMessage returns the short status line for a kind.
func UserMessage(kind Kind) string {
	if m, ok := userMessages[kind]; ok {
		return m
	}
	return userMessages[KindUnknown]
}
