package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrContractViolation is returned when a raw observation cannot be normalized
	ErrContractViolation = errors.New("contract violation")

	// ErrLineageUnresolved is returned when a derived record cannot be linked to its origin
	ErrLineageUnresolved = errors.New("lineage unresolved")

	// ErrDuplicateLineageKey is returned when two raw observations share a lineage key in one cycle
	ErrDuplicateLineageKey = errors.New("duplicate lineage key")

	// ErrCycleInProgress is returned when another cycle of the same kind holds the lease
	ErrCycleInProgress = errors.New("cycle already in progress")

	// ErrCycleNotFound is returned when a cycle id does not exist
	ErrCycleNotFound = errors.New("cycle not found")

	// ErrMalformedResponse is returned by source clients when a provider payload lacks expected fields
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrQuoteUnavailable is returned when the quote service produced nothing usable
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrRecipientNotFound is returned when linking a chat to an unknown user
	ErrRecipientNotFound = errors.New("recipient not found")
)

// ChannelError is a non-2xx response from a messaging channel
type ChannelError struct {
	StatusCode  int
	Description string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel error (status %d): %s", e.StatusCode, e.Description)
}

// Transient reports whether the failure may succeed on retry. Only 5xx qualifies;
// every 4xx, 429 included, is final for the recipient.
func (e *ChannelError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// FormattingRejected reports whether the channel refused the message markup
func (e *ChannelError) FormattingRejected() bool {
	return e.StatusCode == http.StatusBadRequest
}
