// Package apperr defines the error taxonomy of the order commit pipeline.
// Every failure the pipeline can surface maps to one of these sentinels so
// the consumer loop can decide between dead-lettering a message and leaving
// it unacknowledged for broker redelivery.
package apperr

import (
	"errors"
)

var (
	// ErrMalformedEvent marks an inbound payload that failed to decode or
	// is missing required fields. Redelivery will not fix it.
	ErrMalformedEvent = errors.New("malformed order event")

	// ErrTransform marks a contract violation while building the order
	// aggregate from a well-formed event.
	ErrTransform = errors.New("order transform failed")

	// ErrStorageUnavailable marks a store write that failed because the
	// database could not be reached or refused the connection.
	ErrStorageUnavailable = errors.New("order storage unavailable")

	// ErrValidationFailed marks a store write the database rejected on
	// data grounds (bad value, constraint violation).
	ErrValidationFailed = errors.New("order validation failed")

	// ErrAckFailed marks a failed inbound-queue acknowledgement.
	ErrAckFailed = errors.New("acknowledgement failed")

	// ErrPublishFailed marks a failed fulfillment publish to the
	// outbound queue.
	ErrPublishFailed = errors.New("fulfillment publish failed")
)

// Kind returns a short stable label for an error, used in logs and as a
// metric dimension.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrMalformedEvent):
		return "malformed_event"

	case errors.Is(err, ErrTransform):
		return "transform_error"

	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"

	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"

	case errors.Is(err, ErrAckFailed):
		return "ack_failed"

	case errors.Is(err, ErrPublishFailed):
		return "publish_failed"

	default:
		return "internal"
	}
}

// Retryable reports whether broker redelivery may resolve the error.
// Malformed payloads and transform contract violations will fail the same
// way on every delivery; everything else is worth another attempt.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, ErrTransform):
		return false
	default:
		return true
	}
}
