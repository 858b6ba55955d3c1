package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrMalformedEvent, "malformed_event"},
		{ErrTransform, "transform_error"},
		{ErrStorageUnavailable, "storage_unavailable"},
		{ErrValidationFailed, "validation_failed"},
		{ErrAckFailed, "ack_failed"},
		{ErrPublishFailed, "publish_failed"},
		{errors.New("boom"), "internal"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Errorf("Kind(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestKind_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("store order o1: %w", ErrStorageUnavailable)
	if got := Kind(err); got != "storage_unavailable" {
		t.Fatalf("Kind(wrapped) = %q, want storage_unavailable", got)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	if Retryable(nil) {
		t.Error("nil error must not be retryable")
	}
	if Retryable(fmt.Errorf("decode: %w", ErrMalformedEvent)) {
		t.Error("malformed event must not be retryable")
	}
	if Retryable(ErrTransform) {
		t.Error("transform error must not be retryable")
	}
	for _, err := range []error{ErrStorageUnavailable, ErrValidationFailed, ErrAckFailed, ErrPublishFailed, errors.New("unknown")} {
		if !Retryable(err) {
			t.Errorf("expected %v to be retryable", err)
		}
	}
}
