package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestRejectionError(t *testing.T) {
	rejection := reject("time outside opening hours")
	if rejection.Error() != "time outside opening hours" {
		t.Fatalf("expected reason verbatim, got %q", rejection.Error())
	}

	var target *RejectionError
	if !errors.As(error(rejection), &target) {
		t.Fatalf("expected errors.As to match RejectionError")
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "not found", err: ErrNotFound, want: "not_found"},
		{name: "wrapped not found", err: fmt.Errorf("outer: %w", ErrNotFound), want: "not_found"},
		{name: "unrecognized field", err: fmt.Errorf("%w: admin", ErrUnrecognizedField), want: "unrecognized_field"},
		{name: "rejection", err: reject("unknown restaurant"), want: "rejected"},
		{name: "other", err: errors.New("boom"), want: "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
