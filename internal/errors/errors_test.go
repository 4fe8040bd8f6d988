package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *E
		want string
	}{
		{
			name: "without cause",
			err:  New(Offline, "no internet"),
			want: "offline: no internet",
		},
		{
			name: "with cause",
			err:  Wrap(Timeout, "timed out", stderrors.New("deadline exceeded")),
			want: "timeout: timed out: deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	cause := stderrors.New("boom")
	err := fmt.Errorf("answer: %w", Wrap(LockTimeout, "locked", cause))

	if got := KindOf(err); got != LockTimeout {
		t.Errorf("KindOf() = %v, want %v", got, LockTimeout)
	}
	if !Is(err, LockTimeout) {
		t.Error("Is() = false, want true")
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause lost through Unwrap")
	}
	if got := KindOf(cause); got != Unexpected {
		t.Errorf("KindOf(plain) = %v, want %v", got, Unexpected)
	}
}
