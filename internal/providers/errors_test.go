package providers

import (
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":            ErrorQuota,
		"429 too many requests":         ErrorRate,
		"rate limit exceeded":           ErrorRate,
		"prompt exceeds context length": ErrorContext,
		"request timeout":               ErrorTransient,
		"bad request":                   ErrorPermanent,
		"iterate files: read failed":    ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
	if got := ClassifyError(nil); got != "" {
		t.Fatalf("nil error should classify empty, got %s", got)
	}
}
