package ingest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"google.golang.org/api/googleapi"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorClassRetryable, "retryable"},
		{ErrorClassRateLimited, "rate_limited"},
		{ErrorClassOffline, "offline"},
		{ErrorClassFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.class.String(); got != tt.want {
				t.Errorf("ErrorClass.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifySourceError(t *testing.T) {
	apiErr := func(code int, reason string) error {
		e := &googleapi.Error{Code: code, Message: http.StatusText(code)}
		if reason != "" {
			e.Errors = []googleapi.ErrorItem{{Reason: reason}}
		}
		return fmt.Errorf("youtube live chat poll: %w", e)
	}
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassRetryable},
		{"offline sentinel", fmt.Errorf("youtube channel x: %w", ErrOffline), ErrorClassOffline},
		{"twitch login", twitch.ErrLoginAuthenticationFailed, ErrorClassFatal},
		{"quota", apiErr(http.StatusForbidden, "quotaExceeded"), ErrorClassRateLimited},
		{"rate limit reason", apiErr(http.StatusForbidden, "rateLimitExceeded"), ErrorClassRateLimited},
		{"429", apiErr(http.StatusTooManyRequests, ""), ErrorClassRateLimited},
		{"chat ended", apiErr(http.StatusForbidden, "liveChatEnded"), ErrorClassOffline},
		{"chat not found", apiErr(http.StatusNotFound, "liveChatNotFound"), ErrorClassOffline},
		{"plain 404", apiErr(http.StatusNotFound, ""), ErrorClassOffline},
		{"forbidden", apiErr(http.StatusForbidden, "forbidden"), ErrorClassFatal},
		{"unauthorized", apiErr(http.StatusUnauthorized, ""), ErrorClassFatal},
		{"bad request", apiErr(http.StatusBadRequest, "keyInvalid"), ErrorClassFatal},
		{"server error", apiErr(http.StatusServiceUnavailable, "backendError"), ErrorClassRetryable},
		{"rate limit message", errors.New("RATE_LIMIT reached"), ErrorClassRateLimited},
		{"offline message", errors.New("user is offline"), ErrorClassOffline},
		{"auth message", errors.New("Improperly formatted auth"), ErrorClassFatal},
		{"connection reset", errors.New("read tcp: connection reset by peer"), ErrorClassRetryable},
		{"unknown", errors.New("something odd"), ErrorClassRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySourceError(tt.err); got != tt.want {
				t.Errorf("ClassifySourceError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
