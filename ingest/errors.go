package ingest

import (
	"errors"
	"net/http"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"google.golang.org/api/googleapi"
)

// ErrOffline is returned by sources when the stream they follow is not live.
var ErrOffline = errors.New("stream offline")

// ErrorClass selects how a failed source is restarted.
type ErrorClass int

const (
	// ErrorClassRetryable restarts with exponential backoff (transient errors).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassRateLimited waits a long fixed delay before reconnecting.
	ErrorClassRateLimited
	// ErrorClassOffline polls with a delay that grows with consecutive offline results.
	ErrorClassOffline
	// ErrorClassFatal stops the source (bad credentials, bad configuration).
	ErrorClassFatal
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassRateLimited:
		return "rate_limited"
	case ErrorClassOffline:
		return "offline"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifySourceError maps a listener error onto a restart class.
//
// YouTube API errors are classified by HTTP status and error reason:
//   - 429, rateLimitExceeded, quotaExceeded: rate limited
//   - 404, liveChatEnded, liveChatNotFound, liveChatDisabled: offline
//   - 400, 401, 403 (other reasons): fatal
//   - 5xx: retryable
//
// Other errors are matched by message. Unknown errors are retryable so a
// listener does not give up too early.
func ClassifySourceError(err error) ErrorClass {
	if err == nil {
		return ErrorClassRetryable
	}
	if errors.Is(err, ErrOffline) {
		return ErrorClassOffline
	}
	if errors.Is(err, twitch.ErrLoginAuthenticationFailed) {
		return ErrorClassFatal
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			switch item.Reason {
			case "rateLimitExceeded", "quotaExceeded", "userRateLimitExceeded":
				return ErrorClassRateLimited
			case "liveChatEnded", "liveChatNotFound", "liveChatDisabled", "videoNotFound":
				return ErrorClassOffline
			}
		}
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return ErrorClassRateLimited
		case gerr.Code == http.StatusNotFound:
			return ErrorClassOffline
		case gerr.Code == http.StatusBadRequest, gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden:
			return ErrorClassFatal
		case gerr.Code >= 500:
			return ErrorClassRetryable
		}
	}

	lower := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate_limit", "rate limit", "too many requests", "429"} {
		if strings.Contains(lower, pattern) {
			return ErrorClassRateLimited
		}
	}
	if strings.Contains(lower, "offline") || strings.Contains(lower, "not live") {
		return ErrorClassOffline
	}
	for _, pattern := range []string{"login authentication failed", "improperly formatted auth", "invalid api key", "unauthorized"} {
		if strings.Contains(lower, pattern) {
			return ErrorClassFatal
		}
	}
	return ErrorClassRetryable
}
