package retrylimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

type statusErr int

func (s statusErr) Error() string   { return http.StatusText(int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func fastConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return statusErr(http.StatusBadGateway)
		}
		return nil
	}, nil, fastConfig())
	if err != nil {
		t.Fatalf("WithRetryConfig: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsOnFatal(t *testing.T) {
	calls := 0
	cause := errors.New("bad request")
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return &FatalError{Err: cause}
	}, nil, fastConfig())
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want the fatal cause", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryMaxAttempts(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 2
	cause := errors.New("nope")
	err := WithRetryConfig(context.Background(), func() error { return cause }, nil, cfg)
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want it to wrap the last error", err)
	}
}

func TestRateLimitLowersLimit(t *testing.T) {
	lim := NewAdaptiveLimiter(8, 1, 10, 1, 0.5)
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls == 1 {
			return statusErr(http.StatusTooManyRequests)
		}
		return nil
	}, lim, fastConfig())
	if err != nil {
		t.Fatalf("WithRetryConfig: %v", err)
	}
	if got := lim.CurrentLimit(); got != 4 {
		t.Errorf("CurrentLimit = %v, want 4", got)
	}
}

func TestLimiterBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(2, 1, 3, 5, 0.1)
	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 1 {
		t.Errorf("after RateLimited = %v, want the minimum 1", got)
	}

	fresh := NewAdaptiveLimiter(2, 1, 3, 5, 0.1)
	fresh.Success()
	if got := fresh.CurrentLimit(); got != 3 {
		t.Errorf("after Success = %v, want the maximum 3", got)
	}
}

func TestDiscordRESTErrorClassified(t *testing.T) {
	err := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	if !isRateLimitError(err) {
		t.Errorf("429 RESTError not classified as rate limit")
	}
	server := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}
	if !DefaultClassifier(server) || isRateLimitError(server) {
		t.Errorf("503 RESTError misclassified")
	}
}
