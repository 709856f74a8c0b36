package netprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ErrNotPermitted marks a probe failure that no retry can fix, such as
// raw-socket access denied to an unprivileged process. The executor fails
// these fast instead of burning the retry budget.
var ErrNotPermitted = errors.New("probe not permitted")

// Executor wraps a single probe invocation with a bounded retry policy and
// a per-attempt timeout. The delay between attempts is fixed, not
// exponential: probes run for seconds and the dominant transient failure is
// momentary unreachability, not overload.
type Executor struct {
	MaxRetries int
	RetryDelay time.Duration

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

func NewExecutor(maxRetries int, retryDelay time.Duration) *Executor {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &Executor{
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		sleep:      time.Sleep,
	}
}

// Execute runs the probe up to MaxRetries+1 times and always returns a
// terminal outcome: succeeded with data, or failed carrying the last
// attempt's error. It never panics across the probe boundary.
func (e *Executor) Execute(ctx context.Context, p Probe, cfg RunConfig) Outcome {
	outcome := Outcome{Kind: p.Kind()}
	start := time.Now()
	defer func() {
		outcome.DurationMS = time.Since(start).Milliseconds()
	}()

	var lastErr error
	for attempt := 1; attempt <= e.MaxRetries+1; attempt++ {
		outcome.Attempts = attempt
		data, err := e.runOnce(ctx, p, cfg)
		if err == nil {
			outcome.Status = StatusSucceeded
			outcome.Data = data
			outcome.Error = ""
			return outcome
		}
		lastErr = err
		if errors.Is(err, ErrNotPermitted) {
			slog.Warn("probe not permitted, not retrying",
				"kind", p.Kind(), "error", err)
			break
		}
		if attempt <= e.MaxRetries {
			slog.Warn("probe attempt failed, retrying",
				"kind", p.Kind(), "attempt", attempt, "error", err)
			e.sleep(e.RetryDelay)
		}
	}

	outcome.Status = StatusFailed
	outcome.Error = lastErr.Error()
	slog.Error("probe failed",
		"kind", p.Kind(), "attempts", outcome.Attempts, "error", lastErr)
	return outcome
}

// runOnce executes one attempt under the per-kind timeout, converting a
// probe panic into an error so a broken probe cannot take down siblings.
func (e *Executor) runOnce(ctx context.Context, p Probe, cfg RunConfig) (data *Data, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout(p.Kind()))
	defer cancel()
	defer func() {
		if recovered := recover(); recovered != nil {
			data = nil
			err = fmt.Errorf("probe panic: %v", recovered)
		}
	}()

	data, err = p.Run(attemptCtx, cfg)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("probe %s timed out after %s: %w", p.Kind(), cfg.Timeout(p.Kind()), err)
		}
		return nil, classifyError(err)
	}
	if data == nil {
		return nil, fmt.Errorf("probe %s returned no data", p.Kind())
	}
	return data, nil
}

// classifyError tags permission-style failures as non-retryable.
func classifyError(err error) error {
	if errors.Is(err, ErrNotPermitted) {
		return err
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrNotPermitted, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied") {
		return fmt.Errorf("%w: %v", ErrNotPermitted, err)
	}
	return err
}
