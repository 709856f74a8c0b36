package netprobe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Event is emitted as probes start and resolve, for progress reporting.
type Event struct {
	Stage   string         `json:"stage"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Orchestrator fans the enabled probes out through the retrying executor
// and joins on all of them before publishing a result set. Each probe
// writes only its own outcome slot; nothing reads the slots until every
// dispatched probe has resolved.
type Orchestrator struct {
	probes    map[Kind]Probe
	executor  *Executor
	validator Validator
	onEvent   func(Event)
}

type OrchestratorOption func(*Orchestrator)

// WithProbes replaces the default probe registry, mainly for tests.
func WithProbes(probes []Probe) OrchestratorOption {
	return func(o *Orchestrator) {
		o.probes = map[Kind]Probe{}
		for _, p := range probes {
			o.probes[p.Kind()] = p
		}
	}
}

// WithExecutor replaces the default executor.
func WithExecutor(executor *Executor) OrchestratorOption {
	return func(o *Orchestrator) {
		o.executor = executor
	}
}

// WithEventSink registers a callback for progress events. The callback is
// invoked from probe goroutines and must be safe for concurrent use.
func WithEventSink(fn func(Event)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onEvent = fn
	}
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		probes:  map[Kind]Probe{},
		onEvent: func(Event) {},
	}
	for _, p := range AvailableProbes() {
		o.probes[p.Kind()] = p
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll executes every enabled probe concurrently and returns the full
// result set once all of them have resolved. A failing probe never aborts
// or delays its siblings; probes outside the enabled set are recorded as
// skipped without being invoked. The returned set is complete and
// internally consistent; callers never observe a partially filled one.
func (o *Orchestrator) RunAll(ctx context.Context, cfg RunConfig) ResultSet {
	executor := o.executor
	if executor == nil {
		executor = NewExecutor(cfg.MaxRetries, cfg.RetryDelay)
	}

	outcomes := make(map[Kind]Outcome, len(o.probes))
	slots := make(map[Kind]*Outcome, len(o.probes))

	group, groupCtx := errgroup.WithContext(ctx)
	for kind, p := range o.probes {
		if !cfg.IsEnabled(kind) {
			outcomes[kind] = Outcome{Kind: kind, Status: StatusSkipped}
			continue
		}
		slot := &Outcome{}
		slots[kind] = slot
		probe := p
		o.onEvent(Event{
			Stage:   "probe_start",
			Message: "probe started",
			Data:    map[string]any{"kind": string(kind)},
		})
		group.Go(func() error {
			// Errors are captured inside the outcome; returning nil keeps
			// one probe's failure from cancelling the sibling contexts.
			*slot = o.runOne(groupCtx, executor, probe, cfg)
			return nil
		})
	}
	// Enabled kinds with no registered probe surface as failed outcomes so
	// a typo in a selection is visible in the result set.
	for _, kind := range cfg.Enabled {
		if _, known := o.probes[kind]; known {
			continue
		}
		if _, seen := outcomes[kind]; seen {
			continue
		}
		outcomes[kind] = Outcome{Kind: kind, Status: StatusFailed, Error: "unknown probe kind"}
		o.onEvent(Event{
			Stage:   "probe_result",
			Message: fmt.Sprintf("%s probe failed: unknown probe kind", kind),
			Data:    map[string]any{"kind": string(kind), "status": string(StatusFailed)},
		})
	}

	_ = group.Wait()

	for kind, slot := range slots {
		outcomes[kind] = *slot
	}

	set := ResultSet{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Overall:     DeriveOverall(outcomes),
		Outcomes:    outcomes,
	}
	slog.Info("probe run finished",
		"overall", set.Overall, "enabled", len(slots))
	return set
}

func (o *Orchestrator) runOne(ctx context.Context, executor *Executor, p Probe, cfg RunConfig) Outcome {
	outcome := executor.Execute(ctx, p, cfg)

	// A probe that "succeeds" with an empty or malformed payload is a
	// failure in disguise; downgrade it so zeroed structs never count as
	// healthy data. The probe already completed, so no further retry.
	if outcome.Status == StatusSucceeded {
		if ok, reason := o.validator.Validate(outcome.Kind, outcome.Data); !ok {
			outcome.Status = StatusFailed
			outcome.Data = nil
			outcome.Error = fmt.Sprintf("probe returned structurally incomplete data: %s", reason)
		}
	}

	o.onEvent(Event{
		Stage:   "probe_result",
		Message: probeResultMessage(outcome),
		Data: map[string]any{
			"kind":        string(outcome.Kind),
			"status":      string(outcome.Status),
			"attempts":    outcome.Attempts,
			"duration_ms": outcome.DurationMS,
		},
	})
	return outcome
}

func probeResultMessage(out Outcome) string {
	if out.Status == StatusSucceeded {
		return fmt.Sprintf("%s probe succeeded", out.Kind)
	}
	return fmt.Sprintf("%s probe failed: %s", out.Kind, out.Error)
}
