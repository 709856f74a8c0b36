package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"netsight/internal/insight"
	"netsight/internal/netprobe"
)

type RunManager struct {
	cfg        ServerConfig
	store      Store
	generator  insight.Generator
	obs        *Observability
	queue      chan queuedRun
	wg         sync.WaitGroup
	quickLimit *ipRateLimiter
}

type RunnerService interface {
	CreateAdminRun(request RunRequest, principal Principal, source string) (RunMeta, error)
	CreateQuickCheck(request QuickCheckRequest, ipHash, uaHash string) (RunMeta, error)
}

type queuedRun struct {
	RunID       string
	Request     RunRequest
	Creator     Principal
	CreatorType string
	Source      string
}

// runEventSink serializes event appends for one run. Probe goroutines emit
// events concurrently, but the stores assign sequence numbers assuming a
// single writer per run; two unserialized appends can compute the same seq
// and one of them is lost.
type runEventSink struct {
	mu    sync.Mutex
	store Store
	runID string
}

func (s *runEventSink) Append(stage, message string, data map[string]any) (RunEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AppendRunEvent(s.runID, stage, message, data)
}

func NewRunManager(cfg ServerConfig, store Store, generator insight.Generator, obs *Observability) *RunManager {
	maxParallel := cfg.Runner.MaxParallelRuns
	if maxParallel <= 0 {
		maxParallel = 2
	}
	manager := &RunManager{
		cfg:        cfg,
		store:      store,
		generator:  generator,
		obs:        obs,
		queue:      make(chan queuedRun, maxParallel*8),
		quickLimit: newIPRateLimiter(cfg.Limits.QuickCheckRPM),
	}
	for i := 0; i < maxParallel; i++ {
		manager.wg.Add(1)
		go func() {
			defer manager.wg.Done()
			manager.worker()
		}()
	}
	return manager
}

func (m *RunManager) Shutdown() {
	close(m.queue)
	m.wg.Wait()
}

func (m *RunManager) CreateAdminRun(request RunRequest, principal Principal, source string) (RunMeta, error) {
	if err := validateProbeNames(request.Probes); err != nil {
		return RunMeta{}, err
	}
	runID, err := randomID("run")
	if err != nil {
		return RunMeta{}, err
	}
	meta := RunMeta{
		RunID:       runID,
		Status:      "queued",
		Source:      source,
		CreatorType: "admin",
		CreatorSub:  principal.Subject,
		Request:     request,
		CreatedAt:   nowRFC3339(),
	}
	if err := m.store.CreateRun(meta); err != nil {
		return RunMeta{}, err
	}
	_, _ = m.store.AppendRunEvent(runID, "queue", "run queued", map[string]any{
		"source": source,
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		RunID:     runID,
		ActorType: "admin",
		ActorSub:  principal.Subject,
		Action:    "run.create",
		Result:    "queued",
	})
	m.queue <- queuedRun{
		RunID:       runID,
		Request:     request,
		Creator:     principal,
		CreatorType: "admin",
		Source:      source,
	}
	return meta, nil
}

func (m *RunManager) CreateQuickCheck(request QuickCheckRequest, ipHash, uaHash string) (RunMeta, error) {
	if !m.quickLimit.Allow(ipHash) {
		if m.obs != nil {
			m.obs.MarkQuotaBlocked(context.Background(), "quick_check_rate_limit")
		}
		_ = m.store.AppendAudit(AuditEvent{
			Timestamp: nowRFC3339(),
			ActorType: "user",
			Action:    "quick_check.reject",
			Result:    "rate_limited",
			IPHash:    ipHash,
			UAHash:    uaHash,
		})
		return RunMeta{}, errors.New("quick check rate limit reached")
	}
	runRequest, err := profileToRunRequest(request)
	if err != nil {
		return RunMeta{}, err
	}
	runID, err := randomID("run")
	if err != nil {
		return RunMeta{}, err
	}
	meta := RunMeta{
		RunID:       runID,
		Status:      "queued",
		Source:      "user.quick_check",
		CreatorType: "user",
		Request:     runRequest,
		CreatedAt:   nowRFC3339(),
	}
	if err := m.store.CreateRun(meta); err != nil {
		return RunMeta{}, err
	}
	_, _ = m.store.AppendRunEvent(runID, "queue", "quick check queued", map[string]any{
		"profile": request.Profile,
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		RunID:     runID,
		ActorType: "user",
		Action:    "quick_check.create",
		Result:    "queued",
		IPHash:    ipHash,
		UAHash:    uaHash,
		Detail:    request.Profile,
	})
	m.queue <- queuedRun{
		RunID:       runID,
		Request:     runRequest,
		CreatorType: "user",
		Source:      "user.quick_check",
	}
	return meta, nil
}

func (m *RunManager) worker() {
	for queued := range m.queue {
		m.executeRun(queued)
	}
}

func (m *RunManager) executeRun(queued queuedRun) {
	startedAt := nowRFC3339()
	_, _ = m.store.UpdateRun(queued.RunID, func(meta *RunMeta) {
		meta.Status = "running"
		meta.StartedAt = startedAt
	})
	sink := &runEventSink{store: m.store, runID: queued.RunID}
	_, _ = sink.Append("start", "run started", nil)

	runCfg := m.buildRunConfig(queued.Request)
	timeout := time.Duration(0)
	for _, kind := range runCfg.Enabled {
		timeout += runCfg.Timeout(kind)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Minute)
	defer cancel()

	orchestrator := netprobe.NewOrchestrator(netprobe.WithEventSink(func(event netprobe.Event) {
		_, _ = sink.Append(event.Stage, event.Message, event.Data)
		if m.obs != nil && event.Stage == "probe_result" {
			if duration, ok := toFloat(event.Data["duration_ms"]); ok {
				m.obs.MarkProbe(ctx, strings.TrimSpace(fmt.Sprint(event.Data["kind"])), int64(duration))
			}
		}
	}))
	results := orchestrator.RunAll(ctx, runCfg)

	status := string(results.Overall)
	_, _ = m.store.UpdateRun(queued.RunID, func(meta *RunMeta) {
		meta.Status = status
		meta.Results = &results
		if status == "failed" {
			meta.Error = "all enabled probes failed"
		}
	})
	_, _ = sink.Append("probes_completed", "probe phase completed", map[string]any{
		"overall": status,
	})

	var insights *insight.RecommendationSet
	if !queued.Request.SkipAnalysis {
		_, _ = sink.Append("analysis_start", "analysis started", nil)
		insights = insight.NewOrchestrator(m.generator).Analyze(ctx, &results)
		_, _ = sink.Append("analysis_result", insights.Summary, map[string]any{
			"ai_status":       string(insights.AIStatus),
			"recommendations": len(insights.Recommendations),
		})
		if m.obs != nil && insights.AIStatus == insight.AIStatusDegraded {
			m.obs.MarkDegraded(ctx)
		}
	}

	finishedAt := nowRFC3339()
	_, _ = m.store.UpdateRun(queued.RunID, func(meta *RunMeta) {
		meta.FinishedAt = finishedAt
		meta.Insights = insights
	})
	_, _ = sink.Append("completed", "run completed", map[string]any{
		"status": status,
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		RunID:     queued.RunID,
		ActorType: queued.CreatorType,
		ActorSub:  queued.Creator.Subject,
		Action:    "run.completed",
		Result:    status,
	})
	if m.obs != nil {
		m.obs.MarkRun(ctx, status)
	}
}

// buildRunConfig merges the request with the server's probe defaults.
func (m *RunManager) buildRunConfig(request RunRequest) netprobe.RunConfig {
	cfg := netprobe.DefaultRunConfig()
	defaults := m.cfg.Probes
	if len(defaults.TargetHosts) > 0 {
		cfg.TargetHosts = defaults.TargetHosts
	}
	if len(defaults.DNSServers) > 0 {
		cfg.DNSServers = defaults.DNSServers
	}
	if defaults.PacketCount > 0 {
		cfg.PacketCount = defaults.PacketCount
	}
	cfg.MaxRetries = defaults.MaxRetries
	if defaults.RetryDelaySec > 0 {
		cfg.RetryDelay = time.Duration(defaults.RetryDelaySec) * time.Second
	}

	if len(request.Probes) > 0 {
		enabled := make([]netprobe.Kind, 0, len(request.Probes))
		for _, name := range request.Probes {
			enabled = append(enabled, netprobe.Kind(strings.ToLower(strings.TrimSpace(name))))
		}
		cfg.Enabled = enabled
	}
	if len(request.TargetHosts) > 0 {
		cfg.TargetHosts = request.TargetHosts
	}
	if len(request.DNSServers) > 0 {
		cfg.DNSServers = request.DNSServers
	}
	if request.PacketCount > 0 {
		cfg.PacketCount = request.PacketCount
	}
	if request.MaxRetries > 0 {
		cfg.MaxRetries = request.MaxRetries
	}
	return cfg
}

func validateProbeNames(names []string) error {
	known := map[string]bool{}
	for _, kind := range netprobe.AllKinds() {
		known[string(kind)] = true
	}
	for _, name := range names {
		if !known[strings.ToLower(strings.TrimSpace(name))] {
			return fmt.Errorf("unknown probe: %s", name)
		}
	}
	return nil
}

func profileToRunRequest(input QuickCheckRequest) (RunRequest, error) {
	profile := strings.ToLower(strings.TrimSpace(input.Profile))
	base := RunRequest{}
	switch profile {
	case "full", "":
		base.Probes = []string{"latency", "jitter", "packet_loss", "throughput", "dns"}
	case "connectivity":
		base.Probes = []string{"latency", "jitter", "packet_loss"}
	case "speed":
		base.Probes = []string{"throughput", "latency"}
	case "dns":
		base.Probes = []string{"dns"}
	default:
		return RunRequest{}, errors.New("unsupported profile")
	}
	if host := strings.TrimSpace(input.TargetHost); host != "" {
		base.TargetHosts = []string{host}
	}
	return base, nil
}

func randomID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}

func hashString(input string) string {
	sum := sha256Sum(input)
	return sum[:16]
}

func sha256Sum(input string) string {
	hash := sha256.New()
	_, _ = hash.Write([]byte(input))
	return hex.EncodeToString(hash.Sum(nil))
}
