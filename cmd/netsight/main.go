package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"netsight/internal/insight"
	"netsight/internal/netprobe"
)

func main() {
	probes := flag.String("probes", "all", "Comma-separated probes: latency,jitter,packet_loss,throughput,dns,all")
	hosts := flag.String("hosts", "", "Comma-separated target hosts (default 8.8.8.8,1.1.1.1)")
	dnsServers := flag.String("dns-servers", "", "Comma-separated DNS servers to benchmark")
	packetCount := flag.Int("packet-count", 100, "Packet count for the packet loss probe")
	maxRetries := flag.Int("max-retries", 2, "Retry budget per probe")
	retryDelay := flag.Duration("retry-delay", 2*time.Second, "Delay between probe retries")
	skipAnalysis := flag.Bool("skip-analysis", false, "Skip the AI analysis phase")
	model := flag.String("model", envOr("GEMINI_MODEL", "gemini-1.5-flash"), "Gemini model for analysis")
	format := flag.String("format", "text", "Output format: text|json")
	outputPath := flag.String("out", "", "Write full results JSON to this file")
	flag.Parse()

	cfg := netprobe.DefaultRunConfig()
	cfg.Enabled = netprobe.ResolveKinds(*probes)
	if err := checkKinds(cfg.Enabled); err != nil {
		exitWith(err.Error())
	}
	if list := splitList(*hosts); len(list) > 0 {
		cfg.TargetHosts = list
	}
	if list := splitList(*dnsServers); len(list) > 0 {
		cfg.DNSServers = list
	}
	if *packetCount > 0 {
		cfg.PacketCount = *packetCount
	}
	if *maxRetries >= 0 {
		cfg.MaxRetries = *maxRetries
	}
	if *retryDelay > 0 {
		cfg.RetryDelay = *retryDelay
	}

	budget := time.Minute
	for _, kind := range cfg.Enabled {
		budget += cfg.Timeout(kind)
	}
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	orchestrator := netprobe.NewOrchestrator()
	results := orchestrator.RunAll(ctx, cfg)

	var insights *insight.RecommendationSet
	if !*skipAnalysis {
		generator, err := insight.NewGeminiGenerator(ctx, *model)
		if err != nil {
			exitWith("failed to create analysis client: " + err.Error())
		}
		insights = insight.NewOrchestrator(generator).Analyze(ctx, &results)
	}

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "json":
		printJSON(results, insights)
	default:
		printText(results, insights)
	}

	if strings.TrimSpace(*outputPath) != "" {
		if err := writeResults(*outputPath, results, insights); err != nil {
			exitWith("failed to write results: " + err.Error())
		}
	}

	if results.Overall == netprobe.OverallFailed {
		os.Exit(1)
	}
}

func checkKinds(kinds []netprobe.Kind) error {
	known := map[netprobe.Kind]bool{}
	for _, kind := range netprobe.AllKinds() {
		known[kind] = true
	}
	for _, kind := range kinds {
		if !known[kind] {
			return fmt.Errorf("unknown probe: %s", kind)
		}
	}
	return nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func printText(results netprobe.ResultSet, insights *insight.RecommendationSet) {
	fmt.Printf("Generated: %s\n", results.GeneratedAt)
	fmt.Printf("Overall: %s\n\n", results.Overall)

	kinds := make([]netprobe.Kind, 0, len(results.Outcomes))
	for kind := range results.Outcomes {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		out := results.Outcomes[kind]
		fmt.Printf("[%s] %s (%d attempts, %dms)\n", strings.ToUpper(string(out.Status)), kind, out.Attempts, out.DurationMS)
		if out.Error != "" {
			fmt.Printf("  error: %s\n", out.Error)
		}
		if out.Data != nil {
			dataJSON, _ := json.Marshal(out.Data)
			fmt.Printf("  data: %s\n", dataJSON)
		}
		fmt.Println()
	}

	if insights == nil {
		return
	}
	fmt.Printf("Analysis (%s): %s\n", insights.AIStatus, insights.Summary)
	for _, issue := range insights.CriticalIssues {
		fmt.Printf("  !! %s\n", issue)
	}
	for _, rec := range insights.Recommendations {
		fmt.Printf("  %d. [%s] %s\n", rec.Priority, rec.Severity, rec.Text)
	}
}

func printJSON(results netprobe.ResultSet, insights *insight.RecommendationSet) {
	payload := map[string]any{"results": results}
	if insights != nil {
		payload["insights"] = insights
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		exitWith("failed to encode results JSON: " + err.Error())
	}
	fmt.Println(string(data))
}

func writeResults(path string, results netprobe.ResultSet, insights *insight.RecommendationSet) error {
	payload := map[string]any{"results": results}
	if insights != nil {
		payload["insights"] = insights
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), data, 0o644)
}

func exitWith(message string) {
	fmt.Fprintln(os.Stderr, "error:", message)
	os.Exit(2)
}
