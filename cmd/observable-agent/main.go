// observable-agent is the starter kit CLI: run the dashboard server, route a
// support request, or let the coding agent draft a file in a target repo.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llm"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/config"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/guardrail"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/harness"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/logx"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/observability"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/routing"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/version"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/webui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "route":
		err = runRoute(os.Args[2:])
	case "code":
		err = runCode(os.Args[2:])
	case "version":
		fmt.Printf("observable-agent %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: observable-agent <command> [flags]

Commands:
  serve              Start the dashboard server
  route "text"       Route a support request to billing, tech, or sales
  code "task"        Generate one file in a target repo, guarded and gated
  version            Print version information

Run 'observable-agent <command> -h' for command flags.
`)
}

// buildClient creates an LLM client from config, or nil (with a warning)
// when no provider credentials are present.
func buildClient(cfg config.Config, logger *logx.Logger) llm.Client {
	client, err := agent.NewClient(cfg)
	if err != nil {
		logger.Warn("No LM available (%v); falling back to policy-only mode", err)
		return nil
	}
	return client
}

func runServe(args []string) error {
	flagSet := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flagSet.String("addr", "", "Listen address (default from config)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *addr == "" {
		*addr = cfg.DashboardAddr
	}

	logger := logx.NewLogger("serve")

	store, err := observability.OpenStore(cfg.TraceDB)
	if err != nil {
		return fmt.Errorf("failed to open trace store: %w", err)
	}
	defer func() { _ = store.Close() }()

	registry := prometheus.NewRegistry()
	recorder := observability.NewRecorder(registry)
	provider := observability.NewProvider(routing.ObservationName,
		observability.WithStore(store),
		observability.WithMetrics(recorder),
	)

	client := buildClient(cfg, logger)
	router := routing.New(client, provider, cfg.Temperature, cfg.MaxTokens)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := webui.NewServer(router, store, registry, cfg.Model)
	if err := server.StartServer(ctx, *addr); err != nil {
		return err
	}

	logger.Info("Dashboard running on %s (model %s)", *addr, cfg.Model)
	<-ctx.Done()
	return nil
}

func runRoute(args []string) error {
	flagSet := flag.NewFlagSet("route", flag.ExitOnError)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("route requires exactly one request argument")
	}
	request := flagSet.Arg(0)

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logx.NewLogger("route")

	var opts []observability.Option
	store, err := observability.OpenStore(cfg.TraceDB)
	if err != nil {
		logger.Warn("Trace store unavailable, continuing without traces: %v", err)
	} else {
		defer func() { _ = store.Close() }()
		opts = append(opts, observability.WithStore(store))
	}
	provider := observability.NewProvider(routing.ObservationName, opts...)

	client := buildClient(cfg, logger)
	router := routing.New(client, provider, cfg.Temperature, cfg.MaxTokens)

	decision, err := router.Route(context.Background(), request)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runCode(args []string) error {
	flagSet := flag.NewFlagSet("code", flag.ExitOnError)
	repo := flagSet.String("repo", ".", "Target repository path")
	allow := flagSet.String("allow", strings.Join(guardrail.DefaultAllowedPatterns, ","), "Comma-separated allowed glob patterns")
	dryRun := flagSet.Bool("dry-run", false, "Validate the proposal without writing the file")
	branch := flagSet.Bool("branch", false, "Create a work branch and commit on green gates")
	branchPrefix := flagSet.String("branch-prefix", harness.DefaultBranchPrefix, "Work branch prefix (<prefix>/<slug>)")
	openPR := flagSet.Bool("open-pr", false, "Open a pull request with gh after a green run (implies -branch)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("code requires exactly one task argument")
	}
	task := flagSet.Arg(0)

	cfg, err := config.Load(*repo)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasCredentials() {
		return fmt.Errorf("code generation requires LM credentials (set ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, or run Ollama)")
	}

	client, err := agent.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LM client: %w", err)
	}

	logger := logx.NewLogger("code")

	var opts []observability.Option
	store, err := observability.OpenStore(cfg.TraceDB)
	if err != nil {
		logger.Warn("Trace store unavailable, continuing without traces: %v", err)
	} else {
		defer func() { _ = store.Close() }()
		opts = append(opts, observability.WithStore(store))
	}
	provider := observability.NewProvider(harness.ObservationName, opts...)

	patterns := splitPatterns(*allow)
	codeAgent := harness.NewCodeAgent(client, provider, cfg.Temperature, cfg.MaxTokens)
	h := harness.NewHarness(codeAgent, *repo,
		harness.WithAllowedPatterns(patterns),
		harness.WithDryRun(*dryRun),
		harness.WithBranch(*branch || *openPR),
		harness.WithBranchPrefix(*branchPrefix),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := h.MakeFileAndTest(ctx, task)
	if err != nil {
		return err
	}

	printResult(result)

	if !result.Validation.Accepted {
		os.Exit(2)
	}
	if result.Written && !result.GatesPassed {
		os.Exit(3)
	}

	if *openPR && result.Written && result.GatesPassed && result.Branch != "" {
		title := fmt.Sprintf("Add %s", result.Proposal.Filename)
		url, err := harness.CreatePR(ctx, *repo, result.Branch, title, result.Proposal.Explanation)
		if err != nil {
			return fmt.Errorf("pull request creation failed: %w", err)
		}
		fmt.Printf("Pull request: %s\n", url)
	}
	return nil
}

func printResult(result harness.Result) {
	if !result.Validation.Accepted {
		fmt.Printf("REJECTED %s: %s\n", result.Proposal.Filename, result.Validation.Reason)
		return
	}
	if !result.Written {
		fmt.Printf("DRY RUN %s: %s\n", result.Proposal.Filename, result.Proposal.Explanation)
		return
	}
	fmt.Printf("WROTE %s (risk %s)\n", result.Proposal.Filename, result.Proposal.RiskLevel)
	for _, gate := range result.Gates {
		status := "PASS"
		if !gate.Passed {
			status = "FAIL"
		}
		fmt.Printf("  %s %s\n", status, gate.Name)
		if !gate.Passed && gate.Output != "" {
			fmt.Println(indent(gate.Output, "    "))
		}
	}
}

func splitPatterns(raw string) []string {
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
