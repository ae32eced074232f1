package harness

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/guardrail"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/logx"
)

// GateCommand is a quality gate run in the target repository after a file
// is written. A gate passes when the command exits zero.
type GateCommand struct {
	Name string
	Args []string
}

// PythonGates are the default gates for Python repositories.
var PythonGates = []GateCommand{
	{Name: "ruff", Args: []string{"ruff", "check", "."}},
	{Name: "pytest", Args: []string{"python", "-m", "pytest", "-q"}},
}

// GoGates are the default gates for Go repositories.
var GoGates = []GateCommand{
	{Name: "gofmt", Args: []string{"gofmt", "-l", "."}},
	{Name: "gotest", Args: []string{"go", "test", "./..."}},
}

// GateResult records one gate's outcome.
type GateResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Output string `json:"output"`
}

// Result is the outcome of one MakeFileAndTest run.
type Result struct {
	Proposal    FileProposal               `json:"proposal"`
	Validation  guardrail.ValidationResult `json:"validation"`
	Written     bool                       `json:"written"`
	Gates       []GateResult               `json:"gates"`
	GatesPassed bool                       `json:"gates_passed"`
	Branch      string                     `json:"branch,omitempty"`
}

// Harness wires the coding agent to a target repository.
type Harness struct {
	agent           *CodeAgent
	repoPath        string
	allowedPatterns []string
	gates           []GateCommand
	dryRun          bool
	createBranch    bool
	branchPrefix    string
	logger          *logx.Logger
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithGates replaces the default quality gates.
func WithGates(gates []GateCommand) HarnessOption {
	return func(h *Harness) { h.gates = gates }
}

// WithDryRun skips the file write and everything after it.
func WithDryRun(dry bool) HarnessOption {
	return func(h *Harness) { h.dryRun = dry }
}

// WithBranch creates a work branch before writing and commits on green gates.
func WithBranch(enabled bool) HarnessOption {
	return func(h *Harness) { h.createBranch = enabled }
}

// WithBranchPrefix overrides the work branch prefix.
func WithBranchPrefix(prefix string) HarnessOption {
	return func(h *Harness) { h.branchPrefix = prefix }
}

// WithAllowedPatterns replaces the default allowlist.
func WithAllowedPatterns(patterns []string) HarnessOption {
	return func(h *Harness) { h.allowedPatterns = patterns }
}

// NewHarness creates a harness for the repository at repoPath.
func NewHarness(agent *CodeAgent, repoPath string, opts ...HarnessOption) *Harness {
	h := &Harness{
		agent:           agent,
		repoPath:        repoPath,
		allowedPatterns: guardrail.DefaultAllowedPatterns,
		gates:           PythonGates,
		branchPrefix:    DefaultBranchPrefix,
		logger:          logx.NewLogger("harness"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MakeFileAndTest runs the full pipeline: snapshot the repository, generate
// a file proposal, validate it, write it, and run the quality gates. A
// guardrail rejection is reported in the Result, not as an error; errors are
// reserved for generation and infrastructure failures.
func (h *Harness) MakeFileAndTest(ctx context.Context, task string) (Result, error) {
	snapshot := RepoSnapshot(ctx, h.repoPath)

	proposal, err := h.agent.Generate(ctx, task, snapshot, h.allowedPatterns)
	if err != nil {
		return Result{}, err
	}

	result := Result{Proposal: proposal}
	result.Validation = guardrail.Validate(guardrail.ChangeRequest{
		TargetPath:        proposal.Filename,
		ProposedContent:   proposal.Content,
		DeclaredRiskLevel: proposal.RiskLevel,
		AllowedPatterns:   h.allowedPatterns,
	}, guardrail.PathExistsOnDisk(h.repoPath))

	if !result.Validation.Accepted {
		h.logger.Warn("proposal for %q rejected: %s", proposal.Filename, result.Validation.Reason)
		return result, nil
	}

	if h.dryRun {
		h.logger.Info("dry run: would write %q (%d bytes)", proposal.Filename, len(result.Validation.NormalizedContent))
		return result, nil
	}

	if h.createBranch {
		branch, err := CreateWorkBranch(ctx, h.repoPath, h.branchPrefix, task)
		if err != nil {
			h.logger.Warn("branch creation failed, continuing on current branch: %v", err)
		} else {
			result.Branch = branch
		}
	}

	if err := guardrail.WriteNew(filepath.Join(h.repoPath, proposal.Filename), result.Validation.NormalizedContent); err != nil {
		return result, fmt.Errorf("write %s: %w", proposal.Filename, err)
	}
	result.Written = true
	h.logger.Info("wrote %s", proposal.Filename)

	result.Gates, result.GatesPassed = h.runGates(ctx)

	if h.createBranch && result.GatesPassed {
		msg := fmt.Sprintf("Add %s\n\n%s", proposal.Filename, proposal.Explanation)
		if err := Commit(ctx, h.repoPath, proposal.Filename, msg); err != nil {
			h.logger.Warn("commit failed: %v", err)
		}
	}

	return result, nil
}

func (h *Harness) runGates(ctx context.Context) ([]GateResult, bool) {
	results := make([]GateResult, 0, len(h.gates))
	allPassed := true
	for _, gate := range h.gates {
		out, err := h.runGate(ctx, gate)
		passed := err == nil
		if !passed {
			allPassed = false
			h.logger.Warn("gate %s failed: %v", gate.Name, err)
		} else {
			h.logger.Info("gate %s passed", gate.Name)
		}
		results = append(results, GateResult{Name: gate.Name, Passed: passed, Output: out})
	}
	return results, allPassed
}

func (h *Harness) runGate(ctx context.Context, gate GateCommand) (string, error) {
	if len(gate.Args) == 0 {
		return "", fmt.Errorf("gate %s has no command", gate.Name)
	}
	cmd := exec.CommandContext(ctx, gate.Args[0], gate.Args[1:]...)
	cmd.Dir = h.repoPath
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return strings.TrimSpace(buf.String()), err
}
