// Package guardrail decides whether a proposed agent-generated file may be
// written. It checks the target path against an allowlist, refuses overwrites,
// validates the declared risk level, and strips the markdown code fences that
// language models frequently emit around file content.
package guardrail

import "strings"

// RiskLevel is the change's declared blast radius, self-reported by the model.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Reason identifies why a change request was rejected.
type Reason string

const (
	// ReasonPathNotAllowed means the target path matched no allowlist pattern.
	ReasonPathNotAllowed Reason = "path_not_allowed"
	// ReasonFileAlreadyExists means a write would overwrite an existing file.
	ReasonFileAlreadyExists Reason = "file_already_exists"
	// ReasonInvalidRiskLevel means the declared risk level is not low/medium/high.
	ReasonInvalidRiskLevel Reason = "invalid_risk_level"
	// ReasonEmptyContent means the normalized content has no non-whitespace characters.
	ReasonEmptyContent Reason = "empty_content"
)

// DefaultAllowedPatterns is used when the caller supplies no allowlist.
//
//nolint:gochecknoglobals // Static default shared with the CLI flag default.
var DefaultAllowedPatterns = []string{"src/**/*.py", "tests/**/*.py"}

// ChangeRequest is a proposed new file. Constructed once per agent invocation
// and consumed once by Validate.
type ChangeRequest struct {
	TargetPath        string
	ProposedContent   string
	DeclaredRiskLevel string
	AllowedPatterns   []string
}

// ValidationResult reports the outcome of a single Validate call.
// NormalizedContent is populated only when Accepted is true.
type ValidationResult struct {
	Accepted          bool
	NormalizedContent string
	Reason            Reason
}

// PathExistsFunc reports whether a file already exists at path. Injected so
// the pipeline itself performs no filesystem reads.
type PathExistsFunc func(path string) bool

func reject(reason Reason) ValidationResult {
	return ValidationResult{Accepted: false, Reason: reason}
}

// Validate runs the guardrail pipeline over a change request. Checks run in a
// fixed order for diagnosability: allowlist, existence, risk level, fence
// normalization, emptiness. Every rejection is a value; Validate never panics
// or returns an error for an invalid request.
func Validate(req ChangeRequest, pathExists PathExistsFunc) ValidationResult {
	patterns := req.AllowedPatterns
	if len(patterns) == 0 {
		patterns = DefaultAllowedPatterns
	}

	matched := false
	for _, pattern := range patterns {
		if Match(pattern, req.TargetPath) {
			matched = true
			break
		}
	}
	if !matched {
		return reject(ReasonPathNotAllowed)
	}

	if pathExists != nil && pathExists(req.TargetPath) {
		return reject(ReasonFileAlreadyExists)
	}

	risk := RiskLevel(strings.ToLower(strings.TrimSpace(req.DeclaredRiskLevel)))
	if risk != RiskLow && risk != RiskMedium && risk != RiskHigh {
		return reject(ReasonInvalidRiskLevel)
	}

	normalized := StripFences(req.ProposedContent)
	if strings.TrimSpace(normalized) == "" {
		return reject(ReasonEmptyContent)
	}

	return ValidationResult{Accepted: true, NormalizedContent: normalized}
}

// StripFences removes a single markdown code-fence pair wrapping content: a
// first line whose trimmed form starts with ``` (optionally followed by a
// language tag) and a last line whose trimmed form is exactly ```. Both must
// be present or nothing is stripped. At most one pair is removed, so the
// function is idempotent and never unwraps nested fences.
func StripFences(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}

	first := strings.TrimSpace(lines[0])
	last := strings.TrimSpace(lines[len(lines)-1])
	if !strings.HasPrefix(first, "```") || last != "```" {
		return content
	}

	return strings.Join(lines[1:len(lines)-1], "\n")
}
