// Package pipeline provides the stage abstraction and sequential
// orchestration for prompt-driven generation workflows.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/repair"
)

// Stage is one bound unit of work: prompt construction, provider call,
// schema validation, normalization. Pure local stages implement the same
// interface with no provider call.
type Stage interface {
	Name() string
	// RequiredSources lists artifact fields that must be present before
	// the stage runs.
	RequiredSources() []string
	Run(ctx context.Context, in artifact.Artifact) StageResult
}

// StageResult is produced when a stage completes, success or failure.
// Artifact holds only the fields the stage produced; the orchestrator merges
// them onto the run artifact.
type StageResult struct {
	Stage    string
	Artifact artifact.Artifact
	Warnings []string
	Repaired bool
	Err      *StageError
}

// PromptFunc builds the system and user prompt from the input artifact.
// Must be deterministic and pure: the same input always yields the same
// request text (provider sampling remains stochastic per temperature).
type PromptFunc func(in artifact.Artifact) (system, user string)

// NormalizeFunc cleans a stage's produced fields. It receives the input
// artifact for context and the produced fields, and returns the fields to
// merge plus warnings. It never calls the provider and never fails.
type NormalizeFunc func(in, out artifact.Artifact) (artifact.Artifact, []string)

// GenerativeStage is a provider-backed stage. Schema nil means a free-text
// stage whose output is wrapped as {content, word_count} under OutputField.
type GenerativeStage struct {
	StageName   string
	Sources     []string
	Schema      *repair.Schema
	OutputField string
	Temperature float64
	Prompt      PromptFunc
	Normalize   NormalizeFunc
	Generator   llm.Generator
}

// Name returns the stage name.
func (s *GenerativeStage) Name() string { return s.StageName }

// RequiredSources returns the artifact fields the stage depends on.
func (s *GenerativeStage) RequiredSources() []string { return s.Sources }

// Run executes the stage against the input artifact.
func (s *GenerativeStage) Run(ctx context.Context, in artifact.Artifact) StageResult {
	result := StageResult{Stage: s.StageName}

	if err := checkSources(s.StageName, s.Sources, in); err != nil {
		result.Err = err
		return result
	}

	system, user := s.Prompt(in)
	mode := llm.ModeFreeText
	if s.Schema != nil {
		mode = llm.ModeStructuredJSON
	}

	outcome, err := s.Generator.Generate(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: s.Temperature,
		Mode:        mode,
	})
	if err != nil {
		result.Err = &StageError{Stage: s.StageName, Kind: ErrProviderUnavailable, Cause: err}
		return result
	}

	var produced artifact.Artifact
	if s.Schema != nil {
		parsed, err := repair.Parse(outcome.RawText, *s.Schema)
		if err != nil {
			result.Err = &StageError{Stage: s.StageName, Kind: ErrInvalidGeneration, Cause: err}
			return result
		}
		produced = artifact.Artifact{s.OutputField: map[string]any(parsed.Artifact)}
		result.Repaired = parsed.Repaired
		result.Warnings = append(result.Warnings, parsed.Warnings...)
	} else {
		content := strings.TrimSpace(outcome.RawText)
		produced = artifact.Artifact{s.OutputField: map[string]any{
			"content":    content,
			"word_count": float64(len(strings.Fields(content))),
		}}
	}

	if s.Normalize != nil {
		normalized, warnings := s.Normalize(in, produced)
		produced = normalized
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Artifact = produced
	return result
}

// LocalFunc is the transformation of a pure local stage.
type LocalFunc func(in artifact.Artifact) (artifact.Artifact, []string)

// LocalStage is a stage with no provider call, included in the abstraction
// for uniformity of composition (e.g. CV validation/normalization).
type LocalStage struct {
	StageName string
	Sources   []string
	Func      LocalFunc
}

// Name returns the stage name.
func (s *LocalStage) Name() string { return s.StageName }

// RequiredSources returns the artifact fields the stage depends on.
func (s *LocalStage) RequiredSources() []string { return s.Sources }

// Run executes the local transformation.
func (s *LocalStage) Run(_ context.Context, in artifact.Artifact) StageResult {
	result := StageResult{Stage: s.StageName}
	if err := checkSources(s.StageName, s.Sources, in); err != nil {
		result.Err = err
		return result
	}
	out, warnings := s.Func(in)
	result.Artifact = out
	result.Warnings = warnings
	return result
}

// checkSources fails fast when required sources are missing. This should
// never fire in correct pipeline wiring.
func checkSources(stage string, sources []string, in artifact.Artifact) *StageError {
	if missing := in.Missing(sources); len(missing) > 0 {
		return &StageError{
			Stage: stage,
			Kind:  ErrContractViolation,
			Cause: fmt.Errorf("artifact missing required sources: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}
