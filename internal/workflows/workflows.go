// Package workflows assembles the pipeline stage sequences exposed to
// callers: the single-shot end-to-end run and the two-phase
// analyze/confirm/tailor flow.
package workflows

import (
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/cvparse"
	"github.com/jonathan/cv-tailor/internal/jobs"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/research"
	"github.com/jonathan/cv-tailor/internal/tailoring"
	"github.com/jonathan/cv-tailor/internal/writing"
)

// Deps carries the external collaborators stages depend on. Constructed
// once at startup and passed explicitly; nothing here is global.
type Deps struct {
	Generator llm.Generator
	Searcher  research.Searcher
}

// SingleShot is the full pipeline: raw resume text and job text in, tailored
// resume, cover letter, cold email, and company briefing out.
func SingleShot(deps Deps) []pipeline.Stage {
	return []pipeline.Stage{
		cvparse.StructureStage(deps.Generator),
		cvparse.ValidateStage(),
		jobs.AnalyzeStage(deps.Generator),
		research.CorpusStage(deps.Searcher),
		research.IntelStage(deps.Generator),
		research.VoiceStage(deps.Generator),
		tailoring.GapStage(deps.Generator),
		tailoring.MatchStage(deps.Generator),
		tailoring.RewriteStage(deps.Generator),
		tailoring.ResumeStage(deps.Generator),
		writing.CoverLetterStage(deps.Generator),
		writing.ColdEmailStage(deps.Generator),
		writing.CompanySummaryStage(deps.Generator),
	}
}

// AnalyzePhase is the first half of the two-phase flow. It stops after the
// skill gap assessment so the caller can show missing skills to the user and
// collect confirmations. The resulting artifact is persisted externally; no
// pipeline state stays in process between phases.
func AnalyzePhase(deps Deps) []pipeline.Stage {
	return []pipeline.Stage{
		cvparse.StructureStage(deps.Generator),
		cvparse.ValidateStage(),
		jobs.AnalyzeStage(deps.Generator),
		research.CorpusStage(deps.Searcher),
		research.IntelStage(deps.Generator),
		research.VoiceStage(deps.Generator),
		tailoring.GapStage(deps.Generator),
	}
}

// TailorPhase is the second half of the two-phase flow. Its seed is the
// persisted analyze-phase artifact plus the user's confirmed_skills. It
// folds confirmations into the CV, reassesses the gap, then generates all
// final outputs.
func TailorPhase(deps Deps) []pipeline.Stage {
	return []pipeline.Stage{
		mergeConfirmedSkills(),
		tailoring.GapStage(deps.Generator),
		tailoring.MatchStage(deps.Generator),
		tailoring.RewriteStage(deps.Generator),
		tailoring.ResumeStage(deps.Generator),
		writing.CoverLetterStage(deps.Generator),
		writing.ColdEmailStage(deps.Generator),
		writing.CompanySummaryStage(deps.Generator),
	}
}

// mergeConfirmedSkills folds user-confirmed skills into a copy of the CV's
// skill list, skipping duplicates case-insensitively. The analyze-phase CV
// value is never mutated.
func mergeConfirmedSkills() pipeline.Stage {
	return &pipeline.LocalStage{
		StageName: "merge_confirmed_skills",
		Sources:   []string{"master_cv"},
		Func: func(in artifact.Artifact) (artifact.Artifact, []string) {
			confirmed := in.StringList("confirmed_skills")
			cv := in.Map("master_cv")
			if len(confirmed) == 0 {
				return artifact.Artifact{"master_cv": cv}, nil
			}

			merged := make(map[string]any, len(cv))
			for k, v := range cv {
				merged[k] = v
			}
			existing, _ := cv["skills"].([]any)
			skills := make([]any, len(existing))
			copy(skills, existing)

			have := make(map[string]bool, len(skills))
			for _, s := range skills {
				if str, ok := s.(string); ok {
					have[strings.ToLower(strings.TrimSpace(str))] = true
				}
			}

			var added []string
			for _, s := range confirmed {
				key := strings.ToLower(strings.TrimSpace(s))
				if key == "" || have[key] {
					continue
				}
				have[key] = true
				skills = append(skills, s)
				added = append(added, s)
			}
			merged["skills"] = skills

			var warnings []string
			if len(added) > 0 {
				warnings = append(warnings, "added confirmed skills to cv: "+strings.Join(added, ", "))
			}
			return artifact.Artifact{"master_cv": merged}, warnings
		},
	}
}
