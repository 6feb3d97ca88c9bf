package tailoring

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
)

const rewritePrompt = `You are an expert resume writer.

Input: A candidate's relevant experience, the job's requirements, and the
candidate's writing voice.

Your task: Rewrite the experience bullets to target this job.

Rules:
1. Rewrite ONLY the wording. Never change facts, numbers, scope, or dates.
2. Lead with strong verbs and weave in the job's keywords where the
   underlying work genuinely supports them.
3. Keep every metric the original bullet carries.
4. Do NOT invent achievements, tools, or responsibilities.
5. Preserve the candidate's voice:
%s
6. Output ONLY valid JSON.

Use this exact JSON schema:
{
  "rewritten_experience": [
    {
      "company": "",
      "role": "",
      "start_date": "",
      "end_date": "",
      "bullets": []
    }
  ]
}`

// RewriteSchema is the locked output contract of the rewriting stage.
func RewriteSchema() repair.Schema {
	return repair.Schema{
		Name: "rewritten",
		Fields: []repair.Field{
			{Name: "rewritten_experience", Type: repair.TypeObjectList, Required: true},
		},
	}
}

// voiceInstructions renders the voice profile as prompt guidance, falling
// back to neutral guidance when no profile was extracted.
func voiceInstructions(profile map[string]any) string {
	if len(profile) == 0 {
		return "   Write in a concise, professional, active voice."
	}
	var lines []string
	add := func(label, key string) {
		if s, _ := profile[key].(string); strings.TrimSpace(s) != "" {
			lines = append(lines, fmt.Sprintf("   - %s: %s", label, s))
		}
	}
	add("Sentence style", "sentence_style")
	add("Ownership level", "ownership_level")
	add("Metric emphasis", "metric_emphasis")
	add("Tone", "tone")
	add("Instructions", "style_instructions")
	if len(lines) == 0 {
		return "   Write in a concise, professional, active voice."
	}
	return strings.Join(lines, "\n")
}

// RewriteStage returns the stage rewriting experience bullets toward the
// job while preserving facts and voice.
func RewriteStage(gen llm.Generator) pipeline.Stage {
	schema := RewriteSchema()
	return &pipeline.GenerativeStage{
		StageName:   "rewrite_bullets",
		Sources:     []string{"master_cv", "job_analysis", "matching"},
		Schema:      &schema,
		OutputField: "rewritten",
		Temperature: 0.4,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			system := fmt.Sprintf(rewritePrompt, voiceInstructions(in.Map("voice_profile")))
			analysis := in.Map("job_analysis")
			user := fmt.Sprintf(
				"Experience to rewrite:\n%s\n\nRelevance ranking:\n%s\n\nJob keywords: %s\nJob must-have skills: %s",
				compactJSON(in.Map("master_cv")["experience"]),
				compactJSON(in.Map("matching")["relevant_experience"]),
				compactJSON(analysis["keywords_for_ats"]),
				compactJSON(analysis["must_have_skills"]),
			)
			return system, user
		},
		Normalize: restoreDates,
	}
}

// restoreDates re-attaches start and end dates from the source CV when the
// rewrite dropped or altered them. Dates are facts; the model only gets to
// change wording.
func restoreDates(in, out artifact.Artifact) (artifact.Artifact, []string) {
	rewritten, ok := out["rewritten"].(map[string]any)
	if !ok {
		return out, nil
	}
	entries, _ := rewritten["rewritten_experience"].([]any)
	if len(entries) == 0 {
		return out, nil
	}

	type dates struct{ start, end string }
	byCompany := make(map[string]dates)
	cv := in.Map("master_cv")
	exp, _ := cv["experience"].([]any)
	for _, e := range exp {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		company, _ := entry["company"].(string)
		start, _ := entry["start_date"].(string)
		end, _ := entry["end_date"].(string)
		byCompany[strings.ToLower(strings.TrimSpace(company))] = dates{start: start, end: end}
	}

	var warnings []string
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		company, _ := entry["company"].(string)
		original, found := byCompany[strings.ToLower(strings.TrimSpace(company))]
		if !found {
			warnings = append(warnings, fmt.Sprintf("rewritten entry %q has no matching source experience", company))
			continue
		}
		if entry["start_date"] != original.start || entry["end_date"] != original.end {
			entry["start_date"] = original.start
			entry["end_date"] = original.end
		}
	}
	return out, warnings
}
