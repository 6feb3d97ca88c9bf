package tailoring

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
)

const resumePrompt = `You are an expert resume writer producing a final, ATS-friendly resume.

Input: The candidate's contact details, rewritten experience, skills,
education, and the job's analysis and company context.

Your task: Assemble a complete one-page resume in Markdown.

Structure, in order:
1. Name as a top-level heading, then contact line (email | phone | location).
2. A 2-3 sentence professional summary targeted at this role%s.
3. Skills section leading with the job's must-have skills the candidate holds.
4. Experience section using the rewritten bullets verbatim, reverse
   chronological, with company, role, and dates.
5. Education section.

Rules:
- Use the rewritten bullets EXACTLY as provided. Do not rewrite them again.
- Plain Markdown only: headings, bold, bullet lists. No tables, no HTML.
- Do not add sections the input has no content for.
- Output ONLY the Markdown resume, no commentary.`

// companyAngle folds company intelligence into the summary instruction when
// research produced anything useful.
func companyAngle(intel map[string]any) string {
	if len(intel) == 0 {
		return ""
	}
	mission, _ := intel["mission"].(string)
	if strings.TrimSpace(mission) == "" {
		return ""
	}
	return fmt.Sprintf(", speaking to the company's focus: %s", mission)
}

// ResumeStage returns the free-text stage assembling the final Markdown
// resume from the rewritten experience.
func ResumeStage(gen llm.Generator) pipeline.Stage {
	return &pipeline.GenerativeStage{
		StageName:   "generate_resume",
		Sources:     []string{"master_cv", "job_analysis", "rewritten"},
		OutputField: "resume",
		Temperature: 0.3,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			system := fmt.Sprintf(resumePrompt, companyAngle(in.Map("company_intel")))
			cv := in.Map("master_cv")
			var b strings.Builder
			fmt.Fprintf(&b, "Contact: name=%q email=%q phone=%q location=%q\n\n",
				cv["name"], cv["email"], cv["phone"], cv["location"])
			fmt.Fprintf(&b, "Rewritten experience:\n%s\n\n", compactJSON(in.Map("rewritten")["rewritten_experience"]))
			fmt.Fprintf(&b, "Skills:\n%s\n\n", compactJSON(cv["skills"]))
			fmt.Fprintf(&b, "Education:\n%s\n\n", compactJSON(cv["education"]))
			fmt.Fprintf(&b, "Job analysis:\n%s\n", compactJSON(in.Map("job_analysis")))
			return system, b.String()
		},
		Normalize: unpackResume,
	}
}

// unpackResume reshapes the free-text output into the resume fields the
// caller consumes: the Markdown itself plus derived match metadata.
func unpackResume(in, out artifact.Artifact) (artifact.Artifact, []string) {
	resume, _ := out["resume"].(map[string]any)
	markdown, _ := resume["content"].(string)

	produced := artifact.Artifact{"resume_markdown": markdown}

	matched := in.Map("matching")["matched_skills"]
	if matched == nil {
		matched = []any{}
	}
	produced["matched_skills"] = matched

	lower := strings.ToLower(markdown)
	used := []any{}
	for _, kw := range stringsOf(in.Map("job_analysis")["keywords_for_ats"]) {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			used = append(used, kw)
		}
	}
	produced["keywords_used"] = used

	produced["relevance_summary"] = relevanceSummary(in.Map("skill_gap"))

	var warnings []string
	if strings.TrimSpace(markdown) == "" {
		warnings = append(warnings, "generated resume is empty")
	}
	return produced, warnings
}

// relevanceSummary renders a one-line fit summary from the skill gap
// assessment, or "" when no assessment ran.
func relevanceSummary(gap map[string]any) string {
	if len(gap) == 0 {
		return ""
	}
	pct, _ := gap["match_percentage"].(float64)
	missing := stringsOf(gap["missing_required"])
	if len(missing) == 0 {
		return fmt.Sprintf("Covers %.0f%% of must-have skills with no gaps.", pct)
	}
	return fmt.Sprintf("Covers %.0f%% of must-have skills; missing: %s.", pct, strings.Join(missing, ", "))
}

func stringsOf(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
