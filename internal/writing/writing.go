// Package writing provides the free-text outreach stages: cover letter,
// cold email, and company summary.
package writing

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
)

// ColdEmailWordLimit is the target length for cold outreach. Exceeding it
// is a warning, not a failure; the text is still returned.
const ColdEmailWordLimit = 100

const coverLetterPrompt = `You are an expert cover letter writer.

Input: The candidate's tailored resume context, the job analysis, company
intelligence, and the candidate's writing voice.

Your task: Write a complete cover letter for this application.

Rules:
1. 3-4 paragraphs, under 350 words.
2. Open with genuine specificity about this company and role, drawn from
   the company intelligence. Never open with "I am writing to apply".
3. Back every claim with evidence from the candidate's experience.
4. Match the candidate's voice:
%s
5. Close with a confident, low-pressure call to action.
6. Output ONLY the letter text. No JSON, no subject line, no commentary.`

const coldEmailPrompt = `You are an expert at cold outreach for job seekers.

Input: The candidate's background, the role, and company intelligence.

Your task: Write a cold email to a hiring contact at the company.

Rules:
1. STRICTLY under %d words. Shorter is better.
2. Subject line first, on its own line, prefixed "Subject: ".
3. One concrete hook about the company, one sentence of credibility with a
   real metric from the candidate's experience, one clear ask.
4. Match the candidate's voice:
%s
5. No flattery padding, no "I hope this finds you well".
6. Output ONLY the email. No commentary.`

const companySummaryPrompt = `You are a career advisor briefing a candidate before an interview.

Input: Structured company intelligence assembled from web research.

Your task: Write a briefing the candidate can read in two minutes.

Cover, in order:
1. What the company does and where it stands (size, stage, funding).
2. Culture signals and reputation, including red flags, stated plainly.
3. How this candidate should angle their application and interviews.

Rules:
- Ground every statement in the provided intelligence. If the research was
  thin, say so rather than padding.
- Plain prose with short paragraphs. No headings, no bullet lists.
- Output ONLY the briefing text.`

// writerVoice renders voice guidance for the outreach prompts.
func writerVoice(profile map[string]any) string {
	if len(profile) == 0 {
		return "   Write in a concise, professional, active voice."
	}
	var lines []string
	add := func(label, key string) {
		if s, _ := profile[key].(string); strings.TrimSpace(s) != "" {
			lines = append(lines, fmt.Sprintf("   - %s: %s", label, s))
		}
	}
	add("Tone", "tone")
	add("Ownership level", "ownership_level")
	add("Instructions", "style_instructions")
	if len(lines) == 0 {
		return "   Write in a concise, professional, active voice."
	}
	return strings.Join(lines, "\n")
}

// candidateContext renders the shared prompt context for outreach stages.
func candidateContext(in artifact.Artifact) string {
	var b strings.Builder
	cv := in.Map("master_cv")
	fmt.Fprintf(&b, "Candidate: %v\n", cv["name"])
	if summary, _ := cv["summary"].(string); summary != "" {
		fmt.Fprintf(&b, "Background: %s\n", summary)
	}
	if gap := in.Map("skill_gap"); len(gap) > 0 {
		fmt.Fprintf(&b, "Must-have skill coverage: %.0f%%\n", in.Map("skill_gap")["match_percentage"])
	}
	analysis := in.Map("job_analysis")
	fmt.Fprintf(&b, "Target role: %v at %v\n", analysis["role_title"], in.String("company_name"))
	if matching := in.Map("matching"); len(matching) > 0 {
		data, _ := artifact.Artifact(matching).JSON()
		fmt.Fprintf(&b, "Strongest matches:\n%s\n", data)
	}
	if intel := in.Map("company_intel"); len(intel) > 0 {
		data, _ := artifact.Artifact(intel).JSON()
		fmt.Fprintf(&b, "Company intelligence:\n%s\n", data)
	}
	return b.String()
}

// CoverLetterStage returns the cover letter writing stage.
func CoverLetterStage(gen llm.Generator) pipeline.Stage {
	return &pipeline.GenerativeStage{
		StageName:   "cover_letter",
		Sources:     []string{"master_cv", "job_analysis"},
		OutputField: "cover_letter",
		Temperature: 0.6,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			system := fmt.Sprintf(coverLetterPrompt, writerVoice(in.Map("voice_profile")))
			return system, candidateContext(in)
		},
	}
}

// ColdEmailStage returns the cold email writing stage. Output over the word
// limit surfaces a warning so the caller can regenerate or trim.
func ColdEmailStage(gen llm.Generator) pipeline.Stage {
	return &pipeline.GenerativeStage{
		StageName:   "cold_email",
		Sources:     []string{"master_cv", "job_analysis"},
		OutputField: "cold_email",
		Temperature: 0.7,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			system := fmt.Sprintf(coldEmailPrompt, ColdEmailWordLimit, writerVoice(in.Map("voice_profile")))
			return system, candidateContext(in)
		},
		Normalize: func(_, out artifact.Artifact) (artifact.Artifact, []string) {
			email, _ := out["cold_email"].(map[string]any)
			count, _ := email["word_count"].(float64)
			if count > ColdEmailWordLimit {
				return out, []string{fmt.Sprintf("cold email is %.0f words, over the %d word target", count, ColdEmailWordLimit)}
			}
			return out, nil
		},
	}
}

// CompanySummaryStage returns the company briefing stage.
func CompanySummaryStage(gen llm.Generator) pipeline.Stage {
	return &pipeline.GenerativeStage{
		StageName:   "company_summary",
		Sources:     []string{"company_intel"},
		OutputField: "company_summary",
		Temperature: 0.4,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			data, _ := artifact.Artifact(in.Map("company_intel")).JSON()
			return companySummaryPrompt, fmt.Sprintf("Company intelligence:\n%s", data)
		},
	}
}
