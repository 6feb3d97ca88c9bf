package tailoring

import (
	"fmt"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
)

const matchPrompt = `You are a resume strategist deciding what to emphasize.

Input: A candidate's structured CV and a structured job analysis.

Your task:
1. Rank the candidate's experience entries by relevance to this job. For
   each relevant entry, explain in one sentence why it matters and list
   which of its bullets best support the application.
2. List the candidate's skills that match the job's requirements.
3. List job keywords the CV never mentions.
4. List experience entries that add little for this job.

Rules:
- Reference experience entries by their company name exactly as written.
- Do NOT invent experience or skills.
- Output ONLY valid JSON.

Use this exact JSON schema:
{
  "relevant_experience": [
    {
      "company": "",
      "role": "",
      "why_relevant": "",
      "best_bullets": []
    }
  ],
  "matched_skills": [],
  "missing_keywords": [],
  "irrelevant_experience": []
}`

// MatchSchema is the locked output contract of the matching stage.
func MatchSchema() repair.Schema {
	return repair.Schema{
		Name: "matching",
		Fields: []repair.Field{
			{Name: "relevant_experience", Type: repair.TypeObjectList, Required: true},
			{Name: "matched_skills", Type: repair.TypeStringList, Required: true},
			{Name: "missing_keywords", Type: repair.TypeStringList},
			{Name: "irrelevant_experience", Type: repair.TypeStringList},
		},
	}
}

// MatchStage returns the stage ranking CV experience against the job.
func MatchStage(gen llm.Generator) pipeline.Stage {
	schema := MatchSchema()
	return &pipeline.GenerativeStage{
		StageName:   "match_cv",
		Sources:     []string{"master_cv", "job_analysis"},
		Schema:      &schema,
		OutputField: "matching",
		Temperature: 0.2,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			user := fmt.Sprintf("Candidate CV:\n%s\n\nJob analysis:\n%s",
				compactJSON(in.Map("master_cv")), compactJSON(in.Map("job_analysis")))
			return matchPrompt, user
		},
	}
}
