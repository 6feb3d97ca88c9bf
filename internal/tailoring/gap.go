// Package tailoring provides the stages that fit a structured CV to an
// analyzed job: skill gap assessment, experience matching, bullet rewriting,
// and resume generation.
package tailoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
)

const gapPrompt = `You are a technical recruiter assessing candidate fit.

Input: A candidate's structured CV and the skill requirements of a job.

Your task:
1. For each must-have skill, decide whether the CV demonstrates it. Count a
   skill as matched if the CV shows it directly OR through a clearly
   equivalent technology.
2. For matched skills, record where in the CV the evidence appears.
3. List must-have skills with no evidence as missing.
4. Do the same for nice-to-have skills (matched and missing lists only).
5. Compute match_percentage: matched must-haves divided by total must-haves,
   as a number from 0 to 100. If there are no must-haves, use 100.

Rules:
- Judge from CV evidence only. Do NOT assume unlisted skills.
- Output ONLY valid JSON.

Use this exact JSON schema:
{
  "matched_required": [
    {
      "skill": "",
      "found_in_cv": "",
      "source": ""
    }
  ],
  "missing_required": [],
  "matched_preferred": [],
  "missing_preferred": [],
  "match_percentage": 0
}`

// GapSchema is the locked output contract of the skill gap stage.
func GapSchema() repair.Schema {
	return repair.Schema{
		Name: "skill_gap",
		Fields: []repair.Field{
			{Name: "matched_required", Type: repair.TypeObjectList, Required: true},
			{Name: "missing_required", Type: repair.TypeStringList, Required: true},
			{Name: "matched_preferred", Type: repair.TypeStringList},
			{Name: "missing_preferred", Type: repair.TypeStringList},
			{Name: "match_percentage", Type: repair.TypeNumber, Required: true},
		},
	}
}

// compactJSON renders a value as single-line JSON for prompt embedding.
func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// GapStage returns the stage assessing which job requirements the CV covers.
// When the artifact carries confirmed_skills (user-vetted additions from the
// two-phase flow), they are presented alongside the CV as trusted evidence.
func GapStage(gen llm.Generator) pipeline.Stage {
	schema := GapSchema()
	return &pipeline.GenerativeStage{
		StageName:   "skill_gap",
		Sources:     []string{"master_cv", "job_analysis"},
		Schema:      &schema,
		OutputField: "skill_gap",
		Temperature: 0.1,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			var b strings.Builder
			fmt.Fprintf(&b, "Candidate CV:\n%s\n\n", compactJSON(in.Map("master_cv")))
			if confirmed := in.StringList("confirmed_skills"); len(confirmed) > 0 {
				fmt.Fprintf(&b, "Additional skills the candidate has confirmed they hold:\n%s\n\n",
					strings.Join(confirmed, ", "))
			}
			analysis := in.Map("job_analysis")
			fmt.Fprintf(&b, "Job must-have skills: %s\n", compactJSON(analysis["must_have_skills"]))
			fmt.Fprintf(&b, "Job nice-to-have skills: %s\n", compactJSON(analysis["nice_to_have_skills"]))
			return gapPrompt, b.String()
		},
	}
}
