// Package jobs provides the job description analysis stage.
package jobs

import (
	"fmt"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
)

const analysisPrompt = `You are an expert technical recruiter and job market analyst.

Input: The full text of a job description.

Your task:
1. Extract the role title, department, seniority level, and employment type.
2. Separate skills into must-have (explicitly required), nice-to-have
   (preferred or a plus), and unclear (mentioned without requirement level).
3. List the core responsibilities of the role.
4. Extract keywords an applicant tracking system would match on.
5. Identify the industry and years of experience required.

Rules:
- Extract only what the description states. Do NOT invent requirements.
- Skills must be short canonical names ("Python", not "experience with Python").
- Output ONLY valid JSON.

Use this exact JSON schema:
{
  "role_title": "",
  "department": "",
  "seniority_level": "",
  "employment_type": "",
  "years_experience_required": "",
  "industry": "",
  "must_have_skills": [],
  "nice_to_have_skills": [],
  "unclear_skills": [],
  "responsibilities": [],
  "keywords_for_ats": []
}`

// AnalysisSchema is the locked output contract of the analysis stage.
func AnalysisSchema() repair.Schema {
	return repair.Schema{
		Name: "job_analysis",
		Fields: []repair.Field{
			{Name: "role_title", Type: repair.TypeString, Required: true},
			{Name: "department", Type: repair.TypeString},
			{Name: "seniority_level", Type: repair.TypeString},
			{Name: "employment_type", Type: repair.TypeString},
			{Name: "years_experience_required", Type: repair.TypeString},
			{Name: "industry", Type: repair.TypeString},
			{Name: "must_have_skills", Type: repair.TypeStringList, Required: true},
			{Name: "nice_to_have_skills", Type: repair.TypeStringList, Required: true},
			{Name: "unclear_skills", Type: repair.TypeStringList},
			{Name: "responsibilities", Type: repair.TypeStringList, Required: true},
			{Name: "keywords_for_ats", Type: repair.TypeStringList, Required: true},
		},
	}
}

// AnalyzeStage returns the stage extracting a structured requirement profile
// from raw job description text.
func AnalyzeStage(gen llm.Generator) pipeline.Stage {
	schema := AnalysisSchema()
	return &pipeline.GenerativeStage{
		StageName:   "analyze_jd",
		Sources:     []string{"job_text"},
		Schema:      &schema,
		OutputField: "job_analysis",
		Temperature: 0.2,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			return analysisPrompt, fmt.Sprintf("Analyze this job description:\n\n%s", in.String("job_text"))
		},
		Normalize: mirrorSkillAliases,
	}
}

// mirrorSkillAliases keeps the legacy required_skills / preferred_skills
// aliases populated so downstream consumers can use either naming.
func mirrorSkillAliases(_, out artifact.Artifact) (artifact.Artifact, []string) {
	analysis, ok := out["job_analysis"].(map[string]any)
	if !ok {
		return out, nil
	}
	if _, present := analysis["required_skills"]; !present {
		analysis["required_skills"] = analysis["must_have_skills"]
	}
	if _, present := analysis["preferred_skills"]; !present {
		analysis["preferred_skills"] = analysis["nice_to_have_skills"]
	}
	return out, nil
}
