// Package cvparse provides the CV structuring and validation stages:
// raw resume text in, canonical structured CV out.
package cvparse

import (
	"fmt"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
)

// structuringPrompt converts raw resume text into canonical structured JSON.
// No guessing, no filling gaps, no hallucination.
const structuringPrompt = `You are a senior resume parsing engineer.

Input: Raw text extracted from a resume.

Your task:
1. Extract resume data into structured JSON.
2. Preserve exact wording from the resume.
3. Preserve exact dates, company names, and roles.
4. Do NOT infer missing information.
5. Do NOT add or remove experience.
6. If a field is missing, use an empty string "" or empty array [].

Rules:
- Experience must be in reverse chronological order.
- Bullets must remain verbatim (rewrite NOTHING).
- Output ONLY valid JSON.
- No commentary, no markdown.

Use this exact JSON schema:
{
  "name": "",
  "email": "",
  "phone": "",
  "location": "",
  "summary": "",
  "experience": [
    {
      "company": "",
      "role": "",
      "start_date": "",
      "end_date": "",
      "bullets": []
    }
  ],
  "skills": [],
  "education": [
    {
      "institution": "",
      "degree": "",
      "start_date": "",
      "end_date": ""
    }
  ]
}`

// MasterCVSchema is the locked output contract of the structuring stage.
func MasterCVSchema() repair.Schema {
	return repair.Schema{
		Name: "master_cv",
		Fields: []repair.Field{
			{Name: "name", Type: repair.TypeString, Required: true},
			{Name: "email", Type: repair.TypeString, Required: true},
			{Name: "phone", Type: repair.TypeString, Required: true},
			{Name: "location", Type: repair.TypeString, Required: true},
			{Name: "summary", Type: repair.TypeString, Required: true},
			{Name: "experience", Type: repair.TypeObjectList, Required: true},
			{Name: "skills", Type: repair.TypeStringList, Required: true},
			{Name: "education", Type: repair.TypeObjectList, Required: true},
		},
	}
}

// StructureStage returns the stage converting raw resume text into the
// master CV contract.
func StructureStage(gen llm.Generator) pipeline.Stage {
	schema := MasterCVSchema()
	return &pipeline.GenerativeStage{
		StageName:   "structure_cv",
		Sources:     []string{"raw_resume_text"},
		Schema:      &schema,
		OutputField: "master_cv",
		Temperature: 0.1,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			return structuringPrompt, fmt.Sprintf("Parse this resume:\n\n%s", in.String("raw_resume_text"))
		},
	}
}
