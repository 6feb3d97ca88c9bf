package research

import (
	"fmt"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
)

const intelPrompt = `You are a company research analyst preparing a candidate briefing.

Input: Search result excerpts about a company, plus the company name.

Your task:
1. Summarize what the company does, its industry, size, and stage.
2. Capture its mission and recent funding or news.
3. Describe culture highlights, reputation, and any red flags.
4. List hiring contacts if any appear in the excerpts.
5. Give a one-line recommendation on tailoring an application to them.
6. Rate your confidence as "high", "medium", or "low" based on how much
   the excerpts actually cover.

Rules:
- Use ONLY the provided excerpts. If the excerpts say nothing about a
  field, leave it as an empty string or empty array.
- Every source you relied on must appear in "sources" with its URL.
- Output ONLY valid JSON.

Use this exact JSON schema:
{
  "company_name": "",
  "website": "",
  "industry": "",
  "employee_count_range": "",
  "company_stage": "",
  "mission": "",
  "recent_funding_or_news": [],
  "culture_highlights": [],
  "red_flags": [],
  "reputation_summary": "",
  "hiring_contacts": [
    {
      "name": "",
      "role": "",
      "source": ""
    }
  ],
  "sources": [
    {
      "title": "",
      "url": ""
    }
  ],
  "recommendation": "",
  "confidence_level": ""
}`

// IntelSchema is the locked output contract of the company intelligence
// stage. Sources and hiring contacts tolerate bare-URL elements, which the
// repairer promotes onto the designated attribute.
func IntelSchema() repair.Schema {
	return repair.Schema{
		Name: "company_intel",
		Fields: []repair.Field{
			{Name: "company_name", Type: repair.TypeString, Required: true},
			{Name: "website", Type: repair.TypeString},
			{Name: "industry", Type: repair.TypeString},
			{Name: "employee_count_range", Type: repair.TypeString},
			{Name: "company_stage", Type: repair.TypeString},
			{Name: "mission", Type: repair.TypeString},
			{Name: "recent_funding_or_news", Type: repair.TypeStringList},
			{Name: "culture_highlights", Type: repair.TypeStringList},
			{Name: "red_flags", Type: repair.TypeStringList},
			{Name: "reputation_summary", Type: repair.TypeString},
			{Name: "hiring_contacts", Type: repair.TypeObjectList, FallbackAttr: "source"},
			{Name: "sources", Type: repair.TypeObjectList, Required: true, FallbackAttr: "url"},
			{Name: "recommendation", Type: repair.TypeString},
			{Name: "confidence_level", Type: repair.TypeString, Required: true},
		},
	}
}

// IntelStage returns the stage distilling the research corpus into
// structured company intelligence.
func IntelStage(gen llm.Generator) pipeline.Stage {
	schema := IntelSchema()
	return &pipeline.GenerativeStage{
		StageName:   "research_company",
		Sources:     []string{"company_name", "research_corpus"},
		Schema:      &schema,
		OutputField: "company_intel",
		Temperature: 0.3,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			corpus := in.String("research_corpus")
			if corpus == "" {
				corpus = "(no search results available)"
			}
			user := fmt.Sprintf("Company: %s\n\nSearch result excerpts:\n\n%s",
				in.String("company_name"), corpus)
			return intelPrompt, user
		},
	}
}
