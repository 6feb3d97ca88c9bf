package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
)

type scriptedGenerator struct {
	text string
	last llm.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (llm.Outcome, error) {
	g.last = req
	return llm.Outcome{ProviderUsed: "scripted", RawText: g.text, Attempts: 1}, nil
}

func TestAnalyzeStage_ParsesAndAliases(t *testing.T) {
	gen := &scriptedGenerator{text: `{
		"role_title": "Staff Engineer",
		"must_have_skills": ["Go"],
		"nice_to_have_skills": ["SQL"],
		"unclear_skills": [],
		"responsibilities": ["Own the platform"],
		"keywords_for_ats": ["Go", "SQL"]
	}`}

	result := AnalyzeStage(gen).Run(context.Background(), artifact.Artifact{"job_text": "posting text"})
	require.Nil(t, result.Err)
	assert.Contains(t, gen.last.User, "posting text")

	analysis := result.Artifact.Map("job_analysis")
	assert.Equal(t, "Staff Engineer", analysis["role_title"])

	// Legacy aliases mirror the canonical skill lists.
	assert.Equal(t, analysis["must_have_skills"], analysis["required_skills"])
	assert.Equal(t, analysis["nice_to_have_skills"], analysis["preferred_skills"])
}

func TestAnalyzeStage_MissingRequiredListsDefaulted(t *testing.T) {
	gen := &scriptedGenerator{text: `{"role_title": "Engineer"}`}

	result := AnalyzeStage(gen).Run(context.Background(), artifact.Artifact{"job_text": "posting"})
	require.Nil(t, result.Err)
	assert.True(t, result.Repaired)

	analysis := result.Artifact.Map("job_analysis")
	assert.Equal(t, []any{}, analysis["must_have_skills"])
	assert.Equal(t, []any{}, analysis["keywords_for_ats"])
}
