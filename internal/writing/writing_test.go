package writing

import (
	"context"
	"strings"
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

func outreachInput() artifact.Artifact {
	return artifact.Artifact{
		"master_cv": map[string]any{
			"name":    "Ada Lovelace",
			"summary": "Engineer who ships.",
		},
		"job_analysis": map[string]any{
			"role_title": "Staff Engineer",
		},
		"company_name": "Acme",
		"company_intel": map[string]any{
			"company_name": "Acme",
			"mission":      "Anvils for everyone",
		},
	}
}

func TestCoverLetterStage_ProducesContent(t *testing.T) {
	gen := &scriptedGenerator{text: "Dear team, I build anvils."}

	result := CoverLetterStage(gen).Run(context.Background(), outreachInput())
	require.Nil(t, result.Err)

	letter := result.Artifact.Map("cover_letter")
	assert.Equal(t, "Dear team, I build anvils.", letter["content"])
	assert.Equal(t, float64(5), letter["word_count"])

	// Candidate and company context reach the prompt.
	assert.Contains(t, gen.last.User, "Ada Lovelace")
	assert.Contains(t, gen.last.User, "Anvils for everyone")
}

func TestColdEmailStage_WithinLimitNoWarning(t *testing.T) {
	gen := &scriptedGenerator{text: "Subject: Quick question\n\nShort and sharp."}

	result := ColdEmailStage(gen).Run(context.Background(), outreachInput())
	require.Nil(t, result.Err)
	assert.Empty(t, result.Warnings)
}

func TestColdEmailStage_OverLimitWarns(t *testing.T) {
	long := strings.Repeat("word ", ColdEmailWordLimit+20)
	gen := &scriptedGenerator{text: long}

	result := ColdEmailStage(gen).Run(context.Background(), outreachInput())
	require.Nil(t, result.Err)

	// Over-length output is a warning, never a failure: the text survives.
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "over the 100 word target")
	assert.NotEmpty(t, result.Artifact.Map("cold_email")["content"])
}

func TestCompanySummaryStage_RequiresIntel(t *testing.T) {
	gen := &scriptedGenerator{text: "Acme makes anvils."}

	result := CompanySummaryStage(gen).Run(context.Background(), artifact.New())
	require.NotNil(t, result.Err)

	result = CompanySummaryStage(gen).Run(context.Background(), outreachInput())
	require.Nil(t, result.Err)
	assert.Equal(t, "Acme makes anvils.", result.Artifact.Map("company_summary")["content"])
}

func TestWriterVoice_FallsBackToNeutral(t *testing.T) {
	assert.Contains(t, writerVoice(nil), "concise, professional")
	assert.Contains(t, writerVoice(map[string]any{"tone": "wry"}), "wry")
}
