package tailoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-tailor/internal/artifact"
)

func resumeInput() artifact.Artifact {
	return artifact.Artifact{
		"master_cv": map[string]any{
			"name":      "Ada Lovelace",
			"email":     "ada@example.com",
			"phone":     "555-0100",
			"location":  "London",
			"skills":    []any{"Go", "SQL"},
			"education": []any{},
		},
		"job_analysis": map[string]any{
			"keywords_for_ats": []any{"Go", "Kubernetes", "SQL"},
		},
		"rewritten": map[string]any{
			"rewritten_experience": []any{},
		},
		"matching": map[string]any{
			"matched_skills": []any{"Go", "SQL"},
		},
		"skill_gap": map[string]any{
			"match_percentage": float64(80),
			"missing_required": []any{"Kubernetes"},
		},
	}
}

func TestResumeStage_UnpacksOutputs(t *testing.T) {
	gen := &scriptedGenerator{text: "# Ada Lovelace\n\nSkills: Go, SQL\n"}

	result := ResumeStage(gen).Run(context.Background(), resumeInput())
	require.Nil(t, result.Err)

	assert.Contains(t, result.Artifact.String("resume_markdown"), "# Ada Lovelace")
	assert.Equal(t, []any{"Go", "SQL"}, result.Artifact["matched_skills"])

	// Only keywords actually present in the markdown are reported as used.
	assert.Equal(t, []any{"Go", "SQL"}, result.Artifact["keywords_used"])

	summary := result.Artifact.String("relevance_summary")
	assert.Contains(t, summary, "80%")
	assert.Contains(t, summary, "Kubernetes")
}

func TestResumeStage_EmptyOutputWarns(t *testing.T) {
	gen := &scriptedGenerator{text: "   "}

	result := ResumeStage(gen).Run(context.Background(), resumeInput())
	require.Nil(t, result.Err)
	assert.NotEmpty(t, result.Warnings)
}

func TestRelevanceSummary_NoGapAssessment(t *testing.T) {
	assert.Equal(t, "", relevanceSummary(nil))
}

func TestRelevanceSummary_NoGaps(t *testing.T) {
	summary := relevanceSummary(map[string]any{
		"match_percentage": float64(100),
		"missing_required": []any{},
	})
	assert.Contains(t, summary, "100%")
	assert.Contains(t, summary, "no gaps")
}
