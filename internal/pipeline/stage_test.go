package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/repair"
)

// scriptedGenerator returns canned text or an error.
type scriptedGenerator struct {
	text string
	err  error
	last llm.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (llm.Outcome, error) {
	g.last = req
	if g.err != nil {
		return llm.Outcome{}, g.err
	}
	return llm.Outcome{ProviderUsed: "scripted", RawText: g.text, Attempts: 1}, nil
}

func TestGenerativeStage_StructuredOutput(t *testing.T) {
	schema := repair.Schema{
		Name:   "greeting",
		Fields: []repair.Field{{Name: "text", Type: repair.TypeString, Required: true}},
	}
	gen := &scriptedGenerator{text: `{"text": "hello"}`}
	stage := &GenerativeStage{
		StageName:   "greet",
		Schema:      &schema,
		OutputField: "greeting",
		Temperature: 0.5,
		Generator:   gen,
		Prompt: func(_ artifact.Artifact) (string, string) {
			return "system prompt", "user prompt"
		},
	}

	result := stage.Run(context.Background(), artifact.New())
	require.Nil(t, result.Err)
	assert.False(t, result.Repaired)

	out := result.Artifact.Map("greeting")
	assert.Equal(t, "hello", out["text"])

	// The provider request was built from the prompt and stage settings.
	assert.Equal(t, "system prompt", gen.last.System)
	assert.Equal(t, llm.ModeStructuredJSON, gen.last.Mode)
	assert.Equal(t, 0.5, gen.last.Temperature)
}

func TestGenerativeStage_FreeTextOutput(t *testing.T) {
	gen := &scriptedGenerator{text: "  one two three  "}
	stage := &GenerativeStage{
		StageName:   "write",
		OutputField: "letter",
		Generator:   gen,
		Prompt: func(_ artifact.Artifact) (string, string) {
			return "sys", "user"
		},
	}

	result := stage.Run(context.Background(), artifact.New())
	require.Nil(t, result.Err)
	assert.Equal(t, llm.ModeFreeText, gen.last.Mode)

	out := result.Artifact.Map("letter")
	assert.Equal(t, "one two three", out["content"])
	assert.Equal(t, float64(3), out["word_count"])
}

func TestGenerativeStage_ProviderErrorIsProviderUnavailable(t *testing.T) {
	stage := &GenerativeStage{
		StageName: "greet",
		Generator: &scriptedGenerator{err: errors.New("all endpoints down")},
		Prompt: func(_ artifact.Artifact) (string, string) {
			return "sys", "user"
		},
	}
	result := stage.Run(context.Background(), artifact.New())
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrProviderUnavailable, result.Err.Kind)
}

func TestGenerativeStage_UnparseableOutputIsInvalidGeneration(t *testing.T) {
	schema := repair.Schema{
		Name:   "greeting",
		Fields: []repair.Field{{Name: "text", Type: repair.TypeString, Required: true}},
	}
	stage := &GenerativeStage{
		StageName:   "greet",
		Schema:      &schema,
		OutputField: "greeting",
		Generator:   &scriptedGenerator{text: "not json in any form"},
		Prompt: func(_ artifact.Artifact) (string, string) {
			return "sys", "user"
		},
	}
	result := stage.Run(context.Background(), artifact.New())
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrInvalidGeneration, result.Err.Kind)

	var unparseable *repair.UnparseableOutputError
	assert.ErrorAs(t, result.Err, &unparseable)
}

func TestGenerativeStage_NormalizeReceivesInputAndOutput(t *testing.T) {
	stage := &GenerativeStage{
		StageName:   "write",
		Sources:     []string{"topic"},
		OutputField: "letter",
		Generator:   &scriptedGenerator{text: "body"},
		Prompt: func(_ artifact.Artifact) (string, string) {
			return "sys", "user"
		},
		Normalize: func(in, out artifact.Artifact) (artifact.Artifact, []string) {
			out["topic_echo"] = in.String("topic")
			return out, []string{"normalized"}
		},
	}

	result := stage.Run(context.Background(), artifact.Artifact{"topic": "golang"})
	require.Nil(t, result.Err)
	assert.Equal(t, "golang", result.Artifact.String("topic_echo"))
	assert.Equal(t, []string{"normalized"}, result.Warnings)
}
