package research

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
)

const voicePrompt = `You are a writing style analyst.

Input: A candidate's resume summary and experience bullets, verbatim.

Your task: Characterize HOW this person writes about their work, so later
rewriting can preserve their voice.

Analyze:
1. Sentence style (terse fragments vs full sentences, active vs passive).
2. Average sentence length in words.
3. Ownership level ("led", "owned" vs "participated in", "helped with").
4. How much they emphasize metrics and numbers.
5. Overall tone (formal, conversational, technical).
6. Recurring vocabulary that signals their values.
7. A few representative phrases, quoted verbatim.
8. One paragraph of instructions a writer could follow to imitate them.

Rules:
- Describe the writing, not the person's qualifications.
- Sample phrases must be verbatim quotes from the input.
- Output ONLY valid JSON.

Use this exact JSON schema:
{
  "sentence_style": "",
  "avg_sentence_length": "",
  "ownership_level": "",
  "metric_emphasis": "",
  "tone": "",
  "value_vocabulary": [],
  "sample_phrases": [],
  "style_instructions": ""
}`

// VoiceSchema is the locked output contract of the voice extraction stage.
func VoiceSchema() repair.Schema {
	return repair.Schema{
		Name: "voice_profile",
		Fields: []repair.Field{
			{Name: "sentence_style", Type: repair.TypeString, Required: true},
			{Name: "avg_sentence_length", Type: repair.TypeString},
			{Name: "ownership_level", Type: repair.TypeString, Required: true},
			{Name: "metric_emphasis", Type: repair.TypeString},
			{Name: "tone", Type: repair.TypeString, Required: true},
			{Name: "value_vocabulary", Type: repair.TypeStringList},
			{Name: "sample_phrases", Type: repair.TypeStringList},
			{Name: "style_instructions", Type: repair.TypeString, Required: true},
		},
	}
}

// voiceSample renders the CV's own prose (summary plus bullets) for
// analysis, leaving out structured facts like dates and company names.
func voiceSample(cv map[string]any) string {
	var b strings.Builder
	if summary, _ := cv["summary"].(string); summary != "" {
		b.WriteString("Summary:\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	exp, _ := cv["experience"].([]any)
	for _, e := range exp {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		bullets, _ := entry["bullets"].([]any)
		for _, bl := range bullets {
			if s, ok := bl.(string); ok {
				b.WriteString("- ")
				b.WriteString(s)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// VoiceStage returns the stage extracting the candidate's writing voice
// from their own CV prose.
func VoiceStage(gen llm.Generator) pipeline.Stage {
	schema := VoiceSchema()
	return &pipeline.GenerativeStage{
		StageName:   "extract_voice",
		Sources:     []string{"master_cv"},
		Schema:      &schema,
		OutputField: "voice_profile",
		Temperature: 0.2,
		Generator:   gen,
		Prompt: func(in artifact.Artifact) (string, string) {
			return voicePrompt, fmt.Sprintf("Analyze this candidate's writing:\n\n%s", voiceSample(in.Map("master_cv")))
		},
	}
}
