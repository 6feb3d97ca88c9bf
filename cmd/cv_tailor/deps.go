package main

import (
	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/research"
	"github.com/jonathan/cv-tailor/internal/workflows"
)

// buildDeps wires the workflow collaborators from settings.
func buildDeps(settings *config.Settings) workflows.Deps {
	primary, fallback := settings.Endpoints()
	client := llm.NewClient(settings.RequestTimeout)

	deps := workflows.Deps{
		Generator: llm.NewCoordinator(client, primary, fallback),
	}
	if settings.TavilyAPIKey != "" {
		deps.Searcher = research.NewSearchClient(settings.TavilyAPIKey, "", 0)
	}
	return deps
}
