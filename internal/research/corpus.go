package research

import (
	"context"
	"net/url"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/pipeline"
)

// CompanyNameFromURL derives a readable company name from a website URL:
// hostname minus scheme, www prefix, and TLD, title-cased. Returns "" when
// the URL has no usable hostname.
func CompanyNameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	parts := strings.Split(host, ".")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	name := parts[0]
	return strings.ToUpper(name[:1]) + name[1:]
}

// corpusStage gathers the research corpus through the search collaborator.
// It is tolerant by design: a missing company reference or a failed search
// degrades to an empty corpus with a warning, never a fatal error, so
// tailoring proceeds on CV and job signal alone.
type corpusStage struct {
	searcher Searcher
}

// CorpusStage returns the stage that resolves a company reference from the
// artifact and gathers the search corpus for it.
func CorpusStage(searcher Searcher) pipeline.Stage {
	return &corpusStage{searcher: searcher}
}

func (s *corpusStage) Name() string { return "research_corpus" }

func (s *corpusStage) RequiredSources() []string { return nil }

func (s *corpusStage) Run(ctx context.Context, in artifact.Artifact) pipeline.StageResult {
	result := pipeline.StageResult{Stage: s.Name()}

	company := strings.TrimSpace(in.String("company_name"))
	if company == "" {
		company = CompanyNameFromURL(in.String("company_url"))
	}

	produced := artifact.Artifact{
		"company_name":    company,
		"research_corpus": "",
	}

	switch {
	case company == "":
		result.Warnings = append(result.Warnings, "no company reference provided, skipping research")
	case s.searcher == nil:
		result.Warnings = append(result.Warnings, "no search client configured, skipping research")
	default:
		report, err := s.searcher.DeepResearch(ctx, company)
		if err != nil {
			result.Warnings = append(result.Warnings, "company research failed: "+err.Error())
		} else {
			produced["research_corpus"] = report.CorpusText()
		}
	}

	result.Artifact = produced
	return result
}
