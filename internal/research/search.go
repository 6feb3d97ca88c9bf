// Package research provides web research: a search API client, the corpus
// gathering stage, and the LLM stages that distill corpus text into company
// intelligence and candidate voice profiles.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the hosted search API endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 30 * time.Second

// maxCorpusResults caps how many deduplicated results feed the corpus.
const maxCorpusResults = 10

// SearchResult is one hit returned by the search API.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Report is the aggregate of the deep research queries for one company.
type Report struct {
	Company string
	Results []SearchResult
}

// CorpusText renders the report as plain text suitable for prompting.
func (r *Report) CorpusText() string {
	if len(r.Results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, res := range r.Results {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n\n", i+1, res.Title, res.URL, res.Content)
	}
	return strings.TrimSpace(b.String())
}

// Searcher is the research contract the corpus stage depends on.
type Searcher interface {
	DeepResearch(ctx context.Context, company string) (*Report, error)
}

// SearchClient talks to the Tavily search API.
type SearchClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewSearchClient builds a search client. baseURL falls back to the hosted
// endpoint when empty.
func NewSearchClient(apiKey, baseURL string, timeout time.Duration) *SearchClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SearchClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs one query and returns its hits.
func (c *SearchClient) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	payload, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return decoded.Results, nil
}

// deepResearchQueries returns the targeted query set for a company. Query
// order is fixed so corpus assembly is deterministic for a given result set.
func deepResearchQueries(company string) []string {
	return []string{
		fmt.Sprintf("%s company overview mission products", company),
		fmt.Sprintf("%s recent news funding announcements", company),
		fmt.Sprintf("%s engineering culture tech stack", company),
		fmt.Sprintf("%s employee reviews reputation", company),
	}
}

// DeepResearch fans out the targeted queries concurrently, then merges the
// hits in query order, dropping duplicate URLs and capping the corpus size.
func (c *SearchClient) DeepResearch(ctx context.Context, company string) (*Report, error) {
	queries := deepResearchQueries(company)
	perQuery := make([][]SearchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			results, err := c.Search(gctx, query, 5)
			if err != nil {
				return fmt.Errorf("query %q: %w", query, err)
			}
			perQuery[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	report := &Report{Company: company}
	for _, results := range perQuery {
		for _, res := range results {
			if res.URL == "" || seen[res.URL] {
				continue
			}
			seen[res.URL] = true
			report.Results = append(report.Results, res)
			if len(report.Results) >= maxCorpusResults {
				return report, nil
			}
		}
	}
	return report, nil
}
