package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_RequestShape(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(searchResponse{Results: []SearchResult{
			{Title: "t", URL: "https://a.test", Content: "c", Score: 0.9},
		}})
	}))
	defer server.Close()

	client := NewSearchClient("key", server.URL, 0)
	results, err := client.Search(context.Background(), "acme overview", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://a.test", results[0].URL)

	assert.Equal(t, "key", captured["api_key"])
	assert.Equal(t, "acme overview", captured["query"])
	assert.Equal(t, "advanced", captured["search_depth"])
	assert.Equal(t, float64(5), captured["max_results"])
}

func TestSearch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer server.Close()

	client := NewSearchClient("key", server.URL, 0)
	_, err := client.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDeepResearch_DeduplicatesAndCaps(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		// Every query returns the same first URL plus distinct ones, more
		// than the corpus cap in total.
		results := []SearchResult{{Title: "shared", URL: "https://shared.test", Content: "s"}}
		for i := 0; i < 5; i++ {
			results = append(results, SearchResult{
				Title:   fmt.Sprintf("q%d-%d", n, i),
				URL:     fmt.Sprintf("https://q%d.test/%d", n, i),
				Content: "c",
			})
		}
		_ = json.NewEncoder(w).Encode(searchResponse{Results: results})
	}))
	defer server.Close()

	client := NewSearchClient("key", server.URL, 0)
	report, err := client.DeepResearch(context.Background(), "Acme")
	require.NoError(t, err)

	assert.Equal(t, int32(4), calls.Load())
	assert.Len(t, report.Results, maxCorpusResults)

	seen := make(map[string]bool)
	for _, res := range report.Results {
		assert.False(t, seen[res.URL], "duplicate URL %s", res.URL)
		seen[res.URL] = true
	}

	text := report.CorpusText()
	assert.Contains(t, text, "https://shared.test")
}

func TestDeepResearch_QueryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewSearchClient("key", server.URL, 0)
	_, err := client.DeepResearch(context.Background(), "Acme")
	require.Error(t, err)
}

func TestCompanyNameFromURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://www.acme.com", "Acme"},
		{"https://stripe.com/jobs", "Stripe"},
		{"acme.io", "Acme"},
		{"", ""},
		{"https://", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, CompanyNameFromURL(tt.input), "input %q", tt.input)
	}
}
