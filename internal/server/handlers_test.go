package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/workflows"
)

// queueGenerator replays scripted responses in call order.
type queueGenerator struct {
	responses []string
	calls     int
}

func (g *queueGenerator) Generate(_ context.Context, _ llm.Request) (llm.Outcome, error) {
	if g.calls >= len(g.responses) {
		return llm.Outcome{}, fmt.Errorf("unexpected generator call %d", g.calls+1)
	}
	text := g.responses[g.calls]
	g.calls++
	return llm.Outcome{ProviderUsed: "scripted", RawText: text, Attempts: 1}, nil
}

// failingGenerator always reports provider exhaustion.
type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, llm.Request) (llm.Outcome, error) {
	return llm.Outcome{}, &llm.ProviderExhaustedError{}
}

func singleShotResponses() []string {
	return []string{
		`{"name": "Ada", "email": "a@b.c", "phone": "1", "location": "L", "summary": "S",
		  "experience": [{"company": "Acme", "role": "Eng", "start_date": "01/2020", "end_date": "Present", "bullets": ["Did work"]}],
		  "skills": ["Go"], "education": []}`,
		`{"role_title": "Engineer", "must_have_skills": ["Go"], "nice_to_have_skills": [],
		  "unclear_skills": [], "responsibilities": ["Build"], "keywords_for_ats": ["Go"]}`,
		`{"company_name": "Acme", "sources": [], "confidence_level": "low"}`,
		`{"sentence_style": "terse", "ownership_level": "high", "tone": "technical", "style_instructions": "Short."}`,
		`{"matched_required": [], "missing_required": [], "matched_preferred": [], "missing_preferred": [], "match_percentage": 100}`,
		`{"relevant_experience": [], "matched_skills": ["Go"], "missing_keywords": [], "irrelevant_experience": []}`,
		`{"rewritten_experience": [{"company": "Acme", "role": "Eng", "start_date": "01/2020", "end_date": "Present", "bullets": ["Did better work"]}]}`,
		"# Ada\n\nGo engineer.",
		"Cover letter text.",
		"Subject: Hi\n\nEmail text.",
		"Company summary text.",
	}
}

func newTestServer(gen llm.Generator, jwtSecret string) *Server {
	return New(Config{Port: 0, JWTSecret: jwtSecret, JWTExpirationHours: 1},
		workflows.Deps{Generator: gen}, nil)
}

func postJSON(t *testing.T, handler http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&queueGenerator{}, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestProcessAll_Success(t *testing.T) {
	srv := newTestServer(&queueGenerator{responses: singleShotResponses()}, "")

	rec := postJSON(t, srv.Handler(), "/api/process/all", "", map[string]any{
		"resume_text":  "raw resume",
		"job_text":     "raw posting",
		"company_name": "Acme",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp["status"])
	assert.Contains(t, resp["resume_markdown"], "# Ada")
	assert.NotNil(t, resp["cover_letter"])
	assert.NotNil(t, resp["cold_email"])
}

func TestProcessAll_ValidationErrors(t *testing.T) {
	srv := newTestServer(&queueGenerator{}, "")

	// Missing resume_text.
	rec := postJSON(t, srv.Handler(), "/api/process/all", "", map[string]any{"job_text": "posting"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Neither job_text nor job_url.
	rec = postJSON(t, srv.Handler(), "/api/process/all", "", map[string]any{"resume_text": "resume"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Both job_text and job_url.
	rec = postJSON(t, srv.Handler(), "/api/process/all", "", map[string]any{
		"resume_text": "resume",
		"job_text":    "posting",
		"job_url":     "https://jobs.test/1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessAll_ProviderOutageIs503(t *testing.T) {
	srv := newTestServer(failingGenerator{}, "")

	rec := postJSON(t, srv.Handler(), "/api/process/all", "", map[string]any{
		"resume_text": "resume",
		"job_text":    "posting",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "aborted", resp["status"])
	assert.Equal(t, "structure_cv", resp["failed_stage"])
}

func TestAuthGate(t *testing.T) {
	srv := newTestServer(&queueGenerator{responses: singleShotResponses()}, "test-secret")

	// No token.
	rec := postJSON(t, srv.Handler(), "/api/process/all", "", map[string]any{
		"resume_text": "resume", "job_text": "posting",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = postJSON(t, srv.Handler(), "/api/process/all", "not-a-token", map[string]any{
		"resume_text": "resume", "job_text": "posting",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	token, err := srv.jwtService.GenerateToken(uuid.New())
	require.NoError(t, err)
	rec = postJSON(t, srv.Handler(), "/api/process/all", token, map[string]any{
		"resume_text": "resume", "job_text": "posting", "company_name": "Acme",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Health stays open for probes.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(healthRec, req)
	assert.Equal(t, http.StatusOK, healthRec.Code)
}

func TestTwoPhaseEndpoints_RequireDatabase(t *testing.T) {
	srv := newTestServer(&queueGenerator{}, "")

	rec := postJSON(t, srv.Handler(), "/api/analyze/step1", "", map[string]any{
		"resume_text": "resume", "job_text": "posting",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = postJSON(t, srv.Handler(), "/api/analyze/step2/tailor", "", map[string]any{
		"session_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
