package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionHandler(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": text}},
			},
		})
	}
}

func statusHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error": "nope"}`))
	}
}

func endpoint(name, baseURL string) Endpoint {
	return Endpoint{Name: name, BaseURL: baseURL, APIKey: "test-key", Model: "test-model"}
}

func fastBackoff() CoordinatorOption {
	return WithBackoff(time.Millisecond, 50*time.Millisecond)
}

func TestClientSend_StructuredRequestShape(t *testing.T) {
	var captured map[string]any
	var gotAuth, gotExtra string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotExtra = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		completionHandler(`{"ok": true}`)(w, r)
	}))
	defer server.Close()

	ep := endpoint("primary", server.URL)
	ep.ExtraHeaders = map[string]string{"X-Title": "cv-tailor"}

	client := NewClient(0)
	text, err := client.Send(context.Background(), ep, Request{
		System:      "sys",
		User:        "user",
		Temperature: 0.3,
		Mode:        ModeStructuredJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "cv-tailor", gotExtra)
	assert.Equal(t, "test-model", captured["model"])
	assert.Equal(t, 0.3, captured["temperature"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])

	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
}

func TestClientSend_FreeTextOmitsResponseFormat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		completionHandler("hello")(w, r)
	}))
	defer server.Close()

	client := NewClient(0)
	_, err := client.Send(context.Background(), endpoint("primary", server.URL), Request{User: "hi"})
	require.NoError(t, err)
	_, present := captured["response_format"]
	assert.False(t, present)
}

func TestGenerate_PrimarySuccess(t *testing.T) {
	primary := httptest.NewServer(completionHandler("from primary"))
	defer primary.Close()
	fallback := httptest.NewServer(statusHandler(http.StatusInternalServerError))
	defer fallback.Close()

	coord := NewCoordinator(NewClient(0), endpoint("primary", primary.URL), endpoint("fallback", fallback.URL))
	outcome, err := coord.Generate(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "primary", outcome.ProviderUsed)
	assert.Equal(t, "from primary", outcome.RawText)
	assert.Equal(t, 1, outcome.Attempts)
}

func TestGenerate_RateLimitRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			statusHandler(http.StatusTooManyRequests)(w, r)
			return
		}
		completionHandler("eventually")(w, r)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(statusHandler(http.StatusInternalServerError))
	defer fallback.Close()

	coord := NewCoordinator(NewClient(0),
		endpoint("primary", primary.URL), endpoint("fallback", fallback.URL), fastBackoff())
	outcome, err := coord.Generate(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "primary", outcome.ProviderUsed)
	assert.Equal(t, 3, outcome.Attempts)
}

func TestGenerate_RateLimitExhaustionFailsOver(t *testing.T) {
	var primaryCalls atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		statusHandler(http.StatusTooManyRequests)(w, r)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(completionHandler("from fallback"))
	defer fallback.Close()

	coord := NewCoordinator(NewClient(0),
		endpoint("primary", primary.URL), endpoint("fallback", fallback.URL), fastBackoff())
	outcome, err := coord.Generate(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", outcome.ProviderUsed)
	assert.Equal(t, int32(DefaultMaxAttempts), primaryCalls.Load())
	assert.Equal(t, DefaultMaxAttempts+1, outcome.Attempts)
}

func TestGenerate_NonRateLimitFailsOverImmediately(t *testing.T) {
	var primaryCalls atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		statusHandler(http.StatusInternalServerError)(w, r)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(completionHandler("from fallback"))
	defer fallback.Close()

	coord := NewCoordinator(NewClient(0),
		endpoint("primary", primary.URL), endpoint("fallback", fallback.URL), fastBackoff())
	outcome, err := coord.Generate(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", outcome.ProviderUsed)
	// 500 is not retryable: exactly one primary attempt before failover.
	assert.Equal(t, int32(1), primaryCalls.Load())
	assert.Equal(t, 2, outcome.Attempts)
}

func TestGenerate_BothFailReturnsExhausted(t *testing.T) {
	primary := httptest.NewServer(statusHandler(http.StatusInternalServerError))
	defer primary.Close()
	fallback := httptest.NewServer(statusHandler(http.StatusBadGateway))
	defer fallback.Close()

	coord := NewCoordinator(NewClient(0),
		endpoint("primary", primary.URL), endpoint("fallback", fallback.URL), fastBackoff())
	_, err := coord.Generate(context.Background(), Request{User: "hi"})
	require.Error(t, err)

	var exhausted *ProviderExhaustedError
	require.ErrorAs(t, err, &exhausted)

	var primaryAPIErr, fallbackAPIErr *APIError
	require.ErrorAs(t, exhausted.PrimaryErr, &primaryAPIErr)
	require.ErrorAs(t, exhausted.FallbackErr, &fallbackAPIErr)
	assert.Equal(t, http.StatusInternalServerError, primaryAPIErr.StatusCode)
	assert.Equal(t, http.StatusBadGateway, fallbackAPIErr.StatusCode)
}

func TestGenerate_ContextCancelledDuringBackoff(t *testing.T) {
	primary := httptest.NewServer(statusHandler(http.StatusTooManyRequests))
	defer primary.Close()
	fallback := httptest.NewServer(completionHandler("unused"))
	defer fallback.Close()

	ctx, cancel := context.WithCancel(context.Background())
	coord := NewCoordinator(NewClient(0),
		endpoint("primary", primary.URL), endpoint("fallback", fallback.URL),
		WithBackoff(5*time.Second, 30*time.Second))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := coord.Generate(ctx, Request{User: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAPIError_IsRateLimit(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: http.StatusTooManyRequests}).IsRateLimit())
	assert.False(t, (&APIError{StatusCode: http.StatusInternalServerError}).IsRateLimit())
}
