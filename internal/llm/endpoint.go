// Package llm provides the provider client and failover coordination for
// chat-completion endpoints.
package llm

// Endpoint is one OpenAI-dialect chat completion endpoint. Two of these,
// ordered by preference, are fixed at process start.
type Endpoint struct {
	// Name identifies the endpoint in outcomes and errors ("openrouter",
	// "groq").
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	// ExtraHeaders are endpoint-specific headers sent on every call, e.g.
	// aggregator attribution headers.
	ExtraHeaders map[string]string
}

// Mode selects the provider output contract for a request.
type Mode int

const (
	// ModeFreeText leaves the provider output unconstrained.
	ModeFreeText Mode = iota
	// ModeStructuredJSON asks the provider for a JSON object response.
	ModeStructuredJSON
)

// Request is one generation request, provider-agnostic.
type Request struct {
	System      string
	User        string
	Temperature float64
	Mode        Mode
}

// Outcome reports a successful generation: which provider answered, the raw
// text it produced, and how many attempts (across both endpoints) it took.
type Outcome struct {
	ProviderUsed string
	RawText      string
	Attempts     int
}
