// Package config provides environment-based configuration for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/cv-tailor/internal/llm"
)

// Settings holds everything the service needs at startup. Values come from
// the environment; a .env file is loaded by the CLI before this runs.
type Settings struct {
	// Primary LLM endpoint.
	PrimaryName    string `validate:"required"`
	PrimaryBaseURL string `validate:"required,url"`
	PrimaryAPIKey  string `validate:"required"`
	PrimaryModel   string `validate:"required"`

	// Fallback LLM endpoint.
	FallbackName    string `validate:"required"`
	FallbackBaseURL string `validate:"required,url"`
	FallbackAPIKey  string `validate:"required"`
	FallbackModel   string `validate:"required"`

	// Attribution headers some aggregator endpoints expect on every call.
	AppReferer string
	AppTitle   string

	RequestTimeout time.Duration

	// TavilyAPIKey enables company research. Empty disables it.
	TavilyAPIKey string

	// DatabaseURL enables session persistence. Required for the server's
	// two-phase flow; the CLI runs without it.
	DatabaseURL string

	Port int `validate:"min=1,max=65535"`

	// JWTSecret signs API tokens. Required by the server.
	JWTSecret          string
	JWTExpirationHours int
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads settings from the environment and validates them.
func Load() (*Settings, error) {
	port, err := strconv.Atoi(envOr("PORT", "8000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	expHours, err := strconv.Atoi(envOr("JWT_EXPIRATION_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %w", err)
	}
	timeoutSecs, err := strconv.Atoi(envOr("LLM_TIMEOUT_SECONDS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS: %w", err)
	}

	s := &Settings{
		PrimaryName:    envOr("PRIMARY_NAME", "openrouter"),
		PrimaryBaseURL: os.Getenv("PRIMARY_BASE_URL"),
		PrimaryAPIKey:  os.Getenv("PRIMARY_API_KEY"),
		PrimaryModel:   os.Getenv("PRIMARY_MODEL"),

		FallbackName:    envOr("FALLBACK_NAME", "groq"),
		FallbackBaseURL: os.Getenv("FALLBACK_BASE_URL"),
		FallbackAPIKey:  os.Getenv("FALLBACK_API_KEY"),
		FallbackModel:   os.Getenv("FALLBACK_MODEL"),

		AppReferer: os.Getenv("APP_REFERER"),
		AppTitle:   os.Getenv("APP_TITLE"),

		RequestTimeout: time.Duration(timeoutSecs) * time.Second,

		TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		Port:               port,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTExpirationHours: expHours,
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// Endpoints returns the primary and fallback LLM endpoints. Attribution
// headers are attached only to the primary; aggregators use them for app
// ranking, direct vendor APIs ignore them.
func (s *Settings) Endpoints() (primary, fallback llm.Endpoint) {
	primary = llm.Endpoint{
		Name:    s.PrimaryName,
		BaseURL: s.PrimaryBaseURL,
		APIKey:  s.PrimaryAPIKey,
		Model:   s.PrimaryModel,
	}
	if s.AppReferer != "" || s.AppTitle != "" {
		primary.ExtraHeaders = map[string]string{}
		if s.AppReferer != "" {
			primary.ExtraHeaders["HTTP-Referer"] = s.AppReferer
		}
		if s.AppTitle != "" {
			primary.ExtraHeaders["X-Title"] = s.AppTitle
		}
	}
	fallback = llm.Endpoint{
		Name:    s.FallbackName,
		BaseURL: s.FallbackBaseURL,
		APIKey:  s.FallbackAPIKey,
		Model:   s.FallbackModel,
	}
	return primary, fallback
}
