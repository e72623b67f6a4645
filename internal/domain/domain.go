// Package domain defines the domain context contract consumed by the
// questioning pipeline. Classification itself lives behind the Provider
// interface; the pipeline only sees a name, a confidence and opaque state.
package domain

import (
	"context"
	"strings"
)

// GeneralDomain is the low-confidence fallback used whenever detection
// fails or nothing better is known.
const GeneralDomain = "general"

// Context is an immutable snapshot of the detected domain for one request.
type Context struct {
	Name       string         `json:"name"`
	Confidence float64        `json:"confidence"`
	State      map[string]any `json:"state,omitempty"`
}

// Fallback returns the default low-confidence general context.
func Fallback() Context {
	return Context{Name: GeneralDomain, Confidence: 0}
}

// Provider supplies the active domain context. Implementations may fail;
// callers are expected to substitute Fallback() rather than propagate.
type Provider interface {
	ActiveContext(ctx context.Context) (Context, error)
}

// Resolve asks the provider for the active context and substitutes the
// general fallback on error or nil provider. It never fails.
func Resolve(ctx context.Context, p Provider) Context {
	if p == nil {
		return Fallback()
	}
	dc, err := p.ActiveContext(ctx)
	if err != nil {
		return Fallback()
	}
	if dc.Name == "" {
		return Fallback()
	}
	return dc
}

// StaticProvider always returns the same context. Useful as a deterministic
// stub and for callers that already know their domain.
type StaticProvider struct {
	Context Context
}

func (p StaticProvider) ActiveContext(context.Context) (Context, error) {
	return p.Context, nil
}

// domainKeywords maps a domain name to indicator terms. Matching is a simple
// substring scan over recent conversation text; a richer classifier is an
// external concern.
var domainKeywords = map[string][]string{
	"chatbot":            {"chatbot", "conversation", "assistant", "dialogue", "reply"},
	"data analysis":      {"data", "analysis", "dataset", "insight", "metric", "chart"},
	"RAG workflow":       {"rag", "retrieval", "document", "knowledge base", "embedding", "vector"},
	"content generation": {"content", "article", "blog", "copywriting", "generate text"},
	"automation":         {"automate", "automation", "pipeline", "schedule", "trigger"},
}

// KeywordProvider infers a domain from free text by counting keyword hits.
// Confidence scales with the number of matched indicators, capped at 0.9 so
// keyword detection never claims certainty.
type KeywordProvider struct {
	// Text returns the conversation text to classify on each call.
	Text func() string
}

func (p KeywordProvider) ActiveContext(context.Context) (Context, error) {
	if p.Text == nil {
		return Fallback(), nil
	}
	text := strings.ToLower(p.Text())
	if text == "" {
		return Fallback(), nil
	}

	bestDomain := GeneralDomain
	bestHits := 0
	for name, keywords := range domainKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestDomain, bestHits = name, hits
		}
	}

	if bestHits == 0 {
		return Fallback(), nil
	}

	confidence := 0.3 + 0.15*float64(bestHits)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return Context{
		Name:       bestDomain,
		Confidence: confidence,
		State:      map[string]any{"matched_keywords": bestHits},
	}, nil
}
