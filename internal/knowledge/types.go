// Package knowledge supplies best-practice references for questions. The
// pipeline consumes the Provider interface; the chromem-backed Store is the
// real implementation and StubProvider the deterministic test double.
package knowledge

import "context"

// Source is one best-practice reference attached to a question.
type Source struct {
	Provider string `json:"provider"`
	Ref      string `json:"ref"`
	Snippet  string `json:"snippet,omitempty"`
}

// Query is a multi-source knowledge request.
type Query struct {
	Text              string `json:"text"`
	IncludeWebSearch  bool   `json:"include_web_search"`
	IncludeMCPServers bool   `json:"include_mcp_servers"`
	Limit             int    `json:"limit"`
}

// Result is the provider's answer. Items is empty, never nil, when nothing
// was found.
type Result struct {
	Items     []Source `json:"items"`
	UsedCache bool     `json:"used_cache,omitempty"`
}

// Provider answers knowledge queries. Implementations may fail; callers are
// expected to degrade rather than propagate.
type Provider interface {
	QueryMultipleSources(ctx context.Context, q Query) (Result, error)
}

// StubProvider returns canned results, for tests and offline wiring.
type StubProvider struct {
	Items []Source
	Err   error
}

func (p StubProvider) QueryMultipleSources(context.Context, Query) (Result, error) {
	if p.Err != nil {
		return Result{}, p.Err
	}
	items := p.Items
	if items == nil {
		items = []Source{}
	}
	return Result{Items: items}, nil
}
