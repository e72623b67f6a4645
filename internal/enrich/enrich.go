// Package enrich attaches best-practice references to generated questions.
// Enrichment is strictly best-effort: provider failures and timeouts degrade
// to an empty source list, they never surface as errors.
package enrich

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/knowledge"
	"github.com/flowsmith/socratic/internal/question"
)

// Rationale messages for the three outcomes.
const (
	rationaleNoProvider = "generated from conversation context only; no knowledge provider configured"
	rationaleDegraded   = "knowledge lookup unavailable; generated from conversation context"
	rationaleEnriched   = "augmented with best-practice references for the active domain"
)

// EnrichedQuestion is a base question plus provenance. Sources is empty in
// degraded mode but never nil.
type EnrichedQuestion struct {
	question.AdaptiveQuestion
	Sources   []knowledge.Source `json:"sources"`
	Rationale string             `json:"rationale"`
}

// Options configures an Enricher.
type Options struct {
	Timeout           time.Duration
	IncludeWebSearch  bool
	IncludeMCPServers bool
	MaxSources        int
}

// Enricher queries a knowledge provider for a question's domain.
type Enricher struct {
	provider knowledge.Provider
	opts     Options
}

// New creates an enricher. A nil provider is valid and selects the
// context-only path.
func New(provider knowledge.Provider, opts Options) *Enricher {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = 5
	}
	return &Enricher{provider: provider, opts: opts}
}

// Enrich attaches knowledge sources to the base question. It always returns
// a usable EnrichedQuestion; failure shows up only in the rationale and in
// an empty source list.
func (e *Enricher) Enrich(ctx context.Context, base question.AdaptiveQuestion, dc domain.Context) EnrichedQuestion {
	out := EnrichedQuestion{
		AdaptiveQuestion: base,
		Sources:          []knowledge.Source{},
	}
	out.Metadata = copyMetadata(base.Metadata)

	if e.provider == nil {
		out.Rationale = rationaleNoProvider
		return out
	}

	qctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	res, err := e.provider.QueryMultipleSources(qctx, knowledge.Query{
		Text:              fmt.Sprintf("best practices and patterns for %s", dc.Name),
		IncludeWebSearch:  e.opts.IncludeWebSearch,
		IncludeMCPServers: e.opts.IncludeMCPServers,
		Limit:             e.opts.MaxSources,
	})
	if err != nil {
		out.Rationale = rationaleDegraded
		return out
	}

	items := res.Items
	if items == nil {
		items = []knowledge.Source{}
	}
	if len(items) > e.opts.MaxSources {
		items = items[:e.opts.MaxSources]
	}

	out.Sources = items
	out.Rationale = rationaleEnriched
	out.Metadata["knowledge_cache"] = strconv.FormatBool(res.UsedCache)
	return out
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
