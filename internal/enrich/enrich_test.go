package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/knowledge"
	"github.com/flowsmith/socratic/internal/question"
)

var base = question.AdaptiveQuestion{
	ID:             "q1",
	Text:           "What should your chatbot workflow do?",
	Domain:         "chatbot",
	Sophistication: 2,
	Metadata:       map[string]string{"tier": "2"},
}

func TestEnrichWithoutProvider(t *testing.T) {
	e := New(nil, Options{})

	got := e.Enrich(context.Background(), base, domain.Context{Name: "chatbot"})

	if got.Sources == nil {
		t.Fatal("sources must never be nil")
	}
	if len(got.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(got.Sources))
	}
	if got.Rationale == "" {
		t.Error("expected non-empty rationale")
	}
}

func TestEnrichAttachesSources(t *testing.T) {
	provider := knowledge.StubProvider{Items: []knowledge.Source{
		{Provider: "local-docs", Ref: "Chatbot design", Snippet: "greet users"},
		{Provider: "web", Ref: "https://example.com/chatbots"},
	}}
	e := New(provider, Options{})

	got := e.Enrich(context.Background(), base, domain.Context{Name: "chatbot"})

	if len(got.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(got.Sources))
	}
	if got.Rationale != rationaleEnriched {
		t.Errorf("unexpected rationale %q", got.Rationale)
	}
	if got.Metadata["knowledge_cache"] != "false" {
		t.Errorf("expected cache metadata, got %v", got.Metadata)
	}
}

func TestEnrichDegradesOnProviderError(t *testing.T) {
	e := New(knowledge.StubProvider{Err: errors.New("backend down")}, Options{})

	got := e.Enrich(context.Background(), base, domain.Context{Name: "chatbot"})

	if len(got.Sources) != 0 {
		t.Errorf("expected empty sources on failure, got %d", len(got.Sources))
	}
	if got.Rationale != rationaleDegraded {
		t.Errorf("expected degraded rationale, got %q", got.Rationale)
	}
}

type slowProvider struct{}

func (slowProvider) QueryMultipleSources(ctx context.Context, _ knowledge.Query) (knowledge.Result, error) {
	select {
	case <-ctx.Done():
		return knowledge.Result{}, ctx.Err()
	case <-time.After(time.Second):
		return knowledge.Result{Items: []knowledge.Source{{Provider: "slow"}}}, nil
	}
}

func TestEnrichBoundedWait(t *testing.T) {
	e := New(slowProvider{}, Options{Timeout: 10 * time.Millisecond})

	start := time.Now()
	got := e.Enrich(context.Background(), base, domain.Context{Name: "chatbot"})

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("enrichment did not respect timeout, took %v", elapsed)
	}
	if len(got.Sources) != 0 {
		t.Errorf("expected degraded result after timeout, got %d sources", len(got.Sources))
	}
}

func TestEnrichCapsSources(t *testing.T) {
	many := make([]knowledge.Source, 10)
	for i := range many {
		many[i] = knowledge.Source{Provider: "local-docs", Ref: "r"}
	}
	e := New(knowledge.StubProvider{Items: many}, Options{MaxSources: 3})

	got := e.Enrich(context.Background(), base, domain.Context{Name: "chatbot"})
	if len(got.Sources) != 3 {
		t.Errorf("expected sources capped at 3, got %d", len(got.Sources))
	}
}

func TestEnrichDoesNotMutateBaseMetadata(t *testing.T) {
	e := New(knowledge.StubProvider{}, Options{})

	_ = e.Enrich(context.Background(), base, domain.Context{Name: "chatbot"})
	if _, ok := base.Metadata["knowledge_cache"]; ok {
		t.Error("base question metadata mutated")
	}
}
