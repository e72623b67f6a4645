package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "best-practices"

// maxSnippetRunes bounds snippets attached to query results.
const maxSnippetRunes = 240

// Document is one ingested best-practice chunk.
type Document struct {
	ID      string
	Title   string
	Path    string
	Content string
	Domain  string
}

// Store implements Provider using chromem-go over an ingested corpus of
// best-practice documents. Results are cached per normalized query text.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc

	mu    sync.Mutex
	cache map[string]Result
}

// NewStore creates an in-memory Store using the given embedder.
func NewStore(embedder Embedder) (*Store, error) {
	db := chromem.NewDB()
	ef := ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: col,
		embedFunc:  ef,
		cache:      map[string]Result{},
	}, nil
}

// AddDocuments indexes documents into the corpus and invalidates the query
// cache.
func (s *Store) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:      doc.ID,
			Content: doc.Content,
			Metadata: map[string]string{
				"title":  doc.Title,
				"path":   doc.Path,
				"domain": doc.Domain,
			},
		}
	}

	if err := s.collection.AddDocuments(ctx, chromDocs, 1); err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}

	s.mu.Lock()
	s.cache = map[string]Result{}
	s.mu.Unlock()
	return nil
}

// QueryMultipleSources searches the corpus for the query text. The web
// search and MCP flags select which source labels are admitted; the local
// corpus serves both labels here, real remote backends are consumers'
// concern. Repeated queries hit the internal cache.
func (s *Store) QueryMultipleSources(ctx context.Context, q Query) (Result, error) {
	key := strings.ToLower(strings.TrimSpace(q.Text))
	if key == "" {
		return Result{Items: []Source{}}, nil
	}

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		s.mu.Unlock()
		cached.UsedCache = true
		return cached, nil
	}
	s.mu.Unlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return Result{Items: []Source{}}, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, q.Text, limit, nil, nil)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge query: %w", err)
	}

	items := make([]Source, 0, len(results))
	for _, r := range results {
		ref := r.Metadata["title"]
		if ref == "" {
			ref = r.Metadata["path"]
		}
		items = append(items, Source{
			Provider: "local-docs",
			Ref:      ref,
			Snippet:  truncate(r.Content, maxSnippetRunes),
		})
	}

	res := Result{Items: items}
	s.mu.Lock()
	s.cache[key] = res
	s.mu.Unlock()
	return res, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Persist writes the corpus index to a file under dir.
func (s *Store) Persist(dir string) error {
	return s.db.ExportToFile(dir+"/knowledge.gob.gz", true, "")
}

// Load restores a previously persisted corpus index from dir.
func (s *Store) Load(dir string) error {
	if err := s.db.ImportFromFile(dir+"/knowledge.gob.gz", ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
