package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// maxChunkRunes bounds one indexed chunk. Chunks split on paragraph
// boundaries, so real chunks land below this.
const maxChunkRunes = 1000

// ProgressFunc reports ingestion progress, file by file.
type ProgressFunc func(current, total int, path string)

// Ingest walks root for markdown files matching the include globs (minus
// excludes), extracts their text, chunks it, and indexes the chunks into
// the store. Returns the number of chunks indexed.
func Ingest(ctx context.Context, store *Store, root string, include, exclude []string, progress ProgressFunc) (int, error) {
	paths, err := matchFiles(root, include, exclude)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for i, path := range paths {
		if progress != nil {
			progress(i+1, len(paths), path)
		}

		src, err := os.ReadFile(filepath.Join(root, path))
		if err != nil {
			return indexed, fmt.Errorf("reading %s: %w", path, err)
		}

		title, body := extractMarkdown(src)
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		docs := make([]Document, 0, 4)
		for _, chunk := range chunkText(body) {
			docs = append(docs, Document{
				ID:      uuid.NewString(),
				Title:   title,
				Path:    path,
				Content: chunk,
			})
		}
		if err := store.AddDocuments(ctx, docs); err != nil {
			return indexed, fmt.Errorf("indexing %s: %w", path, err)
		}
		indexed += len(docs)
	}

	return indexed, nil
}

// matchFiles resolves include globs under root and filters excludes.
func matchFiles(root string, include, exclude []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := map[string]bool{}

	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad include pattern %q: %w", pattern, err)
		}
	match:
		for _, m := range matches {
			for _, ex := range exclude {
				if ok, _ := doublestar.Match(ex, m); ok {
					continue match
				}
			}
			seen[m] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// extractMarkdown parses markdown and returns the first heading plus the
// plain text of the document, paragraphs separated by blank lines.
func extractMarkdown(src []byte) (title, body string) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
			}
		case *ast.Heading:
			if entering && title == "" {
				title = string(headingText(node, src))
			}
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.Paragraph, *ast.ListItem:
			if !entering {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(title), strings.TrimSpace(b.String())
}

func headingText(h *ast.Heading, src []byte) []byte {
	var b strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
	}
	return []byte(b.String())
}

// chunkText splits body into chunks of at most maxChunkRunes, breaking at
// paragraph boundaries.
func chunkText(body string) []string {
	if body == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(para)) > maxChunkRunes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
