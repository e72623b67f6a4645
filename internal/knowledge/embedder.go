package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder generates text embeddings for the knowledge index.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the identifier of the embedding model.
	Name() string
}

// ToChromemFunc converts an Embedder into a chromem.EmbeddingFunc.
// chromem-go expects a function that embeds a single text at a time.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		results, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		return results[0], nil
	}
}

// localDimensions is the vector size of the hash embedder.
const localDimensions = 256

// LocalEmbedder is a deterministic offline embedder: token hashes are
// folded into a fixed-size normalized vector. Quality is far below a learned
// model but it is stable, fast, and needs no API key, which is what tests
// and air-gapped setups want.
type LocalEmbedder struct{}

func (LocalEmbedder) Name() string { return "local-hash-256" }

func (LocalEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashEmbed(text)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, localDimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%localDimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
