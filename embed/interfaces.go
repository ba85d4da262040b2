package embed

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice contains embeddings in the same order as
	// the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Describe reports which method produced the vectors, its output
	// dimension, and whether it calls a paid service.
	Describe() MethodInfo
}

// MethodInfo describes an embedding method.
type MethodInfo struct {
	// Method is the tier identifier: MethodOpenAI, MethodLocal or
	// MethodHash.
	Method string

	// Dimension is the length of every vector the method produces.
	// All chunks in one collection must share one dimension.
	Dimension int

	// IsFree is false when the method calls a metered external API.
	IsFree bool

	// Description is a human-readable summary for stats output.
	Description string
}

// Embedding method identifiers, in descending quality order.
const (
	// MethodOpenAI is the cloud tier: an OpenAI embedding API keyed by an
	// API token. Highest quality, highest dimension, not free.
	MethodOpenAI = "openai"

	// MethodLocal is a local semantic model served through an
	// OpenAI-compatible endpoint (Ollama, LocalAI, vLLM). Free.
	MethodLocal = "local-semantic"

	// MethodHash is the deterministic hash fallback. Always available,
	// zero external dependencies, but carries no semantic content:
	// distances between hash vectors are not meaningful similarity.
	MethodHash = "text-hash"
)
