package ingestion

import "github.com/tmc/langchaingo/textsplitter"

// Default splitting parameters. Overlap keeps context that straddles a
// chunk boundary retrievable from both sides.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

func newSplitter(chunkSize, overlap int) textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
	)
}
