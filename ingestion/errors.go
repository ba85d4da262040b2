package ingestion

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyDocument is returned when a document has no content to ingest.
	ErrEmptyDocument = errors.New("document has no content")

	// ErrFilenameRequired is returned when a document has no filename.
	ErrFilenameRequired = errors.New("document filename required")
)
