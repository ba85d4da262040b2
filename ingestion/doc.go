// Package ingestion turns source documents into stored, embedded chunks.
//
// The Pipeline splits each document with a recursive character splitter,
// embeds the segments in parallel on a bounded worker pool, assembles the
// chunk metadata (position, file hash, upload time, embedding method),
// and writes the batch to the chunk store. Ingestion is synchronous: when
// IngestDocument returns, the document is searchable.
//
// Re-ingesting a document whose content changed supersedes it: the old
// chunks are deleted before the new ones are written, keyed by filename
// and detected by the whole-document content hash.
package ingestion
