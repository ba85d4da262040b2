// Package chunksearch is a hybrid retrieval engine over a document-chunk
// corpus. It combines dense vector similarity search with sparse BM25
// keyword search, fuses the two rankings with dynamically weighted
// scores, and keeps stored chunks consistent with their embeddings as
// documents are added, updated and deleted.
//
// KnowledgeBase is the entry point: it wires the embedded BadgerDB chunk
// store, the tiered embedding service, the searcher and the ingestion
// pipeline into one owned instance.
package chunksearch
