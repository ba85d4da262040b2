// Package embed generates vector embeddings for chunk text and search
// queries.
//
// Three tiers are available, in descending quality order: a cloud OpenAI
// embedding API (requires an API key), a local semantic model behind an
// OpenAI-compatible endpoint, and a deterministic hash embedder that is
// always available. Tier selection happens once at startup; see the
// application wiring for the policy. Whatever tier is active, Service
// guarantees that embedding calls never fail: a provider error falls back
// to the hash tier for that call.
//
// All chunks in one collection must be embedded with one method and one
// dimension. The corpus records which method produced it, so a later run
// under a different tier can detect the mismatch and trigger a re-embed.
package embed
