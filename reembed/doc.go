// Package reembed rebuilds the stored vectors of an existing chunk corpus
// with a new or updated embedding method.
//
// A corpus only supports one embedding method at a time; switching methods
// leaves the stored vectors incomparable with new queries. This package
// walks the whole corpus in batches, regenerates every vector, restamps
// the per-chunk method metadata and the collection-level corpus state, and
// reports progress along the way. Embedding calls are retried with
// exponential backoff rather than falling back to hash vectors.
package reembed
