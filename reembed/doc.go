// Package reembed recomputes search vectors for stored documents, for
// example after switching embedding models or to backfill documents
// ingested while the embedding service was down.
//
// The package batches documents, retries embedding calls with
// exponential backoff, and reports progress to a writer.
package reembed
