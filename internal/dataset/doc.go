// Package dataset generates and caches the synthetic incident table the
// dashboard analyses.
//
// Generation is a pure function of Options: the same NEvents, Seed,
// TrailingWindowDays and Anchor produce byte-identical tables, including the
// incident identifiers, which are drawn from the same seeded stream.
//
// Cache keeps exactly one generated table. A request for the cached key is a
// hit; a request for any other key discards the cached table and generates
// the new one. Concurrent misses for the same key share a single generation.
package dataset
