// Package domain models conflict incident data and the pure computations
// that turn a filtered set of incidents into renderable map layers.
//
// # Data Source
//
// Incidents originate from an upstream conflict-event feed. The collector
// publishes each record as flat JSON to a Kafka topic; the feed adapter
// parses them with [ParseIncident] and maintains the base collection. The
// engine only ever reads incidents, never mutates them.
//
// # Working Set
//
// A working set is the subset of the base collection matching the current
// [FilterCriteria], ordered by timestamp then ID so that every downstream
// computation is reproducible. Records with missing or out-of-range
// coordinates are excluded during derivation and reported as a skip count,
// never as an error — one bad record must not blank the whole map.
//
// # Severity classification
//
// Per-region aggregates are bucketed into four ordered severity levels
// (low, medium, high, critical) using configurable thresholds over incident
// and fatality counts. The bands are monotone: raising either count can only
// move a region to an equal-or-higher bucket. A region with zero matching
// incidents classifies as "no data", rendered distinctly from low — an empty
// region is unknown, not confirmed safe.
//
// # ID Generation
//
// Incidents that arrive without an ID get a deterministic SHA-256 hash of
// type|region|lat|lon|time, so replaying the same raw record produces the
// same incident and deduplication needs no coordination. See [generateID].
package domain
