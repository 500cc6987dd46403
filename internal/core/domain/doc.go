// Package domain defines the core business entities for notewise.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A note in the vault
//   - EmbeddingRecord: One embedded paragraph of a note
//   - SimilarityHit: A ranked match returned by a similarity query
//   - DocumentChange: A notification that a note changed
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
