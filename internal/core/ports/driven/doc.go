// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - EmbeddingStore: Embedding record persistence (SQLite, memory)
//   - ModelProvider: Embedding and completion model (Ollama, OpenAI)
//   - DocumentStore: The note vault (filesystem)
//   - Chunker: Splits note text into embeddable paragraphs
//   - ConfigStore: Application configuration (TOML)
//   - ModelValidator: Connectivity checks for model settings
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
