// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingStore: Stores embeddings with their segments and answers similarity queries
//   - EmbeddingService: Turns text into vectors
//   - DocumentsReader: Produces documents for ingestion
//   - DocumentSplitter: Splits documents into segments
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - LLMService: Chat model. Only needed by ask/chat; ingestion and search run without it.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
