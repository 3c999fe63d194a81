// Package services implements the driving port interfaces.
// Services contain the core logic of the RAG sample and orchestrate
// calls to driven ports (adapters).
//
//   - IngestService: read, split, embed and store documents in batches
//   - RetrievalService: embed a query and search the embedding store
//   - ChatService: answer questions from retrieved segments, with or
//     without conversation memory
//
// Services depend only on the ports, the logger and telemetry.
package services
