// Package audit implements async event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink] is the consumer interface, with channel, JSON writer, slog and no-op sinks.
//   - [Dispatcher] is a buffered async relay that either drops or blocks when full.
//   - [Event] is the structured record: timestamp, type, account, IP and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine and flow functions do.
package audit
