// Package domain defines the core business entities for slack-archive.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Conversation: A channel, private group, multi-party or direct message
//   - User: A workspace member
//   - File: An uploaded file and where it was shared
//   - Message: A decoded message variant (text or channel event)
//   - ConflictDecision: What to do with an occupied download path
//   - Settings: The resolved, read-only configuration for one run
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
