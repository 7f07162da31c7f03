// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SlackAPI: Retrieves workspace data from the Slack Web API
//   - SlackAPIFactory: Creates a SlackAPI for a token
//   - ArchiveStore: Persistence of conversations, users, files and messages
//   - ExportRunStore: Export run records
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - HashCache: Remembers content hashes of downloaded files. Without it,
//     the hash conflict strategy re-reads existing files.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
