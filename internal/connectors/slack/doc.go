// Package slack implements the resilient retrieval layer for the Slack Web API.
//
// Every API method is issued through an Executor, which classifies each
// attempt, waits out HTTP 429 responses using the retry policy of the
// method's rate-limit tier, and fails fast on any other error. Collections
// are exhausted page by page with CollectAll, which follows the server's
// cursor chain and returns either every item or an error, never a partial
// result.
//
// # Tiers
//
// Slack groups its methods into four rate-limit tiers. Each tier has its own
// RetryPolicy (default waits 60s, 3s, 1s and 1s, three attempts) and, when
// throttling is enabled, its own token bucket so the client stays under the
// published per-minute limits before the server has to push back.
//
// # Concurrency
//
// A Client is safe for concurrent use. Independent retrievals may run in
// parallel; a rate-limit wait blocks only the goroutine that hit it.
package slack
