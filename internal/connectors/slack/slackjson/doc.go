// Package slackjson decodes polymorphic Slack message payloads.
//
// Each message is buffered as a single JSON element, its "type" and
// "subtype" fields are read without consuming the element, and the subtype
// selects a family decoder that maps the payload onto a domain message.
// Subtypes without a family are skipped rather than treated as errors, so a
// history containing bot messages, file comments or future event kinds still
// decodes.
package slackjson
