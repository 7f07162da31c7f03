// Package file keeps slack-archive settings in config.toml under the
// configuration directory (~/.slack-archive by default).
//
// Dotted keys such as "slack.token" are written as nested TOML tables and
// flattened again on load. Writes go through afero so tests run on an
// in-memory filesystem.
package file
