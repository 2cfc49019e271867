// Package logging provides structured, file-based logging with rotation for
// the retrieval core's CLI and HTTP server. JSON log lines are written to a
// rotating file under ~/.docsearch/logs/ and mirrored to stderr; --debug
// lowers the level from info to debug.
package logging
