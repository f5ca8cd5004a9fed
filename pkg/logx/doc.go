// Package logx is a thin wrapper around zerolog.
//
// It exposes a small Logger value with variadic Field options so call
// sites stay compact, and hides the sink setup (console writer plus an
// optional append-only log file) behind a single Config.
package logx
