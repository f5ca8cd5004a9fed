// Package storage provides the optional dispatch-history store.
//
// It records one row per dispatch attempt for operator visibility. It
// is not queue persistence: the reminder queue is rebuilt from the
// calendar source on every sync pass and recovery across restarts stays
// best-effort.
package storage
