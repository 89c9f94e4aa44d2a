// Package storage provides the persistence backends for the authorized-user
// directory: a JSON file (the default), SQLite, and PostgreSQL. All three
// implement auth.DirectoryStore and persist the same full-snapshot document,
// so export/import round-trips losslessly across backends.
//
// The file backend writes atomically (temp file + rename) so a crash mid-save
// never leaves a truncated directory behind. Watcher wraps fsnotify to
// observe out-of-band edits to the directory file and trigger a reload.
package storage
