// Package storage defines the key/value contract the version manager runs
// against, plus three backends.
//
// Responsibilities:
//   - Storage only gets, sets, removes and lists string values by key. It has
//     no knowledge of versions, rules or features.
//   - Values are UTF-8 JSON written by the feature that owns the key; the
//     backends never parse them.
//   - Backends report a closed set of failures through ErrUnavailable and
//     ErrQuotaExceeded so callers can degrade instead of crash.
//
// Backends:
//
//	Memory  in-process map, optional byte quota (tests, embedding)
//	File    one JSON object on disk guarded by an advisory file lock
//	SQLite  a single kv table through modernc.org/sqlite
package storage
