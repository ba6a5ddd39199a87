// Package store persists compiled intermediates as SQLite object files.
//
// An object file holds exactly one intermediate:
//   - Sections: id, kind and codepage, in document order
//   - Rows: canonical JSON field vectors keyed by section, table and position
//   - Valid references, complex references and feature backlinks, in the
//     order the compiler recorded them
//
// # Ordering
//
// Every collection carries a seq column and every read orders by it, so a
// Load returns the intermediate exactly as it was saved.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema version is tracked with PRAGMA user_version. Opening a file
// written by a newer schema fails instead of guessing at its layout.
package store
