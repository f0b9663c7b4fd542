// Package store provides the durable backends behind the attendance ledger
// and the card registry.
//
// Every backend implements both ledger.Store and registry.Store with whole
// mapping load/save semantics. Serializing load-modify-save is the caller's
// job (ledger.Ledger and registry.Registry hold their own mutexes); a backend
// only guarantees that a single save is applied completely or not at all.
//
// # Backends
//
//   - SQLite (Open): WAL mode, embedded schema, user_version migrations.
//     A save replaces the mapping inside one transaction.
//   - JSON files (OpenFiles): attendance.json and card_names.json in the
//     layout older kiosk releases wrote, saved via temp file + rename.
//   - Memory (NewMemory): deep-copying in-process maps, for tests and the
//     simulated development mode.
//
// # Database Configuration
//
//   - journal_mode=WAL
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Day keys live in their own table so a day with no records survives a
// round trip; profiles count every day on record.
package store
