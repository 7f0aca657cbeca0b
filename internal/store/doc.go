// Package store provides SQLite-backed durable storage for fdn.
//
// The store holds two kinds of data:
//   - Rules: the separator, collapse targets and term substitutions the
//     transformer reads through the rules.Provider interface
//   - Provenance: one append-only row per rename, keyed by a fingerprint of
//     the new name and carrying the encrypted previous name
//
// No plaintext file name is ever written to the provenance table.
//
// # Ordering
//
// Every read has an explicit ORDER BY. Provenance ids come from
// AUTOINCREMENT and are never reused, so the highest id for a fingerprint is
// always the most recent insert.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The schema is applied on every open, so a missing table is recreated.
// Defaults are seeded once, by the version 1 migration.
package store
