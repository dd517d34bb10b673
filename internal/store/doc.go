// Package store executes resolved fragments against SQLite.
//
// Tables are created from a schema catalog (one table per entity, columns
// typed from the schema), rows are inserted as IR values, and Count and IDs
// run the SQL compiled by querysql for a root entity and a Fragment.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Every row query orders by the root primary key with COLLATE BINARY so
// results are identical across runs.
package store
