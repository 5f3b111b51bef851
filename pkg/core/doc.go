// Package core defines the shared language of the LeapORM system.
//
// This package contains:
//   - Column descriptors and the closed set of abstract column types
//   - Snapshots, the recorded form of a deferred query operation
//   - Migration ledger records
//   - Service interfaces (Adapter) and configuration types (TargetConfig)
//   - The error kinds surfaced to callers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
