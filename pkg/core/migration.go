package core

// MigrationTable is the reserved bookkeeping table name.
const MigrationTable = "migrations"

// MigrationVersionLength bounds the length of a migration version.
const MigrationVersionLength = 16

// MigrationRecord is one row of the migration ledger.
// At most one record exists per version.
type MigrationRecord struct {
	Version string
}

// MigrationState is the lifecycle state of a single migration version.
type MigrationState string

// Migration states. Applied and Failed are terminal for a run.
const (
	MigrationUnapplied MigrationState = "unapplied"
	MigrationApplying  MigrationState = "applying"
	MigrationApplied   MigrationState = "applied"
	MigrationFailed    MigrationState = "failed"
)
