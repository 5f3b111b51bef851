package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/schema"
)

// Migration is one schema change identified by its version.
type Migration struct {
	Version string
	Name    string
	Up      func(ctx context.Context, s *schema.Schema) error
}

// Result summarizes one Run.
type Result struct {
	RunID   string   `json:"run_id"`
	Applied []string `json:"applied"`
	Skipped []string `json:"skipped"`
	Failed  string   `json:"failed,omitempty"`
}

// Runner applies migrations through a ledger. A version moves
// unapplied -> applying -> applied, or applying -> failed; a failed version
// is not recorded and the run stops there.
type Runner struct {
	ledger     *Ledger
	migrations []Migration
	logger     *slog.Logger

	mu     sync.RWMutex
	states map[string]core.MigrationState
}

// NewRunner validates the migrations and orders them by version.
func NewRunner(l *Ledger, logger *slog.Logger, migrations ...Migration) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	seen := make(map[string]bool, len(migrations))
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	for _, m := range sorted {
		if err := ValidateVersion(m.Version); err != nil {
			return nil, err
		}
		if m.Up == nil {
			return nil, fmt.Errorf("migration %s has no Up function", m.Version)
		}
		if seen[m.Version] {
			return nil, fmt.Errorf("duplicate migration version %s", m.Version)
		}
		seen[m.Version] = true
	}
	sort.SliceStable(sorted, func(i, j int) bool { return versionLess(sorted[i].Version, sorted[j].Version) })

	states := make(map[string]core.MigrationState, len(sorted))
	for _, m := range sorted {
		states[m.Version] = core.MigrationUnapplied
	}
	return &Runner{ledger: l, migrations: sorted, logger: logger, states: states}, nil
}

// versionLess orders numeric versions by value, others lexically.
func versionLess(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Migrations returns the migrations in application order.
func (r *Runner) Migrations() []Migration {
	return append([]Migration(nil), r.migrations...)
}

// State returns the state a version reached during this runner's lifetime.
func (r *Runner) State(version string) core.MigrationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.states[version]; ok {
		return s
	}
	return core.MigrationUnapplied
}

func (r *Runner) setState(version string, s core.MigrationState) {
	r.mu.Lock()
	r.states[version] = s
	r.mu.Unlock()
}

// Pending returns the migrations not yet recorded in the ledger.
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	if _, err := r.ledger.Ensure(ctx); err != nil {
		return nil, err
	}
	var out []Migration
	for _, m := range r.migrations {
		ok, err := r.ledger.IsApplied(ctx, m.Version)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Run ensures the ledger and applies every pending migration in order.
// Already recorded versions are skipped and never reapplied. Retrying a
// failed version is left to the caller.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := r.logger.With(slog.String("run_id", res.RunID))

	if _, err := r.ledger.Ensure(ctx); err != nil {
		return res, err
	}

	for _, m := range r.migrations {
		applied, err := r.ledger.IsApplied(ctx, m.Version)
		if err != nil {
			return res, err
		}
		if applied {
			r.setState(m.Version, core.MigrationApplied)
			res.Skipped = append(res.Skipped, m.Version)
			continue
		}

		log.Info("applying migration", slog.String("version", m.Version), slog.String("name", m.Name))
		r.setState(m.Version, core.MigrationApplying)

		if err := m.Up(ctx, r.ledger.Schema()); err != nil {
			r.setState(m.Version, core.MigrationFailed)
			res.Failed = m.Version
			log.Error("migration failed", slog.String("version", m.Version), slog.String("error", err.Error()))
			return res, fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Name, err)
		}

		if _, err := r.ledger.Record(ctx, m.Version); err != nil {
			r.setState(m.Version, core.MigrationFailed)
			res.Failed = m.Version
			return res, err
		}
		r.setState(m.Version, core.MigrationApplied)
		res.Applied = append(res.Applied, m.Version)
	}

	log.Info("migrations complete", slog.Int("applied", len(res.Applied)), slog.Int("skipped", len(res.Skipped)))
	return res, nil
}
