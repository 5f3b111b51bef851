package orm

import "github.com/leapstack-labs/leaporm/pkg/core"

// Accumulator is the ordered, append-only snapshot sequence owned by one Query.
//
// Entries are copied on the way in and on the way out, so a nested scope's
// snapshots never alias the invoking query's sequence.
type Accumulator struct {
	entries []core.Snapshot
}

// Append adds entries to the end of the sequence.
func (a *Accumulator) Append(entries ...core.Snapshot) {
	for _, e := range entries {
		a.entries = append(a.entries, e.Clone())
	}
}

// Snapshots returns a copy of the sequence in insertion order.
func (a *Accumulator) Snapshots() []core.Snapshot {
	out := make([]core.Snapshot, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of recorded snapshots.
func (a *Accumulator) Len() int {
	return len(a.entries)
}
