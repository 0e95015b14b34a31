package engine

import (
	"io"
)

// milestones prints one dot for every 10% of a pass that completes. A
// milestone is printed at most once even if progress is reported out of order.
type milestones struct {
	out      io.Writer
	total    uint64
	reported uint64
}

func newMilestones(out io.Writer, total uint64) *milestones {
	return &milestones{out: out, total: total}
}

// advance records that `done` units of work have finished and prints a dot for
// each milestone crossed since the last call.
func (m *milestones) advance(done uint64) {
	if m.total == 0 {
		return
	}

	bucket := 10 * done / m.total
	if bucket > 10 {
		bucket = 10
	}
	for m.reported < bucket {
		m.reported++
		m.out.Write([]byte{'.'})
	}
}

// Reported gives the number of milestones printed so far.
func (m *milestones) Reported() uint64 {
	return m.reported
}
