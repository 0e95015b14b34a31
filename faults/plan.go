// Package faults injects transfer errors into a target so the retry and
// failure paths of a run can be exercised without failing hardware.
//
// A plan is a CSV table with one fault per row:
//
//	op,block,count,errno
//	write,37,1,5
//	any,100,3,
//
// `op` is "write", "read" or "any". `block` is the block position, i.e. the
// byte offset divided by the block size. The fault fires on the next `count`
// matching transfers (at least once). An empty or zero `errno` means EIO.
// Lines starting with # are ignored.
package faults

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/errors"
	"github.com/gocarina/gocsv"
	"golang.org/x/sys/unix"
)

const (
	OpWrite = "write"
	OpRead  = "read"
	OpAny   = "any"
)

type Fault struct {
	Op    string `csv:"op"`
	Block uint64 `csv:"block"`
	Count int    `csv:"count"`
	Errno int    `csv:"errno"`
}

func (f Fault) matches(op string, block uint64) bool {
	return f.Count > 0 && f.Block == block && (f.Op == OpAny || f.Op == op)
}

// Plan is a set of faults waiting to fire. It's safe for concurrent use, since
// queue workers trip faults from their own goroutines.
type Plan struct {
	lock    sync.Mutex
	faults  []Fault
	tripped int
}

// NewPlan validates `faults` and fills in defaults.
func NewPlan(faults ...Fault) (*Plan, error) {
	plan := &Plan{faults: make([]Fault, 0, len(faults))}

	for i, fault := range faults {
		switch fault.Op {
		case OpWrite, OpRead, OpAny:
		default:
			return nil, biotest.ErrInvalidParameters.WithMessage(
				fmt.Sprintf("fault %d: unknown operation %q", i+1, fault.Op))
		}
		if fault.Count < 0 || fault.Errno < 0 {
			return nil, biotest.ErrInvalidParameters.WithMessage(
				fmt.Sprintf("fault %d: count and errno can't be negative", i+1))
		}

		if fault.Count == 0 {
			fault.Count = 1
		}
		if fault.Errno == 0 {
			fault.Errno = int(errors.EIO)
		}
		plan.faults = append(plan.faults, fault)
	}
	return plan, nil
}

// LoadPlan reads a plan in CSV form from `reader`.
func LoadPlan(reader io.Reader) (*Plan, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comment = '#'
	csvReader.TrimLeadingSpace = true

	var rows []Fault
	if err := gocsv.UnmarshalCSV(csvReader, &rows); err != nil {
		return nil, biotest.ErrInvalidParameters.WithMessage("malformed fault plan").Wrap(err)
	}
	return NewPlan(rows...)
}

// LoadPlanFile reads a plan from the CSV file at `path`.
func LoadPlanFile(path string) (*Plan, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewOfClass(
			errors.ClassConfig,
			errors.ErrnoOf(err),
			fmt.Sprintf("error opening fault plan %s", path),
		).Wrap(err)
	}
	defer file.Close()
	return LoadPlan(file)
}

// Trip returns the error for the first armed fault matching the transfer, and
// disarms it by one. It returns nil if no fault matches.
func (p *Plan) Trip(op string, block uint64) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	for i := range p.faults {
		if p.faults[i].matches(op, block) {
			p.faults[i].Count--
			p.tripped++
			return unix.Errno(p.faults[i].Errno)
		}
	}
	return nil
}

// Tripped gives the number of faults fired so far.
func (p *Plan) Tripped() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.tripped
}

// Armed gives the number of times faults can still fire.
func (p *Plan) Armed() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	armed := 0
	for _, fault := range p.faults {
		armed += fault.Count
	}
	return armed
}
