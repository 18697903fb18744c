// Package perfstats implements the minimal execution-statistics summary
// printed by the CLI's --performance flag: total instructions executed,
// wall-clock elapsed time, and a per-opcode histogram. It is a post-run
// summary built from the counters the VM already tracks, not a
// tracing/profiling hook threaded into the dispatch loop.
package perfstats

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mna/pvm/lang/compiler"
	"github.com/mna/pvm/lang/machine"
)

// Report holds the statistics collected for a single VM run.
type Report struct {
	Instructions uint64
	Elapsed      time.Duration
	ByOpcode     map[compiler.Opcode]uint64
}

// Collect builds a Report from stats gathered during elapsed wall-clock
// time.
func Collect(stats machine.Stats, elapsed time.Duration) Report {
	return Report{
		Instructions: stats.Instructions,
		Elapsed:      elapsed,
		ByOpcode:     stats.ByOpcode,
	}
}

// Print writes a human-readable summary to w: total instructions,
// elapsed time, and the opcode histogram sorted by descending count then
// opcode name for determinism.
func Print(w io.Writer, r Report) error {
	if _, err := fmt.Fprintf(w, "instructions: %d\n", r.Instructions); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "elapsed: %s\n", r.Elapsed); err != nil {
		return err
	}

	type row struct {
		op    compiler.Opcode
		count uint64
	}
	rows := make([]row, 0, len(r.ByOpcode))
	for op, n := range r.ByOpcode {
		rows = append(rows, row{op, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].op.String() < rows[j].op.String()
	})

	for _, rr := range rows {
		if _, err := fmt.Fprintf(w, "  %-16s %d\n", rr.op, rr.count); err != nil {
			return err
		}
	}
	return nil
}
