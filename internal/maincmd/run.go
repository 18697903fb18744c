package maincmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mna/mainer"
	"github.com/mna/pvm/internal/perfstats"
	"github.com/mna/pvm/lang/compiler"
	"github.com/mna/pvm/lang/machine"
)

// runProgram executes prog to completion on the VM, wiring stdio and the
// --debug trace mode and --performance reporting described in the
// driver's usage text.
func runProgram(ctx context.Context, c *Cmd, stdio mainer.Stdio, prog *compiler.Program) mainer.ExitCode {
	vm := machine.New(prog, machine.Config{
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
		Stdin:  stdio.Stdin,
	})
	vm.Trace = c.Debug

	start := time.Now()
	err := vm.Run(ctx)
	elapsed := time.Since(start)

	if c.Performance {
		report := perfstats.Collect(vm.Stats, elapsed)
		if perr := perfstats.Print(stdio.Stderr, report); perr != nil {
			fmt.Fprintln(stdio.Stderr, perr)
		}
	}

	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitRuntimeError
	}
	return exitSuccess
}
