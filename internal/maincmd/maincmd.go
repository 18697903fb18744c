// Package maincmd implements the pvm command-line driver: flag parsing,
// usage text, and dispatch to the compile/run/disassemble/info actions,
// built on github.com/mna/mainer the same way the teaching toolchain this
// repository grew out of wires its own CLI.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "pvm"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <path>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the pvm bytecode language.

<path> may name either a source file or a compiled .pvm container; the
driver sniffs the file's magic bytes to tell the two apart.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --compile                 Compile source to a .pvm container next to
                                  the input and exit, instead of running it.
                                  Without it, source input is compiled in
                                  memory and run. Has no effect when
                                  --show-bytecode or --info is given.
       --debug                   Include a debug (pc->line/column) section
                                  when compiling; echo each executed
                                  instruction to stderr when running.
       --show-bytecode           Disassemble the program and print it
                                  instead of running it.
       --info                    Print the container header and table
                                  summaries instead of running it.
       --performance             After running, print execution statistics
                                  (instruction count, elapsed time, opcode
                                  histogram) to stderr.

Exit codes: 0 success, 1 compile error, 2 load error, 3 runtime error,
4 CLI-usage error.
`, binName)
)

// Exit codes per the CLI's documented contract. mainer.ExitCode is a thin
// int wrapper, so these are just the documented values named.
const (
	exitSuccess      = mainer.ExitCode(0)
	exitCompileError = mainer.ExitCode(1)
	exitLoadError    = mainer.ExitCode(2)
	exitRuntimeError = mainer.ExitCode(3)
	exitUsageError   = mainer.ExitCode(4)
)

// Cmd is the root CLI command, implementing the mainer.Cmd contract.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Compile      bool `flag:"compile"`
	Debug        bool `flag:"debug"`
	ShowBytecode bool `flag:"show-bytecode"`
	Info         bool `flag:"info"`
	Performance  bool `flag:"performance"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }

func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return errors.New("expected exactly one <path> argument")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsageError
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return exitSuccess
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return exitSuccess
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	return c.dispatch(ctx, stdio, c.args[0])
}

func (c *Cmd) dispatch(ctx context.Context, stdio mainer.Stdio, path string) mainer.ExitCode {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitUsageError
	}

	prog, fromSource, code := c.load(stdio, path, data)
	if prog == nil {
		return code
	}

	switch {
	case c.ShowBytecode:
		if err := printDisasm(stdio.Stdout, prog); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return exitUsageError
		}
		return exitSuccess
	case c.Info:
		if err := printInfo(stdio.Stdout, prog); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return exitUsageError
		}
		return exitSuccess
	case c.Compile:
		if !fromSource {
			fmt.Fprintln(stdio.Stderr, "cannot --compile an input that is already a compiled container")
			return exitUsageError
		}
		out := outputPath(path)
		if err := writeContainer(out, prog); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return exitUsageError
		}
		fmt.Fprintln(stdio.Stdout, out)
		return exitSuccess
	default:
		return runProgram(ctx, c, stdio, prog)
	}
}
