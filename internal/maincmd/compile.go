package maincmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mna/mainer"
	"github.com/mna/pvm/lang/bytecode"
	"github.com/mna/pvm/lang/compiler"
	"github.com/mna/pvm/lang/parser"
)

// sourceExt and containerExt are the conventional extensions for source
// and compiled files; outputPath uses containerExt. The driver itself
// never relies on extensions to decide how to read a file back, since it
// sniffs the magic bytes instead.
const (
	sourceExt    = ".pv"
	containerExt = ".pvm"
)

// load reads path's contents as either a compiled .pvm container (if it
// starts with the container magic) or pvm source text, returning the
// resulting Program, whether it came from source (as opposed to an
// already-compiled container), or the exit code a failure should
// produce.
func (c *Cmd) load(stdio mainer.Stdio, path string, data []byte) (prog *compiler.Program, fromSource bool, code mainer.ExitCode) {
	if len(data) >= 4 && bytes.Equal(data[:4], bytecode.Magic[:]) {
		prog, err := bytecode.Decode(data)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return nil, false, exitLoadError
		}
		return prog, false, exitSuccess
	}

	ast, err := parser.Parse(string(data))
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return nil, true, exitCompileError
	}
	prog, err = compiler.Compile(ast, c.Debug)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return nil, true, exitCompileError
	}
	return prog, true, exitSuccess
}

// outputPath derives the .pvm container path to write for a compiled
// source file: the input path (directory included) with its extension
// replaced by containerExt.
func outputPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + containerExt
}

func writeContainer(path string, prog *compiler.Program) error {
	data, err := bytecode.Encode(prog)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
