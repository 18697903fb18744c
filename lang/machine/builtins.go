package machine

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mna/pvm/lang/compiler"
)

// callBuiltin implements the CALL mechanics of spec.md §4.1 for the two
// builtin tags: print consumes argc values (leftmost pushed first) and
// prints them space-separated followed by a newline; input consumes zero
// or one optional prompt argument (printed without a trailing newline)
// and pushes the line read from stdin.
func (vm *VM) callBuiltin(tag uint32, args []Value) (Value, error) {
	switch tag {
	case compiler.BuiltinPrint:
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		fmt.Fprintln(vm.stdout, strings.Join(parts, " "))
		return Null, nil
	case compiler.BuiltinInput:
		if len(args) > 0 {
			fmt.Fprint(vm.stdout, args[0].String())
		}
		line, err := vm.readLine()
		if err != nil {
			return Value{}, err
		}
		return Str(line), nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("unknown builtin tag %d", tag)}
	}
}

func (vm *VM) readLine() (string, error) {
	if vm.stdinReader == nil {
		vm.stdinReader = bufio.NewReader(vm.stdin)
	}
	line, err := vm.stdinReader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
