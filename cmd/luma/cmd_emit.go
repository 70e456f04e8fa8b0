package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/lumalang/luma/bytecode"
)

// emitCmd compiles a source file and writes its bytecode encoding to
// disk, without running it.
type emitCmd struct {
	out string
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "Compile a source file and write its bytecode" }
func (*emitCmd) Usage() string {
	return `emit <file.luma>:
  Compile a source file and write the resulting bytecode to a .lumac
  file, without running it.
`
}

func (e *emitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.out, "out", "", "output path for the compiled bytecode (default: <file> with a .lumac extension)")
}

func (e *emitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "emit: a source file is required")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "emit: %v\n", err)
		return subcommands.ExitFailure
	}

	bc, err := compileFile(args[0], string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return subcommands.ExitFailure
	}

	outPath := e.out
	if outPath == "" {
		outPath = strings.TrimSuffix(args[0], ".luma") + ".lumac"
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emit: %v\n", err)
		return subcommands.ExitFailure
	}
	defer out.Close()

	if err := bytecode.Encode(bc, out); err != nil {
		fmt.Fprintf(os.Stderr, "emit: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
