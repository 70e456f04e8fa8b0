package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/lumalang/luma/bytecode"
	"github.com/lumalang/luma/vm"
)

// execCmd runs a pre-compiled bytecode file directly, skipping the
// lex/parse/compile pipeline.
type execCmd struct{}

func (*execCmd) Name() string     { return "exec" }
func (*execCmd) Synopsis() string { return "Run a pre-compiled .lumac bytecode file" }
func (*execCmd) Usage() string {
	return `exec <file.lumac>:
  Decode a bytecode file produced by "luma emit" and run it directly.
`
}
func (*execCmd) SetFlags(_ *flag.FlagSet) {}

func (*execCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "exec: a bytecode file is required")
		return subcommands.ExitUsageError
	}

	in, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "exec: %v\n", err)
		return subcommands.ExitFailure
	}
	defer in.Close()

	bc, err := bytecode.Decode(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "exec: %v\n", err)
		return subcommands.ExitFailure
	}

	machine := vm.New(bc, os.Stdout)
	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
