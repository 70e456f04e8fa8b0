package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/lumalang/luma/vm"
)

// evalCmd compiles and runs a single snippet of Luma code passed as
// command-line arguments, joined with spaces.
type evalCmd struct{}

func (*evalCmd) Name() string     { return "eval" }
func (*evalCmd) Synopsis() string { return "Evaluate a snippet of Luma code" }
func (*evalCmd) Usage() string {
	return `eval <code>:
  Compile and run a snippet of Luma code given on the command line.
`
}
func (*evalCmd) SetFlags(_ *flag.FlagSet) {}

func (*evalCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "eval: code is required")
		return subcommands.ExitUsageError
	}

	bc, err := compileSource(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return subcommands.ExitFailure
	}

	machine := vm.New(bc, os.Stdout)
	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
