package main

import (
	"context"
	"flag"
	"os/user"

	"github.com/google/subcommands"
	"github.com/lumalang/luma/repl"
)

// replCmd starts the interactive REPL.
type replCmd struct {
	noColor bool
	debug   bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start the interactive Luma REPL" }
func (*replCmd) Usage() string {
	return `repl:
  Start the interactive read-eval-print loop.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.noColor, "no-color", false, "disable syntax highlighting and colored output")
	f.BoolVar(&r.debug, "debug", false, "append the compiled bytecode to each evaluation's output")
}

func (r *replCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	name := "user"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}

	repl.Start(name, repl.Options{NoColor: r.noColor, Debug: r.debug})
	return subcommands.ExitSuccess
}
