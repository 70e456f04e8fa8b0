// Command luma is the Luma toolchain's command-line entry point:
// lexing, parsing, compiling, and running Luma source, plus a REPL
// and a pre-compiled-bytecode path, dispatched through
// github.com/google/subcommands the way informatter/nilan splits its
// CLI into one file per subcommand.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

const version = "0.1.0"

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&evalCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&emitCmd{}, "")
	subcommands.Register(&execCmd{}, "")
	subcommands.Register(&versionCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

type versionCmd struct{}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "Print the luma toolchain version" }
func (*versionCmd) Usage() string            { return "version:\n  Print the luma toolchain version.\n" }
func (*versionCmd) SetFlags(_ *flag.FlagSet) {}

func (*versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, _ = os.Stdout.WriteString("luma " + version + "\n")
	return subcommands.ExitSuccess
}
