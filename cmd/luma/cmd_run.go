package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/lumalang/luma/compiler"
	"github.com/lumalang/luma/lexer"
	"github.com/lumalang/luma/parser"
	"github.com/lumalang/luma/vm"
)

// runCmd compiles and runs a Luma source file in one step.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and run a Luma source file" }
func (*runCmd) Usage() string {
	return `run <file.luma>:
  Lex, parse, compile, and run a Luma source file.
`
}
func (*runCmd) SetFlags(_ *flag.FlagSet) {}

func (*runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "run: a source file is required")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return subcommands.ExitFailure
	}

	bc, err := compileFile(args[0], string(data))
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

// compileSource runs the lexer/parser/compiler pipeline over an
// in-memory snippet with no base directory for resolving imports,
// returning all parser errors bundled into one error, or the
// compiler's error.
func compileSource(src string) (*compiler.Bytecode, error) {
	return compile(parser.New(lexer.New(src)))
}

// compileFile is compileSource for source read from a file, resolving
// relative `import { "..." }` paths against the file's directory.
func compileFile(path, src string) (*compiler.Bytecode, error) {
	baseDir := filepath.Dir(path)
	return compile(parser.NewFile(lexer.New(src), baseDir))
}

func compile(p *parser.Parser) (*compiler.Bytecode, error) {
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		msg := "parse errors:\n"
		for _, e := range errs {
			msg += "\t" + e + "\n"
		}
		return nil, fmt.Errorf("%s", msg)
	}

	c := compiler.New()
	if err := c.Compile(root); err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	return c.Bytecode(), nil
}
