package main

import (
	"os"

	"coolr/pkg/ast"
	"coolr/pkg/cli"
	"coolr/pkg/codegen"
	"coolr/pkg/config"
	"coolr/pkg/lexer"
	"coolr/pkg/parser"
	"coolr/pkg/semant"
	"coolr/pkg/util"
)

func main() {
	app := cli.NewApp("coolr")
	app.Synopsis = "<sourcefile> [options]"
	app.Description = "A compiler for the COOL language targeting 32-bit x86 (NASM syntax)."

	cfg := config.NewConfig()
	var lexOnly, parseOnly, semantOnly bool

	fs := app.FlagSet
	fs.String(&cfg.OutPath, "out", "o", "out.S", "Specify the output file.", "file")
	fs.Bool(&lexOnly, "lex", "", false, "Stop after lexical analysis and dump the token stream.")
	fs.Bool(&parseOnly, "parse", "", false, "Stop after parsing and dump the AST.")
	fs.Bool(&semantOnly, "semant", "", false, "Stop after semantic analysis and dump the annotated AST.")

	app.Action = func(args []string) error {
		if len(args) < 1 {
			app.PrintUsage(os.Stderr)
			os.Exit(1)
		}

		switch {
		case lexOnly:
			cfg.StopAfter = config.StageLex
		case parseOnly:
			cfg.StopAfter = config.StageParse
		case semantOnly:
			cfg.StopAfter = config.StageSemant
		}

		source, err := os.ReadFile(args[0])
		if err != nil {
			util.Fatalf("could not read file '%s': %v", args[0], err)
		}

		compile(source, cfg)
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// compile runs the pipeline over the source text, stopping early to
// dump intermediate output when requested.
func compile(source []byte, cfg *config.Config) {
	tokens := lexer.New(source).Scan()
	if cfg.StopAfter == config.StageLex {
		for _, t := range tokens {
			t.Dump(os.Stdout)
		}
		return
	}

	prog := parser.New(tokens).Parse()
	if cfg.StopAfter == config.StageParse {
		ast.Dump(os.Stdout, prog)
		return
	}

	ct := semant.Analyze(prog)
	if cfg.StopAfter == config.StageSemant {
		ast.Dump(os.Stdout, prog)
		return
	}

	out, err := os.Create(cfg.OutPath)
	if err != nil {
		util.Fatalf("could not create output file '%s': %v", cfg.OutPath, err)
	}
	defer out.Close()

	if err := codegen.NewContext(ct).Generate(prog, out); err != nil {
		util.Fatalf("could not write assembly: %v", err)
	}
}
