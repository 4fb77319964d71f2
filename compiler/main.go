package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GrantClark1999/CS160/assembler"
	"github.com/GrantClark1999/CS160/compiler/internal"
	"github.com/GrantClark1999/CS160/config"
	"github.com/tliron/kutil/util"
)

// Compiles a source file to 32 bit x86 assembly. Type errors are reported on
// stderr with a non zero exit status and no assembly is written.

var (
	path         = flag.String("path", "./input.lang", "the source file to compile")
	configPath   = flag.String("config", "", "the cs160.toml file, looked up next to the source when empty")
	output       = flag.String("o", "", "the output assembly path, overrides [codegen] output")
	printSymbols = flag.Bool("print-symbols", false, "whether print the class table")
	symbolsPath  = flag.String("symbols", "", "save the class table as CBOR to this path")
	dumpAst      = flag.Bool("dump-ast", false, "whether dump the annotated syntax tree")
	run          = flag.Bool("run", false, "whether execute the generated code instead of writing it")
	verbose      = flag.Int("v", -1, "log verbosity, overrides [log] verbosity")
)

func main() {
	flag.Parse()
	c, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Compiler]: %v\n", err)
		util.Exit(1)
	}
	if *verbose >= 0 {
		c.Log.Verbosity = *verbose
	}
	c.ConfigureLog()

	compilation, err := internal.Compile(*path, c.Codegen.Comments)
	if err != nil {
		var typeErr *internal.TypeError
		if errors.As(err, &typeErr) {
			fmt.Fprintln(os.Stderr, typeErr.Error())
		} else {
			fmt.Fprintf(os.Stderr, "[Compiler]: failed to compile %s, err: %v\n", *path, err)
		}
		util.Exit(1)
	}

	if *dumpAst {
		internal.DumpAst(os.Stdout, compilation.Program)
	}
	if *printSymbols {
		internal.PrintClassTable(os.Stdout, compilation.ClassTable)
	}
	if *symbolsPath != "" {
		data, err := internal.MarshalClassTable(compilation.ClassTable)
		if err == nil {
			err = os.WriteFile(*symbolsPath, data, 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "[Compiler]: failed to save symbols to %s, err: %v\n", *symbolsPath, err)
			util.Exit(1)
		}
	}

	if *run {
		err = execute(compilation.Assembly, c.Runner.MaxSteps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[Compiler]: %v\n", err)
			util.Exit(1)
		}
		util.Exit(0)
	}

	target := c.Codegen.Output
	if *output != "" {
		target = *output
	}
	if target == "" {
		os.Stdout.Write(compilation.Assembly)
		util.Exit(0)
	}
	err = os.WriteFile(target, compilation.Assembly, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Compiler]: failed to save to path: %s, err: %v\n", target, err)
		util.Exit(1)
	}
	util.Exit(0)
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return config.FindAndLoad(filepath.Dir(*path))
}

func execute(assembly []byte, maxSteps int) error {
	program, err := assembler.Assemble(bytes.NewReader(assembly))
	if err != nil {
		return err
	}
	return assembler.NewMachine(program, os.Stdout, maxSteps).Run(internal.EntryLabel)
}
