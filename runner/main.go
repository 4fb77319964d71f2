package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GrantClark1999/CS160/assembler"
	"github.com/GrantClark1999/CS160/config"
	"github.com/tliron/commonlog"
	"github.com/tliron/kutil/util"
)

// A simple program accepts an assembly file generated by the compiler and executes it, printing
// what the program prints to stdout.

var (
	inputPath  = flag.String("i", "./input.s", "the input assembly file path")
	entry      = flag.String("entry", "Main_main", "the label execution starts at")
	configPath = flag.String("config", "", "the cs160.toml file, looked up next to the input when empty")
	maxSteps   = flag.Int("max-steps", 0, "the step limit, overrides [runner] max-steps")
	verbose    = flag.Bool("v", false, "whether print all assembled instructions")
)

func main() {
	flag.Parse()
	c, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Runner]: %v\n", err)
		util.Exit(1)
	}
	c.ConfigureLog()
	log := commonlog.GetLogger("cs160.runner")

	f, err := os.Open(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Runner]: failed to open file: %s, err: %v\n", *inputPath, err)
		util.Exit(1)
	}
	defer f.Close()
	program, err := assembler.Assemble(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Runner]: failed to parse file, err: %v\n", err)
		util.Exit(1)
	}
	if *verbose {
		fmt.Print(program)
	}

	steps := c.Runner.MaxSteps
	if *maxSteps > 0 {
		steps = *maxSteps
	}
	machine := assembler.NewMachine(program, os.Stdout, steps)
	log.Infof("running %s from %s, %d instructions", *inputPath, *entry, len(program.Instructions))
	err = machine.Run(*entry)
	log.Debugf("executed %d instructions", machine.Steps())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Runner]: %v\n", err)
		util.Exit(1)
	}
	util.Exit(0)
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return config.FindAndLoad(filepath.Dir(*inputPath))
}
