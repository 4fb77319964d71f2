package internal

import (
	"bytes"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

// Compilation is the outcome of a successful run.
type Compilation struct {
	Program    *ProgramAst
	ClassTable *ClassTable
	Assembly   []byte
}

// Compile compiles the source file at path.
func Compile(path string, comments bool) (*Compilation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return CompileSource(f, path, comments)
}

// CompileSource runs the whole pipeline on rd. Assembly is only produced once
// type checking succeeded, so a failed run never yields partial output.
func CompileSource(rd io.Reader, name string, comments bool) (*Compilation, error) {
	log := commonlog.GetLogger("cs160.compiler")
	parser := &Parser{}
	log.Infof("start parser at path: %s", name)
	program, err := parser.Parse(rd)
	if err != nil {
		return nil, err
	}
	log.Infof("start type checker on %d classes", len(program.Classes))
	classTable, err := TypeCheck(program)
	if err != nil {
		if typeErr, ok := err.(*TypeError); ok {
			log.Errorf("type error in %s: %s", typeErr.Where, typeErr)
		}
		return nil, err
	}
	log.Info("start generate codes")
	buf := &bytes.Buffer{}
	err = GenerateCode(buf, program, classTable, comments)
	if err != nil {
		return nil, err
	}
	log.Debugf("generated %d bytes of assembly", buf.Len())
	return &Compilation{Program: program, ClassTable: classTable, Assembly: buf.Bytes()}, nil
}
