package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fxamacker/cbor/v2"
)

var astDumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
	SortKeys:                true,
}

// DumpAst writes the annotated tree of program to w.
func DumpAst(w io.Writer, program *ProgramAst) {
	astDumper.Fdump(w, program)
}

// PrintClassTable writes table in the textual symbol table format:
//
//	ClassTable {
//	  A -> {
//	    VariableTable {
//	      x -> {Integer, 0, 4}
//	    },
//	    MethodTable {}
//	  }
//	}
//
// Entries are listed in lexical order.
func PrintClassTable(w io.Writer, table *ClassTable) error {
	printer := &tablePrinter{}
	printer.printClassTable(table, 0)
	_, err := io.WriteString(w, printer.String())
	return err
}

type tablePrinter struct {
	strings.Builder
}

func genIndent(indent int) string {
	return strings.Repeat(" ", indent)
}

func (printer *tablePrinter) printVariableTable(table *VariableTable, indent int) {
	printer.WriteString(genIndent(indent) + "VariableTable {")
	if table.Len() == 0 {
		printer.WriteString("}")
		return
	}
	printer.WriteString("\n")
	names := table.SortedNames()
	for i, name := range names {
		info, _ := table.Lookup(name)
		printer.WriteString(fmt.Sprintf("%s%s -> {%s, %d, %d}", genIndent(indent+2), name, info.Type, info.Offset,
			info.Size))
		if i != len(names)-1 {
			printer.WriteString(",")
		}
		printer.WriteString("\n")
	}
	printer.WriteString(genIndent(indent) + "}")
}

func (printer *tablePrinter) printMethodTable(table *MethodTable, indent int) {
	printer.WriteString(genIndent(indent) + "MethodTable {")
	if table.Len() == 0 {
		printer.WriteString("}")
		return
	}
	printer.WriteString("\n")
	names := table.SortedNames()
	for i, name := range names {
		info, _ := table.Lookup(name)
		printer.WriteString(fmt.Sprintf("%s%s -> {\n", genIndent(indent+2), name))
		printer.WriteString(fmt.Sprintf("%s%s,\n", genIndent(indent+4), info.ReturnType))
		printer.WriteString(fmt.Sprintf("%s%d,\n", genIndent(indent+4), info.LocalsSize))
		printer.printVariableTable(info.Locals, indent+4)
		printer.WriteString("\n" + genIndent(indent+2) + "}")
		if i != len(names)-1 {
			printer.WriteString(",")
		}
		printer.WriteString("\n")
	}
	printer.WriteString(genIndent(indent) + "}")
}

func (printer *tablePrinter) printClassTable(table *ClassTable, indent int) {
	printer.WriteString(genIndent(indent) + "ClassTable {\n")
	names := table.SortedNames()
	for i, name := range names {
		info, _ := table.Lookup(name)
		printer.WriteString(fmt.Sprintf("%s%s -> {\n", genIndent(indent+2), name))
		if info.SuperClassName != "" {
			printer.WriteString(fmt.Sprintf("%s%s,\n", genIndent(indent+4), info.SuperClassName))
		}
		printer.printVariableTable(info.Members, indent+4)
		printer.WriteString(",\n")
		printer.printMethodTable(info.Methods, indent+4)
		printer.WriteString("\n" + genIndent(indent+2) + "}")
		if i != len(names)-1 {
			printer.WriteString(",")
		}
		printer.WriteString("\n")
	}
	printer.WriteString(genIndent(indent) + "}\n")
}

// The snapshot types below are the binary form of a class table. Tables keep
// their insertion order so that two runs over the same program encode to the
// same bytes.

type typeSnapshot struct {
	BaseType        BaseType `cbor:"1,keyasint"`
	ObjectClassName string   `cbor:"2,keyasint,omitempty"`
}

type variableSnapshot struct {
	Name   string       `cbor:"1,keyasint"`
	Type   typeSnapshot `cbor:"2,keyasint"`
	Offset int          `cbor:"3,keyasint"`
	Size   int          `cbor:"4,keyasint"`
}

type methodSnapshot struct {
	Name           string             `cbor:"1,keyasint"`
	ReturnType     typeSnapshot       `cbor:"2,keyasint"`
	ParameterTypes []typeSnapshot     `cbor:"3,keyasint,omitempty"`
	LocalsSize     int                `cbor:"4,keyasint"`
	Locals         []variableSnapshot `cbor:"5,keyasint,omitempty"`
}

type classSnapshot struct {
	Name           string             `cbor:"1,keyasint"`
	SuperClassName string             `cbor:"2,keyasint,omitempty"`
	MembersSize    int                `cbor:"3,keyasint"`
	Members        []variableSnapshot `cbor:"4,keyasint,omitempty"`
	Methods        []methodSnapshot   `cbor:"5,keyasint,omitempty"`
}

type classTableSnapshot struct {
	Classes []classSnapshot `cbor:"1,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("compiler: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalClassTable serializes table to canonical CBOR bytes.
func MarshalClassTable(table *ClassTable) ([]byte, error) {
	snapshot := classTableSnapshot{}
	for _, className := range table.Names() {
		info, _ := table.Lookup(className)
		class := classSnapshot{
			Name:           className,
			SuperClassName: info.SuperClassName,
			MembersSize:    info.MembersSize,
			Members:        snapshotVariables(info.Members),
		}
		for _, methodName := range info.Methods.Names() {
			method, _ := info.Methods.Lookup(methodName)
			methodSnap := methodSnapshot{
				Name:       methodName,
				ReturnType: snapshotType(method.ReturnType),
				LocalsSize: method.LocalsSize,
				Locals:     snapshotVariables(method.Locals),
			}
			for _, tp := range method.ParameterTypes {
				methodSnap.ParameterTypes = append(methodSnap.ParameterTypes, snapshotType(tp))
			}
			class.Methods = append(class.Methods, methodSnap)
		}
		snapshot.Classes = append(snapshot.Classes, class)
	}
	return cborEncMode.Marshal(snapshot)
}

// UnmarshalClassTable rebuilds a class table from MarshalClassTable output.
func UnmarshalClassTable(data []byte) (*ClassTable, error) {
	var snapshot classTableSnapshot
	if err := cbor.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("compiler: unmarshal class table: %w", err)
	}
	table := NewClassTable()
	for _, class := range snapshot.Classes {
		info := &ClassInfo{
			SuperClassName: class.SuperClassName,
			Members:        restoreVariables(class.Members),
			Methods:        NewMethodTable(),
			MembersSize:    class.MembersSize,
		}
		for _, method := range class.Methods {
			methodInfo := &MethodInfo{
				ReturnType: method.ReturnType.restore(),
				Locals:     restoreVariables(method.Locals),
				LocalsSize: method.LocalsSize,
			}
			for _, tp := range method.ParameterTypes {
				methodInfo.ParameterTypes = append(methodInfo.ParameterTypes, tp.restore())
			}
			info.Methods.Insert(method.Name, methodInfo)
		}
		table.Insert(class.Name, info)
	}
	return table, nil
}

func snapshotType(tp CompoundType) typeSnapshot {
	return typeSnapshot{BaseType: tp.BaseType, ObjectClassName: tp.ObjectClassName}
}

func (tp typeSnapshot) restore() CompoundType {
	return CompoundType{BaseType: tp.BaseType, ObjectClassName: tp.ObjectClassName}
}

func snapshotVariables(table *VariableTable) (variables []variableSnapshot) {
	for _, name := range table.Names() {
		info, _ := table.Lookup(name)
		variables = append(variables, variableSnapshot{
			Name:   name,
			Type:   snapshotType(info.Type),
			Offset: info.Offset,
			Size:   info.Size,
		})
	}
	return
}

func restoreVariables(variables []variableSnapshot) *VariableTable {
	table := NewVariableTable()
	for _, variable := range variables {
		table.Insert(variable.Name, &VariableInfo{Type: variable.Type.restore(), Offset: variable.Offset, Size: variable.Size})
	}
	return table
}
