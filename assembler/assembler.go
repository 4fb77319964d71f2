package assembler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/GrantClark1999/CS160/util"
)

// A simple assembler for the 32 bit AT&T syntax subset produced by the compiler. It turns
// the assembly text into a Program which the Machine can execute.
//
// Supported lines:
// * directives: .data, .text, .globl symbol
// * labels: `name:`, and in the data section `name: .asciz "string"`
// * instructions: mnemonic [src[, dst]] where an operand is %reg, $imm, $label, disp(%reg) or a
//   jump / call target. Comments start with #.

type Register int

const (
	EAX Register = iota
	EBX
	ECX
	EDX
	ESP
	EBP
	registerCount
)

var registerMap = map[string]Register{
	"%eax": EAX,
	"%ebx": EBX,
	"%ecx": ECX,
	"%edx": EDX,
	"%esp": ESP,
	"%ebp": EBP,
}

var registerNames = [registerCount]string{"%eax", "%ebx", "%ecx", "%edx", "%esp", "%ebp"}

func (r Register) String() string {
	if r < 0 || r >= registerCount {
		return "%?"
	}
	return registerNames[r]
}

type Opcode int

const (
	PushOp Opcode = iota
	PopOp
	MovOp
	AddOp
	SubOp
	ImulOp
	IdivOp
	CdqOp
	AndOp
	OrOp
	XorOp
	NegOp
	CmpOp
	JmpOp
	JeOp
	JneOp
	JgOp
	JgeOp
	JlOp
	JleOp
	CallOp
	LeaveOp
	RetOp
)

type opcodeDesc struct {
	op       Opcode
	operands int
}

var opcodeMap = map[string]opcodeDesc{
	"push":  {PushOp, 1},
	"pop":   {PopOp, 1},
	"mov":   {MovOp, 2},
	"add":   {AddOp, 2},
	"sub":   {SubOp, 2},
	"imul":  {ImulOp, 2},
	"idiv":  {IdivOp, 1},
	"cdq":   {CdqOp, 0},
	"and":   {AndOp, 2},
	"or":    {OrOp, 2},
	"xor":   {XorOp, 2},
	"neg":   {NegOp, 1},
	"cmp":   {CmpOp, 2},
	"jmp":   {JmpOp, 1},
	"je":    {JeOp, 1},
	"jne":   {JneOp, 1},
	"jg":    {JgOp, 1},
	"jge":   {JgeOp, 1},
	"jl":    {JlOp, 1},
	"jle":   {JleOp, 1},
	"call":  {CallOp, 1},
	"leave": {LeaveOp, 0},
	"ret":   {RetOp, 0},
}

// Builtins are the C library functions a program may call.
var Builtins = map[string]bool{
	"printf": true,
	"malloc": true,
}

type OperandType int

const (
	RegisterOperand  OperandType = iota // %eax
	ImmediateOperand                    // $12
	AddressOperand                      // $printstr, the address of a data label
	MemoryOperand                       // -4(%ebp)
	TargetOperand                       // jump or call target
)

type Operand struct {
	Tp       OperandType
	Register Register
	Value    int32 // immediate value or displacement
	Label    string
	// Target is the instruction index of a jump or call target, -1 for builtins.
	Target int
}

func (operand Operand) String() string {
	switch operand.Tp {
	case RegisterOperand:
		return operand.Register.String()
	case ImmediateOperand:
		return fmt.Sprintf("$%d", operand.Value)
	case AddressOperand:
		return "$" + operand.Label
	case MemoryOperand:
		return fmt.Sprintf("%d(%s)", operand.Value, operand.Register)
	default:
		return operand.Label
	}
}

type Instruction struct {
	Op              Opcode
	Operands        []Operand
	Line            int
	OriginalContent string
}

func (instruction Instruction) String() string {
	return fmt.Sprintf("Instruction: {Op: %d, Operands: %v, Line: %d, OriginalContent: %s}", instruction.Op,
		instruction.Operands, instruction.Line, instruction.OriginalContent)
}

// Program is an assembled unit.
type Program struct {
	Instructions []Instruction
	// Labels maps text labels to the index of the instruction they precede.
	Labels map[string]int
	// Strings maps data labels to their .asciz content.
	Strings map[string]string
	Globals []string
}

type Assembler struct {
	line            int
	section         string
	program         *Program
	symbolLocations []symbolLocation
}

// symbolLocation is a label operand waiting for every label to be known.
type symbolLocation struct {
	symbol      string
	line        int
	instruction int
	operand     int
}

func CreateAssembler() *Assembler {
	return &Assembler{
		line:    1,
		section: ".text",
		program: &Program{
			Labels:  map[string]int{},
			Strings: map[string]string{},
		},
	}
}

// Parse reads assembly text and returns the assembled program. Labels can be
// referenced before they are declared, they are resolved after the last line.
func (asm *Assembler) Parse(rd io.Reader) (*Program, error) {
	bfReader := bufio.NewReader(rd)
	for {
		line, err := bfReader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		trimmed, hasRemainCharacter := asm.trimLine(line)
		if hasRemainCharacter {
			transformErr := asm.transformLine(trimmed)
			if transformErr != nil {
				return nil, transformErr
			}
		}
		if err == io.EOF {
			break
		}
		asm.line++
	}
	err := asm.updateLabelMap()
	if err != nil {
		return nil, err
	}
	return asm.program, nil
}

// updateLabelMap resolves jump, call and data references once all labels are declared.
func (asm *Assembler) updateLabelMap() error {
	for _, location := range asm.symbolLocations {
		operand := &asm.program.Instructions[location.instruction].Operands[location.operand]
		switch operand.Tp {
		case AddressOperand:
			if _, exist := asm.program.Strings[location.symbol]; !exist {
				return asm.makeSyntaxErrAtSpecificLine(location.line, "unknown data label "+location.symbol)
			}
		case TargetOperand:
			if target, exist := asm.program.Labels[location.symbol]; exist {
				operand.Target = target
				continue
			}
			if asm.program.Instructions[location.instruction].Op == CallOp && Builtins[location.symbol] {
				operand.Target = -1
				continue
			}
			return asm.makeSyntaxErrAtSpecificLine(location.line, "unknown label "+location.symbol)
		}
	}
	for _, global := range asm.program.Globals {
		if _, exist := asm.program.Labels[global]; !exist {
			return asm.makeSyntaxErr("undefined global " + global)
		}
	}
	return nil
}

// trimLine removes spaces and # comments from line, then returns whether the line has other characters left.
func (asm *Assembler) trimLine(line []byte) ([]byte, bool) {
	line = bytes.TrimSpace(line)
	index := bytes.IndexByte(line, '#')
	// A # inside a string literal is not a comment.
	if index != -1 && bytes.IndexByte(line[:index], '"') == -1 {
		line = bytes.TrimSpace(line[:index])
	}
	if len(line) == 0 {
		return nil, false
	}
	return line, true
}

func (asm *Assembler) transformLine(line []byte) error {
	if line[0] == '.' {
		return asm.transformDirective(string(line))
	}
	colon := bytes.IndexByte(line, ':')
	if colon != -1 && util.IsLabel(string(line[:colon])) {
		return asm.transformLabel(string(line[:colon]), strings.TrimSpace(string(line[colon+1:])))
	}
	return asm.transformInstruction(string(line))
}

func (asm *Assembler) transformDirective(line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".data", ".text":
		if len(fields) != 1 {
			return asm.makeSyntaxErr("wrong section format")
		}
		asm.section = fields[0]
	case ".globl":
		if len(fields) != 2 || !util.IsLabel(fields[1]) {
			return asm.makeSyntaxErr("wrong globl format")
		}
		asm.program.Globals = append(asm.program.Globals, fields[1])
	default:
		return asm.makeSyntaxErr("unknown directive " + fields[0])
	}
	return nil
}

// transformLabel handles `label:` in the text section and `label: .asciz "..."` in the data section.
func (asm *Assembler) transformLabel(label string, rest string) error {
	if _, exist := asm.program.Labels[label]; exist {
		return asm.makeSyntaxErr("found duplicate label")
	}
	if _, exist := asm.program.Strings[label]; exist {
		return asm.makeSyntaxErr("found duplicate label")
	}
	if asm.section == ".data" {
		if !strings.HasPrefix(rest, ".asciz") {
			return asm.makeSyntaxErr("only .asciz data is supported")
		}
		content, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(rest, ".asciz")))
		if err != nil {
			return asm.makeSyntaxErr("wrong string format")
		}
		asm.program.Strings[label] = content
		return nil
	}
	if rest != "" {
		return asm.makeSyntaxErr("unexpected content after label")
	}
	// Note: a label does not take an instruction slot.
	asm.program.Labels[label] = len(asm.program.Instructions)
	return nil
}

func (asm *Assembler) transformInstruction(line string) error {
	if asm.section != ".text" {
		return asm.makeSyntaxErr("instruction outside of text section")
	}
	mnemonic, rest := line, ""
	if space := strings.IndexAny(line, " \t"); space != -1 {
		mnemonic, rest = line[:space], strings.TrimSpace(line[space:])
	}
	desc, exist := opcodeMap[mnemonic]
	if !exist {
		return asm.makeSyntaxErr("unknown instruction " + mnemonic)
	}
	var operandStrs []string
	if rest != "" {
		operandStrs = strings.Split(rest, ",")
	}
	if len(operandStrs) != desc.operands {
		return asm.makeSyntaxErr(fmt.Sprintf("%s expects %d operands", mnemonic, desc.operands))
	}
	instruction := Instruction{Op: desc.op, Line: asm.line, OriginalContent: line}
	for i, operandStr := range operandStrs {
		operand, err := asm.parseOperand(strings.TrimSpace(operandStr), desc.op)
		if err != nil {
			return err
		}
		if operand.Tp == AddressOperand || operand.Tp == TargetOperand {
			asm.symbolLocations = append(asm.symbolLocations, symbolLocation{
				symbol:      operand.Label,
				line:        asm.line,
				instruction: len(asm.program.Instructions),
				operand:     i,
			})
		}
		instruction.Operands = append(instruction.Operands, operand)
	}
	err := asm.checkOperands(instruction)
	if err != nil {
		return err
	}
	asm.program.Instructions = append(asm.program.Instructions, instruction)
	return nil
}

func isJump(op Opcode) bool {
	return op >= JmpOp && op <= CallOp
}

func (asm *Assembler) parseOperand(operandStr string, op Opcode) (Operand, error) {
	if isJump(op) {
		if !util.IsLabel(operandStr) {
			return Operand{}, asm.makeSyntaxErr("wrong label format")
		}
		return Operand{Tp: TargetOperand, Label: operandStr}, nil
	}
	if operandStr == "" {
		return Operand{}, asm.makeSyntaxErr("missing operand")
	}
	switch operandStr[0] {
	case '%':
		register, exist := registerMap[operandStr]
		if !exist {
			return Operand{}, asm.makeSyntaxErr("unknown register " + operandStr)
		}
		return Operand{Tp: RegisterOperand, Register: register}, nil
	case '$':
		value := operandStr[1:]
		if util.IsLabel(value) {
			return Operand{Tp: AddressOperand, Label: value}, nil
		}
		if !util.IsInteger(value) {
			return Operand{}, asm.makeSyntaxErr("wrong immediate format")
		}
		immediate, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return Operand{}, asm.makeSyntaxErr("immediate out of range")
		}
		return Operand{Tp: ImmediateOperand, Value: int32(immediate)}, nil
	default:
		return asm.parseMemoryOperand(operandStr)
	}
}

// parseMemoryOperand parses disp(%reg) and (%reg).
func (asm *Assembler) parseMemoryOperand(operandStr string) (Operand, error) {
	open := strings.IndexByte(operandStr, '(')
	if open == -1 || !strings.HasSuffix(operandStr, ")") {
		return Operand{}, asm.makeSyntaxErr("wrong memory operand format " + operandStr)
	}
	register, exist := registerMap[operandStr[open+1:len(operandStr)-1]]
	if !exist {
		return Operand{}, asm.makeSyntaxErr("unknown register in " + operandStr)
	}
	displacement := int64(0)
	if open > 0 {
		if !util.IsInteger(operandStr[:open]) {
			return Operand{}, asm.makeSyntaxErr("wrong displacement format " + operandStr)
		}
		var err error
		displacement, err = strconv.ParseInt(operandStr[:open], 10, 32)
		if err != nil {
			return Operand{}, asm.makeSyntaxErr("displacement out of range")
		}
	}
	return Operand{Tp: MemoryOperand, Register: register, Value: int32(displacement)}, nil
}

// checkOperands rejects operand kinds the machine cannot execute.
func (asm *Assembler) checkOperands(instruction Instruction) error {
	operands := instruction.Operands
	switch instruction.Op {
	case PopOp, NegOp, IdivOp:
		if operands[0].Tp != RegisterOperand && operands[0].Tp != MemoryOperand {
			return asm.makeSyntaxErr("operand must be a register or memory")
		}
	case MovOp, AddOp, SubOp, ImulOp, AndOp, OrOp, XorOp, CmpOp:
		dst := operands[1]
		if dst.Tp != RegisterOperand && dst.Tp != MemoryOperand {
			return asm.makeSyntaxErr("destination must be a register or memory")
		}
		if operands[0].Tp == MemoryOperand && dst.Tp == MemoryOperand {
			return asm.makeSyntaxErr("memory to memory operands are not supported")
		}
	}
	return nil
}

func (asm *Assembler) makeSyntaxErr(msg string) error {
	return errors.New(fmt.Sprintf("syntax err at line %d: %s", asm.line, msg))
}

func (asm *Assembler) makeSyntaxErrAtSpecificLine(line int, msg string) error {
	return errors.New(fmt.Sprintf("syntax err at line %d: %s", line, msg))
}

// Assemble is a shortcut for CreateAssembler().Parse(rd).
func Assemble(rd io.Reader) (*Program, error) {
	return CreateAssembler().Parse(rd)
}

func (program *Program) String() string {
	bf := bytes.Buffer{}
	for _, instruction := range program.Instructions {
		bf.WriteString(fmt.Sprintf("%s\n", instruction))
	}
	return bf.String()
}
