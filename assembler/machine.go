package assembler

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

const (
	// MemorySize is the number of addressable bytes, the stack starts at the top.
	MemorySize = 1 << 20
	// HeapBase is the first address handed out by malloc. Data labels live below it.
	HeapBase = 0x1000
	dataBase = 0x10

	// haltAddress is the return address Run pushes before jumping to the entry.
	haltAddress int32 = -1
)

var (
	ErrUnknownLabel      = errors.New("unknown label")
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrOutOfMemory       = errors.New("out of memory")
	ErrInvalidAccess     = errors.New("invalid memory access")
)

// Machine executes a Program on a 32 bit register machine with a word addressed
// memory. printf writes to Output and malloc is a bump allocator that never frees.
type Machine struct {
	program   *Program
	registers [registerCount]int32
	memory    []int32
	heapTop   uint32
	pc        int
	// operands of the last cmp, in AT&T order
	cmpSrc, cmpDst int32
	steps          int

	dataAddresses map[int32]string
	labelAddress  map[string]int32

	Output   io.Writer
	MaxSteps int
	Halted   bool
}

// NewMachine loads program. maxSteps <= 0 means no limit.
func NewMachine(program *Program, output io.Writer, maxSteps int) *Machine {
	machine := &Machine{
		program:       program,
		memory:        make([]int32, MemorySize/4),
		heapTop:       HeapBase,
		dataAddresses: map[int32]string{},
		labelAddress:  map[string]int32{},
		Output:        output,
		MaxSteps:      maxSteps,
	}
	labels := make([]string, 0, len(program.Strings))
	for label := range program.Strings {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	address := int32(dataBase)
	for _, label := range labels {
		content := program.Strings[label]
		machine.dataAddresses[address] = content
		machine.labelAddress[label] = address
		address += int32(len(content)+4) &^ 3
	}
	machine.registers[ESP] = MemorySize
	machine.registers[EBP] = MemorySize
	return machine
}

// Run calls entry as a method with a null receiver and executes until it returns.
func (m *Machine) Run(entry string) error {
	start, exist := m.program.Labels[entry]
	if !exist {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, entry)
	}
	if err := m.push(0); err != nil {
		return err
	}
	if err := m.push(haltAddress); err != nil {
		return err
	}
	m.pc = start
	m.Halted = false
	for !m.Halted {
		if m.MaxSteps > 0 && m.steps >= m.MaxSteps {
			return ErrStepLimitExceeded
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Register returns the current value of r.
func (m *Machine) Register(r Register) int32 {
	return m.registers[r]
}

// Steps returns the number of executed instructions.
func (m *Machine) Steps() int {
	return m.steps
}

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.pc < 0 || m.pc >= len(m.program.Instructions) {
		m.Halted = true
		return fmt.Errorf("%w: jumped to instruction %d", ErrInvalidAccess, m.pc)
	}
	instruction := m.program.Instructions[m.pc]
	m.steps++
	next := m.pc + 1
	err := m.execute(instruction, &next)
	if err != nil {
		m.Halted = true
		return fmt.Errorf("runtime error at line %d (%s): %w", instruction.Line, instruction.OriginalContent, err)
	}
	m.pc = next
	return nil
}

func (m *Machine) execute(instruction Instruction, next *int) error {
	operands := instruction.Operands
	switch instruction.Op {
	case PushOp:
		value, err := m.read(operands[0])
		if err != nil {
			return err
		}
		return m.push(value)
	case PopOp:
		value, err := m.pop()
		if err != nil {
			return err
		}
		return m.write(operands[0], value)
	case MovOp:
		value, err := m.read(operands[0])
		if err != nil {
			return err
		}
		return m.write(operands[1], value)
	case AddOp, SubOp, ImulOp, AndOp, OrOp, XorOp:
		return m.arithmetic(instruction.Op, operands[0], operands[1])
	case NegOp:
		value, err := m.read(operands[0])
		if err != nil {
			return err
		}
		return m.write(operands[0], -value)
	case CdqOp:
		if m.registers[EAX] < 0 {
			m.registers[EDX] = -1
		} else {
			m.registers[EDX] = 0
		}
	case IdivOp:
		return m.divide(operands[0])
	case CmpOp:
		src, err := m.read(operands[0])
		if err != nil {
			return err
		}
		dst, err := m.read(operands[1])
		if err != nil {
			return err
		}
		m.cmpSrc, m.cmpDst = src, dst
	case JmpOp, JeOp, JneOp, JgOp, JgeOp, JlOp, JleOp:
		if m.jumpTaken(instruction.Op) {
			*next = operands[0].Target
		}
	case CallOp:
		if operands[0].Target == -1 {
			return m.callBuiltin(operands[0].Label)
		}
		if err := m.push(int32(*next)); err != nil {
			return err
		}
		*next = operands[0].Target
	case LeaveOp:
		m.registers[ESP] = m.registers[EBP]
		value, err := m.pop()
		if err != nil {
			return err
		}
		m.registers[EBP] = value
	case RetOp:
		address, err := m.pop()
		if err != nil {
			return err
		}
		if address == haltAddress {
			m.Halted = true
			return nil
		}
		*next = int(address)
	default:
		return fmt.Errorf("unsupported instruction %d", instruction.Op)
	}
	return nil
}

func (m *Machine) jumpTaken(op Opcode) bool {
	switch op {
	case JeOp:
		return m.cmpDst == m.cmpSrc
	case JneOp:
		return m.cmpDst != m.cmpSrc
	case JgOp:
		return m.cmpDst > m.cmpSrc
	case JgeOp:
		return m.cmpDst >= m.cmpSrc
	case JlOp:
		return m.cmpDst < m.cmpSrc
	case JleOp:
		return m.cmpDst <= m.cmpSrc
	}
	return true
}

func (m *Machine) arithmetic(op Opcode, srcOperand, dstOperand Operand) error {
	src, err := m.read(srcOperand)
	if err != nil {
		return err
	}
	dst, err := m.read(dstOperand)
	if err != nil {
		return err
	}
	switch op {
	case AddOp:
		dst += src
	case SubOp:
		dst -= src
	case ImulOp:
		dst *= src
	case AndOp:
		dst &= src
	case OrOp:
		dst |= src
	case XorOp:
		dst ^= src
	}
	return m.write(dstOperand, dst)
}

// divide divides edx:eax by the operand, quotient to eax and remainder to edx.
func (m *Machine) divide(operand Operand) error {
	divisor, err := m.read(operand)
	if err != nil {
		return err
	}
	if divisor == 0 {
		return ErrDivisionByZero
	}
	dividend := int64(m.registers[EDX])<<32 | int64(uint32(m.registers[EAX]))
	quotient := dividend / int64(divisor)
	if quotient > math.MaxInt32 || quotient < math.MinInt32 {
		return errors.New("division overflow")
	}
	m.registers[EAX] = int32(quotient)
	m.registers[EDX] = int32(dividend % int64(divisor))
	return nil
}

// callBuiltin runs a C library function. Arguments are on the stack and the
// result goes to eax, as a cdecl call would leave them.
func (m *Machine) callBuiltin(name string) error {
	switch name {
	case "printf":
		address, err := m.load(m.registers[ESP])
		if err != nil {
			return err
		}
		format, exist := m.dataAddresses[address]
		if !exist {
			return fmt.Errorf("%w: printf format at 0x%x", ErrInvalidAccess, address)
		}
		value, err := m.load(m.registers[ESP] + 4)
		if err != nil {
			return err
		}
		n, err := fmt.Fprintf(m.Output, format, value)
		if err != nil {
			return err
		}
		m.registers[EAX] = int32(n)
	case "malloc":
		size, err := m.load(m.registers[ESP])
		if err != nil {
			return err
		}
		if size < 0 {
			return fmt.Errorf("malloc: negative size %d", size)
		}
		address := m.heapTop
		m.heapTop += (uint32(size) + 3) &^ 3
		if m.heapTop >= uint32(m.registers[ESP]) {
			return ErrOutOfMemory
		}
		m.registers[EAX] = int32(address)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownLabel, name)
	}
	return nil
}

func (m *Machine) read(operand Operand) (int32, error) {
	switch operand.Tp {
	case RegisterOperand:
		return m.registers[operand.Register], nil
	case ImmediateOperand:
		return operand.Value, nil
	case AddressOperand:
		address, exist := m.labelAddress[operand.Label]
		if !exist {
			return 0, fmt.Errorf("%w: %s", ErrUnknownLabel, operand.Label)
		}
		return address, nil
	case MemoryOperand:
		return m.load(m.registers[operand.Register] + operand.Value)
	}
	return 0, fmt.Errorf("cannot read operand %s", operand)
}

func (m *Machine) write(operand Operand, value int32) error {
	switch operand.Tp {
	case RegisterOperand:
		m.registers[operand.Register] = value
		return nil
	case MemoryOperand:
		return m.store(m.registers[operand.Register]+operand.Value, value)
	}
	return fmt.Errorf("cannot write operand %s", operand)
}

func (m *Machine) index(address int32) (int, error) {
	if address < HeapBase || address >= MemorySize || address%4 != 0 {
		return 0, fmt.Errorf("%w at 0x%x", ErrInvalidAccess, address)
	}
	return int(address / 4), nil
}

func (m *Machine) load(address int32) (int32, error) {
	i, err := m.index(address)
	if err != nil {
		return 0, err
	}
	return m.memory[i], nil
}

func (m *Machine) store(address int32, value int32) error {
	i, err := m.index(address)
	if err != nil {
		return err
	}
	m.memory[i] = value
	return nil
}

func (m *Machine) push(value int32) error {
	if uint32(m.registers[ESP]-4) < m.heapTop {
		return fmt.Errorf("%w: stack overflow", ErrOutOfMemory)
	}
	m.registers[ESP] -= 4
	return m.store(m.registers[ESP], value)
}

func (m *Machine) pop() (int32, error) {
	value, err := m.load(m.registers[ESP])
	if err != nil {
		return 0, err
	}
	m.registers[ESP] += 4
	return value, nil
}
