package assembler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimLine(t *testing.T) {
	asm := CreateAssembler()
	testData := []struct {
		line     string
		expected string
		remain   bool
	}{
		{"", "", false},
		{"   # Assignment", "", false},
		{"    push %ebp  # save", "push %ebp", true},
		{`printstr: .asciz "#%d\n"`, `printstr: .asciz "#%d\n"`, true},
		{"\tret\t", "ret", true},
	}
	for _, data := range testData {
		trimmed, remain := asm.trimLine([]byte(data.line))
		assert.Equal(t, data.remain, remain, data.line)
		assert.Equal(t, data.expected, string(trimmed), data.line)
	}
}

func TestParseOperand(t *testing.T) {
	asm := CreateAssembler()
	testData := []struct {
		operand  string
		op       Opcode
		expected Operand
	}{
		{"%eax", MovOp, Operand{Tp: RegisterOperand, Register: EAX}},
		{"%ebp", PushOp, Operand{Tp: RegisterOperand, Register: EBP}},
		{"$12", PushOp, Operand{Tp: ImmediateOperand, Value: 12}},
		{"$-4", AddOp, Operand{Tp: ImmediateOperand, Value: -4}},
		{"$printstr", PushOp, Operand{Tp: AddressOperand, Label: "printstr"}},
		{"-4(%ebp)", PopOp, Operand{Tp: MemoryOperand, Register: EBP, Value: -4}},
		{"12(%esp)", MovOp, Operand{Tp: MemoryOperand, Register: ESP, Value: 12}},
		{"(%eax)", PushOp, Operand{Tp: MemoryOperand, Register: EAX}},
		{"while_check_0", JmpOp, Operand{Tp: TargetOperand, Label: "while_check_0"}},
		{"Main_main", CallOp, Operand{Tp: TargetOperand, Label: "Main_main"}},
	}
	for _, data := range testData {
		operand, err := asm.parseOperand(data.operand, data.op)
		require.Nil(t, err, data.operand)
		assert.Equal(t, data.expected, operand, data.operand)
	}

	wrongOperands := []struct {
		operand string
		op      Opcode
	}{
		{"%rax", MovOp},
		{"$1x", PushOp},
		{"$99999999999", PushOp},
		{"4(%eip)", PushOp},
		{"a(%ebp)", PushOp},
		{"4%ebp", PushOp},
		{"1abc", JmpOp},
	}
	for _, data := range wrongOperands {
		_, err := asm.parseOperand(data.operand, data.op)
		assert.NotNil(t, err, data.operand)
	}
}

func TestTransformInstruction(t *testing.T) {
	wrongLines := []string{
		"mov %eax",
		"push",
		"push %eax, %ebx",
		"jump Main_main",
		"mov -4(%ebp), 8(%ebp)",
		"mov %eax, $1",
		"pop $4",
		"ret %eax",
	}
	for _, line := range wrongLines {
		asm := CreateAssembler()
		assert.NotNil(t, asm.transformInstruction(line), line)
	}

	asm := CreateAssembler()
	require.Nil(t, asm.transformInstruction("mov 12(%ebp), %eax"))
	instruction := asm.program.Instructions[0]
	assert.Equal(t, MovOp, instruction.Op)
	assert.Equal(t, []Operand{
		{Tp: MemoryOperand, Register: EBP, Value: 12},
		{Tp: RegisterOperand, Register: EAX},
	}, instruction.Operands)
}

func TestParseErrors(t *testing.T) {
	testData := []struct {
		content string
		msg     string
	}{
		{".text\nfoo:\nfoo:\n", "duplicate label"},
		{".text\njmp nowhere\n", "unknown label nowhere"},
		{".text\ncall puts\n", "unknown label puts"},
		{".text\npush $msg\n", "unknown data label msg"},
		{".data\npush $1\n", "instruction outside of text section"},
		{".data\nmsg: .word 1\n", "only .asciz data is supported"},
		{".text\n.globl Main_main\n", "undefined global Main_main"},
		{".bss\n", "unknown directive .bss"},
	}
	for _, data := range testData {
		_, err := Assemble(strings.NewReader(data.content))
		require.NotNil(t, err, data.content)
		assert.Contains(t, err.Error(), data.msg, data.content)
	}
}

func TestAssembler_IntegrationTest(t *testing.T) {
	contents := `
.data
printstr: .asciz "%d\n"
.text
.globl Main_main
# labels may be used before they are declared
Main_main:
    push %ebp
    mov %esp, %ebp
    sub $0, %esp
    jmp done
done:
    leave
    ret`
	program, err := Assemble(strings.NewReader(contents))
	require.Nil(t, err)
	assert.Equal(t, 6, len(program.Instructions))
	assert.Equal(t, map[string]int{"Main_main": 0, "done": 4}, program.Labels)
	assert.Equal(t, map[string]string{"printstr": "%d\n"}, program.Strings)
	assert.Equal(t, []string{"Main_main"}, program.Globals)
	assert.Equal(t, 4, program.Instructions[3].Operands[0].Target)
	assert.Equal(t, "ret", program.Instructions[5].OriginalContent)
}

func runProgram(t *testing.T, contents string, maxSteps int) (string, error) {
	program, err := Assemble(strings.NewReader(contents))
	require.Nil(t, err)
	output := &bytes.Buffer{}
	machine := NewMachine(program, output, maxSteps)
	err = machine.Run("Main_main")
	return output.String(), err
}

const header = `
.data
printstr: .asciz "%d\n"
.text
.globl Main_main
`

func TestMachineRun(t *testing.T) {
	testData := []struct {
		body     string
		expected string
	}{
		{
			body: `
    push $7
    push $printstr
    call printf
    add $8, %esp`,
			expected: "7\n",
		},
		{
			// -7 / 2 truncates toward zero.
			body: `
    mov $-7, %eax
    mov $2, %ebx
    cdq
    idiv %ebx
    push %edx
    push %eax
    push $printstr
    call printf
    add $8, %esp
    push $printstr
    call printf
    add $8, %esp`,
			expected: "-3\n-1\n",
		},
		{
			body: `
    mov $3, %eax
    neg %eax
    mov $6, %ebx
    imul %ebx, %eax
    xor $1, %eax
    push %eax
    push $printstr
    call printf
    add $8, %esp`,
			expected: "-17\n",
		},
		{
			// counts down from 3 with a backward jump
			body: `
    mov $3, %ecx
loop:
    cmp $0, %ecx
    je exit
    push %ecx
    push $printstr
    call printf
    add $8, %esp
    mov $1, %eax
    sub %eax, %ecx
    jmp loop
exit:`,
			expected: "3\n2\n1\n",
		},
		{
			body: `
    push $8
    call malloc
    add $4, %esp
    mov $5, %ebx
    mov %ebx, 4(%eax)
    push 4(%eax)
    push $printstr
    call printf
    add $8, %esp`,
			expected: "5\n",
		},
	}
	for _, data := range testData {
		contents := header + "Main_main:\n    push %ebp\n    mov %esp, %ebp\n" + data.body + "\n    leave\n    ret\n"
		output, err := runProgram(t, contents, 0)
		require.Nil(t, err, data.body)
		assert.Equal(t, data.expected, output, data.body)
	}
}

func TestMachineCall(t *testing.T) {
	contents := header + `
A_twice:
    push %ebp
    mov %esp, %ebp
    mov 12(%ebp), %eax
    add %eax, %eax
    leave
    ret
Main_main:
    push %ebp
    mov %esp, %ebp
    push $21
    push 8(%ebp)
    call A_twice
    add $8, %esp
    push %eax
    push $printstr
    call printf
    add $8, %esp
    leave
    ret
`
	output, err := runProgram(t, contents, 0)
	require.Nil(t, err)
	assert.Equal(t, "42\n", output)
}

func TestMachineErrors(t *testing.T) {
	testData := []struct {
		body     string
		maxSteps int
		err      error
	}{
		{"loop:\n    jmp loop", 100, ErrStepLimitExceeded},
		{"    mov $1, %eax\n    mov $0, %ebx\n    cdq\n    idiv %ebx", 0, ErrDivisionByZero},
		{"    mov $0, %eax\n    push 4(%eax)", 0, ErrInvalidAccess},
	}
	for _, data := range testData {
		contents := header + "Main_main:\n" + data.body + "\n    ret\n"
		_, err := runProgram(t, contents, data.maxSteps)
		assert.ErrorIs(t, err, data.err, data.body)
	}

	program, err := Assemble(strings.NewReader(header + "Main_main:\n    ret\n"))
	require.Nil(t, err)
	assert.ErrorIs(t, NewMachine(program, &bytes.Buffer{}, 0).Run("Other_main"), ErrUnknownLabel)
}
