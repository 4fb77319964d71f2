package internal

import (
	"bufio"
	"fmt"
	"io"
)

// Generated code is 32 bit x86 in AT&T syntax. Every expression leaves exactly
// one word on top of the stack, every statement consumes what it pushed.
//
// Activation record of a method, relative to %ebp:
//
//	12+4i  parameter i
//	8      receiver
//	4      return address
//	0      caller's %ebp
//	-4-4i  local i

const printFormatLabel = "printstr"

// EntryLabel is the label of Main.main, the program entry point.
const EntryLabel = MainClassName + "_" + MainMethodName

// codeGenerator holds the state of one code generation run. The label counter
// is shared by every construct so labels never collide inside a program.
type codeGenerator struct {
	classTable *ClassTable
	writer     *bufio.Writer
	comments   bool

	labelCounter     int
	currentClassName string
	currentMethod    *MethodInfo
}

// GenerateCode writes the assembly of a type checked program to w. When
// comments is set, each statement and operator is preceded by a `# Node` line.
func GenerateCode(w io.Writer, program *ProgramAst, classTable *ClassTable, comments bool) error {
	generator := &codeGenerator{
		classTable: classTable,
		writer:     bufio.NewWriter(w),
		comments:   comments,
	}
	generator.generateProgramCode(program)
	return generator.writer.Flush()
}

func (generator *codeGenerator) generateProgramCode(program *ProgramAst) {
	generator.writeDirective(".data")
	generator.writeDirective(fmt.Sprintf(`%s: .asciz "%%d\n"`, printFormatLabel))
	generator.writeDirective(".text")
	generator.writeDirective(".globl " + EntryLabel)
	for _, classAst := range program.Classes {
		generator.currentClassName = classAst.ClassName
		for _, method := range classAst.Methods {
			generator.generateMethodCode(method)
		}
	}
}

func methodLabel(className, methodName string) string {
	return className + "_" + methodName
}

func (generator *codeGenerator) generateMethodCode(method *MethodAst) {
	generator.currentMethod = method.methodInfo
	if generator.currentMethod == nil {
		panic(fmt.Sprintf("codegen: method %s.%s was not type checked", generator.currentClassName, method.MethodName))
	}
	generator.writeLabel(methodLabel(generator.currentClassName, method.MethodName))
	generator.writeOutput("push %ebp")
	generator.writeOutput("mov %esp, %ebp")
	generator.writeOutput(fmt.Sprintf("sub $%d, %%esp", generator.currentMethod.LocalsSize))
	generator.generateStatementsCode(method.Statements)
	if method.Return != nil {
		generator.writeComment("Return")
		generator.generateExpressionCode(method.Return.Value)
		generator.writeOutput("pop %eax")
	}
	generator.writeOutput("leave")
	generator.writeOutput("ret")
}

func (generator *codeGenerator) generateStatementsCode(statements []StatementAst) {
	for _, stm := range statements {
		generator.generateStatementCode(stm)
	}
}

func (generator *codeGenerator) generateStatementCode(statement StatementAst) {
	switch stm := statement.(type) {
	case *AssignmentStatementAst:
		generator.generateAssignmentStatementCode(stm)
	case *CallStatementAst:
		generator.writeComment("Call")
		generator.generateMethodCallCode(stm.Call)
		// Drop the return value.
		generator.writeOutput("add $4, %esp")
	case *IfElseStatementAst:
		generator.generateIfElseStatementCode(stm)
	case *WhileStatementAst:
		generator.generateWhileStatementCode(stm)
	case *DoWhileStatementAst:
		generator.generateDoWhileStatementCode(stm)
	case *PrintStatementAst:
		generator.writeComment("Print")
		generator.generateExpressionCode(stm.Value)
		generator.writeOutput(fmt.Sprintf("push $%s", printFormatLabel))
		generator.writeOutput("call printf")
		generator.writeOutput("add $8, %esp")
	default:
		panic(fmt.Sprintf("codegen: unknown statement %T", statement))
	}
}

// The value is on top of the stack once the right hand side is generated.
func (generator *codeGenerator) generateAssignmentStatementCode(stm *AssignmentStatementAst) {
	generator.writeComment("Assignment")
	generator.generateExpressionCode(stm.Value)
	if stm.MemberName != "" {
		generator.generateLoadVariableCode(stm.VarName)
		offset := generator.memberOffset(generator.variableLocation(stm.VarName).Info.Type, stm.MemberName)
		generator.writeOutput("pop %eax")
		generator.writeOutput(fmt.Sprintf("pop %d(%%eax)", offset))
		return
	}
	location := generator.variableLocation(stm.VarName)
	if location.IsMember {
		generator.writeOutput(fmt.Sprintf("mov %d(%%ebp), %%eax", ReceiverOffset))
		generator.writeOutput(fmt.Sprintf("pop %d(%%eax)", location.Offset))
		return
	}
	generator.writeOutput(fmt.Sprintf("pop %d(%%ebp)", location.Offset))
}

func (generator *codeGenerator) generateIfElseStatementCode(stm *IfElseStatementAst) {
	label := generator.nextLabel()
	elseLabel, endLabel := fmt.Sprintf("if_else_%d", label), fmt.Sprintf("if_exit_%d", label)
	generator.writeComment("IfElse")
	generator.generateConditionCode(stm.Condition)
	generator.writeOutput(fmt.Sprintf("je %s", elseLabel))
	generator.generateStatementsCode(stm.Then)
	generator.writeOutput(fmt.Sprintf("jmp %s", endLabel))
	generator.writeLabel(elseLabel)
	generator.generateStatementsCode(stm.Else)
	generator.writeLabel(endLabel)
}

// The guard is tested before every iteration.
func (generator *codeGenerator) generateWhileStatementCode(stm *WhileStatementAst) {
	label := generator.nextLabel()
	checkLabel, exitLabel := fmt.Sprintf("while_check_%d", label), fmt.Sprintf("while_exit_%d", label)
	generator.writeComment("While")
	generator.writeLabel(checkLabel)
	generator.generateConditionCode(stm.Condition)
	generator.writeOutput(fmt.Sprintf("je %s", exitLabel))
	generator.generateStatementsCode(stm.Body)
	generator.writeOutput(fmt.Sprintf("jmp %s", checkLabel))
	generator.writeLabel(exitLabel)
}

func (generator *codeGenerator) generateDoWhileStatementCode(stm *DoWhileStatementAst) {
	label := generator.nextLabel()
	bodyLabel := fmt.Sprintf("do_while_%d", label)
	generator.writeComment("DoWhile")
	generator.writeLabel(bodyLabel)
	generator.generateStatementsCode(stm.Body)
	generator.generateConditionCode(stm.Condition)
	generator.writeOutput(fmt.Sprintf("jne %s", bodyLabel))
}

// generateConditionCode evaluates a boolean and compares it against 0, so that
// je jumps on false and jne on true.
func (generator *codeGenerator) generateConditionCode(condition ExpressionAst) {
	generator.generateExpressionCode(condition)
	generator.writeOutput("pop %eax")
	generator.writeOutput("cmp $0, %eax")
}

func (generator *codeGenerator) generateExpressionCode(expression ExpressionAst) {
	switch expr := expression.(type) {
	case *IntegerLiteralAst:
		generator.writeOutput(fmt.Sprintf("push $%d", expr.Value))
	case *BooleanLiteralAst:
		if expr.Value {
			generator.writeOutput("push $1")
		} else {
			generator.writeOutput("push $0")
		}
	case *VariableAst:
		generator.generateLoadVariableCode(expr.Name)
	case *MemberAccessAst:
		generator.writeComment("MemberAccess")
		generator.generateLoadVariableCode(expr.VarName)
		offset := generator.memberOffset(generator.variableLocation(expr.VarName).Info.Type, expr.MemberName)
		generator.writeOutput("pop %eax")
		generator.writeOutput(fmt.Sprintf("push %d(%%eax)", offset))
	case *BinaryExpressionAst:
		generator.generateBinaryExpressionCode(expr)
	case *UnaryExpressionAst:
		generator.writeComment(expr.Op.String())
		generator.generateExpressionCode(expr.Operand)
		generator.writeOutput("pop %eax")
		switch expr.Op {
		case NotOpCode:
			generator.writeOutput("xor $1, %eax")
		case NegationOpCode:
			generator.writeOutput("neg %eax")
		default:
			panic(fmt.Sprintf("codegen: unknown unary operator %s", expr.Op))
		}
		generator.writeOutput("push %eax")
	case *MethodCallAst:
		generator.writeComment("MethodCall")
		generator.generateMethodCallCode(expr)
	case *NewAst:
		generator.generateNewCode(expr)
	default:
		panic(fmt.Sprintf("codegen: unknown expression %T", expression))
	}
}

// Left operand ends in %eax, right operand in %ebx.
func (generator *codeGenerator) generateBinaryExpressionCode(expr *BinaryExpressionAst) {
	generator.writeComment(expr.Op.String())
	generator.generateExpressionCode(expr.Left)
	generator.generateExpressionCode(expr.Right)
	generator.writeOutput("pop %ebx")
	generator.writeOutput("pop %eax")
	switch expr.Op {
	case PlusOpCode:
		generator.writeOutput("add %ebx, %eax")
	case MinusOpCode:
		generator.writeOutput("sub %ebx, %eax")
	case TimesOpCode:
		generator.writeOutput("imul %ebx, %eax")
	case DivideOpCode:
		generator.writeOutput("cdq")
		generator.writeOutput("idiv %ebx")
	case AndOpCode:
		generator.writeOutput("and %ebx, %eax")
	case OrOpCode:
		generator.writeOutput("or %ebx, %eax")
	case GreaterOpCode:
		generator.generateComparisonCode("jg")
		return
	case GreaterEqualOpCode:
		generator.generateComparisonCode("jge")
		return
	case EqualsOpCode:
		generator.generateComparisonCode("je")
		return
	default:
		panic(fmt.Sprintf("codegen: unknown binary operator %s", expr.Op))
	}
	generator.writeOutput("push %eax")
}

// generateComparisonCode pushes 1 when `jump` is taken after comparing %eax with %ebx, 0 otherwise.
func (generator *codeGenerator) generateComparisonCode(jump string) {
	label := generator.nextLabel()
	trueLabel, endLabel := fmt.Sprintf("cmp_true_%d", label), fmt.Sprintf("cmp_exit_%d", label)
	generator.writeOutput("cmp %ebx, %eax")
	generator.writeOutput(fmt.Sprintf("%s %s", jump, trueLabel))
	generator.writeOutput("push $0")
	generator.writeOutput(fmt.Sprintf("jmp %s", endLabel))
	generator.writeLabel(trueLabel)
	generator.writeOutput("push $1")
	generator.writeLabel(endLabel)
}

// generateMethodCallCode pushes the arguments and the receiver, calls the
// statically resolved method and leaves its return value on the stack.
func (generator *codeGenerator) generateMethodCallCode(call *MethodCallAst) {
	if call.DeclaringClass == "" {
		panic(fmt.Sprintf("codegen: unresolved method %s", call.MethodName))
	}
	generator.generateArgumentsCode(call.Args)
	if call.ObjectName != "" {
		generator.generateLoadVariableCode(call.ObjectName)
	} else {
		generator.writeOutput(fmt.Sprintf("push %d(%%ebp)", ReceiverOffset))
	}
	generator.writeOutput(fmt.Sprintf("call %s", methodLabel(call.DeclaringClass, call.MethodName)))
	generator.writeOutput(fmt.Sprintf("add $%d, %%esp", WordSize*(len(call.Args)+1)))
	generator.writeOutput("push %eax")
}

// generateNewCode allocates the object and runs its constructor. The pointer
// returned by malloc is pushed first and stays beneath the constructor
// arguments, so after the arguments it sits exactly len(args) words deep.
func (generator *codeGenerator) generateNewCode(expr *NewAst) {
	generator.writeComment("New")
	generator.writeOutput(fmt.Sprintf("push $%d", generator.classTable.ObjectSize(expr.ClassName)))
	generator.writeOutput("call malloc")
	generator.writeOutput("add $4, %esp")
	generator.writeOutput("push %eax")
	if _, ok := generator.classTable.Constructor(expr.ClassName); !ok {
		return
	}
	generator.generateArgumentsCode(expr.Args)
	generator.writeOutput(fmt.Sprintf("push %d(%%esp)", WordSize*len(expr.Args)))
	generator.writeOutput(fmt.Sprintf("call %s", methodLabel(expr.ClassName, expr.ClassName)))
	generator.writeOutput(fmt.Sprintf("add $%d, %%esp", WordSize*(len(expr.Args)+1)))
}

// generateArgumentsCode evaluates the arguments left to right, then reverses
// them in place so that the first argument ends up next to the receiver.
func (generator *codeGenerator) generateArgumentsCode(args []ExpressionAst) {
	for _, arg := range args {
		generator.generateExpressionCode(arg)
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		top, bottom := WordSize*i, WordSize*j
		generator.writeOutput(fmt.Sprintf("mov %d(%%esp), %%eax", top))
		generator.writeOutput(fmt.Sprintf("mov %d(%%esp), %%ebx", bottom))
		generator.writeOutput(fmt.Sprintf("mov %%eax, %d(%%esp)", bottom))
		generator.writeOutput(fmt.Sprintf("mov %%ebx, %d(%%esp)", top))
	}
}

func (generator *codeGenerator) generateLoadVariableCode(name string) {
	location := generator.variableLocation(name)
	if location.IsMember {
		generator.writeOutput(fmt.Sprintf("mov %d(%%ebp), %%eax", ReceiverOffset))
		generator.writeOutput(fmt.Sprintf("push %d(%%eax)", location.Offset))
		return
	}
	generator.writeOutput(fmt.Sprintf("push %d(%%ebp)", location.Offset))
}

func (generator *codeGenerator) variableLocation(name string) VariableLocation {
	location, ok := generator.classTable.ResolveVariable(generator.currentClassName, generator.currentMethod, name)
	if !ok {
		panic(fmt.Sprintf("codegen: unresolved variable %s in class %s", name, generator.currentClassName))
	}
	return location
}

func (generator *codeGenerator) memberOffset(objectType CompoundType, memberName string) int {
	_, offset, ok := generator.classTable.ResolveMember(objectType.ObjectClassName, memberName)
	if !ok {
		panic(fmt.Sprintf("codegen: unresolved member %s of %s", memberName, objectType))
	}
	return offset
}

func (generator *codeGenerator) nextLabel() int {
	label := generator.labelCounter
	generator.labelCounter++
	return label
}

func (generator *codeGenerator) writeDirective(code string) {
	generator.writer.WriteString(code + "\n")
}

func (generator *codeGenerator) writeLabel(label string) {
	generator.writer.WriteString(label + ":\n")
}

func (generator *codeGenerator) writeOutput(code string) {
	generator.writer.WriteString("    " + code + "\n")
}

func (generator *codeGenerator) writeComment(node string) {
	if generator.comments {
		generator.writeOutput("# " + node)
	}
}
