package internal

// A compilation unit is a list of classes. Statements and expressions are closed
// sets of node types: every pass switches over them and panics on a node it does
// not know. The type checker fills the annotation fields in place and the code
// generator reads them back from the same nodes.

type ProgramAst struct {
	Classes []*ClassAst
}

type ClassAst struct {
	ClassName      string
	SuperClassName string // empty when the class extends nothing
	Members        []*DeclarationAst
	Methods        []*MethodAst
	line           int
}

// DeclarationAst declares one or more variables of the same type: `integer a, b;`.
type DeclarationAst struct {
	Type  CompoundType
	Names []string
	line  int
}

type ParameterAst struct {
	Type CompoundType
	Name string
}

type MethodAst struct {
	MethodName string
	Params     []*ParameterAst
	ReturnType CompoundType
	Locals     []*DeclarationAst
	Statements []StatementAst
	Return     *ReturnStatementAst // nil when the body has no return
	line       int

	methodInfo *MethodInfo // We set method table reference here.
}

type StatementAst interface {
	statementNode()
}

// AssignmentStatementAst is `var = value;` or, when MemberName is set,
// `var.member = value;`.
type AssignmentStatementAst struct {
	VarName    string
	MemberName string
	Value      ExpressionAst
}

type CallStatementAst struct {
	Call *MethodCallAst
}

type IfElseStatementAst struct {
	Condition ExpressionAst
	Then      []StatementAst
	Else      []StatementAst
}

type WhileStatementAst struct {
	Condition ExpressionAst
	Body      []StatementAst
}

type DoWhileStatementAst struct {
	Body      []StatementAst
	Condition ExpressionAst
}

type PrintStatementAst struct {
	Value ExpressionAst
}

type ReturnStatementAst struct {
	Value ExpressionAst
	TP    CompoundType
}

func (*AssignmentStatementAst) statementNode() {}
func (*CallStatementAst) statementNode()       {}
func (*IfElseStatementAst) statementNode()     {}
func (*WhileStatementAst) statementNode()      {}
func (*DoWhileStatementAst) statementNode()    {}
func (*PrintStatementAst) statementNode()      {}

// ExpressionAst is any expression node. Type is only meaningful after type checking.
type ExpressionAst interface {
	Type() CompoundType
	setType(tp CompoundType)
}

type typed struct {
	TP CompoundType
}

func (t *typed) Type() CompoundType {
	return t.TP
}

func (t *typed) setType(tp CompoundType) {
	t.TP = tp
}

type OpCode int

const (
	OrOpCode OpCode = iota
	AndOpCode
	EqualsOpCode
	GreaterOpCode
	GreaterEqualOpCode
	PlusOpCode
	MinusOpCode
	TimesOpCode
	DivideOpCode
	NotOpCode
	NegationOpCode
)

var opCodeNames = map[OpCode]string{
	OrOpCode:           "Or",
	AndOpCode:          "And",
	EqualsOpCode:       "Equal",
	GreaterOpCode:      "Greater",
	GreaterEqualOpCode: "GreaterEqual",
	PlusOpCode:         "Plus",
	MinusOpCode:        "Minus",
	TimesOpCode:        "Times",
	DivideOpCode:       "Divide",
	NotOpCode:          "Not",
	NegationOpCode:     "UnaryMinus",
}

func (op OpCode) String() string {
	return opCodeNames[op]
}

type BinaryExpressionAst struct {
	typed
	Op    OpCode
	Left  ExpressionAst
	Right ExpressionAst
}

type UnaryExpressionAst struct {
	typed
	Op      OpCode
	Operand ExpressionAst
}

type IntegerLiteralAst struct {
	typed
	Value int32
}

type BooleanLiteralAst struct {
	typed
	Value bool
}

type VariableAst struct {
	typed
	Name string
}

type MemberAccessAst struct {
	typed
	VarName    string
	MemberName string
}

// MethodCallAst is `method(args)` or, when ObjectName is set, `object.method(args)`.
type MethodCallAst struct {
	typed
	ObjectName string
	MethodName string
	Args       []ExpressionAst

	// DeclaringClass is the class whose method the call statically binds to. The
	// code generator emits its label from it.
	DeclaringClass string
}

type NewAst struct {
	typed
	ClassName string
	Args      []ExpressionAst
}
