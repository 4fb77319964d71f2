package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyMain = "Main { main() -> none { } }"

func typeCheckSource(t *testing.T, content string) (*ProgramAst, *ClassTable, error) {
	parser := &Parser{}
	program, err := parser.Parse(strings.NewReader(content))
	require.Nil(t, err, content)
	classTable, err := TypeCheck(program)
	return program, classTable, err
}

func TestTypeChecker_Errors(t *testing.T) {
	testData := []struct {
		content string
		code    TypeErrorCode
	}{
		{"A { }", NoMainClass},
		{"Main { integer a; main() -> none { } }", MainClassMembersPresent},
		{"Main { foo() -> none { } }", NoMainMethod},
		{"Main { main() -> integer { return 1; } }", MainMethodIncorrectSignature},
		{"Main { main(integer a) -> none { } }", MainMethodIncorrectSignature},

		{"B extends A { } " + emptyMain, UndefinedClass},
		{"A { B b; } B { } " + emptyMain, UndefinedClass},
		{"Main { main() -> none { Foo f; } }", UndefinedClass},
		// A class declared later is an error where it is used in a body.
		{"A { foo() -> B { return new B; } } B { B() -> none { } } " + emptyMain, UndefinedClass},
		{"A { foo(B b) -> none { B c; } } B { } " + emptyMain, UndefinedClass},
		{"Main { main() -> none { print new Foo; } }", UndefinedClass},

		{"Main { main() -> none { x = 1; } }", UndefinedVariable},
		{"Main { main() -> none { print x + 1; } }", UndefinedVariable},
		{"Main { main() -> none { x.foo(); } }", UndefinedVariable},
		{"A { integer a; } Main { main() -> none { A x; x.b = 1; } }", UndefinedMember},
		{"A { integer a; } Main { main() -> none { A x; print x.b; } }", UndefinedMember},
		{"Main { main() -> none { integer i; i.a = 1; } }", NotObject},
		{"Main { main() -> none { boolean i; print i.a; } }", NotObject},
		{"Main { main() -> none { integer i; i.foo(); } }", NotObject},
		{"Main { main() -> none { foo(); } }", UndefinedMethod},
		{"A { } Main { main() -> none { A a; a.foo(); } }", UndefinedMethod},
		{"A { } Main { main() -> none { A a; a = new A; } }", UndefinedMethod},
		// The constructor of a superclass is not inherited.
		{"A { A() -> none { } } B extends A { } Main { main() -> none { B b; b = new B; } }", UndefinedMethod},

		{"Main { main() -> none { print 1 + true; } }", ExpressionTypeMismatch},
		{"Main { main() -> none { print true > 1; } }", ExpressionTypeMismatch},
		{"Main { main() -> none { print 1 and true; } }", ExpressionTypeMismatch},
		{"Main { main() -> none { print 1 equals true; } }", ExpressionTypeMismatch},
		{"Main { main() -> none { print not 1; } }", ExpressionTypeMismatch},
		{"Main { main() -> none { print -true; } }", ExpressionTypeMismatch},
		{"A { A() -> none { } } Main { main() -> none { A a; A b; print a equals b; } }", ExpressionTypeMismatch},

		{"Main { foo(integer a) -> none { } main() -> none { foo(); } }", ArgumentNumberMismatch},
		{"Main { foo(integer a) -> none { } main() -> none { foo(1, 2); } }", ArgumentNumberMismatch},
		{"Main { foo(integer a) -> none { } main() -> none { foo(true); } }", ArgumentTypeMismatch},
		{"A { A(integer a) -> none { } } Main { main() -> none { A a; a = new A(false); } }", ArgumentTypeMismatch},

		{"Main { main() -> none { while 1 { } } }", WhilePredicateTypeMismatch},
		{"Main { main() -> none { do { } while (1); } }", DoWhilePredicateTypeMismatch},
		{"Main { main() -> none { if 1 { } } }", IfPredicateTypeMismatch},
		{"Main { main() -> none { integer i; i = true; } }", AssignmentTypeMismatch},
		{"A { integer a; } Main { main() -> none { A x; x.a = false; } }", AssignmentTypeMismatch},
		// No subtype widening.
		{"A { } B extends A { B() -> none { } } Main { main() -> none { A a; a = new B; } }", AssignmentTypeMismatch},

		{"A { foo() -> integer { return true; } } " + emptyMain, ReturnTypeMismatch},
		{"A { foo() -> integer { } } " + emptyMain, ReturnTypeMismatch},
		{"A { foo() -> none { return 1; } } " + emptyMain, ReturnTypeMismatch},
		// The undeclared return type itself is not an error.
		{"A { foo() -> Foo { } } " + emptyMain, ReturnTypeMismatch},
		{"A { A() -> integer { return 1; } } " + emptyMain, ConstructorReturnsType},

		// Nested statements are checked before the predicate that guards them.
		{"Main { main() -> none { while 1 { x = 1; } } }", UndefinedVariable},
		{"Main { main() -> none { if 1 { } else { print y; } } }", UndefinedVariable},
		// Arguments are checked before the callee is looked up.
		{"Main { main() -> none { foo(x); } }", UndefinedVariable},
	}
	for _, data := range testData {
		_, _, err := typeCheckSource(t, data.content)
		require.NotNil(t, err, data.content)
		typeErr, ok := err.(*TypeError)
		require.True(t, ok, data.content)
		assert.Equal(t, data.code, typeErr.Code, data.content)
		assert.Equal(t, typeErrorMessages[data.code], err.Error(), data.content)
	}
}

func TestTypeChecker_ErrorLocation(t *testing.T) {
	_, _, err := typeCheckSource(t, "A { foo() -> none { x = 1; } } "+emptyMain)
	require.NotNil(t, err)
	assert.Equal(t, "A.foo", err.(*TypeError).Where)
	assert.Equal(t, "Method does not exist.", UndefinedMethod.String())
}

func TestTypeChecker_Accepts(t *testing.T) {
	testData := []string{
		emptyMain,
		// print takes any type
		"Main { main() -> none { print true; } }",
		"Node { Node next; Node() -> none { } } Main { main() -> none { Node n; n = new Node; print n; } }",
		// methods can call methods declared after them
		"A { foo() -> integer { return bar(); } bar() -> integer { return 1; } } " + emptyMain,
		"A { integer a; } B extends A { set() -> none { a = 1; } } " + emptyMain,
		"Main { main() -> none { print true equals false; print 1 equals 2 or 3 >= 3; } }",
		// signatures may name classes declared later, or never
		"A { foo(B b) -> none { } } B { } " + emptyMain,
		"A { pass(B b) -> B { return b; } } B { } " + emptyMain,
		"A { foo(Foo f) -> none { } } " + emptyMain,
	}
	for _, content := range testData {
		_, _, err := typeCheckSource(t, content)
		assert.Nil(t, err, content)
	}
}

func TestTypeChecker_Annotations(t *testing.T) {
	content := `
A {
    integer a1, a2;
    A(integer x) -> none {
        a1 = x;
    }
    sum() -> integer {
        return a1 + a2;
    }
}

B extends A {
    boolean flag;
    B() -> none {
        flag = true;
    }
    get(integer i, boolean j) -> integer {
        integer k, l;
        A other;
        k = sum();
        return k;
    }
}

Main {
    main() -> none {
        B b;
        b = new B();
        print b.sum();
    }
}
`
	program, classTable, err := typeCheckSource(t, content)
	require.Nil(t, err)
	assert.Equal(t, []string{"A", "B", "Main"}, classTable.Names())

	classB, _ := classTable.Lookup("B")
	assert.Equal(t, "A", classB.SuperClassName)
	assert.Equal(t, 4, classB.MembersSize)
	flag, _ := classB.Members.Lookup("flag")
	assert.Equal(t, &VariableInfo{Type: BooleanType, Offset: 0, Size: 4}, flag)

	get, _ := classB.Methods.Lookup("get")
	assert.Equal(t, []CompoundType{IntegerType, BooleanType}, get.ParameterTypes)
	assert.Equal(t, 12, get.LocalsSize)
	assert.Equal(t, []string{"i", "j", "k", "l", "other"}, get.Locals.Names())
	expectedOffsets := []int{12, 16, -4, -8, -12}
	for i, name := range get.Locals.Names() {
		info, _ := get.Locals.Lookup(name)
		assert.Equal(t, expectedOffsets[i], info.Offset, name)
	}
	other, _ := get.Locals.Lookup("other")
	assert.Equal(t, ObjectType("A"), other.Type)

	getAst := program.Classes[1].Methods[1]
	assert.Equal(t, get, getAst.methodInfo)
	call := getAst.Statements[0].(*AssignmentStatementAst).Value.(*MethodCallAst)
	assert.Equal(t, "A", call.DeclaringClass)
	assert.Equal(t, IntegerType, call.Type())
	assert.Equal(t, IntegerType, getAst.Return.TP)

	main := program.Classes[2].Methods[0]
	assignment := main.Statements[0].(*AssignmentStatementAst)
	assert.Equal(t, ObjectType("B"), assignment.Value.Type())
	printCall := main.Statements[1].(*PrintStatementAst).Value.(*MethodCallAst)
	assert.Equal(t, "A", printCall.DeclaringClass)

	sum := program.Classes[0].Methods[1]
	binary := sum.Return.Value.(*BinaryExpressionAst)
	assert.Equal(t, IntegerType, binary.Type())
	assert.Equal(t, IntegerType, binary.Right.(*VariableAst).Type())
}
