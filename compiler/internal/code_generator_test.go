package internal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GrantClark1999/CS160/assembler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileTestSource(t *testing.T, content string, comments bool) []byte {
	compilation, err := CompileSource(strings.NewReader(content), "test", comments)
	require.Nil(t, err, content)
	return compilation.Assembly
}

func runTestSource(t *testing.T, content string) (string, error) {
	assembly := compileTestSource(t, content, true)
	program, err := assembler.Assemble(bytes.NewReader(assembly))
	require.Nil(t, err, string(assembly))
	output := &bytes.Buffer{}
	err = assembler.NewMachine(program, output, 1000000).Run(EntryLabel)
	return output.String(), err
}

func mainWith(body string) string {
	return "Main { main() -> none { " + body + " } }"
}

func TestCodeGenerator_Layout(t *testing.T) {
	expected := `.data
printstr: .asciz "%d\n"
.text
.globl Main_main
Main_main:
    push %ebp
    mov %esp, %ebp
    sub $4, %esp
    # Assignment
    push $5
    pop -4(%ebp)
    # Print
    push -4(%ebp)
    push $printstr
    call printf
    add $8, %esp
    leave
    ret
`
	assembly := compileTestSource(t, mainWith("integer i; i = 5; print i;"), true)
	assert.Equal(t, expected, string(assembly))

	assembly = compileTestSource(t, mainWith("integer i; i = 5; print i;"), false)
	assert.NotContains(t, string(assembly), "#")
}

func TestCodeGenerator_CallingConvention(t *testing.T) {
	content := `
Main {
    sub(integer a, integer b) -> integer {
        return a - b;
    }
    main() -> none {
        print sub(10, 3);
    }
}`
	assembly := string(compileTestSource(t, content, false))
	assert.Contains(t, assembly, `Main_sub:
    push %ebp
    mov %esp, %ebp
    sub $0, %esp
    push 12(%ebp)
    push 16(%ebp)
    pop %ebx
    pop %eax
    sub %ebx, %eax
    push %eax
    pop %eax
    leave
    ret
`)
	// Arguments are evaluated left to right, then swapped so the first one is
	// next to the receiver.
	assert.Contains(t, assembly, `    push $10
    push $3
    mov 0(%esp), %eax
    mov 4(%esp), %ebx
    mov %eax, 4(%esp)
    mov %ebx, 0(%esp)
    push 8(%ebp)
    call Main_sub
    add $12, %esp
    push %eax
`)
}

func TestCodeGenerator_Run(t *testing.T) {
	testData := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "precedence",
			content:  mainWith("print 1 + 2 * 3;"),
			expected: "7\n",
		},
		{
			name:     "arithmetic",
			content:  mainWith("print 7 / 2; print -7 / 2; print 10 - 3 - 2; print -(4); print (1 + 2) * 3;"),
			expected: "3\n-3\n5\n-4\n9\n",
		},
		{
			name: "booleans",
			content: mainWith("print true; print 3 > 2; print 2 >= 3; print 3 >= 3; print 1 equals 1; " +
				"print not true; print true and false; print false or true; print true equals false;"),
			expected: "1\n1\n0\n1\n1\n0\n0\n1\n0\n",
		},
		{
			name:     "while",
			content:  mainWith("integer i; i = 3; while i > 0 { print i; i = i - 1; } print i;"),
			expected: "3\n2\n1\n0\n",
		},
		{
			name:     "while never entered",
			content:  mainWith("while false { print 1; } print 2;"),
			expected: "2\n",
		},
		{
			name:     "do while",
			content:  mainWith("integer i; i = 0; do { print i; i = i + 1; } while (3 > i);"),
			expected: "0\n1\n2\n",
		},
		{
			name:     "do while runs once",
			content:  mainWith("do { print 1; } while (false);"),
			expected: "1\n",
		},
		{
			name: "if else",
			content: mainWith("integer i; i = 2; " +
				"if i equals 1 { print 10; } else { if i equals 2 { print 20; } else { print 30; } } " +
				"if i > 1 { print 40; } print 50;"),
			expected: "20\n40\n50\n",
		},
		{
			name: "argument order",
			content: `
Main {
    digits(integer a, integer b, integer c) -> integer {
        return a * 100 + b * 10 + c;
    }
    main() -> none {
        print digits(1, 2, 3);
        print digits(4, 5, 6) - digits(0, 0, 6);
    }
}`,
			expected: "123\n450\n",
		},
		{
			name: "recursion",
			content: `
Main {
    fact(integer n) -> integer {
        integer r;
        if n > 1 {
            r = n * fact(n - 1);
        } else {
            r = 1;
        }
        return r;
    }
    main() -> none {
        print fact(5);
    }
}`,
			expected: "120\n",
		},
		{
			name: "objects",
			content: `
A {
    integer a1, a2;
    sum() -> integer {
        return a1 * 10 + a2;
    }
}

B extends A {
    integer b1;
    B(integer z) -> none {
        b1 = z;
        a1 = 1;
        a2 = 2;
    }
    all() -> integer {
        return sum() * 10 + b1;
    }
    setA2(integer v) -> none {
        a2 = v;
    }
}

Main {
    main() -> none {
        B b;
        b = new B(3);
        print b.all();
        print b.a1;
        b.b1 = 9;
        b.setA2(7);
        print b.b1;
        print b.all();
        print b.sum();
    }
}`,
			expected: "123\n1\n9\n179\n17\n",
		},
		{
			name: "object arguments",
			content: `
Point {
    integer x, y;
    Point(integer px, integer py) -> none {
        x = px;
        y = py;
    }
    add(Point other) -> Point {
        Point result;
        result = new Point(x + other.x, y + other.y);
        return result;
    }
}

Main {
    main() -> none {
        Point p, q;
        p = new Point(1, 2);
        q = p.add(new Point(10, 20));
        q = q.add(q);
        print q.x;
        print q.y;
        print p.x;
    }
}`,
			expected: "22\n44\n1\n",
		},
		{
			name: "static dispatch",
			content: `
A {
    A() -> none {
    }
    id() -> integer {
        return 1;
    }
    callId() -> integer {
        return id();
    }
}

B extends A {
    B() -> none {
    }
    id() -> integer {
        return 2;
    }
}

Main {
    main() -> none {
        A a;
        B b;
        a = new A();
        b = new B();
        print a.id();
        print b.id();
        print b.callId();
    }
}`,
			// callId is compiled once for A and always calls A_id.
			expected: "1\n2\n1\n",
		},
	}
	for _, data := range testData {
		output, err := runTestSource(t, data.content)
		require.Nil(t, err, data.name)
		assert.Equal(t, data.expected, output, data.name)
	}
}

func TestCodeGenerator_RuntimeErrors(t *testing.T) {
	_, err := runTestSource(t, mainWith("integer i; i = 0; print 1 / i;"))
	assert.ErrorIs(t, err, assembler.ErrDivisionByZero)

	_, err = runTestSource(t, mainWith("while true { }"))
	assert.ErrorIs(t, err, assembler.ErrStepLimitExceeded)
}

func TestCodeGenerator_UniqueLabels(t *testing.T) {
	assembly := string(compileTestSource(t, mainWith(
		"integer i; i = 0; while i > 0 { if i equals 1 { print 1; } } do { } while (i >= 1);"), false))
	for _, label := range []string{"while_check_0:", "cmp_true_1:", "cmp_exit_1:", "while_exit_0:",
		"if_else_2:", "if_exit_2:", "cmp_true_3:", "do_while_4:", "cmp_true_5:"} {
		assert.Equal(t, 1, strings.Count(assembly, label+"\n"), label)
	}
}

func TestCodeGenerator_CallLabel(t *testing.T) {
	content := `
A {
    id() -> integer {
        return 1;
    }
}

B extends A {
    B() -> none {
    }
}

Main {
    main() -> none {
        B b;
        b = new B();
        print b.id();
    }
}`
	program, classTable, err := typeCheckSource(t, content)
	require.Nil(t, err)
	call := program.Classes[2].Methods[0].Statements[1].(*PrintStatementAst).Value.(*MethodCallAst)
	require.Equal(t, "A", call.DeclaringClass)

	buf := &bytes.Buffer{}
	require.Nil(t, GenerateCode(buf, program, classTable, false))
	assert.Contains(t, buf.String(), "    call A_id\n")
	assert.NotContains(t, buf.String(), "B_id")
	assert.Contains(t, buf.String(), "    call B_B\n")
}
