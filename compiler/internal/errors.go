package internal

type TypeErrorCode int

const (
	UndefinedVariable TypeErrorCode = iota
	UndefinedMethod
	UndefinedClass
	UndefinedMember
	NotObject
	ExpressionTypeMismatch
	ArgumentNumberMismatch
	ArgumentTypeMismatch
	WhilePredicateTypeMismatch
	DoWhilePredicateTypeMismatch
	IfPredicateTypeMismatch
	AssignmentTypeMismatch
	ReturnTypeMismatch
	ConstructorReturnsType
	NoMainClass
	MainClassMembersPresent
	NoMainMethod
	MainMethodIncorrectSignature
)

var typeErrorMessages = map[TypeErrorCode]string{
	UndefinedVariable:            "Undefined variable.",
	UndefinedMethod:              "Method does not exist.",
	UndefinedClass:               "Class does not exist.",
	UndefinedMember:              "Class member does not exist.",
	NotObject:                    "Variable is not an object.",
	ExpressionTypeMismatch:       "Expression types do not match.",
	ArgumentNumberMismatch:       "Method called with incorrect number of arguments.",
	ArgumentTypeMismatch:         "Method called with argument of incorrect type.",
	WhilePredicateTypeMismatch:   "Predicate of while loop is not boolean.",
	DoWhilePredicateTypeMismatch: "Predicate of do while loop is not boolean.",
	IfPredicateTypeMismatch:      "Predicate of if statement is not boolean.",
	AssignmentTypeMismatch:       "Left and right hand sides of assignment types mismatch.",
	ReturnTypeMismatch:           "Return statement type does not match declared return type.",
	ConstructorReturnsType:       "Class constructor returns a value.",
	NoMainClass:                  `The "Main" class was not found.`,
	MainClassMembersPresent:      `The "Main" class has members.`,
	NoMainMethod:                 `The "Main" class does not have a "main" method.`,
	MainMethodIncorrectSignature: `The "main" method of the "Main" class has an incorrect signature.`,
}

func (code TypeErrorCode) String() string {
	return typeErrorMessages[code]
}

// TypeError is the single error a type check run can end with.
type TypeError struct {
	Code TypeErrorCode
	// Where names the class and method being checked, for logging only.
	Where string
}

func (err *TypeError) Error() string {
	return err.Code.String()
}

func makeTypeError(code TypeErrorCode, where string) error {
	return &TypeError{Code: code, Where: where}
}
