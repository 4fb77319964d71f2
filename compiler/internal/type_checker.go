package internal

import "fmt"

const (
	MainClassName  = "Main"
	MainMethodName = "main"
)

// typeChecker holds the state of one type check run. Offsets are reset per class
// and per method.
type typeChecker struct {
	classTable *ClassTable

	currentClassName  string
	currentClass      *ClassInfo
	currentMethodName string
	currentMethod     *MethodInfo
}

// TypeCheck builds the class table of program, annotates every expression with
// its type and every call with the class it binds to. The first rule
// violation stops the check and is returned as a *TypeError.
func TypeCheck(program *ProgramAst) (*ClassTable, error) {
	checker := &typeChecker{classTable: NewClassTable()}
	err := checker.checkProgram(program)
	if err != nil {
		return nil, err
	}
	return checker.classTable, nil
}

func (checker *typeChecker) checkProgram(program *ProgramAst) error {
	for _, classAst := range program.Classes {
		err := checker.checkClass(classAst)
		if err != nil {
			return err
		}
	}
	if !checker.classTable.Contains(MainClassName) {
		return checker.makeError(NoMainClass)
	}
	return nil
}

func (checker *typeChecker) checkClass(classAst *ClassAst) error {
	checker.currentClassName, checker.currentMethodName, checker.currentMethod = classAst.ClassName, "", nil
	if classAst.SuperClassName != "" && !checker.classTable.Contains(classAst.SuperClassName) {
		return checker.makeError(UndefinedClass)
	}
	if classAst.ClassName == MainClassName {
		if len(classAst.Members) > 0 {
			return checker.makeError(MainClassMembersPresent)
		}
		if !hasMethod(classAst, MainMethodName) {
			return checker.makeError(NoMainMethod)
		}
	}
	classInfo := &ClassInfo{
		SuperClassName: classAst.SuperClassName,
		Members:        NewVariableTable(),
		Methods:        NewMethodTable(),
	}
	// The class is visible to its own members and methods.
	checker.classTable.Insert(classAst.ClassName, classInfo)
	checker.currentClass = classInfo

	memberOffset := 0
	for _, declaration := range classAst.Members {
		err := checker.checkTypeExists(declaration.Type)
		if err != nil {
			return err
		}
		for _, name := range declaration.Names {
			classInfo.Members.Insert(name, &VariableInfo{Type: declaration.Type, Offset: memberOffset, Size: WordSize})
			memberOffset += WordSize
		}
	}
	classInfo.MembersSize = memberOffset

	// All signatures go in before any body so that methods can call each other
	// regardless of declaration order.
	for _, method := range classAst.Methods {
		checker.declareMethod(method)
	}
	for _, method := range classAst.Methods {
		err := checker.checkMethod(method)
		if err != nil {
			return err
		}
	}
	return nil
}

func hasMethod(classAst *ClassAst, methodName string) bool {
	for _, method := range classAst.Methods {
		if method.MethodName == methodName {
			return true
		}
	}
	return false
}

func (checker *typeChecker) declareMethod(method *MethodAst) {
	checker.currentMethodName = method.MethodName
	info := &MethodInfo{
		ReturnType: method.ReturnType,
		Locals:     NewVariableTable(),
	}
	// Signatures may name classes declared later in the program. Such a class is
	// only checked where it is used.
	parameterOffset := FirstParameterOffset
	for _, param := range method.Params {
		info.Locals.Insert(param.Name, &VariableInfo{Type: param.Type, Offset: parameterOffset, Size: WordSize})
		info.ParameterTypes = append(info.ParameterTypes, param.Type)
		parameterOffset += WordSize
	}
	checker.currentClass.Methods.Insert(method.MethodName, info)
	method.methodInfo = info
}

func (checker *typeChecker) checkMethod(method *MethodAst) error {
	checker.currentMethodName, checker.currentMethod = method.MethodName, method.methodInfo
	info := method.methodInfo
	localOffset := FirstLocalOffset
	for _, declaration := range method.Locals {
		err := checker.checkTypeExists(declaration.Type)
		if err != nil {
			return err
		}
		for _, name := range declaration.Names {
			info.Locals.Insert(name, &VariableInfo{Type: declaration.Type, Offset: localOffset, Size: WordSize})
			localOffset -= WordSize
		}
	}
	info.LocalsSize = FirstLocalOffset - localOffset

	err := checker.checkStatements(method.Statements)
	if err != nil {
		return err
	}
	bodyType := NoneType
	if method.Return != nil {
		err = checker.checkExpression(method.Return.Value)
		if err != nil {
			return err
		}
		method.Return.TP = method.Return.Value.Type()
		bodyType = method.Return.TP
	}
	if !bodyType.Equal(method.ReturnType) {
		return checker.makeError(ReturnTypeMismatch)
	}
	if method.MethodName == checker.currentClassName && !method.ReturnType.Equal(NoneType) {
		return checker.makeError(ConstructorReturnsType)
	}
	if checker.currentClassName == MainClassName && method.MethodName == MainMethodName &&
		(len(method.Params) > 0 || !method.ReturnType.Equal(NoneType)) {
		return checker.makeError(MainMethodIncorrectSignature)
	}
	return nil
}

func (checker *typeChecker) checkTypeExists(tp CompoundType) error {
	if tp.IsObject() && !checker.classTable.Contains(tp.ObjectClassName) {
		return checker.makeError(UndefinedClass)
	}
	return nil
}

func (checker *typeChecker) checkStatements(statements []StatementAst) error {
	for _, statement := range statements {
		err := checker.checkStatement(statement)
		if err != nil {
			return err
		}
	}
	return nil
}

func (checker *typeChecker) checkStatement(statement StatementAst) error {
	switch stm := statement.(type) {
	case *AssignmentStatementAst:
		return checker.checkAssignmentStatement(stm)
	case *CallStatementAst:
		return checker.checkMethodCall(stm.Call)
	case *IfElseStatementAst:
		return checker.checkIfElseStatement(stm)
	case *WhileStatementAst:
		return checker.checkWhileStatement(stm)
	case *DoWhileStatementAst:
		return checker.checkDoWhileStatement(stm)
	case *PrintStatementAst:
		return checker.checkExpression(stm.Value)
	default:
		panic(fmt.Sprintf("type checker: unknown statement %T", statement))
	}
}

func (checker *typeChecker) checkAssignmentStatement(stm *AssignmentStatementAst) error {
	err := checker.checkExpression(stm.Value)
	if err != nil {
		return err
	}
	variable, err := checker.lookUpVariable(stm.VarName)
	if err != nil {
		return err
	}
	tp := variable.Type
	if stm.MemberName != "" {
		member, err := checker.lookUpMember(variable.Type, stm.MemberName)
		if err != nil {
			return err
		}
		tp = member.Type
	}
	if !stm.Value.Type().Equal(tp) {
		return checker.makeError(AssignmentTypeMismatch)
	}
	return nil
}

func (checker *typeChecker) checkIfElseStatement(stm *IfElseStatementAst) error {
	err := checker.checkExpression(stm.Condition)
	if err != nil {
		return err
	}
	err = checker.checkStatements(stm.Then)
	if err != nil {
		return err
	}
	err = checker.checkStatements(stm.Else)
	if err != nil {
		return err
	}
	if !stm.Condition.Type().Equal(BooleanType) {
		return checker.makeError(IfPredicateTypeMismatch)
	}
	return nil
}

func (checker *typeChecker) checkWhileStatement(stm *WhileStatementAst) error {
	err := checker.checkExpression(stm.Condition)
	if err != nil {
		return err
	}
	err = checker.checkStatements(stm.Body)
	if err != nil {
		return err
	}
	if !stm.Condition.Type().Equal(BooleanType) {
		return checker.makeError(WhilePredicateTypeMismatch)
	}
	return nil
}

func (checker *typeChecker) checkDoWhileStatement(stm *DoWhileStatementAst) error {
	err := checker.checkStatements(stm.Body)
	if err != nil {
		return err
	}
	err = checker.checkExpression(stm.Condition)
	if err != nil {
		return err
	}
	if !stm.Condition.Type().Equal(BooleanType) {
		return checker.makeError(DoWhilePredicateTypeMismatch)
	}
	return nil
}

func (checker *typeChecker) checkExpressions(exprs []ExpressionAst) error {
	for _, expr := range exprs {
		err := checker.checkExpression(expr)
		if err != nil {
			return err
		}
	}
	return nil
}

func (checker *typeChecker) checkExpression(expression ExpressionAst) error {
	switch expr := expression.(type) {
	case *IntegerLiteralAst:
		expr.setType(IntegerType)
	case *BooleanLiteralAst:
		expr.setType(BooleanType)
	case *VariableAst:
		variable, err := checker.lookUpVariable(expr.Name)
		if err != nil {
			return err
		}
		expr.setType(variable.Type)
	case *MemberAccessAst:
		variable, err := checker.lookUpVariable(expr.VarName)
		if err != nil {
			return err
		}
		member, err := checker.lookUpMember(variable.Type, expr.MemberName)
		if err != nil {
			return err
		}
		expr.setType(member.Type)
	case *BinaryExpressionAst:
		return checker.checkBinaryExpression(expr)
	case *UnaryExpressionAst:
		return checker.checkUnaryExpression(expr)
	case *MethodCallAst:
		return checker.checkMethodCall(expr)
	case *NewAst:
		return checker.checkNew(expr)
	default:
		panic(fmt.Sprintf("type checker: unknown expression %T", expression))
	}
	return nil
}

func (checker *typeChecker) checkBinaryExpression(expr *BinaryExpressionAst) error {
	err := checker.checkExpression(expr.Left)
	if err != nil {
		return err
	}
	err = checker.checkExpression(expr.Right)
	if err != nil {
		return err
	}
	left, right := expr.Left.Type(), expr.Right.Type()
	switch expr.Op {
	case PlusOpCode, MinusOpCode, TimesOpCode, DivideOpCode:
		if !left.Equal(IntegerType) || !right.Equal(IntegerType) {
			return checker.makeError(ExpressionTypeMismatch)
		}
		expr.setType(IntegerType)
	case GreaterOpCode, GreaterEqualOpCode:
		if !left.Equal(IntegerType) || !right.Equal(IntegerType) {
			return checker.makeError(ExpressionTypeMismatch)
		}
		expr.setType(BooleanType)
	case EqualsOpCode:
		// Objects and None are not comparable.
		if left.BaseType != right.BaseType ||
			(left.BaseType != IntegerBaseType && left.BaseType != BooleanBaseType) {
			return checker.makeError(ExpressionTypeMismatch)
		}
		expr.setType(BooleanType)
	case AndOpCode, OrOpCode:
		if !left.Equal(BooleanType) || !right.Equal(BooleanType) {
			return checker.makeError(ExpressionTypeMismatch)
		}
		expr.setType(BooleanType)
	default:
		panic(fmt.Sprintf("type checker: unknown binary operator %s", expr.Op))
	}
	return nil
}

func (checker *typeChecker) checkUnaryExpression(expr *UnaryExpressionAst) error {
	err := checker.checkExpression(expr.Operand)
	if err != nil {
		return err
	}
	operand := expr.Operand.Type()
	switch expr.Op {
	case NegationOpCode:
		if !operand.Equal(IntegerType) {
			return checker.makeError(ExpressionTypeMismatch)
		}
		expr.setType(IntegerType)
	case NotOpCode:
		if !operand.Equal(BooleanType) {
			return checker.makeError(ExpressionTypeMismatch)
		}
		expr.setType(BooleanType)
	default:
		panic(fmt.Sprintf("type checker: unknown unary operator %s", expr.Op))
	}
	return nil
}

func (checker *typeChecker) checkMethodCall(call *MethodCallAst) error {
	err := checker.checkExpressions(call.Args)
	if err != nil {
		return err
	}
	className := checker.currentClassName
	if call.ObjectName != "" {
		variable, err := checker.lookUpVariable(call.ObjectName)
		if err != nil {
			return err
		}
		if !variable.Type.IsObject() {
			return checker.makeError(NotObject)
		}
		className = variable.Type.ObjectClassName
	}
	declaringClass, method, ok := checker.classTable.ResolveMethod(className, call.MethodName)
	if !ok {
		return checker.makeError(UndefinedMethod)
	}
	err = checker.checkArguments(call.Args, method.ParameterTypes)
	if err != nil {
		return err
	}
	call.DeclaringClass = declaringClass
	call.setType(method.ReturnType)
	return nil
}

func (checker *typeChecker) checkNew(expr *NewAst) error {
	err := checker.checkExpressions(expr.Args)
	if err != nil {
		return err
	}
	if !checker.classTable.Contains(expr.ClassName) {
		return checker.makeError(UndefinedClass)
	}
	constructor, ok := checker.classTable.Constructor(expr.ClassName)
	if !ok {
		return checker.makeError(UndefinedMethod)
	}
	err = checker.checkArguments(expr.Args, constructor.ParameterTypes)
	if err != nil {
		return err
	}
	expr.setType(ObjectType(expr.ClassName))
	return nil
}

func (checker *typeChecker) checkArguments(args []ExpressionAst, parameterTypes []CompoundType) error {
	if len(args) != len(parameterTypes) {
		return checker.makeError(ArgumentNumberMismatch)
	}
	for i, arg := range args {
		if !arg.Type().Equal(parameterTypes[i]) {
			return checker.makeError(ArgumentTypeMismatch)
		}
	}
	return nil
}

func (checker *typeChecker) lookUpVariable(name string) (*VariableInfo, error) {
	location, ok := checker.classTable.ResolveVariable(checker.currentClassName, checker.currentMethod, name)
	if !ok {
		return nil, checker.makeError(UndefinedVariable)
	}
	return location.Info, nil
}

func (checker *typeChecker) lookUpMember(objectType CompoundType, memberName string) (*VariableInfo, error) {
	if !objectType.IsObject() {
		return nil, checker.makeError(NotObject)
	}
	member, _, ok := checker.classTable.ResolveMember(objectType.ObjectClassName, memberName)
	if !ok {
		return nil, checker.makeError(UndefinedMember)
	}
	return member, nil
}

func (checker *typeChecker) makeError(code TypeErrorCode) error {
	where := checker.currentClassName
	if checker.currentMethodName != "" {
		where += "." + checker.currentMethodName
	}
	return makeTypeError(code, where)
}
