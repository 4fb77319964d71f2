package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
)

type Parser struct {
	currentTokenPos int
	currentTokens   []*Token
}

func (parser *Parser) reset() {
	parser.currentTokenPos, parser.currentTokens = 0, nil
}

// ParseFile parses the compilation unit stored at filePath.
func (parser *Parser) ParseFile(filePath string) (*ProgramAst, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.Parse(f)
}

func (parser *Parser) Parse(rd io.Reader) (*ProgramAst, error) {
	parser.reset()
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(rd)
	if err != nil {
		return nil, err
	}
	parser.currentTokens = tokens
	return parser.parseProgram()
}

func (parser *Parser) parseProgram() (*ProgramAst, error) {
	program := &ProgramAst{}
	classNames := map[string]bool{}
	for parser.hasRemainTokens() {
		classAst, err := parser.parseClassDeclaration()
		if err != nil {
			return nil, err
		}
		if classNames[classAst.ClassName] {
			return nil, makeDuplicateError("class", classAst.ClassName, classAst.line)
		}
		classNames[classAst.ClassName] = true
		program.Classes = append(program.Classes, classAst)
	}
	if len(program.Classes) == 0 {
		return nil, errors.New("unexpected token ends")
	}
	return program, nil
}

// ClassName [extends SuperClassName] {
//    declarations
//    methods
// }
func (parser *Parser) parseClassDeclaration() (*ClassAst, error) {
	classNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	classAst := &ClassAst{ClassName: classNameToken.content, line: classNameToken.line}
	_, match = parser.expectToken(ExtendsTP, false)
	if match {
		parser.stepForward()
		superClassToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(true)
		}
		classAst.SuperClassName = superClassToken.content
	}
	_, match = parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	memberNames := map[string]bool{}
	methodNames := map[string]bool{}
	for parser.hasRemainTokens() {
		_, match = parser.expectToken(RightBraceTP, false)
		if match {
			parser.stepForward()
			return classAst, nil
		}
		if parser.matchDeclaration() {
			// Members must be declared before any method.
			if len(classAst.Methods) > 0 {
				return nil, parser.makeError(true)
			}
			declaration, err := parser.parseDeclaration()
			if err != nil {
				return nil, err
			}
			for _, name := range declaration.Names {
				if memberNames[name] {
					return nil, makeDuplicateError("member", name, declaration.line)
				}
				memberNames[name] = true
			}
			classAst.Members = append(classAst.Members, declaration)
			continue
		}
		method, err := parser.parseMethodDeclaration()
		if err != nil {
			return nil, err
		}
		if methodNames[method.MethodName] {
			return nil, makeDuplicateError("method", method.MethodName, method.line)
		}
		methodNames[method.MethodName] = true
		classAst.Methods = append(classAst.Methods, method)
	}
	return nil, parser.makeError(false)
}

// A declaration starts with integer, boolean, or a class name followed by the variable name.
func (parser *Parser) matchDeclaration() bool {
	token, err := parser.getCurrentToken()
	if err != nil {
		return false
	}
	switch token.tp {
	case IntegerKeyWordTP, BooleanTP:
		return true
	case IdentifierTP:
		next := parser.peekToken(1)
		return next != nil && next.tp == IdentifierTP
	}
	return false
}

// Declaration like: [integer|boolean|className] varName [,varName]* ;
func (parser *Parser) parseDeclaration() (*DeclarationAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	tp, err := parser.parseType(false)
	if err != nil {
		return nil, err
	}
	declaration := &DeclarationAst{Type: tp, line: token.line}
	for {
		varNameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(true)
		}
		declaration.Names = append(declaration.Names, varNameToken.content)
		_, match = parser.expectToken(CommaTP, false)
		if !match {
			break
		}
		parser.stepForward()
	}
	_, match := parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	return declaration, nil
}

// parseType parses integer, boolean or a class name. none is accepted only when allowNone is set.
func (parser *Parser) parseType(allowNone bool) (CompoundType, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return CompoundType{}, err
	}
	var tp CompoundType
	switch token.tp {
	case IntegerKeyWordTP:
		tp = IntegerType
	case BooleanTP:
		tp = BooleanType
	case IdentifierTP:
		tp = ObjectType(token.content)
	case NoneTP:
		if !allowNone {
			return CompoundType{}, parser.makeError(true)
		}
		tp = NoneType
	default:
		return CompoundType{}, parser.makeError(true)
	}
	parser.stepForward()
	return tp, nil
}

// methodName(type param, ...) -> returnType { body }
func (parser *Parser) parseMethodDeclaration() (*MethodAst, error) {
	methodNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	method := &MethodAst{MethodName: methodNameToken.content, line: methodNameToken.line}
	_, match = parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	localNames := map[string]bool{}
	params, err := parser.parseParamList(localNames)
	if err != nil {
		return nil, err
	}
	method.Params = params
	match = parser.expectTokens(RightParentThesesTP, ArrowTP)
	if !match {
		return nil, parser.makeError(false)
	}
	method.ReturnType, err = parser.parseType(true)
	if err != nil {
		return nil, err
	}
	err = parser.parseMethodBody(method, localNames)
	if err != nil {
		return nil, err
	}
	return method, nil
}

func (parser *Parser) parseParamList(localNames map[string]bool) (params []*ParameterAst, err error) {
	_, match := parser.expectToken(RightParentThesesTP, false)
	if match {
		return nil, nil
	}
	for {
		tp, err := parser.parseType(false)
		if err != nil {
			return nil, err
		}
		paramNameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(true)
		}
		if localNames[paramNameToken.content] {
			return nil, makeDuplicateError("parameter", paramNameToken.content, paramNameToken.line)
		}
		localNames[paramNameToken.content] = true
		params = append(params, &ParameterAst{Type: tp, Name: paramNameToken.content})
		_, match = parser.expectToken(CommaTP, false)
		if !match {
			return params, nil
		}
		parser.stepForward()
	}
}

// {
//    declarations
//    statements
//    [return expression;]
// }
func (parser *Parser) parseMethodBody(method *MethodAst, localNames map[string]bool) error {
	_, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return parser.makeError(false)
	}
	for parser.matchDeclaration() {
		declaration, err := parser.parseDeclaration()
		if err != nil {
			return err
		}
		for _, name := range declaration.Names {
			if localNames[name] {
				return makeDuplicateError("variable", name, declaration.line)
			}
			localNames[name] = true
		}
		method.Locals = append(method.Locals, declaration)
	}
	statements, err := parser.parseStatements()
	if err != nil {
		return err
	}
	method.Statements = statements
	_, match = parser.expectToken(ReturnTP, false)
	if match {
		method.Return, err = parser.parseReturnStatement()
		if err != nil {
			return err
		}
	}
	_, match = parser.expectToken(RightBraceTP, true)
	if !match {
		return parser.makeError(true)
	}
	return nil
}

// parseStatements parses statements until a closing brace or a return.
func (parser *Parser) parseStatements() (stms []StatementAst, err error) {
	for parser.hasRemainTokens() {
		token, _ := parser.getCurrentToken()
		if token.tp == RightBraceTP || token.tp == ReturnTP {
			break
		}
		statement, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		stms = append(stms, statement)
	}
	return
}

func (parser *Parser) parseStatement() (StatementAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	switch token.tp {
	case IdentifierTP:
		return parser.parseAssignmentOrCallStatement()
	case IfTP:
		return parser.parseIfStatement()
	case WhileTP:
		return parser.parseWhileStatement()
	case DoTP:
		return parser.parseDoWhileStatement()
	case PrintTP:
		return parser.parsePrintStatement()
	default:
		return nil, parser.makeError(true)
	}
}

// a = expr; | a.b = expr; | m(args); | a.m(args);
func (parser *Parser) parseAssignmentOrCallStatement() (StatementAst, error) {
	var stm StatementAst
	if parser.matchMethodCall() {
		call, err := parser.parseMethodCall()
		if err != nil {
			return nil, err
		}
		stm = &CallStatementAst{Call: call}
	} else {
		varNameToken, _ := parser.expectToken(IdentifierTP, true)
		assignment := &AssignmentStatementAst{VarName: varNameToken.content}
		_, match := parser.expectToken(DotTP, false)
		if match {
			parser.stepForward()
			memberNameToken, match := parser.expectToken(IdentifierTP, true)
			if !match {
				return nil, parser.makeError(true)
			}
			assignment.MemberName = memberNameToken.content
		}
		_, match = parser.expectToken(AssignTP, true)
		if !match {
			return nil, parser.makeError(true)
		}
		value, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		assignment.Value = value
		stm = assignment
	}
	_, match := parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	return stm, nil
}

// matchMethodCall reports whether the tokens at the current position start a method call.
func (parser *Parser) matchMethodCall() bool {
	next := parser.peekToken(1)
	if next != nil && next.tp == DotTP {
		next = parser.peekToken(3)
	}
	return next != nil && next.tp == LeftParentThesesTP
}

// methodName(args) | objectName.methodName(args)
func (parser *Parser) parseMethodCall() (*MethodCallAst, error) {
	nameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	call := &MethodCallAst{MethodName: nameToken.content}
	_, match = parser.expectToken(DotTP, false)
	if match {
		parser.stepForward()
		methodNameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(true)
		}
		call.ObjectName, call.MethodName = nameToken.content, methodNameToken.content
	}
	args, err := parser.parseArguments()
	if err != nil {
		return nil, err
	}
	call.Args = args
	return call, nil
}

// ( [expression [, expression]*] )
func (parser *Parser) parseArguments() ([]ExpressionAst, error) {
	_, match := parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	_, match = parser.expectToken(RightParentThesesTP, false)
	if match {
		parser.stepForward()
		return nil, nil
	}
	args, err := parser.parseExpressions()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	return args, nil
}

// if expression { statements } [else { statements }]
func (parser *Parser) parseIfStatement() (StatementAst, error) {
	_, match := parser.expectToken(IfTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	ifTrueStatements, err := parser.parseBlock()
	if err != nil {
		return nil, err
	}
	stm := &IfElseStatementAst{Condition: condition, Then: ifTrueStatements}
	_, match = parser.expectToken(ElseTP, false)
	if !match {
		return stm, nil
	}
	parser.stepForward()
	stm.Else, err = parser.parseBlock()
	if err != nil {
		return nil, err
	}
	return stm, nil
}

// while expression { statements }
func (parser *Parser) parseWhileStatement() (StatementAst, error) {
	_, match := parser.expectToken(WhileTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	statements, err := parser.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStatementAst{Condition: condition, Body: statements}, nil
}

// do { statements } while (expression);
func (parser *Parser) parseDoWhileStatement() (StatementAst, error) {
	_, match := parser.expectToken(DoTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	statements, err := parser.parseBlock()
	if err != nil {
		return nil, err
	}
	match = parser.expectTokens(WhileTP, LeftParentThesesTP)
	if !match {
		return nil, parser.makeError(false)
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	match = parser.expectTokens(RightParentThesesTP, SemiColonTP)
	if !match {
		return nil, parser.makeError(false)
	}
	return &DoWhileStatementAst{Body: statements, Condition: condition}, nil
}

// print expression;
func (parser *Parser) parsePrintStatement() (StatementAst, error) {
	_, match := parser.expectToken(PrintTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	return &PrintStatementAst{Value: value}, nil
}

// return expression;
func (parser *Parser) parseReturnStatement() (*ReturnStatementAst, error) {
	_, match := parser.expectToken(ReturnTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	return &ReturnStatementAst{Value: value}, nil
}

// { statements }
func (parser *Parser) parseBlock() ([]StatementAst, error) {
	_, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	statements, err := parser.parseStatements()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightBraceTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	return statements, nil
}

func (parser *Parser) getCurrentToken() (*Token, error) {
	if !parser.hasRemainTokens() {
		return nil, parser.makeError(true)
	}
	return parser.currentTokens[parser.currentTokenPos], nil
}

// peekToken returns the token `n` positions after the current one, nil when there is none.
func (parser *Parser) peekToken(n int) *Token {
	pos := parser.currentTokenPos + n
	if pos >= len(parser.currentTokens) {
		return nil
	}
	return parser.currentTokens[pos]
}

func (parser *Parser) stepForward() {
	parser.currentTokenPos++
}

func (parser *Parser) hasRemainTokens() bool {
	return parser.currentTokenPos < len(parser.currentTokens)
}

func (parser *Parser) expectTokens(expectedTokenTPs ...TokenType) bool {
	for _, tokenType := range expectedTokenTPs {
		_, ok := parser.expectToken(tokenType, true)
		if !ok {
			return false
		}
	}
	return true
}

func (parser *Parser) expectToken(expectedTokenTp TokenType, walk bool) (*Token, bool) {
	if parser.currentTokenPos >= len(parser.currentTokens) || parser.currentTokens[parser.currentTokenPos].tp !=
		expectedTokenTp {
		return nil, false
	}
	token := parser.currentTokens[parser.currentTokenPos]
	if walk {
		parser.currentTokenPos++
	}
	return token, true
}

func (parser *Parser) makeError(useCurrentPos bool) error {
	currentPos := parser.currentTokenPos
	if !useCurrentPos {
		currentPos--
	}
	if currentPos < 0 || currentPos >= len(parser.currentTokens) {
		return errors.New("unexpected token ends")
	}
	currentToken := parser.currentTokens[currentPos]
	return errors.New(fmt.Sprintf("syntax error near %s at line %d", currentToken.content,
		currentToken.line))
}

func makeDuplicateError(kind string, name string, line int) error {
	return errors.New(fmt.Sprintf("duplicate %s %s at line %d", kind, name, line))
}
