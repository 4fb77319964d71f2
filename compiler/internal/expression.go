package internal

import (
	"strconv"
)

// OpAst is a binary operator as seen by the parser. A higher priority binds tighter.
type OpAst struct {
	Op       OpCode
	priority int
	Name     string
}

var (
	OrOpAst           = OpAst{Op: OrOpCode, priority: 1, Name: "or"}
	AndOpAst          = OpAst{Op: AndOpCode, priority: 2, Name: "and"}
	EqualsOpAst       = OpAst{Op: EqualsOpCode, priority: 3, Name: "equals"}
	GreaterOpAst      = OpAst{Op: GreaterOpCode, priority: 4, Name: ">"}
	GreaterEqualOpAst = OpAst{Op: GreaterEqualOpCode, priority: 4, Name: ">="}
	AddOpAst          = OpAst{Op: PlusOpCode, priority: 5, Name: "+"}
	MinusOpAst        = OpAst{Op: MinusOpCode, priority: 5, Name: "-"}
	MultipleOpAst     = OpAst{Op: TimesOpCode, priority: 6, Name: "*"}
	DivideOpAst       = OpAst{Op: DivideOpCode, priority: 6, Name: "/"}
)

var binaryOpTokenMap = map[TokenType]*OpAst{
	OrTP:           &OrOpAst,
	AndTP:          &AndOpAst,
	EqualsTP:       &EqualsOpAst,
	GreaterTP:      &GreaterOpAst,
	GreaterEqualTP: &GreaterEqualOpAst,
	AddTP:          &AddOpAst,
	MinusTP:        &MinusOpAst,
	MultiplyTP:     &MultipleOpAst,
	DivideTP:       &DivideOpAst,
}

// buildExpressionsTree folds `exprTerms[0] ops[0] exprTerms[1] ops[1] ...` into a tree using
// precedence climbing. Operators of equal priority associate to the left.
func buildExpressionsTree(ops []*OpAst, exprTerms []ExpressionAst) ExpressionAst {
	if len(ops) == 0 {
		return exprTerms[0]
	}
	ret, _ := buildExpressionsTree0(ops, exprTerms, 0, 0)
	return ret
}

func buildExpressionsTree0(ops []*OpAst, exprTerms []ExpressionAst, loc int, minPriority int) (ExpressionAst, int) {
	lhs := exprTerms[loc]
	i := loc
	for i < len(ops) && ops[i].priority >= minPriority {
		op := ops[i]
		rhs := exprTerms[i+1]
		j := i + 1
		for j < len(ops) && ops[j].priority > op.priority {
			rhs, j = buildExpressionsTree0(ops, exprTerms, j, ops[j].priority)
		}
		lhs = &BinaryExpressionAst{Op: op.Op, Left: lhs, Right: rhs}
		exprTerms[j] = lhs
		i = j
	}
	return lhs, i
}

func (parser *Parser) parseExpressions() (exprs []ExpressionAst, err error) {
	for parser.hasRemainTokens() {
		expression, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expression)
		_, match := parser.expectToken(CommaTP, false)
		if !match {
			break
		}
		parser.stepForward()
	}
	return
}

func (parser *Parser) parseExpression() (ExpressionAst, error) {
	leftExprTerm, err := parser.parseExpressionTerm()
	if err != nil {
		return nil, err
	}
	var ops []*OpAst
	exprTerms := []ExpressionAst{leftExprTerm}
	for parser.matchOp() {
		op, err := parser.parseOpAst()
		if err != nil {
			return nil, err
		}
		exprTerm, err := parser.parseExpressionTerm()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		exprTerms = append(exprTerms, exprTerm)
	}
	return buildExpressionsTree(ops, exprTerms), nil
}

func (parser *Parser) parseExpressionTerm() (ExpressionAst, error) {
	if !parser.hasRemainTokens() {
		return nil, parser.makeError(false)
	}
	token, _ := parser.getCurrentToken()
	switch token.tp {
	case IntegerTP, TrueTP, FalseTP:
		return parser.parseConstantExpressionTerm()
	// When it's identifier, it can be a method call, a member access or a variable.
	case IdentifierTP:
		return parser.parseCallOrVariableExpressionTerm()
	case NewTP:
		return parser.parseNewExpressionTerm()
	case LeftParentThesesTP:
		return parser.parseSubExpressionTerm()
	case MinusTP, NotTP:
		return parser.parseNegationExpressionTerm()
	default:
		return nil, parser.makeError(true)
	}
}

func (parser *Parser) parseConstantExpressionTerm() (ExpressionAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	var term ExpressionAst
	switch token.tp {
	case IntegerTP:
		value, err := strconv.ParseInt(token.content, 10, 32)
		if err != nil {
			return nil, parser.makeError(true)
		}
		term = &IntegerLiteralAst{Value: int32(value)}
	case TrueTP:
		term = &BooleanLiteralAst{Value: true}
	case FalseTP:
		term = &BooleanLiteralAst{Value: false}
	default:
		return nil, parser.makeError(true)
	}
	parser.stepForward()
	return term, nil
}

// Could be varName|varName.memberName|methodName(args)|varName.methodName(args).
func (parser *Parser) parseCallOrVariableExpressionTerm() (ExpressionAst, error) {
	if parser.matchMethodCall() {
		call, err := parser.parseMethodCall()
		if err != nil {
			return nil, err
		}
		return call, nil
	}
	varNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	_, match = parser.expectToken(DotTP, false)
	if !match {
		return &VariableAst{Name: varNameToken.content}, nil
	}
	parser.stepForward()
	memberNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	return &MemberAccessAst{VarName: varNameToken.content, MemberName: memberNameToken.content}, nil
}

// new ClassName | new ClassName(args)
func (parser *Parser) parseNewExpressionTerm() (ExpressionAst, error) {
	_, match := parser.expectToken(NewTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	classNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true)
	}
	expr := &NewAst{ClassName: classNameToken.content}
	_, match = parser.expectToken(LeftParentThesesTP, false)
	if !match {
		return expr, nil
	}
	args, err := parser.parseArguments()
	if err != nil {
		return nil, err
	}
	expr.Args = args
	return expr, nil
}

func (parser *Parser) parseSubExpressionTerm() (ExpressionAst, error) {
	_, match := parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	return expr, nil
}

// Note: 5 + -2 is accepted, the unary minus binds tighter than any binary operator.
func (parser *Parser) parseNegationExpressionTerm() (ExpressionAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	op := NegationOpCode
	switch token.tp {
	case NotTP:
		op = NotOpCode
	case MinusTP:
		op = NegationOpCode
	default:
		return nil, parser.makeError(true)
	}
	parser.stepForward()
	operand, err := parser.parseExpressionTerm()
	if err != nil {
		return nil, err
	}
	return &UnaryExpressionAst{Op: op, Operand: operand}, nil
}

func (parser *Parser) parseOpAst() (*OpAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	op, exist := binaryOpTokenMap[token.tp]
	if !exist {
		return nil, parser.makeError(true)
	}
	parser.stepForward()
	return op, nil
}

func (parser *Parser) matchOp() bool {
	if !parser.hasRemainTokens() {
		return false
	}
	token, _ := parser.getCurrentToken()
	_, exist := binaryOpTokenMap[token.tp]
	return exist
}
