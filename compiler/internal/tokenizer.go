package internal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/GrantClark1999/CS160/util"
)

// The language has those elements:
// * KeyWord: extends, new, if, else, do, while, print, return, true, false, or, and, not, equals,
// 			boolean, integer, none.
// * Symbol: {, }, (, ), ,, ., ;, =, +, -, *, /, >, >=, ->.
// * Constant: integer.
// * Identifier: letters, digits, underscore, not starting with a digit.
// * Comment: /**/, //.

type TokenType int

const (
	ExtendsTP                  TokenType = iota // extends
	NewTP                                       // new
	IfTP                                        // if
	ElseTP                                      // else
	DoTP                                        // do
	WhileTP                                     // while
	PrintTP                                     // print
	ReturnTP                                    // return
	TrueTP                                      // true
	FalseTP                                     // false
	OrTP                                        // or
	AndTP                                       // and
	NotTP                                       // not
	EqualsTP                                    // equals
	BooleanTP                                   // boolean
	IntegerKeyWordTP                            // integer
	NoneTP                                      // none
	LeftBraceTP                                 // {
	RightBraceTP                                // }
	LeftParentThesesTP                          // (
	RightParentThesesTP                         // )
	CommaTP                                     // ,
	DotTP                                       // .
	SemiColonTP                                 // ;
	AssignTP                                    // =
	AddTP                                       // +
	MinusTP                                     // -
	MultiplyTP                                  // *
	DivideTP                                    // /
	GreaterTP                                   // >
	GreaterEqualTP                              // >=
	ArrowTP                                     // ->
	IntegerTP                                   // 1010
	IdentifierTP                                // varA
	MultipleLineOpenCommentTP                   // /*
	SingleLineCommentTP                         // //
)

// keyWordTokenTPMap is the mapping from identifier to the corresponding TokenTP.
var keyWordTokenTPMap = map[string]TokenType{
	"extends": ExtendsTP,
	"new":     NewTP,
	"if":      IfTP,
	"else":    ElseTP,
	"do":      DoTP,
	"while":   WhileTP,
	"print":   PrintTP,
	"return":  ReturnTP,
	"true":    TrueTP,
	"false":   FalseTP,
	"or":      OrTP,
	"and":     AndTP,
	"not":     NotTP,
	"equals":  EqualsTP,
	"boolean": BooleanTP,
	"integer": IntegerKeyWordTP,
	"none":    NoneTP,
}

// simpleSymbolTokenTPMap holds the one character symbols which never start a longer symbol.
var simpleSymbolTokenTPMap = map[string]TokenType{
	"{": LeftBraceTP,
	"}": RightBraceTP,
	"(": LeftParentThesesTP,
	")": RightParentThesesTP,
	",": CommaTP,
	".": DotTP,
	";": SemiColonTP,
	"=": AssignTP,
	"+": AddTP,
	"*": MultiplyTP,
}

type Token struct {
	content  string
	line     int
	startPos int
	endPos   int
	tp       TokenType
}

func (t *Token) String() string {
	return fmt.Sprintf("%s@%d", t.content, t.line)
}

type Tokenizer struct {
	currentPos  int
	currentLine int
	tokens      []*Token
}

// getNextToken returns the next token from line, nil when the line is exhausted.
func (tokenizer *Tokenizer) getNextToken(line []byte) (*Token, error) {
	tokenizer.trimSpace(line)
	if !tokenizer.hasRemainCharacters(line) {
		return nil, nil
	}
	switch line[tokenizer.currentPos] {
	case '{', '}', '(', ')', ',', '.', ';', '=', '+', '*':
		return tokenizer.tokenSimpleSymbol(line)
	case '-':
		return tokenizer.tokenTwoCharSymbol(line, '>', MinusTP, ArrowTP)
	case '>':
		return tokenizer.tokenTwoCharSymbol(line, '=', GreaterTP, GreaterEqualTP)
	case '/':
		return tokenizer.tokenCommentOrDivide(line)
	case '1', '2', '3', '4', '5', '6', '7', '8', '9', '0':
		return tokenizer.tokenNumber(line)
	default:
		return tokenizer.toKeywordOrIdentifier(line)
	}
}

// trimSpace steps forward through line and skips all continuous space.
func (tokenizer *Tokenizer) trimSpace(line []byte) {
	for tokenizer.currentPos < len(line) && unicode.IsSpace(rune(line[tokenizer.currentPos])) {
		tokenizer.currentPos++
	}
}

func (tokenizer *Tokenizer) hasRemainCharacters(line []byte) bool {
	return tokenizer.currentPos < len(line)
}

func (tokenizer *Tokenizer) makeToken(content string, tp TokenType, startPos int) *Token {
	return &Token{
		content:  content,
		line:     tokenizer.currentLine,
		tp:       tp,
		startPos: startPos,
		endPos:   startPos + len(content),
	}
}

func (tokenizer *Tokenizer) tokenSimpleSymbol(line []byte) (*Token, error) {
	symbol := string(line[tokenizer.currentPos])
	token := tokenizer.makeToken(symbol, simpleSymbolTokenTPMap[symbol], tokenizer.currentPos)
	tokenizer.currentPos++
	return token, nil
}

// tokenTwoCharSymbol returns `longTP` when the current character is followed by `second`, like -> or >=.
func (tokenizer *Tokenizer) tokenTwoCharSymbol(line []byte, second byte, shortTP, longTP TokenType) (*Token, error) {
	startPos := tokenizer.currentPos
	if startPos+1 < len(line) && line[startPos+1] == second {
		tokenizer.currentPos += 2
		return tokenizer.makeToken(string(line[startPos:startPos+2]), longTP, startPos), nil
	}
	tokenizer.currentPos++
	return tokenizer.makeToken(string(line[startPos]), shortTP, startPos), nil
}

func (tokenizer *Tokenizer) tokenCommentOrDivide(line []byte) (*Token, error) {
	// If / is not followed by * or /, then it's not a comment.
	if len(line[tokenizer.currentPos:]) == 1 || (line[tokenizer.currentPos+1] != '/' && line[tokenizer.currentPos+1] != '*') {
		token := tokenizer.makeToken("/", DivideTP, tokenizer.currentPos)
		tokenizer.currentPos++
		return token, nil
	}
	startPos := tokenizer.currentPos
	if line[tokenizer.currentPos+1] == '/' {
		tokenizer.currentPos = len(line)
		return tokenizer.makeToken(string(line[startPos:]), SingleLineCommentTP, startPos), nil
	}
	tokenizer.currentPos += 2
	return tokenizer.makeToken("/*", MultipleLineOpenCommentTP, startPos), nil
}

func (tokenizer *Tokenizer) tokenNumber(line []byte) (*Token, error) {
	startPos := tokenizer.currentPos
	tokenizer.currentPos++
	for tokenizer.currentPos < len(line) && util.IsNumber(line[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	// 12ab is caught here instead of in the parser.
	if tokenizer.currentPos < len(line) && util.IsLetterOrUnderscore(line[tokenizer.currentPos]) {
		return nil, tokenizer.makeError(string(line[startPos:tokenizer.currentPos+1]), tokenizer.currentLine,
			"incorrect identifier format")
	}
	return tokenizer.makeToken(string(line[startPos:tokenizer.currentPos]), IntegerTP, startPos), nil
}

func (tokenizer *Tokenizer) toKeywordOrIdentifier(line []byte) (*Token, error) {
	startPos := tokenizer.currentPos
	for tokenizer.currentPos < len(line) && util.IsLetterOrUnderscoreOrNumber(line[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	if startPos == tokenizer.currentPos {
		return nil, tokenizer.makeError(string(line[startPos]), tokenizer.currentLine, "unexpected character")
	}
	content := string(line[startPos:tokenizer.currentPos])
	keyWordTP, isKeyWord := keyWordTokenTPMap[content]
	if isKeyWord {
		return tokenizer.makeToken(content, keyWordTP, startPos), nil
	}
	return tokenizer.makeToken(content, IdentifierTP, startPos), nil
}

func (tokenizer *Tokenizer) makeError(near string, line int, msg string) error {
	return errors.New(fmt.Sprintf("tokenizer error near %s at line %d, msg: %s", near, line, msg))
}

// Tokenize accepts a source `rd` and tokenizes its content.
func (tokenizer *Tokenizer) Tokenize(rd io.Reader) ([]*Token, error) {
	bfReader := bufio.NewReader(rd)
	tokenizer.currentLine = 0
	for {
		tokenizer.currentLine++
		tokenizer.currentPos = 0
		line, readErr := bfReader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, readErr
		}
		for tokenizer.currentPos < len(line) {
			match, err := tokenizer.parseLine(line)
			if err != nil {
				return nil, err
			}
			if match {
				continue
			}
			line, readErr = tokenizer.lookForwardForMatchingMultipleLineComment(bfReader, line)
			if readErr != nil && readErr != io.EOF {
				return nil, readErr
			}
		}
		if readErr == io.EOF {
			return tokenizer.tokens, nil
		}
	}
}

// parseLine appends the tokens of line. It returns false when line ends inside an open /* comment.
func (tokenizer *Tokenizer) parseLine(line []byte) (bool, error) {
	for {
		token, err := tokenizer.getNextToken(line)
		if err != nil {
			return true, err
		}
		if token == nil {
			return true, nil
		}
		switch token.tp {
		case MultipleLineOpenCommentTP:
			if !tokenizer.lookForwardForMatchingMultipleLineCommentAtCurrentLine(line) {
				return false, nil
			}
		case SingleLineCommentTP:
			return true, nil
		default:
			tokenizer.tokens = append(tokenizer.tokens, token)
		}
	}
}

// lookForwardForMatchingMultipleLineComment reads lines until the open comment is closed and
// returns the line holding the closing */, positioned right after it. The returned error is
// io.EOF when that line is the last one.
func (tokenizer *Tokenizer) lookForwardForMatchingMultipleLineComment(bfReader *bufio.Reader, line []byte) ([]byte, error) {
	startLine := tokenizer.currentLine
	startContent := string(line)
	for {
		line, err := bfReader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		tokenizer.currentLine++
		tokenizer.currentPos = 0
		if tokenizer.lookForwardForMatchingMultipleLineCommentAtCurrentLine(line) {
			return line, err
		}
		if err == io.EOF {
			return nil, tokenizer.makeError(startContent, startLine, "incorrect comment format")
		}
	}
}

func (tokenizer *Tokenizer) lookForwardForMatchingMultipleLineCommentAtCurrentLine(line []byte) bool {
	for tokenizer.currentPos < len(line) {
		if tokenizer.currentPos < len(line)-1 && line[tokenizer.currentPos] == '*' &&
			line[tokenizer.currentPos+1] == '/' {
			tokenizer.currentPos += 2
			return true
		}
		tokenizer.currentPos++
	}
	return false
}

func (tokenizer *Tokenizer) Reset() {
	tokenizer.currentPos, tokenizer.currentLine = 0, 0
	tokenizer.tokens = nil
}
