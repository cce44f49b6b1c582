// Package phpexpr tokenizes embedded PHP expressions and rewrites bare
// variable references according to their syntactic context.
package phpexpr

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenWhitespace TokenType = iota // spaces, tabs, newlines
	TokenComment                     // // line, # line or /* block */ comment

	// Names and literals
	TokenVariable // $name
	TokenIdent    // identifier, keyword or namespaced name: foo, \Foo\Bar
	TokenNumber   // 12, 0x1F, 1.5e3
	TokenString   // '...', or "..." and `...` without interpolation, nowdoc

	// Interpolated strings
	TokenQuote           // " or ` delimiting an interpolated string
	TokenHeredocStart    // <<<LABEL or <<<"LABEL" up to the end of the line
	TokenHeredocEnd      // closing LABEL
	TokenEncapsed        // literal text inside an interpolated string
	TokenCurlyOpen       // { opening {$expr} inside a string
	TokenDollarOpenCurly // ${ opening ${expr} inside a string

	// Punctuation
	TokenLParen       // (
	TokenRParen       // )
	TokenLBracket     // [
	TokenRBracket     // ]
	TokenLBrace       // {
	TokenRBrace       // }
	TokenComma        // ,
	TokenSemicolon    // ;
	TokenObjectOp     // ->
	TokenNullsafeOp   // ?->
	TokenDoubleColon  // ::
	TokenDoubleArrow  // =>
	TokenEllipsis     // ...
	TokenAssign       // = += -= *= /= .= %= **= ??= &= |= ^= <<= >>=
	TokenIncDec       // ++ --
	TokenCoalesce     // ??
	TokenOperator     // any other operator
)

var tokenNames = map[TokenType]string{
	TokenWhitespace:      "Whitespace",
	TokenComment:         "Comment",
	TokenVariable:        "Variable",
	TokenIdent:           "Ident",
	TokenNumber:          "Number",
	TokenString:          "String",
	TokenQuote:           "Quote",
	TokenHeredocStart:    "HeredocStart",
	TokenHeredocEnd:      "HeredocEnd",
	TokenEncapsed:        "Encapsed",
	TokenCurlyOpen:       "CurlyOpen",
	TokenDollarOpenCurly: "DollarOpenCurly",
	TokenLParen:          "LParen",
	TokenRParen:          "RParen",
	TokenLBracket:        "LBracket",
	TokenRBracket:        "RBracket",
	TokenLBrace:          "LBrace",
	TokenRBrace:          "RBrace",
	TokenComma:           "Comma",
	TokenSemicolon:       "Semicolon",
	TokenObjectOp:        "ObjectOp",
	TokenNullsafeOp:      "NullsafeOp",
	TokenDoubleColon:     "DoubleColon",
	TokenDoubleArrow:     "DoubleArrow",
	TokenEllipsis:        "Ellipsis",
	TokenAssign:          "Assign",
	TokenIncDec:          "IncDec",
	TokenCoalesce:        "Coalesce",
	TokenOperator:        "Operator",
}

// String returns the name of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// ParseTokenType returns the token type with the given name.
func ParseTokenType(name string) (TokenType, bool) {
	for t, n := range tokenNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Token is a lexical token. Concatenating the Text of every token of an
// input reproduces the input exactly.
type Token struct {
	Type     TokenType
	Text     string
	Offset   int  // byte offset in the source
	InString bool // part of a string interpolation
}

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Text)
}

// significant reports whether the token carries syntax.
func (t Token) significant() bool {
	return t.Type != TokenWhitespace && t.Type != TokenComment
}

// SyntaxError reports input that cannot be tokenized or is unbalanced.
type SyntaxError struct {
	Source  string
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d in %q: %s", e.Offset, e.Source, e.Message)
}
