package phpexpr

import (
	"fmt"
	"strings"
)

// Lexer tokenizes a PHP expression or statement fragment.
type Lexer struct {
	source   string
	pos      int // current byte offset
	inString int // interpolation nesting depth
	tokens   []Token
}

// NewLexer creates a Lexer for the given source.
func NewLexer(source string) *Lexer {
	return &Lexer{source: source}
}

// Tokenize splits src into tokens. It fails with *SyntaxError on
// unterminated strings, comments and interpolations.
func Tokenize(src string) ([]Token, error) {
	return NewLexer(src).Tokens()
}

// Tokens lexes the whole source.
func (l *Lexer) Tokens() ([]Token, error) {
	if l.tokens != nil {
		return l.tokens, nil
	}
	l.tokens = make([]Token, 0, len(l.source)/2+1)
	if err := l.lexCode(false); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *Lexer) emit(t TokenType, start int) {
	l.tokens = append(l.tokens, Token{
		Type:     t,
		Text:     l.source[start:l.pos],
		Offset:   start,
		InString: l.inString > 0,
	})
}

func (l *Lexer) errorf(offset int, format string, args ...any) error {
	return &SyntaxError{Source: l.source, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// peek returns the byte n positions ahead, or 0 past the end.
func (l *Lexer) peek(n int) byte {
	if l.pos+n < len(l.source) {
		return l.source[l.pos+n]
	}
	return 0
}

// lexCode lexes code until the end of input or, when nested inside a string
// interpolation, until the '}' closing it.
func (l *Lexer) lexCode(nested bool) error {
	open := l.pos
	depth := 0
	for l.pos < len(l.source) {
		start := l.pos
		c := l.source[l.pos]
		switch {
		case isSpace(c):
			for l.pos < len(l.source) && isSpace(l.source[l.pos]) {
				l.pos++
			}
			l.emit(TokenWhitespace, start)
		case c == '#' || (c == '/' && l.peek(1) == '/'):
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.pos++
			}
			l.emit(TokenComment, start)
		case c == '/' && l.peek(1) == '*':
			end := strings.Index(l.source[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(start, "unterminated comment")
			}
			l.pos += 2 + end + 2
			l.emit(TokenComment, start)
		case c == '$' && isIdentStart(l.peek(1)):
			l.pos++
			l.readIdent()
			l.emit(TokenVariable, start)
		case isIdentStart(c) || (c == '\\' && isIdentStart(l.peek(1))):
			l.readName()
			l.emit(TokenIdent, start)
		case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
			l.readNumber()
			l.emit(TokenNumber, start)
		case c == '\'':
			if err := l.readSingleQuoted(); err != nil {
				return err
			}
			l.emit(TokenString, start)
		case c == '"' || c == '`':
			if err := l.lexQuoted(c); err != nil {
				return err
			}
		case c == '<' && strings.HasPrefix(l.source[l.pos:], "<<<") && l.heredocHeader() > 0:
			if err := l.lexHeredoc(); err != nil {
				return err
			}
		case c == '{':
			depth++
			l.pos++
			l.emit(TokenLBrace, start)
		case c == '}':
			l.pos++
			l.emit(TokenRBrace, start)
			if nested && depth == 0 {
				return nil
			}
			depth--
		default:
			l.lexOperator()
		}
	}
	if nested {
		return l.errorf(open, "unterminated string interpolation")
	}
	return nil
}

// operators sorted so that longer operators are tried first.
var operators = []struct {
	text string
	typ  TokenType
}{
	{"<<=", TokenAssign}, {">>=", TokenAssign}, {"**=", TokenAssign}, {"??=", TokenAssign},
	{"...", TokenEllipsis}, {"?->", TokenNullsafeOp},
	{"<=>", TokenOperator}, {"===", TokenOperator}, {"!==", TokenOperator},
	{"->", TokenObjectOp}, {"=>", TokenDoubleArrow}, {"::", TokenDoubleColon},
	{"++", TokenIncDec}, {"--", TokenIncDec}, {"??", TokenCoalesce},
	{"+=", TokenAssign}, {"-=", TokenAssign}, {"*=", TokenAssign}, {"/=", TokenAssign},
	{".=", TokenAssign}, {"%=", TokenAssign}, {"&=", TokenAssign}, {"|=", TokenAssign},
	{"^=", TokenAssign},
	{"==", TokenOperator}, {"!=", TokenOperator}, {"<>", TokenOperator},
	{"<=", TokenOperator}, {">=", TokenOperator}, {"&&", TokenOperator},
	{"||", TokenOperator}, {"<<", TokenOperator}, {">>", TokenOperator},
	{"**", TokenOperator},
	{"(", TokenLParen}, {")", TokenRParen}, {"[", TokenLBracket}, {"]", TokenRBracket},
	{",", TokenComma}, {";", TokenSemicolon}, {"=", TokenAssign},
}

// lexOperator reads punctuation, falling back to a single-byte operator.
func (l *Lexer) lexOperator() {
	start := l.pos
	rest := l.source[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			l.pos += len(op.text)
			l.emit(op.typ, start)
			return
		}
	}
	l.pos++
	l.emit(TokenOperator, start)
}

// lexQuoted lexes a double-quoted or backtick string. Strings without
// interpolation become a single TokenString.
func (l *Lexer) lexQuoted(delim byte) error {
	start := l.pos
	end, interpolated, err := l.scanQuoted(delim)
	if err != nil {
		return err
	}
	if !interpolated {
		l.pos = end
		l.emit(TokenString, start)
		return nil
	}

	l.pos++
	l.emit(TokenQuote, start)
	l.inString++
	err = l.lexEncapsed(func() int {
		if l.source[l.pos] == delim {
			return 1
		}
		return 0
	})
	l.inString--
	if err != nil {
		return err
	}
	closing := l.pos
	l.pos++
	l.emit(TokenQuote, closing)
	return nil
}

// scanQuoted finds the end of the string starting at l.pos without
// consuming it, and reports whether it interpolates.
func (l *Lexer) scanQuoted(delim byte) (int, bool, error) {
	interpolated := false
	for i := l.pos + 1; i < len(l.source); i++ {
		c := l.source[i]
		var next byte
		if i+1 < len(l.source) {
			next = l.source[i+1]
		}
		switch {
		case c == '\\':
			i++
		case c == delim:
			return i + 1, interpolated, nil
		case c == '$' && (isIdentStart(next) || next == '{'):
			interpolated = true
		case c == '{' && next == '$':
			interpolated = true
		}
	}
	return 0, false, l.errorf(l.pos, "unterminated string")
}

// lexEncapsed lexes interpolated string content until atEnd reports a
// terminator at the current position. The terminator is not consumed.
func (l *Lexer) lexEncapsed(atEnd func() int) error {
	open := l.pos
	chunk := l.pos
	flush := func() {
		if l.pos > chunk {
			l.emit(TokenEncapsed, chunk)
		}
	}
	for {
		if l.pos >= len(l.source) {
			return l.errorf(open, "unterminated string")
		}
		if atEnd() > 0 {
			flush()
			return nil
		}
		start := l.pos
		c := l.source[l.pos]
		switch {
		case c == '\\':
			l.pos = min(l.pos+2, len(l.source))
		case c == '$' && isIdentStart(l.peek(1)):
			flush()
			l.pos++
			l.readIdent()
			l.emit(TokenVariable, start)
			l.lexSimpleSuffix()
			chunk = l.pos
		case c == '{' && l.peek(1) == '$':
			flush()
			l.pos++
			l.emit(TokenCurlyOpen, start)
			if err := l.lexCode(true); err != nil {
				return err
			}
			chunk = l.pos
		case c == '$' && l.peek(1) == '{':
			flush()
			l.pos += 2
			l.emit(TokenDollarOpenCurly, start)
			if err := l.lexCode(true); err != nil {
				return err
			}
			chunk = l.pos
		default:
			l.pos++
		}
	}
}

// lexSimpleSuffix lexes the one-level index or property access PHP allows
// after a variable in simple interpolation: "$a[0]", "$a[key]", "$a->b".
func (l *Lexer) lexSimpleSuffix() {
	start := l.pos
	switch {
	case l.peek(0) == '[':
		n := l.simpleIndexLen()
		if n == 0 {
			return
		}
		l.pos++
		l.emit(TokenLBracket, start)
		inner := l.pos
		c := l.peek(0)
		switch {
		case c == '$':
			l.pos++
			l.readIdent()
			l.emit(TokenVariable, inner)
		case c == '-' || isDigit(c):
			l.pos++
			for isDigit(l.peek(0)) {
				l.pos++
			}
			l.emit(TokenNumber, inner)
		default:
			l.readIdent()
			l.emit(TokenIdent, inner)
		}
		closing := l.pos
		l.pos++
		l.emit(TokenRBracket, closing)
	case strings.HasPrefix(l.source[l.pos:], "->") && isIdentStart(l.peek(2)):
		l.pos += 2
		l.emit(TokenObjectOp, start)
		name := l.pos
		l.readIdent()
		l.emit(TokenIdent, name)
	case strings.HasPrefix(l.source[l.pos:], "?->") && isIdentStart(l.peek(3)):
		l.pos += 3
		l.emit(TokenNullsafeOp, start)
		name := l.pos
		l.readIdent()
		l.emit(TokenIdent, name)
	}
}

// simpleIndexLen returns the length of a valid "[...]" simple index at
// l.pos, or 0.
func (l *Lexer) simpleIndexLen() int {
	i := l.pos + 1
	src := l.source
	if i >= len(src) {
		return 0
	}
	switch c := src[i]; {
	case c == '$' && i+1 < len(src) && isIdentStart(src[i+1]):
		i++
		for i < len(src) && isIdentChar(src[i]) {
			i++
		}
	case c == '-' || isDigit(c):
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	case isIdentStart(c):
		for i < len(src) && isIdentChar(src[i]) {
			i++
		}
	default:
		return 0
	}
	if i < len(src) && src[i] == ']' {
		return i + 1 - l.pos
	}
	return 0
}

// heredocHeader returns the length of a heredoc or nowdoc header at l.pos
// including its newline, or 0 if the input is not a heredoc.
func (l *Lexer) heredocHeader() int {
	_, _, n := l.parseHeredocHeader()
	return n
}

func (l *Lexer) parseHeredocHeader() (label string, nowdoc bool, n int) {
	src := l.source
	i := l.pos + 3
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	quote := byte(0)
	if i < len(src) && (src[i] == '"' || src[i] == '\'') {
		quote = src[i]
		i++
	}
	if i >= len(src) || !isIdentStart(src[i]) {
		return "", false, 0
	}
	labelStart := i
	for i < len(src) && isIdentChar(src[i]) {
		i++
	}
	label = src[labelStart:i]
	if quote != 0 {
		if i >= len(src) || src[i] != quote {
			return "", false, 0
		}
		i++
	}
	if i < len(src) && src[i] == '\r' {
		i++
	}
	if i >= len(src) || src[i] != '\n' {
		return "", false, 0
	}
	return label, quote == '\'', i + 1 - l.pos
}

// lexHeredoc lexes a heredoc (interpolated) or nowdoc (single TokenString).
func (l *Lexer) lexHeredoc() error {
	start := l.pos
	label, nowdoc, n := l.parseHeredocHeader()
	bodyStart := l.pos + n

	closingAt := func(i int) int {
		if i != bodyStart && (i == 0 || l.source[i-1] != '\n') {
			return 0
		}
		j := i
		for j < len(l.source) && (l.source[j] == ' ' || l.source[j] == '\t') {
			j++
		}
		if !strings.HasPrefix(l.source[j:], label) {
			return 0
		}
		end := j + len(label)
		if end < len(l.source) && isIdentChar(l.source[end]) {
			return 0
		}
		return end - i
	}

	if nowdoc {
		for i := bodyStart; i < len(l.source); i++ {
			if m := closingAt(i); m > 0 {
				l.pos = i + m
				l.emit(TokenString, start)
				return nil
			}
		}
		return l.errorf(start, "unterminated nowdoc %s", label)
	}

	l.pos = bodyStart
	l.emit(TokenHeredocStart, start)
	l.inString++
	err := l.lexEncapsed(func() int { return closingAt(l.pos) })
	l.inString--
	if err != nil {
		return l.errorf(start, "unterminated heredoc %s", label)
	}
	end := l.pos
	l.pos += closingAt(l.pos)
	l.emit(TokenHeredocEnd, end)
	return nil
}

func (l *Lexer) readIdent() {
	for l.pos < len(l.source) && isIdentChar(l.source[l.pos]) {
		l.pos++
	}
}

// readName reads an identifier that may contain namespace separators.
func (l *Lexer) readName() {
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		if isIdentChar(c) || (c == '\\' && isIdentStart(l.peek(1))) {
			l.pos++
			continue
		}
		break
	}
}

func (l *Lexer) readNumber() {
	start := l.pos
	hex := strings.HasPrefix(strings.ToLower(l.source[l.pos:]), "0x")
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		switch {
		case isIdentChar(c):
			l.pos++
		case c == '.' && isDigit(l.peek(1)) && !strings.Contains(l.source[start:l.pos], "."):
			l.pos++
		case (c == '+' || c == '-') && !hex && l.pos > start &&
			(l.source[l.pos-1] == 'e' || l.source[l.pos-1] == 'E') && isDigit(l.peek(1)):
			l.pos++
		default:
			return
		}
	}
}

func (l *Lexer) readSingleQuoted() error {
	start := l.pos
	l.pos++
	for l.pos < len(l.source) {
		switch l.source[l.pos] {
		case '\\':
			l.pos = min(l.pos+2, len(l.source))
		case '\'':
			l.pos++
			return nil
		default:
			l.pos++
		}
	}
	return l.errorf(start, "unterminated string")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
