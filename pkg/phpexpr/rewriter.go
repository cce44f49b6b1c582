package phpexpr

import "strings"

// Rewriter wraps bare variable references of an expression in a guard.
//
// A reference is the root variable of a member access or index chain
// ($a->b['c']). The whole chain is guarded once. References are left alone
// when they are interpolated in a string, are parameters or use-variables of
// an anonymous function, are arguments of isset/empty/unset, are assignment
// targets, are the left operand of ??, or are $this.
type Rewriter struct {
	// Guard wraps a reference chain. Nil disables guarding.
	Guard func(ref string) string

	// Handlers rewrite every token of a type, regardless of context. A
	// handler for TokenVariable replaces the guard.
	Handlers map[TokenType]func(text string) string
}

// guardFree are calls whose arguments must stay plain variables.
var guardFree = map[string]bool{
	"isset": true,
	"empty": true,
	"unset": true,
}

// Rewrite returns src with references guarded. Comments and whitespace are
// preserved verbatim. When guarding, unbalanced brackets fail with
// *SyntaxError. Without a guard only tokenizing can fail, so a statement may
// open a brace another one closes.
func (r *Rewriter) Rewrite(src string) (string, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return "", err
	}
	if r.Guard == nil {
		return r.render(toks), nil
	}
	match, err := matchBrackets(src, toks)
	if err != nil {
		return "", err
	}
	skip := unguardedZones(toks, match)

	var sb strings.Builder
	sb.Grow(len(src) + 32)
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if h, ok := r.Handlers[tok.Type]; ok {
			sb.WriteString(h(tok.Text))
			continue
		}
		if r.Guard == nil || tok.Type != TokenVariable || tok.InString || skip[i] || tok.Text == "$this" {
			sb.WriteString(tok.Text)
			continue
		}
		if prev := prevSignificant(toks, i); prev >= 0 && followsAccess(toks[prev]) {
			sb.WriteString(tok.Text)
			continue
		}

		end, segments := chainEnd(toks, i, match)
		next := nextSignificant(toks, end+1)
		if next >= 0 {
			switch toks[next].Type {
			case TokenAssign, TokenIncDec, TokenCoalesce:
				// Targets and ?? operands handle undefined values themselves.
				sb.WriteString(r.render(toks[i : end+1]))
				i = end
				continue
			case TokenLParen:
				// A call: guard the callee's object, not the method name.
				if len(segments) > 0 {
					end = segments[len(segments)-1] - 1
				}
			}
		}
		end = trimTrailing(toks, i, end)
		sb.WriteString(r.Guard(r.render(toks[i : end+1])))
		i = end
	}
	return sb.String(), nil
}

// render concatenates tokens, applying handlers.
func (r *Rewriter) render(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		if h, ok := r.Handlers[t.Type]; ok {
			sb.WriteString(h(t.Text))
			continue
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// chainEnd returns the index of the last token of the access chain rooted at
// toks[i], and the start index of each access segment after the root.
func chainEnd(toks []Token, i int, match map[int]int) (int, []int) {
	end := i
	var segments []int
	for {
		j := nextSignificant(toks, end+1)
		if j < 0 {
			return end, segments
		}
		switch toks[j].Type {
		case TokenObjectOp, TokenNullsafeOp, TokenDoubleColon:
			k := nextSignificant(toks, j+1)
			if k < 0 {
				return end, segments
			}
			switch toks[k].Type {
			case TokenIdent, TokenVariable:
				segments = append(segments, j)
				end = k
				continue
			case TokenLBrace:
				segments = append(segments, j)
				end = match[k]
				continue
			}
			return end, segments
		case TokenLBracket:
			segments = append(segments, j)
			end = match[j]
			continue
		}
		return end, segments
	}
}

// trimTrailing moves end back over whitespace and comments.
func trimTrailing(toks []Token, start, end int) int {
	for end > start && !toks[end].significant() {
		end--
	}
	return end
}

// followsAccess reports whether a variable after t is a member name, e.g.
// $obj->$name or Foo::$bar, or a variable-variable $$name.
func followsAccess(t Token) bool {
	switch t.Type {
	case TokenObjectOp, TokenNullsafeOp, TokenDoubleColon, TokenIncDec:
		return true
	case TokenOperator:
		return t.Text == "$"
	}
	return false
}

// unguardedZones marks tokens inside anonymous function parameter lists,
// closure use lists and isset/empty/unset arguments.
func unguardedZones(toks []Token, match map[int]int) map[int]bool {
	skip := make(map[int]bool)
	mark := func(open int) int {
		end, ok := match[open]
		if !ok {
			return open
		}
		for k := open; k <= end; k++ {
			skip[k] = true
		}
		return end
	}
	for i, t := range toks {
		if t.Type != TokenIdent || t.InString {
			continue
		}
		if p := prevSignificant(toks, i); p >= 0 && followsAccess(toks[p]) {
			continue
		}
		kw := strings.ToLower(t.Text)
		switch {
		case kw == "function" || kw == "fn":
			j := nextSignificant(toks, i+1)
			if j >= 0 && toks[j].Type == TokenOperator && toks[j].Text == "&" {
				j = nextSignificant(toks, j+1)
			}
			if j < 0 || toks[j].Type != TokenLParen {
				continue
			}
			end := mark(j)
			if u := nextSignificant(toks, end+1); u >= 0 && strings.EqualFold(toks[u].Text, "use") {
				if o := nextSignificant(toks, u+1); o >= 0 && toks[o].Type == TokenLParen {
					mark(o)
				}
			}
		case guardFree[kw]:
			if j := nextSignificant(toks, i+1); j >= 0 && toks[j].Type == TokenLParen {
				mark(j)
			}
		}
	}
	return skip
}

// matchBrackets pairs every opening bracket with its closing bracket.
func matchBrackets(src string, toks []Token) (map[int]int, error) {
	match := make(map[int]int)
	var stack []int
	closes := map[TokenType]TokenType{
		TokenRParen:   TokenLParen,
		TokenRBracket: TokenLBracket,
		TokenRBrace:   TokenLBrace,
	}
	for i, t := range toks {
		switch t.Type {
		case TokenLParen, TokenLBracket, TokenLBrace, TokenCurlyOpen, TokenDollarOpenCurly:
			stack = append(stack, i)
		case TokenRParen, TokenRBracket, TokenRBrace:
			if len(stack) == 0 {
				return nil, &SyntaxError{Source: src, Offset: t.Offset, Message: "unexpected '" + t.Text + "'"}
			}
			open := stack[len(stack)-1]
			want := closes[t.Type]
			got := toks[open].Type
			if got == TokenCurlyOpen || got == TokenDollarOpenCurly {
				got = TokenLBrace
			}
			if got != want {
				return nil, &SyntaxError{Source: src, Offset: t.Offset, Message: "mismatched '" + t.Text + "'"}
			}
			stack = stack[:len(stack)-1]
			match[open] = i
		}
	}
	if len(stack) > 0 {
		t := toks[stack[len(stack)-1]]
		return nil, &SyntaxError{Source: src, Offset: t.Offset, Message: "unclosed '" + t.Text + "'"}
	}
	return match, nil
}

func nextSignificant(toks []Token, i int) int {
	for ; i < len(toks); i++ {
		if toks[i].significant() {
			return i
		}
	}
	return -1
}

func prevSignificant(toks []Token, i int) int {
	for i--; i >= 0; i-- {
		if toks[i].significant() {
			return i
		}
	}
	return -1
}

// FirstKeyword returns the first significant token of src lower-cased when
// it is an identifier, or "" otherwise.
func FirstKeyword(src string) string {
	toks, err := Tokenize(src)
	if err != nil {
		return ""
	}
	i := nextSignificant(toks, 0)
	if i < 0 || toks[i].Type != TokenIdent {
		return ""
	}
	return strings.ToLower(toks[i].Text)
}
