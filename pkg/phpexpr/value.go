package phpexpr

import (
	"strconv"
	"strings"
)

// Value is a constant PHP value: string, int64, float64, bool, nil or *Array.
type Value any

// Array is an ordered PHP array.
type Array struct {
	keys   []any // string or int64
	values map[any]Value
	next   int64
}

// NewArray creates an empty array.
func NewArray() *Array {
	return &Array{values: make(map[any]Value)}
}

// Len returns the number of entries.
func (a *Array) Len() int { return len(a.keys) }

// Keys returns the keys in insertion order.
func (a *Array) Keys() []any { return a.keys }

// Get returns the value stored under key.
func (a *Array) Get(key any) (Value, bool) {
	v, ok := a.values[NormalizeKey(key)]
	return v, ok
}

// Set stores v under key, keeping the position of an existing key.
func (a *Array) Set(key any, v Value) {
	key = NormalizeKey(key)
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
	if n, ok := key.(int64); ok && n >= a.next {
		a.next = n + 1
	}
}

// Append stores v under the next integer key.
func (a *Array) Append(v Value) {
	a.Set(a.next, v)
}

// Each calls fn for every entry in order.
func (a *Array) Each(fn func(key any, v Value)) {
	for _, k := range a.keys {
		fn(k, a.values[k])
	}
}

// NormalizeKey applies PHP array key casting: decimal integer strings, bools
// and floats become int64, nil becomes "".
func NormalizeKey(key any) any {
	switch k := key.(type) {
	case string:
		if n, err := strconv.ParseInt(k, 10, 64); err == nil && strconv.FormatInt(n, 10) == k {
			return n
		}
		return k
	case int:
		return int64(k)
	case int64:
		return k
	case float64:
		return int64(k)
	case bool:
		if k {
			return int64(1)
		}
		return int64(0)
	case nil:
		return ""
	}
	return ToString(key)
}

// ToString converts v the way PHP's string conversion does.
func ToString(v Value) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'G', 14, 64)
	case bool:
		if x {
			return "1"
		}
		return ""
	case nil:
		return ""
	case *Array:
		return "Array"
	}
	return ""
}

// Truthy reports whether v converts to true in PHP.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case string:
		return x != "" && x != "0"
	case int64:
		return x != 0
	case int:
		return x != 0
	case float64:
		return x != 0
	case bool:
		return x
	case *Array:
		return x.Len() > 0
	}
	return false
}

// Evaluate folds src to a constant when it is a literal: a string without
// interpolation, a number, true/false/null, or an array of literals written
// as [...] or array(...). ok is false for anything else.
func Evaluate(src string) (v Value, ok bool) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, false
	}
	var sig []Token
	for _, t := range toks {
		if t.significant() {
			sig = append(sig, t)
		}
	}
	if len(sig) == 0 {
		return nil, false
	}
	p := &evaluator{toks: sig}
	v, ok = p.value()
	if !ok || p.pos != len(sig) {
		return nil, false
	}
	return v, true
}

type evaluator struct {
	toks []Token
	pos  int
}

func (p *evaluator) peek() (Token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return Token{}, false
}

func (p *evaluator) value() (Value, bool) {
	t, ok := p.peek()
	if !ok {
		return nil, false
	}
	switch t.Type {
	case TokenString:
		p.pos++
		return unquote(t.Text)
	case TokenNumber:
		p.pos++
		return parseNumber(t.Text, false)
	case TokenOperator:
		if t.Text != "-" && t.Text != "+" {
			return nil, false
		}
		p.pos++
		n, ok := p.peek()
		if !ok || n.Type != TokenNumber {
			return nil, false
		}
		p.pos++
		return parseNumber(n.Text, t.Text == "-")
	case TokenLBracket:
		p.pos++
		return p.array(TokenRBracket)
	case TokenIdent:
		switch strings.ToLower(t.Text) {
		case "true":
			p.pos++
			return true, true
		case "false":
			p.pos++
			return false, true
		case "null":
			p.pos++
			return nil, true
		case "array":
			p.pos++
			if n, ok := p.peek(); !ok || n.Type != TokenLParen {
				return nil, false
			}
			p.pos++
			return p.array(TokenRParen)
		}
	}
	return nil, false
}

func (p *evaluator) array(closing TokenType) (Value, bool) {
	arr := NewArray()
	for {
		t, ok := p.peek()
		if !ok {
			return nil, false
		}
		if t.Type == closing {
			p.pos++
			return arr, true
		}
		v, ok := p.value()
		if !ok {
			return nil, false
		}
		if n, ok := p.peek(); ok && n.Type == TokenDoubleArrow {
			p.pos++
			if _, isArr := v.(*Array); isArr {
				return nil, false
			}
			val, ok := p.value()
			if !ok {
				return nil, false
			}
			arr.Set(v, val)
		} else {
			arr.Append(v)
		}
		t, ok = p.peek()
		if !ok {
			return nil, false
		}
		switch t.Type {
		case TokenComma:
			p.pos++
		case closing:
		default:
			return nil, false
		}
	}
}

func parseNumber(text string, negative bool) (Value, bool) {
	clean := strings.ReplaceAll(text, "_", "")
	if negative {
		clean = "-" + clean
	}
	if n, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return f, true
	}
	return nil, false
}

// unquote decodes a single-quoted, or double-quoted without interpolation,
// PHP string literal. Heredoc-free literals only.
func unquote(lit string) (Value, bool) {
	if len(lit) < 2 {
		return nil, false
	}
	q := lit[0]
	body := lit[1 : len(lit)-1]
	switch q {
	case '\'':
		return strings.NewReplacer(`\\`, `\`, `\'`, `'`).Replace(body), true
	case '"':
		return unescapeDouble(body), true
	}
	return nil, false
}

var doubleEscapes = map[byte]string{
	'n': "\n", 't': "\t", 'r': "\r", 'v': "\v", 'f': "\f", 'e': "\x1b",
	'\\': `\`, '$': "$", '"': `"`, '0': "\x00",
}

func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			if r, ok := doubleEscapes[s[i+1]]; ok {
				sb.WriteString(r)
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
