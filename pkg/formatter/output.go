package formatter

import "bytes"

// output accumulates rendered text and tracks the 0-indexed position of the
// next byte written.
type output struct {
	buf  bytes.Buffer
	line int
	col  int
}

// write appends s and advances the position.
func (o *output) write(s string) {
	o.buf.WriteString(s)
	for i := 0; i < len(s); i++ {
		o.advance(s[i])
	}
}

// writeByte appends c and advances the position.
func (o *output) writeByte(c byte) {
	o.buf.WriteByte(c)
	o.advance(c)
}

func (o *output) advance(c byte) {
	if c == '\n' {
		o.line++
		o.col = 0
		return
	}
	o.col++
}

// Len returns the number of bytes written.
func (o *output) Len() int { return o.buf.Len() }

func (o *output) String() string { return o.buf.String() }
