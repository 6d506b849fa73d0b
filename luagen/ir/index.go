package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Index is a member key: either a textual name or a positional integer.
// The zero value is the empty textual key.
type Index struct {
	name       string
	pos        int
	positional bool
}

// Key returns a textual index.
func Key(name string) Index { return Index{name: name} }

// Pos returns a positional index.
func Pos(i int) Index { return Index{pos: i, positional: true} }

// IndexOf converts a string, an int or an Index into an Index.
// Any other value is a programming error and panics.
func IndexOf(key any) Index {
	switch k := key.(type) {
	case Index:
		return k
	case string:
		return Key(k)
	case int:
		return Pos(k)
	default:
		panic(fmt.Sprintf("ir: unsupported member key type %T", key))
	}
}

// IsPositional reports whether the index is an integer key.
func (i Index) IsPositional() bool { return i.positional }

// Name returns the textual key, or the decimal form of a positional key.
func (i Index) Name() string {
	if i.positional {
		return strconv.Itoa(i.pos)
	}
	return i.name
}

// Int returns the positional key.
func (i Index) Int() int { return i.pos }

// Less orders positional keys before textual ones, then by value.
func (i Index) Less(o Index) bool {
	if i.positional != o.positional {
		return i.positional
	}
	if i.positional {
		return i.pos < o.pos
	}
	return i.name < o.name
}

// String renders the key as it appears in a table: [1], name, or ["a-b"].
func (i Index) String() string {
	if i.positional {
		return "[" + strconv.Itoa(i.pos) + "]"
	}
	return EscapeKey(i.name)
}

// Lua reserved words.
var reservedWords = map[string]bool{
	"and":      true,
	"break":    true,
	"do":       true,
	"else":     true,
	"elseif":   true,
	"end":      true,
	"false":    true,
	"for":      true,
	"function": true,
	"goto":     true,
	"if":       true,
	"in":       true,
	"local":    true,
	"nil":      true,
	"not":      true,
	"or":       true,
	"repeat":   true,
	"return":   true,
	"then":     true,
	"true":     true,
	"until":    true,
	"while":    true,
}

// IsIdentifier reports whether name can be used as a bare Lua name.
func IsIdentifier(name string) bool {
	if name == "" || reservedWords[name] {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

// EscapeKey returns name unchanged when it is a bare identifier and
// ["name"] otherwise.
func EscapeKey(name string) string {
	if IsIdentifier(name) {
		return name
	}
	return "[" + Quote(name) + "]"
}

// Quote returns s as a double quoted Lua string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
