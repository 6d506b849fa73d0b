package luals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/broady/luadecl/luagen/ir"
)

// signature renders t as an annotation type expression.
func (w *Writer) signature(t ir.Type) (string, error) {
	switch t := t.(type) {
	case nil:
		return "nil", nil
	case *ir.SingleType:
		return t.Name, nil
	case *ir.ValueType:
		return w.signature(t.Inner)
	case *ir.AliasType:
		return w.signature(t.Inner)
	case *ir.ModuleType:
		return "table", nil
	case *ir.ClassType:
		if name, ok := w.lookup(t); ok {
			return name, nil
		}
		return "", &ir.UnresolvedReferenceError{Entry: w.entry, Kind: ir.KindClass}
	case *ir.EnumType:
		if name, ok := w.lookup(t); ok {
			return name, nil
		}
		return "", &ir.UnresolvedReferenceError{Entry: w.entry, Kind: ir.KindEnum, Name: t.Name}
	case *ir.TupleType:
		parts, err := w.signatures(t.Types, false)
		if err != nil {
			return "", err
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case *ir.ArrayType:
		elem, err := w.signature(t.Element)
		if err != nil {
			return "", err
		}
		if needsParens(t.Element) {
			elem = "(" + elem + ")"
		}
		return elem + "[]", nil
	case *ir.MapType:
		key, err := w.signature(t.Key)
		if err != nil {
			return "", err
		}
		value, err := w.signature(t.Value)
		if err != nil {
			return "", err
		}
		return "{ [" + key + "]: " + value + " }", nil
	case *ir.TableType:
		if len(t.Entries) == 0 {
			return "table", nil
		}
		parts := make([]string, len(t.Entries))
		for i, e := range t.Entries {
			sig, err := w.signature(e.Type)
			if err != nil {
				return "", err
			}
			parts[i] = e.Key.String() + ": " + sig
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	case *ir.UnionType:
		parts, err := w.signatures(t.Types, true)
		if err != nil {
			return "", err
		}
		return strings.Join(parts, " | "), nil
	case *ir.FunctionType:
		return w.funcSignature(t)
	}
	return "", fmt.Errorf("unsupported type kind: %s", t.Kind())
}

func (w *Writer) signatures(types []ir.Type, parenFuncs bool) ([]string, error) {
	out := make([]string, len(types))
	for i, t := range types {
		sig, err := w.signature(t)
		if err != nil {
			return nil, err
		}
		if _, ok := t.(*ir.FunctionType); ok && parenFuncs {
			sig = "(" + sig + ")"
		}
		out[i] = sig
	}
	return out, nil
}

func (w *Writer) funcSignature(t *ir.FunctionType) (string, error) {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		sig, err := w.signature(p.Type)
		if err != nil {
			return "", err
		}
		params[i] = paramName(i, p) + ": " + sig
	}
	out := "fun(" + strings.Join(params, ", ") + ")"
	if len(t.Returns) == 0 {
		return out, nil
	}
	returns := make([]string, len(t.Returns))
	for i, r := range t.Returns {
		sig, err := w.signature(r.Type)
		if err != nil {
			return "", err
		}
		returns[i] = sig
	}
	return out + ": " + strings.Join(returns, ", "), nil
}

// lookup returns the entry name registered for a class or enum shape.
func (w *Writer) lookup(t ir.Type) (string, bool) {
	for _, n := range w.names {
		if ir.Equal(n.t, t) {
			return n.name, true
		}
	}
	return "", false
}

func needsParens(t ir.Type) bool {
	switch t := t.(type) {
	case *ir.UnionType:
		return len(t.Types) > 1
	case *ir.FunctionType:
		return true
	}
	return false
}

func paramName(i int, p ir.Param) string {
	if p.Name == "" {
		return "param" + strconv.Itoa(i)
	}
	return p.Name
}

func paramList(self string, params []ir.Param) string {
	names := make([]string, 0, len(params)+1)
	if self != "" {
		names = append(names, "self")
	}
	for i, p := range params {
		names = append(names, paramName(i, p))
	}
	return strings.Join(names, ", ")
}

// isNamePath reports whether name is a dotted path of identifiers, such as
// "string.trim".
func isNamePath(name string) bool {
	for _, part := range strings.Split(name, ".") {
		if !ir.IsIdentifier(part) {
			return false
		}
	}
	return true
}

// assignTarget returns the left hand side used to declare a global.
func assignTarget(name string) string {
	if isNamePath(name) {
		return name
	}
	return "_G[" + ir.Quote(name) + "]"
}

// classLocal returns the local variable that holds a class's function table.
func classLocal(name string) string {
	var b strings.Builder
	b.WriteString("_CLASS_")
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			b.WriteByte(c)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteByte('_')
	return b.String()
}
