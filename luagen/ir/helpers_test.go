package ir

import (
	"reflect"
	"strings"
)

// typeString renders t compactly for test failure messages.
func typeString(t Type) string {
	switch t := t.(type) {
	case nil:
		return "<nil>"
	case *SingleType:
		return t.Name
	case *ValueType:
		return "value(" + typeString(t.Inner) + ")"
	case *AliasType:
		return "alias(" + typeString(t.Inner) + ")"
	case *TupleType:
		return "[" + joinTypes(t.Types, ", ") + "]"
	case *UnionType:
		return joinTypes(t.Types, " | ")
	case *ArrayType:
		return typeString(t.Element) + "[]"
	case *MapType:
		return "{ [" + typeString(t.Key) + "]: " + typeString(t.Value) + " }"
	case *TableType:
		parts := make([]string, len(t.Entries))
		for i, e := range t.Entries {
			parts[i] = e.Key.String() + ": " + typeString(e.Type)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *FunctionType:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = p.Name + ": " + typeString(p.Type)
		}
		returns := make([]string, len(t.Returns))
		for i, r := range t.Returns {
			returns[i] = typeString(r.Type)
		}
		return "fun(" + strings.Join(params, ", ") + "): " + strings.Join(returns, ", ")
	case *EnumType:
		return "enum " + t.Name + "(" + joinTypes(t.Variants, ", ") + ")"
	case *ClassType:
		return "class"
	case *ModuleType:
		return "module"
	}
	return "?"
}

func joinTypes(ts []Type, sep string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = typeString(t)
	}
	return strings.Join(parts, sep)
}

func typeFor[T any]() reflect.Type { return reflect.TypeFor[T]() }
