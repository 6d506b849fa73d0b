package ir

import (
	"fmt"
	"sort"
	"strconv"
)

// SingleType is a shape rendered verbatim: a builtin name such as "string",
// a user type name, or a literal such as `"red"` or `42`.
type SingleType struct {
	Name string
}

func (*SingleType) Kind() Kind { return KindSingle }
func (*SingleType) sealed()    {}

// ValueType marks an entry as a global value of the wrapped shape.
type ValueType struct {
	Inner Type
}

func (*ValueType) Kind() Kind { return KindValue }
func (*ValueType) sealed()    {}

// AliasType marks an entry as a named alias of the wrapped shape.
type AliasType struct {
	Inner Type
}

func (*AliasType) Kind() Kind { return KindAlias }
func (*AliasType) sealed()    {}

// TupleType is a fixed-length sequence of shapes.
type TupleType struct {
	Types []Type
}

func (*TupleType) Kind() Kind { return KindTuple }
func (*TupleType) sealed()    {}

// TableEntry is a single member of a table literal.
type TableEntry struct {
	Key  Index
	Type Type
}

// TableType is a table literal. Entries are kept sorted by key.
type TableType struct {
	Entries []TableEntry
}

func (*TableType) Kind() Kind { return KindTable }
func (*TableType) sealed()    {}

// Get returns the shape stored under key, or nil.
func (t *TableType) Get(key Index) Type {
	for _, e := range t.Entries {
		if e.Key == key {
			return e.Type
		}
	}
	return nil
}

// UnionType is a flat, deduplicated list of alternatives.
// Construct it with Union or Or so the invariant holds.
type UnionType struct {
	Types []Type
}

func (*UnionType) Kind() Kind { return KindUnion }
func (*UnionType) sealed()    {}

// ArrayType is a homogeneous list.
type ArrayType struct {
	Element Type
}

func (*ArrayType) Kind() Kind { return KindArray }
func (*ArrayType) sealed()    {}

// MapType is a table from Key shapes to Value shapes.
type MapType struct {
	Key   Type
	Value Type
}

func (*MapType) Kind() Kind { return KindMap }
func (*MapType) sealed()    {}

// FunctionType is a callable with parameters and returns.
type FunctionType struct {
	Params  []Param
	Returns []Return
}

func (*FunctionType) Kind() Kind { return KindFunction }
func (*FunctionType) sealed()    {}

// EnumType is a named set of variant shapes, usually literals.
type EnumType struct {
	Name     string
	Variants []Type
}

func (*EnumType) Kind() Kind { return KindEnum }
func (*EnumType) sealed()    {}

// ClassType carries a recorded class. Writers refer to it by the name of the
// entry that registered it.
type ClassType struct {
	Class *ClassBuilder
}

func (*ClassType) Kind() Kind { return KindClass }
func (*ClassType) sealed()    {}

// ModuleType carries a recorded module.
type ModuleType struct {
	Module *ModuleBuilder
}

func (*ModuleType) Kind() Kind { return KindModule }
func (*ModuleType) sealed()    {}

// Single returns a shape rendered as name.
func Single(name string) *SingleType { return &SingleType{Name: name} }

// Named is an alias of Single for references to user defined names.
func Named(name string) *SingleType { return Single(name) }

func String() *SingleType        { return Single("string") }
func Integer() *SingleType       { return Single("integer") }
func Number() *SingleType        { return Single("number") }
func Boolean() *SingleType       { return Single("boolean") }
func Nil() *SingleType           { return Single("nil") }
func Any() *SingleType           { return Single("any") }
func Table() *SingleType         { return Single("table") }
func Thread() *SingleType        { return Single("thread") }
func UserDataType() *SingleType  { return Single("userdata") }
func LightUserData() *SingleType { return Single("lightuserdata") }

// Literal returns a literal shape. Strings are quoted; numbers and booleans
// are rendered as Lua source.
func Literal(v any) *SingleType {
	switch v := v.(type) {
	case nil:
		return Nil()
	case string:
		return Single(Quote(v))
	case bool:
		return Single(strconv.FormatBool(v))
	case float32:
		return Single(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		return Single(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		return Single(fmt.Sprint(v))
	}
}

// Value wraps t as a global value entry.
func Value(t Type) *ValueType { return &ValueType{Inner: t} }

// Alias wraps t as an alias entry.
func Alias(t Type) *AliasType { return &AliasType{Inner: t} }

// Tuple returns a fixed sequence of shapes.
func Tuple(types ...Type) *TupleType { return &TupleType{Types: types} }

// TableOf returns a table literal. Later entries with the same key replace
// earlier ones.
func TableOf(entries ...TableEntry) *TableType {
	byKey := make(map[Index]Type, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e.Type
	}
	t := &TableType{Entries: make([]TableEntry, 0, len(byKey))}
	for k, v := range byKey {
		t.Entries = append(t.Entries, TableEntry{Key: k, Type: v})
	}
	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Key.Less(t.Entries[j].Key) })
	return t
}

// Array returns a list of elem.
func Array(elem Type) *ArrayType { return &ArrayType{Element: elem} }

// Map returns a table from key to value.
func Map(key, value Type) *MapType { return &MapType{Key: key, Value: value} }

// Function returns a function shape.
func Function(params []Param, returns []Return) *FunctionType {
	return &FunctionType{Params: params, Returns: returns}
}

// Enum returns a named set of variants.
func Enum(name string, variants ...Type) *EnumType {
	return &EnumType{Name: name, Variants: variants}
}

// Optional returns t | nil.
func Optional(t Type) Type { return Or(t, Nil()) }

// EnumOf returns a named enum whose variants are the literals of values.
func EnumOf(name string, values ...any) *EnumType {
	variants := make([]Type, len(values))
	for i, v := range values {
		variants[i] = Literal(v)
	}
	return Enum(name, variants...)
}
