package ir

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// Typed is implemented by Go types that describe their own Lua shape.
// LuaType is called on the zero value.
type Typed interface {
	LuaType() Type
}

// ParamTyped is implemented by Go types that describe themselves as a whole
// parameter, for example a variadic tail.
type ParamTyped interface {
	LuaParam() Param
}

var (
	typedType      = reflect.TypeFor[Typed]()
	paramTypedType = reflect.TypeFor[ParamTyped]()
	userDataType   = reflect.TypeFor[UserData]()
	moduleType     = reflect.TypeFor[Module]()
	errorType      = reflect.TypeFor[error]()
	lvalueType     = reflect.TypeFor[lua.LValue]()
	lstateType     = reflect.TypeFor[*lua.LState]()
)

// TypeOf returns the shape of v's dynamic type. A nil v is nil.
func TypeOf(v any) Type {
	if v == nil {
		return Nil()
	}
	if t, ok := v.(Typed); ok {
		return t.LuaType()
	}
	return TypeOfReflect(reflect.TypeOf(v))
}

// TypeFor returns the shape of T.
func TypeFor[T any]() Type {
	return TypeOfReflect(reflect.TypeFor[T]())
}

// TypeOfReflect returns the shape of t.
func TypeOfReflect(t reflect.Type) Type {
	return typeOf(t, map[reflect.Type]bool{})
}

func typeOf(t reflect.Type, visiting map[reflect.Type]bool) Type {
	if t == nil {
		return Nil()
	}
	if lt, ok := luaValueType(t); ok {
		return lt
	}
	if typed, ok := typedValue(t); ok {
		return typed.LuaType()
	}
	if name, ok := userDataName(t); ok {
		return Single(name)
	}
	if implements(t, moduleType) {
		return Table()
	}
	if t == errorType {
		return Single("error")
	}

	switch t.Kind() {
	case reflect.Bool:
		return Boolean()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Integer()
	case reflect.Float32, reflect.Float64:
		return Number()
	case reflect.String:
		return String()
	case reflect.Pointer:
		return Optional(typeOf(t.Elem(), visiting))
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return String()
		}
		return Array(typeOf(t.Elem(), visiting))
	case reflect.Map:
		if t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0 {
			return Array(typeOf(t.Key(), visiting))
		}
		return Map(typeOf(t.Key(), visiting), typeOf(t.Elem(), visiting))
	case reflect.Func:
		params, returns := signatureOf(t, 0, visiting)
		return Function(params, returns)
	case reflect.Struct:
		return structType(t, visiting)
	case reflect.Chan:
		return UserDataType()
	default:
		return Any()
	}
}

// structType renders a plain struct as a table literal keyed by the same
// names used when decoding Lua tables into it.
func structType(t reflect.Type, visiting map[reflect.Type]bool) Type {
	if visiting[t] {
		if t.Name() != "" {
			return Single(t.Name())
		}
		return Table()
	}
	visiting[t] = true
	defer delete(visiting, t)

	var entries []TableEntry
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, ok := FieldName(f)
		if !ok {
			continue
		}
		entries = append(entries, TableEntry{Key: Key(name), Type: typeOf(f.Type, visiting)})
	}
	return TableOf(entries...)
}

// FieldName returns the Lua key for a struct field: the name from its schema
// tag when present, otherwise the Go field name. Fields tagged "-" are
// skipped.
func FieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("schema")
	if tag == "-" {
		return "", false
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag != "" {
		return tag, true
	}
	return f.Name, true
}

func luaValueType(t reflect.Type) (Type, bool) {
	switch t {
	case lvalueType:
		return Any(), true
	case reflect.TypeFor[*lua.LTable]():
		return Table(), true
	case reflect.TypeFor[*lua.LFunction]():
		return Single("fun()"), true
	case reflect.TypeFor[*lua.LUserData]():
		return UserDataType(), true
	case lstateType:
		return Thread(), true
	case reflect.TypeFor[lua.LString]():
		return String(), true
	case reflect.TypeFor[lua.LNumber]():
		return Number(), true
	case reflect.TypeFor[lua.LBool]():
		return Boolean(), true
	case reflect.TypeFor[*lua.LNilType]():
		return Nil(), true
	}
	return nil, false
}

// typedValue returns a value of t (or *t) that implements Typed.
func typedValue(t reflect.Type) (Typed, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		if elem.Kind() != reflect.Interface && !elem.Implements(typedType) && t.Implements(typedType) {
			return reflect.New(elem).Interface().(Typed), true
		}
		return nil, false
	}
	if t.Implements(typedType) {
		return reflect.Zero(t).Interface().(Typed), true
	}
	if reflect.PointerTo(t).Implements(typedType) {
		return reflect.New(t).Interface().(Typed), true
	}
	return nil, false
}

// userDataName returns the class name of a UserData type or a pointer to one.
func userDataName(t reflect.Type) (string, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface || t.Name() == "" {
		return "", false
	}
	if implements(t, userDataType) {
		return t.Name(), true
	}
	return "", false
}

func implements(t, iface reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(iface) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(iface))
}

// SignatureOf derives parameters and returns from the Go function fn.
//
// A leading *lua.LState parameter is skipped, then the next receivers
// parameters (the self value of methods). A trailing error result is dropped
// since errors are raised rather than returned in Lua. A variadic tail becomes
// a "..." parameter of the element shape. SignatureOf panics if fn is not a
// function.
func SignatureOf(fn any, receivers int) ([]Param, []Return) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		panic(fmt.Sprintf("ir: expected a function, got %T", fn))
	}
	return signatureOf(t, receivers, map[reflect.Type]bool{})
}

func signatureOf(t reflect.Type, receivers int, visiting map[reflect.Type]bool) ([]Param, []Return) {
	start := 0
	if t.NumIn() > 0 && t.In(0) == lstateType {
		start = 1
	}
	start += receivers

	var params []Param
	for i := start; i < t.NumIn(); i++ {
		in := t.In(i)
		if t.IsVariadic() && i == t.NumIn()-1 {
			params = append(params, Param{Name: "...", Type: typeOf(in.Elem(), visiting)})
			continue
		}
		if implements(in, paramTypedType) {
			params = append(params, paramTyped(in))
			continue
		}
		params = append(params, Param{Type: typeOf(in, visiting)})
	}

	n := t.NumOut()
	if n > 0 && t.Out(n-1) == errorType {
		n--
	}
	returns := make([]Return, 0, n)
	for i := 0; i < n; i++ {
		returns = append(returns, Return{Type: typeOf(t.Out(i), visiting)})
	}
	return params, returns
}

func paramTyped(t reflect.Type) Param {
	if t.Implements(paramTypedType) {
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface().(ParamTyped).LuaParam()
		}
		return reflect.Zero(t).Interface().(ParamTyped).LuaParam()
	}
	return reflect.New(t).Interface().(ParamTyped).LuaParam()
}
