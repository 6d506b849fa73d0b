package ir

import (
	"reflect"
	"sync"
)

// UserData is implemented by Go types exposed to Lua as classes.
// The same methods drive both definition recording and live binding.
type UserData interface {
	LuaFields(fields ClassFields)
	LuaMethods(methods ClassMethods)
}

// Documented is implemented by classes and modules that carry a doc string.
type Documented interface {
	LuaDoc() string
}

// ClassFields is the capability handed to UserData.LuaFields.
//
// Getters and setters are Go functions. Function-level accessors take no self
// parameter; method-level accessors take the instance as their first
// parameter. Any accessor may take a leading *lua.LState.
type ClassFields interface {
	// Document queues doc for the next registration.
	Document(doc string) ClassFields

	AddField(name string, value any)
	AddFieldFunctionGet(name string, get any)
	AddFieldFunctionSet(name string, set any)
	AddFieldFunctionGetSet(name string, get, set any)
	AddFieldMethodGet(name string, get any)
	AddFieldMethodSet(name string, set any)
	AddFieldMethodGetSet(name string, get, set any)
	AddMetaField(name string, value any)
}

// ClassMethods is the capability handed to UserData.LuaMethods.
// Methods take the instance as their first parameter; functions do not.
// The With variants let the caller name and document the derived signature.
type ClassMethods interface {
	// Document queues doc for the next registration.
	Document(doc string) ClassMethods

	AddMethod(name string, fn any)
	AddMethodWith(name string, fn any, with func(*FunctionBuilder))
	AddFunction(name string, fn any)
	AddFunctionWith(name string, fn any, with func(*FunctionBuilder))
	AddMetaMethod(name string, fn any)
	AddMetaMethodWith(name string, fn any, with func(*FunctionBuilder))
	AddMetaFunction(name string, fn any)
	AddMetaFunctionWith(name string, fn any, with func(*FunctionBuilder))
}

// ClassBuilder records the shape of a class.
type ClassBuilder struct {
	// Doc is the class documentation.
	Doc string

	// Fields are instance fields, StaticFields are class level fields.
	Fields       map[Index]*Field
	StaticFields map[Index]*Field
	MetaFields   map[Index]*Field

	Methods       map[Index]*Func
	Functions     map[Index]*Func
	MetaMethods   map[Index]*Func
	MetaFunctions map[Index]*Func

	queue docQueue
}

// NewClassBuilder returns an empty class.
func NewClassBuilder() *ClassBuilder {
	return &ClassBuilder{
		Fields:        map[Index]*Field{},
		StaticFields:  map[Index]*Field{},
		MetaFields:    map[Index]*Field{},
		Methods:       map[Index]*Func{},
		Functions:     map[Index]*Func{},
		MetaMethods:   map[Index]*Func{},
		MetaFunctions: map[Index]*Func{},
	}
}

// NewClass records u.
func NewClass(u UserData) *ClassBuilder {
	b := NewClassBuilder()
	if d, ok := u.(Documented); ok {
		b.Doc = d.LuaDoc()
	}
	u.LuaFields(b.ClassFields())
	u.LuaMethods(b.ClassMethods())
	return b
}

var classCache sync.Map // reflect.Type -> *ClassType

// ClassOf returns the class shape of u. Shapes are cached per Go type so that
// every reference to the same type resolves to the same registered class.
func ClassOf(u UserData) *ClassType {
	t := reflect.TypeOf(u)
	if c, ok := classCache.Load(t); ok {
		return c.(*ClassType)
	}
	c, _ := classCache.LoadOrStore(t, &ClassType{Class: NewClass(u)})
	return c.(*ClassType)
}

// HasFunctions reports whether the class has any function-like or meta member.
func (b *ClassBuilder) HasFunctions() bool {
	return len(b.Methods) > 0 || len(b.Functions) > 0 || len(b.MetaMethods) > 0 ||
		len(b.MetaFunctions) > 0 || len(b.MetaFields) > 0
}

// IsMetaEmpty reports whether the class has no meta members.
func (b *ClassBuilder) IsMetaEmpty() bool {
	return len(b.MetaFields) == 0 && len(b.MetaMethods) == 0 && len(b.MetaFunctions) == 0
}

// ClassFields returns the recording adapter for fields.
func (b *ClassBuilder) ClassFields() ClassFields { return classFields{b} }

// ClassMethods returns the recording adapter for methods.
func (b *ClassBuilder) ClassMethods() ClassMethods { return classMethods{b} }

type classFields struct{ b *ClassBuilder }

func (f classFields) Document(doc string) ClassFields {
	f.b.queue.push(doc)
	return f
}

func (f classFields) AddField(name string, value any) {
	mergeField(f.b.StaticFields, Key(name), TypeOf(value), f.b.queue.take())
}

func (f classFields) AddFieldFunctionGet(name string, get any) {
	mergeField(f.b.StaticFields, Key(name), getterType(get, 0), f.b.queue.take())
}

func (f classFields) AddFieldFunctionSet(name string, set any) {
	mergeField(f.b.StaticFields, Key(name), setterType(set, 0), f.b.queue.take())
}

func (f classFields) AddFieldFunctionGetSet(name string, get, set any) {
	t := Or(getterType(get, 0), setterType(set, 0))
	mergeField(f.b.StaticFields, Key(name), t, f.b.queue.take())
}

func (f classFields) AddFieldMethodGet(name string, get any) {
	mergeField(f.b.Fields, Key(name), getterType(get, 1), f.b.queue.take())
}

func (f classFields) AddFieldMethodSet(name string, set any) {
	mergeField(f.b.Fields, Key(name), setterType(set, 1), f.b.queue.take())
}

func (f classFields) AddFieldMethodGetSet(name string, get, set any) {
	t := Or(getterType(get, 1), setterType(set, 1))
	mergeField(f.b.Fields, Key(name), t, f.b.queue.take())
}

func (f classFields) AddMetaField(name string, value any) {
	mergeField(f.b.MetaFields, Key(name), TypeOf(value), f.b.queue.take())
}

type classMethods struct{ b *ClassBuilder }

func (m classMethods) Document(doc string) ClassMethods {
	m.b.queue.push(doc)
	return m
}

func (m classMethods) AddMethod(name string, fn any) { m.AddMethodWith(name, fn, nil) }

func (m classMethods) AddMethodWith(name string, fn any, with func(*FunctionBuilder)) {
	mergeFunc(m.b.Methods, Key(name), buildFunc(fn, 1, with), m.b.queue.take())
}

func (m classMethods) AddFunction(name string, fn any) { m.AddFunctionWith(name, fn, nil) }

func (m classMethods) AddFunctionWith(name string, fn any, with func(*FunctionBuilder)) {
	mergeFunc(m.b.Functions, Key(name), buildFunc(fn, 0, with), m.b.queue.take())
}

func (m classMethods) AddMetaMethod(name string, fn any) { m.AddMetaMethodWith(name, fn, nil) }

func (m classMethods) AddMetaMethodWith(name string, fn any, with func(*FunctionBuilder)) {
	mergeFunc(m.b.MetaMethods, Key(name), buildFunc(fn, 1, with), m.b.queue.take())
}

func (m classMethods) AddMetaFunction(name string, fn any) { m.AddMetaFunctionWith(name, fn, nil) }

func (m classMethods) AddMetaFunctionWith(name string, fn any, with func(*FunctionBuilder)) {
	mergeFunc(m.b.MetaFunctions, Key(name), buildFunc(fn, 0, with), m.b.queue.take())
}
