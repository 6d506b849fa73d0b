package ir

import (
	"reflect"
	"slices"
)

// Module is implemented by Go types exposed to Lua as module tables.
// The same methods drive both definition recording and live binding.
type Module interface {
	LuaFields(fields ModuleFields) error
	LuaMethods(methods ModuleMethods) error
}

// ModuleFields is the capability handed to Module.LuaFields.
// Keys are a string, an int or an Index.
type ModuleFields interface {
	// Document queues doc for the next registration.
	Document(doc string) ModuleFields

	AddField(key any, value any) error
	AddMetaField(key any, value any) error
	AddModule(key any, m Module) error
}

// ModuleMethods is the capability handed to Module.LuaMethods.
// Methods take the module table as their first parameter; functions do not.
type ModuleMethods interface {
	// Document queues doc for the next registration.
	Document(doc string) ModuleMethods

	AddFunction(key any, fn any) error
	AddFunctionWith(key any, fn any, with func(*FunctionBuilder)) error
	AddMethod(key any, fn any) error
	AddMethodWith(key any, fn any, with func(*FunctionBuilder)) error
	AddMetaFunction(key any, fn any) error
	AddMetaFunctionWith(key any, fn any, with func(*FunctionBuilder)) error
	AddMetaMethod(key any, fn any) error
	AddMetaMethodWith(key any, fn any, with func(*FunctionBuilder)) error
}

// Ancestry is the chain of module types being collected, outermost first.
// Extend returns a new chain and never modifies the receiver, so siblings
// never observe each other.
type Ancestry struct {
	types []reflect.Type
	names []string
}

// Extend appends the module type t registered under name. It fails with a
// *CyclicModuleError when t is already an ancestor.
func (a Ancestry) Extend(t reflect.Type, name string) (Ancestry, error) {
	path := append(slices.Clip(a.names), name)
	if slices.Contains(a.types, t) {
		return a, &CyclicModuleError{Module: name, GoType: t.String(), Path: path}
	}
	return Ancestry{types: append(slices.Clip(a.types), t), names: path}, nil
}

// Len returns the depth of the chain.
func (a Ancestry) Len() int { return len(a.types) }

// ModuleBuilder records the shape of a module.
type ModuleBuilder struct {
	// Doc is the module documentation.
	Doc string

	Nested        map[Index]*ModuleBuilder
	Fields        map[Index]*Field
	MetaFields    map[Index]*Field
	Functions     map[Index]*Func
	Methods       map[Index]*Func
	MetaFunctions map[Index]*Func
	MetaMethods   map[Index]*Func

	ancestry Ancestry
	queue    docQueue
}

func newModuleBuilder(a Ancestry) *ModuleBuilder {
	return &ModuleBuilder{
		Nested:        map[Index]*ModuleBuilder{},
		Fields:        map[Index]*Field{},
		MetaFields:    map[Index]*Field{},
		Functions:     map[Index]*Func{},
		Methods:       map[Index]*Func{},
		MetaFunctions: map[Index]*Func{},
		MetaMethods:   map[Index]*Func{},
		ancestry:      a,
	}
}

// NewModuleBuilder returns an empty module with no ancestors.
func NewModuleBuilder() *ModuleBuilder {
	return newModuleBuilder(Ancestry{})
}

// BuildModule records m and every module nested in it.
func BuildModule(m Module) (*ModuleBuilder, error) {
	t := reflect.TypeOf(m)
	a, err := Ancestry{}.Extend(t, t.String())
	if err != nil {
		return nil, err
	}
	return buildModule(m, a)
}

// ModuleOf returns the module shape of m.
func ModuleOf(m Module) (*ModuleType, error) {
	b, err := BuildModule(m)
	if err != nil {
		return nil, err
	}
	return &ModuleType{Module: b}, nil
}

func buildModule(m Module, a Ancestry) (*ModuleBuilder, error) {
	b := newModuleBuilder(a)
	if d, ok := m.(Documented); ok {
		b.Doc = d.LuaDoc()
	}
	if err := m.LuaFields(b.ModuleFields()); err != nil {
		return nil, err
	}
	if err := m.LuaMethods(b.ModuleMethods()); err != nil {
		return nil, err
	}
	return b, nil
}

// IsEmpty reports whether the module has no members at all.
func (b *ModuleBuilder) IsEmpty() bool {
	return len(b.Nested) == 0 && len(b.Fields) == 0 && len(b.Functions) == 0 &&
		len(b.Methods) == 0 && b.IsMetaEmpty()
}

// IsMetaEmpty reports whether the module has no meta members.
func (b *ModuleBuilder) IsMetaEmpty() bool {
	return len(b.MetaFields) == 0 && len(b.MetaFunctions) == 0 && len(b.MetaMethods) == 0
}

// SortedNested returns the nested modules ordered by key.
func (b *ModuleBuilder) SortedNested() []NestedEntry {
	out := make([]NestedEntry, 0, len(b.Nested))
	for k, v := range b.Nested {
		out = append(out, NestedEntry{Key: k, Module: v})
	}
	slices.SortFunc(out, func(x, y NestedEntry) int {
		switch {
		case x.Key.Less(y.Key):
			return -1
		case y.Key.Less(x.Key):
			return 1
		}
		return 0
	})
	return out
}

// NestedEntry is a nested module paired with its key.
type NestedEntry struct {
	Key    Index
	Module *ModuleBuilder
}

// ModuleFields returns the recording adapter for fields.
func (b *ModuleBuilder) ModuleFields() ModuleFields { return moduleFields{b} }

// ModuleMethods returns the recording adapter for methods.
func (b *ModuleBuilder) ModuleMethods() ModuleMethods { return moduleMethods{b} }

type moduleFields struct{ b *ModuleBuilder }

func (f moduleFields) Document(doc string) ModuleFields {
	f.b.queue.push(doc)
	return f
}

func (f moduleFields) AddField(key any, value any) error {
	mergeField(f.b.Fields, IndexOf(key), TypeOf(value), f.b.queue.take())
	return nil
}

func (f moduleFields) AddMetaField(key any, value any) error {
	mergeField(f.b.MetaFields, IndexOf(key), TypeOf(value), f.b.queue.take())
	return nil
}

func (f moduleFields) AddModule(key any, m Module) error {
	idx := IndexOf(key)
	doc := f.b.queue.take()
	a, err := f.b.ancestry.Extend(reflect.TypeOf(m), idx.Name())
	if err != nil {
		return err
	}
	child, err := buildModule(m, a)
	if err != nil {
		return err
	}
	if prev, ok := f.b.Nested[idx]; ok {
		doc = joinDoc(prev.Doc, doc)
	}
	child.Doc = joinDoc(doc, child.Doc)
	f.b.Nested[idx] = child
	return nil
}

type moduleMethods struct{ b *ModuleBuilder }

func (m moduleMethods) Document(doc string) ModuleMethods {
	m.b.queue.push(doc)
	return m
}

func (m moduleMethods) AddFunction(key any, fn any) error { return m.AddFunctionWith(key, fn, nil) }

func (m moduleMethods) AddFunctionWith(key any, fn any, with func(*FunctionBuilder)) error {
	mergeFunc(m.b.Functions, IndexOf(key), buildFunc(fn, 0, with), m.b.queue.take())
	return nil
}

func (m moduleMethods) AddMethod(key any, fn any) error { return m.AddMethodWith(key, fn, nil) }

func (m moduleMethods) AddMethodWith(key any, fn any, with func(*FunctionBuilder)) error {
	mergeFunc(m.b.Methods, IndexOf(key), buildFunc(fn, 1, with), m.b.queue.take())
	return nil
}

func (m moduleMethods) AddMetaFunction(key any, fn any) error {
	return m.AddMetaFunctionWith(key, fn, nil)
}

func (m moduleMethods) AddMetaFunctionWith(key any, fn any, with func(*FunctionBuilder)) error {
	mergeFunc(m.b.MetaFunctions, IndexOf(key), buildFunc(fn, 0, with), m.b.queue.take())
	return nil
}

func (m moduleMethods) AddMetaMethod(key any, fn any) error { return m.AddMetaMethodWith(key, fn, nil) }

func (m moduleMethods) AddMetaMethodWith(key any, fn any, with func(*FunctionBuilder)) error {
	mergeFunc(m.b.MetaMethods, IndexOf(key), buildFunc(fn, 1, with), m.b.queue.take())
	return nil
}
