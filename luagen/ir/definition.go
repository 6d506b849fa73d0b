package ir

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/multierr"
)

// Entry is a named, documented shape in a definition group.
type Entry struct {
	Name string
	Type Type
	Doc  string
}

// Definition is a named group of entries, written as one file.
type Definition struct {
	Name     string
	Entries  []Entry
	Warnings []Warning
}

// IsEmpty reports whether the group has no entries.
func (d *Definition) IsEmpty() bool { return len(d.Entries) == 0 }

// Validate checks the group for empty and duplicate entry names.
func (d *Definition) Validate() []error {
	var errs []error
	seen := make(map[string]bool, len(d.Entries))
	for _, e := range d.Entries {
		if e.Name == "" {
			errs = append(errs, &ValidationError{
				Code:    "empty_name",
				Message: fmt.Sprintf("group %s: entry of kind %s has no name", d.Name, e.Type.Kind()),
			})
			continue
		}
		if seen[e.Name] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_entry",
				Message: fmt.Sprintf("group %s: duplicate entry name: %s", d.Name, e.Name),
			})
		}
		seen[e.Name] = true
	}
	return errs
}

// DefinitionBuilder accumulates the entries of one group. Methods chain;
// the first registration failures are reported by Finish.
type DefinitionBuilder struct {
	entries  []Entry
	warnings []Warning
	err      error
}

// NewDefinition starts a definition group.
func NewDefinition() *DefinitionBuilder {
	return &DefinitionBuilder{}
}

func (b *DefinitionBuilder) add(name string, t Type, docs []string) *DefinitionBuilder {
	b.entries = append(b.entries, Entry{Name: name, Type: t, Doc: strings.Join(docs, "\n")})
	return b
}

func (b *DefinitionBuilder) fail(err error) *DefinitionBuilder {
	b.err = multierr.Append(b.err, err)
	return b
}

// Value adds a global value of shape t.
func (b *DefinitionBuilder) Value(name string, t Type, docs ...string) *DefinitionBuilder {
	return b.add(name, Value(t), docs)
}

// ValueOf adds a global value typed like sample.
func (b *DefinitionBuilder) ValueOf(name string, sample any, docs ...string) *DefinitionBuilder {
	return b.Value(name, TypeOf(sample), docs...)
}

// Alias adds a named alias of t.
func (b *DefinitionBuilder) Alias(name string, t Type, docs ...string) *DefinitionBuilder {
	return b.add(name, Alias(t), docs)
}

// Register adds the class or enum described by v. Classes are named after
// their Go type, enums after their own name.
// v is a UserData, a Typed value, or a Type. See RegisterAs for shapes that
// are neither a class nor an enum.
func (b *DefinitionBuilder) Register(v any, docs ...string) *DefinitionBuilder {
	t := shapeOf(v)
	if e, ok := t.(*EnumType); ok {
		return b.add(e.Name, e, docs)
	}
	return b.RegisterAs(goTypeName(v), t, docs...)
}

// RegisterClass adds u as a class under its Go type name.
func (b *DefinitionBuilder) RegisterClass(u UserData, docs ...string) *DefinitionBuilder {
	return b.add(goTypeName(u), ClassOf(u), docs)
}

// RegisterAs adds t under name. Class and enum shapes are kept; any other
// shape is wrapped as an alias and a register_alias_fallback warning is
// recorded.
func (b *DefinitionBuilder) RegisterAs(name string, t Type, docs ...string) *DefinitionBuilder {
	switch t.(type) {
	case *ClassType, *EnumType:
		return b.add(name, t, docs)
	}
	b.warnings = append(b.warnings, Warning{
		Code:    "register_alias_fallback",
		Message: fmt.Sprintf("%s is a %s shape, not a class or enum; registered as an alias", name, t.Kind()),
		Entry:   name,
	})
	return b.add(name, Alias(t), docs)
}

// RegisterEnum adds the enum described by v under the enum's own name.
// Any other shape is a *RegistrationError.
func (b *DefinitionBuilder) RegisterEnum(v any, docs ...string) *DefinitionBuilder {
	t := shapeOf(v)
	e, ok := t.(*EnumType)
	if !ok {
		return b.fail(&RegistrationError{Name: goTypeName(v), Want: KindEnum, Got: t.Kind()})
	}
	return b.add(e.Name, e, docs)
}

// Module records m and adds it under name.
func (b *DefinitionBuilder) Module(name string, m Module, docs ...string) *DefinitionBuilder {
	t, err := ModuleOf(m)
	if err != nil {
		return b.fail(fmt.Errorf("module %s: %w", name, err))
	}
	return b.add(name, t, docs)
}

// Function adds a global function with the signature of fn.
func (b *DefinitionBuilder) Function(name string, fn any, docs ...string) *DefinitionBuilder {
	return b.FunctionWith(name, fn, nil, docs...)
}

// FunctionWith adds a global function and lets with adjust its signature.
func (b *DefinitionBuilder) FunctionWith(name string, fn any, with func(*FunctionBuilder), docs ...string) *DefinitionBuilder {
	f := buildFunc(fn, 0, with)
	return b.add(name, f.Type(), docs)
}

// Entries returns the entries added so far.
func (b *DefinitionBuilder) Entries() []Entry { return b.entries }

// Finish returns the group. The group name is set by DefinitionsBuilder.
func (b *DefinitionBuilder) Finish() (*Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Definition{Entries: b.entries, Warnings: b.warnings}, nil
}

// Definitions is an ordered set of named groups.
type Definitions struct {
	Groups []*Definition
}

// Get returns the group called name, or nil.
func (d *Definitions) Get(name string) *Definition {
	for _, g := range d.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Warnings returns the warnings of every group.
func (d *Definitions) Warnings() []Warning {
	var out []Warning
	for _, g := range d.Groups {
		out = append(out, g.Warnings...)
	}
	return out
}

// Validate checks every group.
func (d *Definitions) Validate() []error {
	var errs []error
	for _, g := range d.Groups {
		errs = append(errs, g.Validate()...)
	}
	return errs
}

// DefinitionsBuilder collects named groups.
type DefinitionsBuilder struct {
	groups []*Definition
	err    error
}

// NewDefinitions starts a set of groups.
func NewDefinitions() *DefinitionsBuilder {
	return &DefinitionsBuilder{}
}

// Define adds the group built by def under name.
func (b *DefinitionsBuilder) Define(name string, def *DefinitionBuilder) *DefinitionsBuilder {
	for _, g := range b.groups {
		if g.Name == name {
			b.err = multierr.Append(b.err, &ValidationError{
				Code:    "duplicate_group",
				Message: "duplicate definition group: " + name,
			})
			return b
		}
	}
	d, err := def.Finish()
	if err != nil {
		b.err = multierr.Append(b.err, fmt.Errorf("group %s: %w", name, err))
		return b
	}
	d.Name = name
	for i := range d.Warnings {
		d.Warnings[i].Group = name
	}
	b.groups = append(b.groups, d)
	return b
}

// Finish returns the groups, or every error recorded while defining them.
func (b *DefinitionsBuilder) Finish() (*Definitions, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Definitions{Groups: b.groups}, nil
}

func shapeOf(v any) Type {
	switch v := v.(type) {
	case Type:
		return v
	case UserData:
		return ClassOf(v)
	}
	return TypeOf(v)
}

func goTypeName(v any) string {
	switch v := v.(type) {
	case *EnumType:
		return v.Name
	case Type:
		return ""
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
