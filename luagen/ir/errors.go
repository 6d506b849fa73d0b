package ir

import (
	"fmt"
	"strings"
)

// RegistrationError reports a shape that does not fit the registration that
// was asked for, such as registering a non-enum as an enum.
type RegistrationError struct {
	Name string
	Want Kind
	Got  Kind
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %q: expected %s type, got %s", e.Name, e.Want, e.Got)
}

// CyclicModuleError reports a module that contains itself through a chain of
// nested modules.
type CyclicModuleError struct {
	// Module is the key under which the repeated module was added.
	Module string

	// GoType is the Go type of the repeated module.
	GoType string

	// Path lists the module keys from the root to the repeated module.
	Path []string
}

func (e *CyclicModuleError) Error() string {
	return fmt.Sprintf("cyclic module %s (%s): %s", e.Module, e.GoType, strings.Join(e.Path, " -> "))
}

// UnresolvedReferenceError reports a class or enum shape used by an entry
// before any entry of the group registered it.
type UnresolvedReferenceError struct {
	Entry string
	Kind  Kind

	// Name is the enum name; it is empty for classes.
	Name string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("entry %q references unregistered %s %q", e.Entry, strings.ToLower(e.Kind.String()), e.Name)
	}
	return fmt.Sprintf("entry %q references an unregistered %s", e.Entry, strings.ToLower(e.Kind.String()))
}

// UnsupportedRootTypeError reports an entry whose shape cannot appear at the
// top level of a definition file.
type UnsupportedRootTypeError struct {
	Entry string
	Kind  Kind
}

func (e *UnsupportedRootTypeError) Error() string {
	return fmt.Sprintf("entry %q: unsupported top-level type kind: %s", e.Entry, e.Kind)
}

// ValidationError represents a structural problem in a set of definitions.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Code + ": " + e.Message
}

// Warning represents a non-fatal issue encountered while building definitions.
type Warning struct {
	// Code is a machine-readable warning identifier.
	Code string

	// Message is a human-readable description.
	Message string

	// Group and Entry locate the warning, if applicable.
	Group string
	Entry string
}
