// Package ir defines the declaration model for Lua definition files: a small
// algebra of type shapes, the collectors that record classes and modules, and
// the named groups of entries that a writer turns into annotation files.
package ir

// Kind identifies the variant of a Type.
type Kind int

const (
	// Leaf shapes
	KindSingle Kind = iota // Named or literal type rendered verbatim
	KindEnum               // Named set of literal variants
	KindClass              // Class recorded from a UserData
	KindModule             // Module recorded from a Module

	// Wrappers used at the root of an entry
	KindValue // Global value of the wrapped shape
	KindAlias // Named alias for the wrapped shape

	// Composite shapes
	KindTuple    // Fixed sequence [A, B]
	KindTable    // Table literal { k: T }
	KindUnion    // A | B
	KindArray    // T[]
	KindMap      // { [K]: V }
	KindFunction // fun(...): ...
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "Single"
	case KindEnum:
		return "Enum"
	case KindClass:
		return "Class"
	case KindModule:
		return "Module"
	case KindValue:
		return "Value"
	case KindAlias:
		return "Alias"
	case KindTuple:
		return "Tuple"
	case KindTable:
		return "Table"
	case KindUnion:
		return "Union"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindFunction:
		return "Function"
	default:
		return "Unknown"
	}
}

// Type is a shape in the declaration model.
type Type interface {
	// Kind returns the variant for type switching.
	Kind() Kind

	// Ensure only types in this package can implement Type.
	sealed()
}
