package ir

// Or returns the union of a and b.
//
// Unions are kept flat: a union on either side contributes its members, a
// member already present is skipped, and two equal shapes collapse to one.
// The result is idempotent and associative up to member order.
func Or(a, b Type) Type {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	members := appendMembers(nil, a)
	members = appendMembers(members, b)
	if len(members) == 1 {
		return members[0]
	}
	return &UnionType{Types: members}
}

// Union folds types with Or. It returns nil when no types are given.
func Union(types ...Type) Type {
	var out Type
	for _, t := range types {
		out = Or(out, t)
	}
	return out
}

func appendMembers(members []Type, t Type) []Type {
	if u, ok := t.(*UnionType); ok {
		for _, m := range u.Types {
			members = appendMembers(members, m)
		}
		return members
	}
	for _, m := range members {
		if Equal(m, t) {
			return members
		}
	}
	return append(members, t)
}

// Equal reports whether a and b are structurally equal. Classes and modules
// are equal only when they carry the same collector.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case *SingleType:
		return a.Name == b.(*SingleType).Name
	case *ValueType:
		return Equal(a.Inner, b.(*ValueType).Inner)
	case *AliasType:
		return Equal(a.Inner, b.(*AliasType).Inner)
	case *TupleType:
		return equalTypes(a.Types, b.(*TupleType).Types)
	case *UnionType:
		return equalTypes(a.Types, b.(*UnionType).Types)
	case *ArrayType:
		return Equal(a.Element, b.(*ArrayType).Element)
	case *MapType:
		bm := b.(*MapType)
		return Equal(a.Key, bm.Key) && Equal(a.Value, bm.Value)
	case *TableType:
		bt := b.(*TableType)
		if len(a.Entries) != len(bt.Entries) {
			return false
		}
		for i := range a.Entries {
			if a.Entries[i].Key != bt.Entries[i].Key || !Equal(a.Entries[i].Type, bt.Entries[i].Type) {
				return false
			}
		}
		return true
	case *FunctionType:
		return equalFunc(a, b.(*FunctionType))
	case *EnumType:
		be := b.(*EnumType)
		return a.Name == be.Name && equalTypes(a.Variants, be.Variants)
	case *ClassType:
		return a.Class == b.(*ClassType).Class
	case *ModuleType:
		return a.Module == b.(*ModuleType).Module
	}
	return false
}

func equalTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalFunc(a, b *FunctionType) bool {
	if len(a.Params) != len(b.Params) || len(a.Returns) != len(b.Returns) {
		return false
	}
	for i, p := range a.Params {
		q := b.Params[i]
		if p.Name != q.Name || p.Doc != q.Doc || !Equal(p.Type, q.Type) {
			return false
		}
	}
	for i, r := range a.Returns {
		s := b.Returns[i]
		if r.Doc != s.Doc || !Equal(r.Type, s.Type) {
			return false
		}
	}
	return true
}
