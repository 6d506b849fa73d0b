package ir

import (
	"sort"
	"strings"
)

// FieldEntry is a field paired with its key.
type FieldEntry struct {
	Key Index
	*Field
}

// FuncEntry is a function paired with its key.
type FuncEntry struct {
	Key Index
	*Func
}

// SortedFields returns the fields of m ordered by key.
func SortedFields(m map[Index]*Field) []FieldEntry {
	out := make([]FieldEntry, 0, len(m))
	for k, v := range m {
		out = append(out, FieldEntry{Key: k, Field: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// SortedFuncs returns the functions of m ordered by key.
func SortedFuncs(m map[Index]*Func) []FuncEntry {
	out := make([]FuncEntry, 0, len(m))
	for k, v := range m {
		out = append(out, FuncEntry{Key: k, Func: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// docQueue holds documentation waiting for the next registration.
type docQueue struct {
	lines []string
}

func (q *docQueue) push(doc string) {
	q.lines = append(q.lines, doc)
}

func (q *docQueue) take() string {
	doc := strings.Join(q.lines, "\n")
	q.lines = q.lines[:0]
	return doc
}

func joinDoc(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n" + b
}

// mergeField records t under key. A redeclared field keeps the union of
// both shapes and the concatenation of both docs.
func mergeField(m map[Index]*Field, key Index, t Type, doc string) {
	if f, ok := m[key]; ok {
		f.Type = Or(f.Type, t)
		f.Doc = joinDoc(f.Doc, doc)
		return
	}
	m[key] = &Field{Type: t, Doc: doc}
}

// mergeFunc records fn under key. A redeclared function takes the new
// signature and appends the new doc.
func mergeFunc(m map[Index]*Func, key Index, fn *Func, doc string) {
	if f, ok := m[key]; ok {
		fn.Doc = joinDoc(f.Doc, doc)
	} else {
		fn.Doc = doc
	}
	m[key] = fn
}

// getterType returns the shape produced by a getter function.
func getterType(get any, receivers int) Type {
	_, returns := SignatureOf(get, receivers)
	if len(returns) == 0 {
		return Nil()
	}
	return returns[0].Type
}

// setterType returns the shape accepted by a setter function.
func setterType(set any, receivers int) Type {
	params, _ := SignatureOf(set, receivers)
	if len(params) == 0 {
		return Nil()
	}
	return params[0].Type
}
