// Package luals writes definition groups as annotation files understood by
// the Lua language server.
package luals

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/broady/luadecl/luagen/ir"
	"github.com/broady/luadecl/luagen/sink"
)

// Config controls the layout of written files.
type Config struct {
	// IndentSize is the number of spaces per table nesting level.
	// Zero means 2.
	IndentSize int

	// Frontmatter is written as comment lines right after the @meta line.
	Frontmatter string

	// OmitComments drops every doc string from the output. Annotations are
	// still written.
	OmitComments bool
}

// Writer renders one definition group.
//
// Class and enum entries are named in the order they are written, so an
// entry may only refer to a class or enum registered earlier in the group.
// A Writer is not safe for concurrent use.
type Writer struct {
	def   *ir.Definition
	cfg   Config
	names []named
	entry string
}

type named struct {
	t    ir.Type
	name string
}

// NewWriter returns a writer for def.
func NewWriter(def *ir.Definition, cfg Config) *Writer {
	if cfg.IndentSize <= 0 {
		cfg.IndentSize = 2
	}
	return &Writer{def: def, cfg: cfg}
}

// Bytes renders the whole group.
func (w *Writer) Bytes() ([]byte, error) {
	w.names = w.names[:0]

	var buf bytes.Buffer
	buf.WriteString("--- @meta\n")
	if w.cfg.Frontmatter != "" {
		for _, line := range strings.Split(w.cfg.Frontmatter, "\n") {
			buf.WriteString(strings.TrimRight("--- "+line, " "))
			buf.WriteByte('\n')
		}
	}
	for _, e := range w.def.Entries {
		buf.WriteByte('\n')
		if err := w.emitEntry(&buf, e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Write renders the group to out. Nothing is written if rendering fails.
func (w *Writer) Write(out io.Writer) error {
	content, err := w.Bytes()
	if err != nil {
		return err
	}
	_, err = out.Write(content)
	return err
}

// WriteFile renders the group to path, replacing any existing file
// atomically.
func (w *Writer) WriteFile(ctx context.Context, path string) error {
	content, err := w.Bytes()
	if err != nil {
		return err
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return sink.NewFilesystemSink(dir).WriteFile(ctx, base, content)
}

func (w *Writer) emitEntry(buf *bytes.Buffer, e ir.Entry) error {
	w.entry = e.Name

	switch t := e.Type.(type) {
	case *ir.ValueType:
		sig, err := w.signature(t.Inner)
		if err != nil {
			return err
		}
		w.emitDoc(buf, "", e.Doc)
		fmt.Fprintf(buf, "--- @type %s\n%s = nil\n", sig, assignTarget(e.Name))
		return nil
	case *ir.AliasType:
		sig, err := w.signature(t.Inner)
		if err != nil {
			return err
		}
		w.emitDoc(buf, "", e.Doc)
		fmt.Fprintf(buf, "--- @alias %s %s\n", e.Name, sig)
		return nil
	case *ir.EnumType:
		return w.emitEnum(buf, e, t)
	case *ir.ClassType:
		return w.emitClass(buf, e, t.Class)
	case *ir.FunctionType:
		return w.emitFunction(buf, e, t)
	case *ir.ModuleType:
		w.emitDoc(buf, "", e.Doc, t.Module.Doc)
		buf.WriteString(assignTarget(e.Name))
		buf.WriteString(" = ")
		if err := w.emitModule(buf, t.Module, 0); err != nil {
			return err
		}
		buf.WriteByte('\n')
		return nil
	default:
		return &ir.UnsupportedRootTypeError{Entry: e.Name, Kind: e.Type.Kind()}
	}
}

func (w *Writer) emitEnum(buf *bytes.Buffer, e ir.Entry, t *ir.EnumType) error {
	w.names = append(w.names, named{t: t, name: e.Name})

	variants := make([]string, len(t.Variants))
	for i, v := range t.Variants {
		sig, err := w.signature(v)
		if err != nil {
			return err
		}
		variants[i] = sig
	}
	if len(variants) == 0 {
		variants = []string{"nil"}
	}

	w.emitDoc(buf, "", e.Doc)
	fmt.Fprintf(buf, "--- @alias %s %s\n", e.Name, variants[0])
	for _, v := range variants[1:] {
		fmt.Fprintf(buf, "---| %s\n", v)
	}
	return nil
}

func (w *Writer) emitClass(buf *bytes.Buffer, e ir.Entry, c *ir.ClassBuilder) error {
	// Named before the body so members can refer to the class itself.
	w.names = append(w.names, named{t: e.Type, name: e.Name})

	w.emitDoc(buf, "", e.Doc, c.Doc)
	fmt.Fprintf(buf, "--- @class %s\n", e.Name)
	for _, fields := range [][]ir.FieldEntry{ir.SortedFields(c.StaticFields), ir.SortedFields(c.Fields)} {
		for _, f := range fields {
			sig, err := w.signature(f.Type)
			if err != nil {
				return err
			}
			w.emitDoc(buf, "", f.Doc)
			fmt.Fprintf(buf, "--- @field %s %s\n", f.Key, sig)
		}
	}

	if !c.HasFunctions() {
		return nil
	}

	fmt.Fprintf(buf, "local %s = {\n", classLocal(e.Name))
	if err := w.emitFuncs(buf, 1, ir.SortedFuncs(c.Functions), ""); err != nil {
		return err
	}
	if err := w.emitFuncs(buf, 1, ir.SortedFuncs(c.Methods), e.Name); err != nil {
		return err
	}
	if err := w.emitMetatable(buf, 1, c.MetaFields, c.MetaFunctions, c.MetaMethods, e.Name); err != nil {
		return err
	}
	buf.WriteString("}\n")
	return nil
}

func (w *Writer) emitFunction(buf *bytes.Buffer, e ir.Entry, t *ir.FunctionType) error {
	lines, err := w.annotations("", t.Params, t.Returns)
	if err != nil {
		return err
	}
	w.emitDoc(buf, "", e.Doc)
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	params := paramList("", t.Params)
	if isNamePath(e.Name) {
		fmt.Fprintf(buf, "function %s(%s) end\n", e.Name, params)
	} else {
		fmt.Fprintf(buf, "%s = function(%s) end\n", assignTarget(e.Name), params)
	}
	return nil
}

// emitModule writes m as a table constructor whose closing brace is indented
// for depth. The caller writes whatever follows the brace.
func (w *Writer) emitModule(buf *bytes.Buffer, m *ir.ModuleBuilder, depth int) error {
	if m.IsEmpty() {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{\n")

	in := w.indent(depth + 1)
	for _, f := range ir.SortedFields(m.Fields) {
		if err := w.emitTableField(buf, depth+1, f); err != nil {
			return err
		}
	}
	for _, n := range m.SortedNested() {
		w.emitDoc(buf, in, n.Module.Doc)
		fmt.Fprintf(buf, "%s%s = ", in, n.Key)
		if err := w.emitModule(buf, n.Module, depth+1); err != nil {
			return err
		}
		buf.WriteString(",\n")
	}
	if err := w.emitFuncs(buf, depth+1, ir.SortedFuncs(m.Functions), ""); err != nil {
		return err
	}
	if err := w.emitFuncs(buf, depth+1, ir.SortedFuncs(m.Methods), "table"); err != nil {
		return err
	}
	if err := w.emitMetatable(buf, depth+1, m.MetaFields, m.MetaFunctions, m.MetaMethods, "table"); err != nil {
		return err
	}

	buf.WriteString(w.indent(depth))
	buf.WriteByte('}')
	return nil
}

func (w *Writer) emitTableField(buf *bytes.Buffer, depth int, f ir.FieldEntry) error {
	in := w.indent(depth)
	if mt, ok := f.Type.(*ir.ModuleType); ok {
		w.emitDoc(buf, in, f.Doc)
		fmt.Fprintf(buf, "%s%s = ", in, f.Key)
		if err := w.emitModule(buf, mt.Module, depth); err != nil {
			return err
		}
		buf.WriteString(",\n")
		return nil
	}

	sig, err := w.signature(f.Type)
	if err != nil {
		return err
	}
	w.emitDoc(buf, in, f.Doc)
	fmt.Fprintf(buf, "%s--- @type %s\n%s%s = nil,\n", in, sig, in, f.Key)
	return nil
}

func (w *Writer) emitMetatable(buf *bytes.Buffer, depth int, fields map[ir.Index]*ir.Field, funcs, methods map[ir.Index]*ir.Func, self string) error {
	if len(fields) == 0 && len(funcs) == 0 && len(methods) == 0 {
		return nil
	}
	in := w.indent(depth)
	buf.WriteString(in)
	buf.WriteString("__metatable = {\n")
	for _, f := range ir.SortedFields(fields) {
		if err := w.emitTableField(buf, depth+1, f); err != nil {
			return err
		}
	}
	if err := w.emitFuncs(buf, depth+1, ir.SortedFuncs(funcs), ""); err != nil {
		return err
	}
	if err := w.emitFuncs(buf, depth+1, ir.SortedFuncs(methods), self); err != nil {
		return err
	}
	buf.WriteString(in)
	buf.WriteString("},\n")
	return nil
}

// emitFuncs writes table members of the form `key = function(...) end,`.
// A non-empty self adds a leading self parameter of that type.
func (w *Writer) emitFuncs(buf *bytes.Buffer, depth int, funcs []ir.FuncEntry, self string) error {
	in := w.indent(depth)
	for _, f := range funcs {
		lines, err := w.annotations(self, f.Params, f.Returns)
		if err != nil {
			return err
		}
		w.emitDoc(buf, in, f.Doc)
		for _, l := range lines {
			buf.WriteString(in)
			buf.WriteString(l)
			buf.WriteByte('\n')
		}
		fmt.Fprintf(buf, "%s%s = function(%s) end,\n", in, f.Key, paramList(self, f.Params))
	}
	return nil
}

// annotations returns the @param and @return lines of a function.
func (w *Writer) annotations(self string, params []ir.Param, returns []ir.Return) ([]string, error) {
	var lines []string
	if self != "" {
		lines = append(lines, "--- @param self "+self)
	}
	for i, p := range params {
		sig, err := w.signature(p.Type)
		if err != nil {
			return nil, err
		}
		lines = append(lines, w.withDoc("--- @param "+paramName(i, p)+" "+sig, p.Doc))
	}
	for _, r := range returns {
		sig, err := w.signature(r.Type)
		if err != nil {
			return nil, err
		}
		lines = append(lines, w.withDoc("--- @return "+sig, r.Doc))
	}
	return lines, nil
}

// emitDoc writes each line of each non-empty doc as a comment.
func (w *Writer) emitDoc(buf *bytes.Buffer, indent string, docs ...string) {
	if w.cfg.OmitComments {
		return
	}
	for _, doc := range docs {
		if doc == "" {
			continue
		}
		for _, line := range strings.Split(doc, "\n") {
			buf.WriteString(indent)
			buf.WriteString("---")
			if line = strings.TrimRight(line, " \t\r"); line != "" {
				buf.WriteByte(' ')
				buf.WriteString(line)
			}
			buf.WriteByte('\n')
		}
	}
}

func (w *Writer) indent(depth int) string {
	return strings.Repeat(" ", depth*w.cfg.IndentSize)
}

// withDoc appends doc to an annotation line, folded onto one line.
func (w *Writer) withDoc(line, doc string) string {
	if doc == "" || w.cfg.OmitComments {
		return line
	}
	return line + " " + strings.Join(strings.Fields(doc), " ")
}
