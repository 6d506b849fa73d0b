package luals

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuin/gopher-lua/parse"
	"golang.org/x/tools/txtar"

	"github.com/broady/luadecl/luagen/ir"
)

var update = flag.Bool("update", false, "rewrite golden files in testdata")

func TestGolden(t *testing.T) {
	defs, err := fullDefinitions().Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	const golden = "testdata/writer.txtar"
	archive, err := txtar.ParseFile(golden)
	if err != nil {
		t.Fatal(err)
	}
	want := make(map[string]string, len(archive.Files))
	for _, f := range archive.Files {
		want[f.Name] = string(f.Data)
	}

	var got []txtar.File
	for _, file := range NewFileGenerator(defs).Files() {
		content, err := file.Writer.Bytes()
		if err != nil {
			t.Fatalf("%s: %v", file.Name, err)
		}
		got = append(got, txtar.File{Name: file.Name, Data: content})

		if _, err := parse.Parse(bytes.NewReader(content), file.Name); err != nil {
			t.Errorf("%s is not valid Lua: %v", file.Name, err)
		}
		if *update {
			continue
		}
		if w, ok := want[file.Name]; !ok {
			t.Errorf("no golden section for %s", file.Name)
		} else if string(content) != w {
			t.Errorf("%s mismatch\n--- got ---\n%s\n--- want ---\n%s", file.Name, content, w)
		}
	}

	if *update {
		archive.Files = got
		if err := os.WriteFile(golden, txtar.Format(archive), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFileGenerator_Extension(t *testing.T) {
	defs, err := ir.NewDefinitions().
		Define("a", ir.NewDefinition()).
		Define("b", ir.NewDefinition()).
		Finish()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ext  string
		want []string
	}{
		{"", []string{"a", "b"}},
		{".lua", []string{"a.lua", "b.lua"}},
	}
	for _, tt := range tests {
		var names []string
		for _, f := range NewFileGenerator(defs).Extension(tt.ext).Files() {
			names = append(names, f.Name)
		}
		if strings.Join(names, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Extension(%q) names = %v, want %v", tt.ext, names, tt.want)
		}
	}

	for _, f := range NewFileGenerator(defs).Files() {
		if !strings.HasSuffix(f.Name, DefaultExtension) {
			t.Errorf("default name %q lacks %s", f.Name, DefaultExtension)
		}
	}
}

func render(t *testing.T, cfg Config, entries ...ir.Entry) (string, error) {
	t.Helper()
	out, err := NewWriter(&ir.Definition{Name: "test", Entries: entries}, cfg).Bytes()
	return string(out), err
}

func TestWriter_Entries(t *testing.T) {
	tests := []struct {
		name  string
		entry ir.Entry
		want  string
	}{
		{
			name:  "value with multi-line doc",
			entry: ir.Entry{Name: "answer", Type: ir.Value(ir.Integer()), Doc: "The answer\n\nto everything  "},
			want:  "--- The answer\n---\n--- to everything\n--- @type integer\nanswer = nil\n",
		},
		{
			name:  "dotted value",
			entry: ir.Entry{Name: "os.version", Type: ir.Value(ir.String())},
			want:  "--- @type string\nos.version = nil\n",
		},
		{
			name:  "alias of table literal",
			entry: ir.Entry{Name: "Point", Type: ir.Alias(ir.TableOf(ir.TableEntry{Key: ir.Key("y"), Type: ir.Number()}, ir.TableEntry{Key: ir.Key("x"), Type: ir.Number()}))},
			want:  "--- @alias Point { x: number, y: number }\n",
		},
		{
			name:  "alias of empty table literal",
			entry: ir.Entry{Name: "Bag", Type: ir.Alias(ir.TableOf())},
			want:  "--- @alias Bag table\n",
		},
		{
			name:  "union with function member",
			entry: ir.Entry{Name: "Handler", Type: ir.Alias(ir.Or(ir.Function(nil, nil), ir.Nil()))},
			want:  "--- @alias Handler (fun()) | nil\n",
		},
		{
			name:  "empty enum",
			entry: ir.Entry{Name: "Never", Type: ir.Enum("Never")},
			want:  "--- @alias Never nil\n",
		},
		{
			name: "function with unnamed params",
			entry: ir.Entry{Name: "add", Type: ir.Function(
				[]ir.Param{{Type: ir.Integer()}, {Type: ir.Integer(), Doc: "second\noperand"}},
				[]ir.Return{{Type: ir.Integer(), Doc: "sum"}},
			)},
			want: "--- @param param0 integer\n--- @param param1 integer second operand\n--- @return integer sum\nfunction add(param0, param1) end\n",
		},
		{
			name:  "function with invalid name",
			entry: ir.Entry{Name: "do-it", Type: ir.Function(nil, nil)},
			want:  "_G[\"do-it\"] = function() end\n",
		},
		{
			name:  "class without functions",
			entry: ir.Entry{Name: "Plain", Type: &ir.ClassType{Class: ir.NewClassBuilder()}},
			want:  "--- @class Plain\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, Config{}, tt.entry)
			if err != nil {
				t.Fatalf("Bytes() error = %v", err)
			}
			got = strings.TrimPrefix(got, "--- @meta\n\n")
			if got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWriter_SelfReferentialClass(t *testing.T) {
	class := ir.NewClassBuilder()
	entry := ir.Entry{Name: "Node", Type: &ir.ClassType{Class: class}}
	class.Fields[ir.Key("next")] = &ir.Field{Type: ir.Optional(entry.Type)}

	got, err := render(t, Config{}, entry)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !strings.Contains(got, "--- @field next Node | nil\n") {
		t.Errorf("self reference not resolved:\n%s", got)
	}
}

func TestWriter_Config(t *testing.T) {
	mod := ir.NewModuleBuilder()
	mod.Doc = "Docs"
	mod.Fields[ir.Key("x")] = &ir.Field{Type: ir.Integer(), Doc: "field doc"}
	mod.Functions[ir.Key("f")] = &ir.Func{Params: []ir.Param{{Name: "a", Type: ir.String(), Doc: "param doc"}}}

	got, err := render(t, Config{IndentSize: 4, Frontmatter: "Generated file", OmitComments: true},
		ir.Entry{Name: "m", Type: &ir.ModuleType{Module: mod}})
	if err != nil {
		t.Fatal(err)
	}
	want := "--- @meta\n--- Generated file\n\nm = {\n    --- @type integer\n    x = nil,\n    --- @param a string\n    f = function(a) end,\n}\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriter_Errors(t *testing.T) {
	class := &ir.ClassType{Class: ir.NewClassBuilder()}
	enum := ir.EnumOf("Mode", "a", "b")

	tests := []struct {
		name    string
		entries []ir.Entry
		check   func(error) bool
	}{
		{
			name:    "class used before registration",
			entries: []ir.Entry{{Name: "c", Type: ir.Value(class)}, {Name: "C", Type: class}},
			check: func(err error) bool {
				var e *ir.UnresolvedReferenceError
				return errors.As(err, &e) && e.Entry == "c" && e.Kind == ir.KindClass
			},
		},
		{
			name:    "enum never registered",
			entries: []ir.Entry{{Name: "f", Type: ir.Function([]ir.Param{{Type: enum}}, nil)}},
			check: func(err error) bool {
				var e *ir.UnresolvedReferenceError
				return errors.As(err, &e) && e.Name == "Mode" && e.Kind == ir.KindEnum
			},
		},
		{
			name:    "tuple at the root",
			entries: []ir.Entry{{Name: "t", Type: ir.Tuple(ir.String())}},
			check: func(err error) bool {
				var e *ir.UnsupportedRootTypeError
				return errors.As(err, &e) && e.Entry == "t" && e.Kind == ir.KindTuple
			},
		},
		{
			name:    "single at the root",
			entries: []ir.Entry{{Name: "s", Type: ir.String()}},
			check: func(err error) bool {
				var e *ir.UnsupportedRootTypeError
				return errors.As(err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&ir.Definition{Name: "bad", Entries: tt.entries}, Config{})
			err := w.Write(&buf)
			if !tt.check(err) {
				t.Errorf("Write() error = %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("Write() wrote %d bytes on failure", buf.Len())
			}
		})
	}
}

func TestWriter_WriteFile(t *testing.T) {
	defs, err := fullDefinitions().Finish()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "init.d.lua")
	w := NewWriter(defs.Get("init"), Config{})
	if err := w.WriteFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(content, []byte("--- @meta\n")) {
		t.Errorf("unexpected content: %q", content)
	}

	again, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, content) {
		t.Error("rendering twice produced different output")
	}
}
