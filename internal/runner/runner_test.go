package runner

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/broady/luadecl/internal/discover"
)

func TestGenerateRunner(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name: "definitions export",
			opts: Options{
				Export: discover.Export{Name: "defs", Type: discover.ExportTypeDefinitions},
				OutDir: "/tmp/types",
			},
			contains: []string{
				"g := luagen.FromDefinitions(defs())",
				`g.ToDir("/tmp/types")`,
				"fmt.Println(f.Path)",
			},
			excludes: []string{"LoadConfig", "CheckSyntax", "Extension(", "g.Generate()"},
		},
		{
			name: "builder export",
			opts: Options{
				Export: discover.Export{Name: "Defs", Type: discover.ExportTypeBuilder},
				OutDir: "out",
			},
			contains: []string{"g := luagen.FromBuilder(Defs())"},
		},
		{
			name: "generator export with overrides",
			opts: Options{
				Export:      discover.Export{Name: "Gen", Type: discover.ExportTypeGenerator},
				ConfigFile:  "/src/luadecl.toml",
				ConfigFunc:  "configure",
				Extension:   ".lua",
				CheckSyntax: true,
				OutDir:      "out",
			},
			contains: []string{
				"g := Gen()",
				`luagen.LoadConfig("/src/luadecl.toml")`,
				"g = g.WithConfig(cfg)",
				"g = configure(g)",
				`g = g.Extension(".lua")`,
				"g = g.CheckSyntax()",
			},
		},
		{
			name: "config func disabled",
			opts: Options{
				Export:     discover.Export{Name: "Gen", Type: discover.ExportTypeGenerator},
				ConfigFunc: "configure",
				NoConfig:   true,
			},
			excludes: []string{"configure(g)"},
		},
		{
			name: "check mode",
			opts: Options{
				Export:    discover.Export{Name: "Defs", Type: discover.ExportTypeBuilder},
				CheckMode: true,
			},
			contains: []string{"g.Generate()", `fmt.Printf("%d %d %d\n"`},
			excludes: []string{"ToDir"},
		},
		{
			name: "library package",
			opts: Options{
				Export:     discover.Export{Name: "Definitions", Type: discover.ExportTypeDefinitions},
				ConfigFunc: "Configure",
				PkgName:    "greeter",
				PkgPath:    "example.com/greeter",
				OutDir:     "out",
			},
			contains: []string{
				`export "example.com/greeter"`,
				"luagen.FromDefinitions(export.Definitions())",
				"g = export.Configure(g)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := generateRunner(tt.opts)
			if err != nil {
				t.Fatalf("generateRunner: %v", err)
			}
			out := string(src)
			if !strings.HasPrefix(out, "package main\n") {
				t.Errorf("runner is not package main:\n%s", out)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q\n%s", want, out)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(out, bad) {
					t.Errorf("output contains %q\n%s", bad, out)
				}
			}
		})
	}
}

func TestGenerateRunner_Errors(t *testing.T) {
	if _, err := generateRunner(Options{Export: discover.Export{Name: "x", Type: discover.ExportType(42)}}); err == nil {
		t.Error("expected error for unknown export type")
	}
	_, err := generateRunner(Options{
		Export:  discover.Export{Name: "x", Type: discover.ExportTypeDefinitions},
		PkgName: "lib",
	})
	if err == nil || !strings.Contains(err.Error(), "no import path") {
		t.Errorf("expected import path error, got %v", err)
	}
}

func TestRemoveMain(t *testing.T) {
	dir := t.TempDir()
	withMain := filepath.Join(dir, "main.go")
	if err := os.WriteFile(withMain, []byte(`package main

// Defs is kept.
func Defs() int { return 1 }

type T struct{}

func (T) main() {}

func main() {
	println(Defs())
}
`), 0644); err != nil {
		t.Fatal(err)
	}
	without := filepath.Join(dir, "other.go")
	if err := os.WriteFile(without, []byte("package main\n\nfunc helper() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	hasMain, src, err := removeMain(withMain)
	if err != nil {
		t.Fatal(err)
	}
	if !hasMain {
		t.Fatal("expected main to be found")
	}
	out := string(src)
	if strings.Contains(out, "println") {
		t.Errorf("main body still present:\n%s", out)
	}
	for _, want := range []string{"// Defs is kept.", "func (T) main() {}"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}

	hasMain, src, err = removeMain(without)
	if err != nil {
		t.Fatal(err)
	}
	if hasMain || src != nil {
		t.Errorf("removeMain(other.go) = %v, %q; want false, nil", hasMain, src)
	}
}

func TestExec(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a binary")
	}
	t.Setenv("GOWORK", "off")

	root, err := filepath.Abs("../..")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	files := map[string]string{
		"go.mod": "module test\n\ngo 1.25\n\nrequire github.com/broady/luadecl v0.1.0\n\nreplace github.com/broady/luadecl => " + root + "\n",
		"main.go": `package main

import "github.com/broady/luadecl/luagen/ir"

func defs() *ir.DefinitionsBuilder {
	return ir.NewDefinitions().
		Define("init", ir.NewDefinition().Function("greet", func(name string) string { return name })).
		Define("extra", ir.NewDefinition().RegisterAs("Handle", ir.Integer()))
}

func main() {
	panic("not the runner")
}
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	tidy := exec.Command("go", "mod", "tidy")
	tidy.Dir = dir
	if out, err := tidy.CombinedOutput(); err != nil {
		t.Fatalf("go mod tidy: %v\n%s", err, out)
	}

	export := discover.Export{Name: "defs", Type: discover.ExportTypeBuilder}
	outDir := filepath.Join(dir, "types")

	var stderr bytes.Buffer
	out, err := Exec(Options{Export: export, OutDir: outDir, PkgDir: dir, PkgName: "main", Stderr: &stderr})
	if err != nil {
		t.Fatalf("Exec: %v\n%s", err, stderr.String())
	}
	if !strings.Contains(string(out), "init.d.lua") {
		t.Errorf("stdout = %q, want written paths", out)
	}
	content, err := os.ReadFile(filepath.Join(outDir, "init.d.lua"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "function greet(param0) end") {
		t.Errorf("init.d.lua:\n%s", content)
	}
	if !strings.Contains(stderr.String(), "register_alias_fallback") {
		t.Errorf("stderr = %q, want alias warning", stderr.String())
	}

	stderr.Reset()
	out, err = Exec(Options{Export: export, CheckMode: true, PkgDir: dir, PkgName: "main", Stderr: &stderr})
	if err != nil {
		t.Fatalf("Exec check: %v\n%s", err, stderr.String())
	}
	if got := strings.TrimSpace(string(out)); got != "2 2 1" {
		t.Errorf("check output = %q, want %q", got, "2 2 1")
	}
}
