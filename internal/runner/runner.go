// Package runner executes definition file generation by building and running
// a modified version of the user's package.
//
// It uses Go's -overlay flag to add a main() that calls the export function
// and writes the generated files. For package main the user's own main() is
// removed from the overlay copy; other packages get a runner package in a
// virtual subdirectory that imports them.
package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/broady/luadecl/internal/discover"
)

const (
	runnerFile = "luadecl_runner_main_.go"
	runnerDir  = "luadecl_runner_"
)

// Options configures the runner.
type Options struct {
	// Export is the function to call.
	Export discover.Export

	// ConfigFunc is the optional config function name.
	ConfigFunc string

	// NoConfig disables the config function even if one exists.
	NoConfig bool

	// ConfigFile is an optional luadecl.toml applied before ConfigFunc.
	ConfigFile string

	// OutDir is the output directory for generated files.
	OutDir string

	// Extension overrides the file extension when non-empty.
	Extension string

	// CheckSyntax parses every file as Lua before writing it.
	CheckSyntax bool

	// CheckMode renders in memory and prints "groups entries warnings".
	CheckMode bool

	// PkgDir is the directory containing the package.
	PkgDir string

	// PkgPath is the import path of the package.
	PkgPath string

	// PkgName is the package name. Non-main packages are imported by a
	// generated runner package instead of being patched.
	PkgName string

	// Stderr receives the runner's diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
}

// Exec builds and runs the generator and returns its standard output.
func Exec(opts Options) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "luadecl-gen-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	overlay := make(map[string]string)
	target := "."

	if opts.PkgName == "" || opts.PkgName == "main" {
		files, err := filepath.Glob(filepath.Join(opts.PkgDir, "*.go"))
		if err != nil {
			return nil, fmt.Errorf("glob: %w", err)
		}
		for _, file := range files {
			if strings.HasSuffix(file, "_test.go") {
				continue
			}
			hasMain, modified, err := removeMain(file)
			if err != nil {
				return nil, fmt.Errorf("process %s: %w", file, err)
			}
			if !hasMain {
				continue
			}
			tmpFile := filepath.Join(tmpDir, filepath.Base(file))
			if err := os.WriteFile(tmpFile, modified, 0644); err != nil {
				return nil, fmt.Errorf("write modified %s: %w", file, err)
			}
			overlay[file] = tmpFile
		}
	}

	src, err := generateRunner(opts)
	if err != nil {
		return nil, fmt.Errorf("generate runner: %w", err)
	}
	tmpRunner := filepath.Join(tmpDir, runnerFile)
	if err := os.WriteFile(tmpRunner, src, 0644); err != nil {
		return nil, fmt.Errorf("write runner: %w", err)
	}

	if isMain(opts) {
		overlay[filepath.Join(opts.PkgDir, runnerFile)] = tmpRunner
	} else {
		overlay[filepath.Join(opts.PkgDir, runnerDir, runnerFile)] = tmpRunner
		target = "./" + runnerDir
	}

	overlayJSON, err := json.Marshal(struct {
		Replace map[string]string `json:"Replace"`
	}{Replace: overlay})
	if err != nil {
		return nil, fmt.Errorf("marshal overlay: %w", err)
	}
	overlayFile := filepath.Join(tmpDir, "overlay.json")
	if err := os.WriteFile(overlayFile, overlayJSON, 0644); err != nil {
		return nil, fmt.Errorf("write overlay: %w", err)
	}

	binaryPath := filepath.Join(tmpDir, "runner")
	buildCmd := exec.Command("go", "build", "-mod=mod", "-overlay", overlayFile, "-o", binaryPath, target)
	buildCmd.Dir = opts.PkgDir
	buildCmd.Env = append(os.Environ(), "GOWORK=off")
	if buildOut, err := buildCmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("build: %w\n%s", err, buildOut)
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	var stdout bytes.Buffer
	runCmd := exec.Command(binaryPath)
	runCmd.Dir = opts.PkgDir
	runCmd.Stdout = &stdout
	runCmd.Stderr = stderr
	if err := runCmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("run: %w", err)
	}
	return stdout.Bytes(), nil
}

func isMain(opts Options) bool {
	return opts.PkgName == "" || opts.PkgName == "main"
}

// removeMain parses a Go file and returns a version with func main() removed.
func removeMain(filename string) (bool, []byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return false, nil, err
	}

	hasMain := false
	var decls []ast.Decl
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Name.Name == "main" && fn.Recv == nil {
			hasMain = true
			continue
		}
		decls = append(decls, decl)
	}
	if !hasMain {
		return false, nil, nil
	}
	f.Decls = decls

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return false, nil, err
	}
	return true, buf.Bytes(), nil
}

type runnerData struct {
	Import      string
	Construct   string
	ConfigFile  string
	ConfigFunc  string
	Extension   string
	CheckSyntax bool
	CheckMode   bool
	OutDir      string
}

// generateRunner creates the runner main() source.
func generateRunner(opts Options) ([]byte, error) {
	qual := ""
	data := runnerData{
		ConfigFile:  opts.ConfigFile,
		Extension:   opts.Extension,
		CheckSyntax: opts.CheckSyntax,
		CheckMode:   opts.CheckMode,
		OutDir:      opts.OutDir,
	}
	if !isMain(opts) {
		if opts.PkgPath == "" {
			return nil, fmt.Errorf("package %s has no import path", opts.PkgName)
		}
		data.Import = opts.PkgPath
		qual = "export."
	}
	if opts.ConfigFunc != "" && !opts.NoConfig {
		data.ConfigFunc = qual + opts.ConfigFunc
	}

	call := qual + opts.Export.Name + "()"
	switch opts.Export.Type {
	case discover.ExportTypeDefinitions:
		data.Construct = "luagen.FromDefinitions(" + call + ")"
	case discover.ExportTypeBuilder:
		data.Construct = "luagen.FromBuilder(" + call + ")"
	case discover.ExportTypeGenerator:
		data.Construct = call
	default:
		return nil, fmt.Errorf("unknown export type: %v", opts.Export.Type)
	}

	var buf bytes.Buffer
	if err := runnerTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}

var runnerTemplate = template.Must(template.New("runner").Funcs(template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
}).Parse(`package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/broady/luadecl/luagen"
{{- if .Import}}
	export {{quote .Import}}
{{- end}}
)

func main() {
	g := {{.Construct}}
{{- if .ConfigFile}}
	cfg, err := luagen.LoadConfig({{quote .ConfigFile}})
	if err != nil {
		luadeclFail(err)
	}
	g = g.WithConfig(cfg)
{{- end}}
{{- if .ConfigFunc}}
	g = {{.ConfigFunc}}(g)
{{- end}}
{{- if .Extension}}
	g = g.Extension({{quote .Extension}})
{{- end}}
{{- if .CheckSyntax}}
	g = g.CheckSyntax()
{{- end}}
{{- if .CheckMode}}
	result, err := g.Generate()
{{- else}}
	result, err := g.ToDir({{quote .OutDir}})
{{- end}}
	if result != nil {
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s: %s\n", w.Group, w.Code, w.Message)
		}
	}
	if err != nil {
		luadeclFail(err)
	}
{{- if .CheckMode}}
	entries := 0
	for _, group := range g.Definitions().Groups {
		entries += len(group.Entries)
	}
	fmt.Printf("%d %d %d\n", len(g.Definitions().Groups), entries, len(result.Warnings))
{{- else}}
	for _, f := range result.Files {
		fmt.Println(f.Path)
	}
{{- end}}
}

func luadeclFail(err error) {
	fmt.Fprintf(os.Stderr, "luadecl: %v\n", err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
	}
	os.Exit(1)
}
`))
