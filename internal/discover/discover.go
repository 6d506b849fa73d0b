// Package discover finds luadecl export functions by signature.
//
// It scans a Go package for functions with these signatures:
//   - func() *ir.Definitions
//   - func() *ir.DefinitionsBuilder
//   - func() *luagen.Generator
//
// plus an optional config function func(*luagen.Generator) *luagen.Generator.
// The signature is the marker; no directives are needed.
package discover

import (
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

const (
	irPath     = "github.com/broady/luadecl/luagen/ir"
	luagenPath = "github.com/broady/luadecl/luagen"
)

// ExportType represents the return type of an export function.
type ExportType int

const (
	ExportTypeDefinitions ExportType = iota // func() *ir.Definitions
	ExportTypeBuilder                       // func() *ir.DefinitionsBuilder
	ExportTypeGenerator                     // func() *luagen.Generator
)

func (t ExportType) String() string {
	switch t {
	case ExportTypeDefinitions:
		return "*ir.Definitions"
	case ExportTypeBuilder:
		return "*ir.DefinitionsBuilder"
	case ExportTypeGenerator:
		return "*luagen.Generator"
	default:
		return "unknown"
	}
}

// Export represents a discovered export function.
type Export struct {
	Name string         // function name
	Type ExportType     // return type
	Pos  token.Position // source location
}

// ConfigFunc represents a discovered config function.
type ConfigFunc struct {
	Name string
	Pos  token.Position
}

// Result contains discovered exports and package info.
type Result struct {
	Exports     []Export
	ConfigFunc  *ConfigFunc
	PackagePath string
	PackageName string
	ModulePath  string
	ModuleDir   string // directory containing go.mod
	Dir         string // directory containing the package
}

// Find scans a Go package for export functions.
//
// The pattern follows go command semantics: ".", an import path, or a
// directory path.
func Find(pattern string) (*Result, error) {
	return FindDir(pattern, "")
}

// FindDir is like Find but runs the package loader in dir.
func FindDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles |
			packages.NeedTypes | packages.NeedModule,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	result := &Result{
		PackagePath: pkg.PkgPath,
		PackageName: pkg.Name,
	}
	if pkg.Module != nil {
		result.ModulePath = pkg.Module.Path
		result.ModuleDir = pkg.Module.Dir
	}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok {
			continue
		}
		sig, ok := fn.Type().(*types.Signature)
		if !ok || sig.Recv() != nil || sig.Results().Len() != 1 {
			continue
		}

		if isConfigFunc(sig) {
			result.ConfigFunc = &ConfigFunc{
				Name: fn.Name(),
				Pos:  pkg.Fset.Position(fn.Pos()),
			}
			continue
		}
		if sig.Params().Len() != 0 {
			continue
		}

		exportType, ok := classifyType(sig.Results().At(0).Type())
		if !ok {
			continue
		}
		result.Exports = append(result.Exports, Export{
			Name: fn.Name(),
			Type: exportType,
			Pos:  pkg.Fset.Position(fn.Pos()),
		})
	}

	return result, nil
}

func isConfigFunc(sig *types.Signature) bool {
	if sig.Params().Len() != 1 || sig.Variadic() {
		return false
	}
	return isPtrTo(sig.Params().At(0).Type(), luagenPath, "Generator") &&
		isPtrTo(sig.Results().At(0).Type(), luagenPath, "Generator")
}

func classifyType(t types.Type) (ExportType, bool) {
	switch {
	case isPtrTo(t, irPath, "Definitions"):
		return ExportTypeDefinitions, true
	case isPtrTo(t, irPath, "DefinitionsBuilder"):
		return ExportTypeBuilder, true
	case isPtrTo(t, luagenPath, "Generator"):
		return ExportTypeGenerator, true
	default:
		return 0, false
	}
}

// isPtrTo reports whether t is *pkgPath.name.
func isPtrTo(t types.Type, pkgPath, name string) bool {
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := ptr.Elem().(*types.Named)
	if !ok {
		return false
	}
	pkg := named.Obj().Pkg()
	return pkg != nil && pkg.Path() == pkgPath && named.Obj().Name() == name
}

// SelectExport picks the export to use.
//
// With an empty name it returns the only export, or fails when there are
// none or several. With a name it returns that export or fails.
func SelectExport(exports []Export, name string) (*Export, error) {
	if name != "" {
		for i := range exports {
			if exports[i].Name == name {
				return &exports[i], nil
			}
		}
		return nil, fmt.Errorf("export %q not found", name)
	}

	switch len(exports) {
	case 0:
		return nil, fmt.Errorf("no export found\n\nAdd a function that returns *ir.Definitions:\n\n    func Definitions() *ir.Definitions {\n        defs, err := ir.NewDefinitions().\n            Define(\"init\", ir.NewDefinition().Register(&Player{})).\n            Finish()\n        // ...\n        return defs\n    }")
	case 1:
		return &exports[0], nil
	default:
		var msg strings.Builder
		msg.WriteString("multiple exports found:\n")
		for _, e := range exports {
			fmt.Fprintf(&msg, "  - %s() %s\n", e.Name, e.Type)
		}
		msg.WriteString("\nSpecify which one: luadecl gen --export <name> <outdir>")
		return nil, fmt.Errorf("%s", msg.String())
	}
}
