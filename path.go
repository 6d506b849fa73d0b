package luadecl

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Path returns package.path, the search path require uses for Lua files.
func (r *Runtime) Path() string { return r.packageField("path") }

// SetPath replaces package.path.
func (r *Runtime) SetPath(path string) { r.setPackageField("path", path) }

// SetPaths replaces package.path with paths joined by ";".
func (r *Runtime) SetPaths(paths ...string) { r.SetPath(strings.Join(paths, ";")) }

// PrependPath adds a template such as "./lib/?.lua" in front of package.path.
func (r *Runtime) PrependPath(paths ...string) { r.extendPackageField("path", paths, true) }

// AppendPath adds templates after the existing package.path entries.
func (r *Runtime) AppendPath(paths ...string) { r.extendPackageField("path", paths, false) }

// CPath returns package.cpath. gopher-lua never loads native modules; the
// field is kept for scripts that read or forward it.
func (r *Runtime) CPath() string { return r.packageField("cpath") }

// SetCPath replaces package.cpath.
func (r *Runtime) SetCPath(path string) { r.setPackageField("cpath", path) }

// SetCPaths replaces package.cpath with paths joined by ";".
func (r *Runtime) SetCPaths(paths ...string) { r.SetCPath(strings.Join(paths, ";")) }

// PrependCPath adds templates in front of package.cpath.
func (r *Runtime) PrependCPath(paths ...string) { r.extendPackageField("cpath", paths, true) }

// AppendCPath adds templates after the existing package.cpath entries.
func (r *Runtime) AppendCPath(paths ...string) { r.extendPackageField("cpath", paths, false) }

func (r *Runtime) packageTable() *lua.LTable {
	if pkg, ok := r.L.GetGlobal("package").(*lua.LTable); ok {
		return pkg
	}
	pkg := r.L.NewTable()
	r.L.SetGlobal("package", pkg)
	return pkg
}

func (r *Runtime) packageField(name string) string {
	if s, ok := r.packageTable().RawGetString(name).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func (r *Runtime) setPackageField(name, value string) {
	r.packageTable().RawSetString(name, lua.LString(value))
}

func (r *Runtime) extendPackageField(name string, paths []string, prepend bool) {
	if len(paths) == 0 {
		return
	}
	added := strings.Join(paths, ";")
	current := strings.TrimSpace(r.packageField(name))
	switch {
	case current == "":
		r.setPackageField(name, added)
	case prepend:
		r.setPackageField(name, added+";"+current)
	default:
		r.setPackageField(name, current+";"+added)
	}
}
