package luadecl

import (
	"cmp"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/multierr"

	"github.com/broady/luadecl/luagen/ir"
)

// RegisterClass binds the class u: instances become userdata sharing one
// metatable, and the class table holding static fields and functions is
// stored as a global named after the Go type.
//
// The With variants of ir.ClassMethods bind like their plain versions;
// names and docs only matter to definition files.
func (r *Runtime) RegisterClass(u ir.UserData) error {
	t := reflect.TypeOf(u)
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Name() == "" {
		return fmt.Errorf("register class %s: class types must be named", t)
	}

	c := newClassBinding(r, base.Name(), u)
	u.LuaFields(classFieldBinder{c})
	u.LuaMethods(classMethodBinder{c})
	if c.err != nil {
		return fmt.Errorf("register class %s: %w", c.name, c.err)
	}
	c.install()

	r.classes[base] = c
	r.L.SetGlobal(c.name, c.static)
	r.log().Debug("registered class", "class", c.name)
	return nil
}

// NewUserData wraps v, an instance of a registered class, as userdata.
func (r *Runtime) NewUserData(v any) (*lua.LUserData, error) {
	c := r.classFor(reflect.TypeOf(v))
	if c == nil {
		return nil, fmt.Errorf("class %T is not registered", v)
	}
	return c.newUserData(r.L, v), nil
}

// RegisterModule binds m as the global table name.
func (r *Runtime) RegisterModule(name string, m ir.Module) error {
	tbl, err := r.bindModule(r.L, m, name, ir.Ancestry{})
	if err != nil {
		return fmt.Errorf("register module %s: %w", name, err)
	}
	r.L.SetGlobal(name, tbl)
	r.modules = append(r.modules, boundModule{name: name, module: m})
	r.log().Debug("registered module", "module", name)
	return nil
}

// PreloadModule binds m and makes it available to require(name).
func (r *Runtime) PreloadModule(name string, m ir.Module) error {
	tbl, err := r.bindModule(r.L, m, name, ir.Ancestry{})
	if err != nil {
		return fmt.Errorf("preload module %s: %w", name, err)
	}
	r.L.PreloadModule(name, func(L *lua.LState) int {
		L.Push(tbl)
		return 1
	})
	return nil
}

func (r *Runtime) classFor(t reflect.Type) *classBinding {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return r.classes[t]
}

func (r *Runtime) sortedClasses() []*classBinding {
	return slices.SortedFunc(maps.Values(r.classes), func(a, b *classBinding) int {
		return cmp.Compare(a.name, b.name)
	})
}

type boundModule struct {
	name   string
	module ir.Module
}

// classBinding holds the Lua side of a registered class.
type classBinding struct {
	r      *Runtime
	name   string
	source ir.UserData

	static  *lua.LTable // global class table
	methods *lua.LTable
	meta    *lua.LTable // instance metatable

	getters       map[string]lua.LGFunction
	setters       map[string]lua.LGFunction
	staticGetters map[string]lua.LGFunction
	staticSetters map[string]lua.LGFunction

	// user-supplied fallbacks, consulted after fields and methods
	index    lua.LValue
	newIndex lua.LValue

	err error
}

func newClassBinding(r *Runtime, name string, u ir.UserData) *classBinding {
	return &classBinding{
		r:             r,
		name:          name,
		source:        u,
		static:        r.L.NewTable(),
		methods:       r.L.NewTable(),
		meta:          r.L.NewTypeMetatable(name),
		getters:       map[string]lua.LGFunction{},
		setters:       map[string]lua.LGFunction{},
		staticGetters: map[string]lua.LGFunction{},
		staticSetters: map[string]lua.LGFunction{},
		index:         lua.LNil,
		newIndex:      lua.LNil,
	}
}

func (c *classBinding) newUserData(L *lua.LState, v any) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = v
	L.SetMetatable(ud, c.meta)
	return ud
}

func (c *classBinding) install() {
	L := c.r.L
	c.meta.RawSetString(ir.MetaIndex, L.NewFunction(c.indexInstance))
	c.meta.RawSetString(ir.MetaNewIndex, L.NewFunction(c.newIndexInstance))
	if len(c.staticGetters) > 0 || len(c.staticSetters) > 0 {
		sm := L.NewTable()
		sm.RawSetString(ir.MetaIndex, L.NewFunction(c.indexStatic))
		sm.RawSetString(ir.MetaNewIndex, L.NewFunction(c.newIndexStatic))
		L.SetMetatable(c.static, sm)
	}
}

// indexInstance resolves self[key]: getters, then methods, then the
// user-supplied __index.
func (c *classBinding) indexInstance(L *lua.LState) int {
	key := L.Get(2)
	if k, ok := key.(lua.LString); ok {
		if get, ok := c.getters[string(k)]; ok {
			L.SetTop(1)
			return get(L)
		}
		if m := c.methods.RawGetString(string(k)); m != lua.LNil {
			L.Push(m)
			return 1
		}
	}
	switch h := c.index.(type) {
	case *lua.LFunction:
		self := L.Get(1)
		L.Push(h)
		L.Push(self)
		L.Push(key)
		L.Call(2, 1)
		return 1
	case *lua.LTable:
		L.Push(L.GetTable(h, key))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

func (c *classBinding) newIndexInstance(L *lua.LState) int {
	key := L.Get(2)
	if k, ok := key.(lua.LString); ok {
		if set, ok := c.setters[string(k)]; ok {
			L.Remove(2)
			return set(L)
		}
	}
	if h, ok := c.newIndex.(*lua.LFunction); ok {
		self, value := L.Get(1), L.Get(3)
		L.Push(h)
		L.Push(self)
		L.Push(key)
		L.Push(value)
		L.Call(3, 0)
		return 0
	}
	if k, ok := key.(lua.LString); ok {
		if _, ok := c.getters[string(k)]; ok {
			L.RaiseError("field %q of %s is read-only", string(k), c.name)
			return 0
		}
	}
	L.RaiseError("%s has no field %s", c.name, key.String())
	return 0
}

func (c *classBinding) indexStatic(L *lua.LState) int {
	if k, ok := L.Get(2).(lua.LString); ok {
		if get, ok := c.staticGetters[string(k)]; ok {
			L.SetTop(0)
			return get(L)
		}
	}
	L.Push(lua.LNil)
	return 1
}

func (c *classBinding) newIndexStatic(L *lua.LState) int {
	key := L.Get(2)
	if k, ok := key.(lua.LString); ok {
		if set, ok := c.staticSetters[string(k)]; ok {
			L.Remove(1)
			L.Remove(1)
			return set(L)
		}
		if _, ok := c.staticGetters[string(k)]; ok {
			L.RaiseError("field %q of %s is read-only", string(k), c.name)
			return 0
		}
	}
	c.static.RawSet(key, L.Get(3))
	return 0
}

func (c *classBinding) fail(err error) {
	c.err = multierr.Append(c.err, err)
}

func (c *classBinding) value(name string, v any) (lua.LValue, bool) {
	lv, err := c.r.toLua(c.r.L, reflect.ValueOf(v))
	if err != nil {
		c.fail(fmt.Errorf("field %s: %w", name, err))
		return lua.LNil, false
	}
	return lv, true
}

func (c *classBinding) function(name string, kind CallKind, fn any) (lua.LGFunction, bool) {
	if t := reflect.TypeOf(fn); t == nil || t.Kind() != reflect.Func {
		c.fail(fmt.Errorf("%s: expected a function, got %T", name, fn))
		return nil, false
	}
	return c.r.wrap(&CallInfo{Name: c.name + "." + name, Kind: kind}, fn), true
}

// setMeta stores a metatable entry. __index and __newindex are kept as
// fallbacks since the binding owns those slots.
func (c *classBinding) setMeta(name string, lv lua.LValue) {
	switch name {
	case ir.MetaIndex:
		c.index = lv
	case ir.MetaNewIndex:
		c.newIndex = lv
	default:
		c.meta.RawSetString(name, lv)
	}
}

type classFieldBinder struct{ c *classBinding }

func (f classFieldBinder) Document(string) ir.ClassFields { return f }

func (f classFieldBinder) AddField(name string, value any) {
	if lv, ok := f.c.value(name, value); ok {
		f.c.static.RawSetString(name, lv)
	}
}

func (f classFieldBinder) AddFieldFunctionGet(name string, get any) {
	if fn, ok := f.c.function(name, KindGetter, get); ok {
		f.c.staticGetters[name] = fn
	}
}

func (f classFieldBinder) AddFieldFunctionSet(name string, set any) {
	if fn, ok := f.c.function(name, KindSetter, set); ok {
		f.c.staticSetters[name] = fn
	}
}

func (f classFieldBinder) AddFieldFunctionGetSet(name string, get, set any) {
	f.AddFieldFunctionGet(name, get)
	f.AddFieldFunctionSet(name, set)
}

func (f classFieldBinder) AddFieldMethodGet(name string, get any) {
	if fn, ok := f.c.function(name, KindGetter, get); ok {
		f.c.getters[name] = fn
	}
}

func (f classFieldBinder) AddFieldMethodSet(name string, set any) {
	if fn, ok := f.c.function(name, KindSetter, set); ok {
		f.c.setters[name] = fn
	}
}

func (f classFieldBinder) AddFieldMethodGetSet(name string, get, set any) {
	f.AddFieldMethodGet(name, get)
	f.AddFieldMethodSet(name, set)
}

func (f classFieldBinder) AddMetaField(name string, value any) {
	if lv, ok := f.c.value(name, value); ok {
		f.c.setMeta(name, lv)
	}
}

type classMethodBinder struct{ c *classBinding }

func (m classMethodBinder) Document(string) ir.ClassMethods { return m }

func (m classMethodBinder) AddMethod(name string, fn any) { m.AddMethodWith(name, fn, nil) }

func (m classMethodBinder) AddMethodWith(name string, fn any, _ func(*ir.FunctionBuilder)) {
	if f, ok := m.c.function(name, KindMethod, fn); ok {
		m.c.methods.RawSetString(name, m.c.r.L.NewFunction(f))
	}
}

func (m classMethodBinder) AddFunction(name string, fn any) { m.AddFunctionWith(name, fn, nil) }

func (m classMethodBinder) AddFunctionWith(name string, fn any, _ func(*ir.FunctionBuilder)) {
	if f, ok := m.c.function(name, KindFunction, fn); ok {
		m.c.static.RawSetString(name, m.c.r.L.NewFunction(f))
	}
}

func (m classMethodBinder) AddMetaMethod(name string, fn any) { m.AddMetaMethodWith(name, fn, nil) }

func (m classMethodBinder) AddMetaMethodWith(name string, fn any, _ func(*ir.FunctionBuilder)) {
	if f, ok := m.c.function(name, KindMetaMethod, fn); ok {
		m.c.setMeta(name, m.c.r.L.NewFunction(f))
	}
}

func (m classMethodBinder) AddMetaFunction(name string, fn any) { m.AddMetaFunctionWith(name, fn, nil) }

func (m classMethodBinder) AddMetaFunctionWith(name string, fn any, _ func(*ir.FunctionBuilder)) {
	if f, ok := m.c.function(name, KindMetaFunction, fn); ok {
		m.c.setMeta(name, m.c.r.L.NewFunction(f))
	}
}

// moduleBinding builds the Lua table of a module.
type moduleBinding struct {
	r        *Runtime
	L        *lua.LState
	name     string
	table    *lua.LTable
	meta     *lua.LTable
	ancestry ir.Ancestry
}

// bindModule builds the table for m and every module nested in it. A module
// type nested inside itself is a *ir.CyclicModuleError.
func (r *Runtime) bindModule(L *lua.LState, m ir.Module, name string, a ir.Ancestry) (*lua.LTable, error) {
	a, err := a.Extend(reflect.TypeOf(m), name)
	if err != nil {
		return nil, err
	}
	b := &moduleBinding{r: r, L: L, name: name, table: L.NewTable(), ancestry: a}
	if err := m.LuaFields(moduleFieldBinder{b}); err != nil {
		return nil, err
	}
	if err := m.LuaMethods(moduleMethodBinder{b}); err != nil {
		return nil, err
	}
	if b.meta != nil {
		L.SetMetatable(b.table, b.meta)
	}
	return b.table, nil
}

func (b *moduleBinding) metatable() *lua.LTable {
	if b.meta == nil {
		b.meta = b.L.NewTable()
	}
	return b.meta
}

func (b *moduleBinding) function(key any, kind CallKind, fn any) (lua.LValue, lua.LValue, error) {
	k, name, err := luaKey(key)
	if err != nil {
		return nil, nil, err
	}
	if t := reflect.TypeOf(fn); t == nil || t.Kind() != reflect.Func {
		return nil, nil, fmt.Errorf("%s.%s: expected a function, got %T", b.name, name, fn)
	}
	f := b.r.wrap(&CallInfo{Name: b.name + "." + name, Kind: kind}, fn)
	return k, b.L.NewFunction(f), nil
}

// luaKey converts a member key to its Lua value and display name.
func luaKey(key any) (lua.LValue, string, error) {
	switch k := key.(type) {
	case string:
		return lua.LString(k), k, nil
	case int:
		return lua.LNumber(k), strconv.Itoa(k), nil
	case ir.Index:
		if k.IsPositional() {
			return lua.LNumber(k.Int()), k.Name(), nil
		}
		return lua.LString(k.Name()), k.Name(), nil
	}
	return nil, "", fmt.Errorf("unsupported member key type %T", key)
}

type moduleFieldBinder struct{ b *moduleBinding }

func (f moduleFieldBinder) Document(string) ir.ModuleFields { return f }

func (f moduleFieldBinder) AddField(key any, value any) error {
	k, name, err := luaKey(key)
	if err != nil {
		return err
	}
	lv, err := f.b.r.toLua(f.b.L, reflect.ValueOf(value))
	if err != nil {
		return fmt.Errorf("%s.%s: %w", f.b.name, name, err)
	}
	f.b.table.RawSet(k, lv)
	return nil
}

func (f moduleFieldBinder) AddMetaField(key any, value any) error {
	k, name, err := luaKey(key)
	if err != nil {
		return err
	}
	lv, err := f.b.r.toLua(f.b.L, reflect.ValueOf(value))
	if err != nil {
		return fmt.Errorf("%s.%s: %w", f.b.name, name, err)
	}
	f.b.metatable().RawSet(k, lv)
	return nil
}

func (f moduleFieldBinder) AddModule(key any, m ir.Module) error {
	k, name, err := luaKey(key)
	if err != nil {
		return err
	}
	child, err := f.b.r.bindModule(f.b.L, m, name, f.b.ancestry)
	if err != nil {
		return err
	}
	f.b.table.RawSet(k, child)
	return nil
}

type moduleMethodBinder struct{ b *moduleBinding }

func (m moduleMethodBinder) Document(string) ir.ModuleMethods { return m }

func (m moduleMethodBinder) AddFunction(key any, fn any) error {
	return m.AddFunctionWith(key, fn, nil)
}

func (m moduleMethodBinder) AddFunctionWith(key any, fn any, _ func(*ir.FunctionBuilder)) error {
	return m.set(m.b.table, key, KindFunction, fn)
}

func (m moduleMethodBinder) AddMethod(key any, fn any) error {
	return m.AddMethodWith(key, fn, nil)
}

func (m moduleMethodBinder) AddMethodWith(key any, fn any, _ func(*ir.FunctionBuilder)) error {
	return m.set(m.b.table, key, KindMethod, fn)
}

func (m moduleMethodBinder) AddMetaFunction(key any, fn any) error {
	return m.AddMetaFunctionWith(key, fn, nil)
}

func (m moduleMethodBinder) AddMetaFunctionWith(key any, fn any, _ func(*ir.FunctionBuilder)) error {
	return m.set(m.b.metatable(), key, KindMetaFunction, fn)
}

func (m moduleMethodBinder) AddMetaMethod(key any, fn any) error {
	return m.AddMetaMethodWith(key, fn, nil)
}

func (m moduleMethodBinder) AddMetaMethodWith(key any, fn any, _ func(*ir.FunctionBuilder)) error {
	return m.set(m.b.metatable(), key, KindMetaMethod, fn)
}

func (m moduleMethodBinder) set(tbl *lua.LTable, key any, kind CallKind, fn any) error {
	k, f, err := m.b.function(key, kind, fn)
	if err != nil {
		return err
	}
	tbl.RawSet(k, f)
	return nil
}
