package luadecl

import (
	"context"
	"fmt"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/broady/luadecl/luagen/ir"
)

var instances int

type counter struct {
	N     int
	Label string
}

func (c *counter) LuaDoc() string { return "A counter" }

func (c *counter) LuaFields(f ir.ClassFields) {
	f.Document("Current value").AddFieldMethodGetSet("n",
		func(c *counter) int { return c.N },
		func(c *counter, n int) { c.N = n })
	f.AddFieldMethodGet("label", func(c *counter) string { return c.Label })
	f.AddField("max", 100)
	f.AddFieldFunctionGetSet("instances",
		func() int { return instances },
		func(n int) { instances = n })
	f.AddMetaField(ir.MetaName, "counter")
}

func (c *counter) LuaMethods(m ir.ClassMethods) {
	m.AddFunctionWith("new", func(label string) *counter { return &counter{Label: label} },
		func(fb *ir.FunctionBuilder) {
			fb.Param(0, func(p *ir.ParamBuilder) { p.Name("label") })
		})
	m.AddMethod("inc", func(c *counter, by ...int) int {
		if len(by) == 0 {
			c.N++
		}
		for _, b := range by {
			c.N += b
		}
		return c.N
	})
	m.AddMethod("fail", func(c *counter) error { return NewError(CodeNotFound, "nothing here") })
	m.AddMetaMethod(ir.MetaToString, func(c *counter) string { return fmt.Sprintf("counter(%s=%d)", c.Label, c.N) })
	m.AddMetaMethod(ir.MetaIndex, func(c *counter, key string) string { return "dyn:" + key })
}

type mathx struct{}

func (mathx) LuaDoc() string { return "Math helpers" }

func (mathx) LuaFields(f ir.ModuleFields) error {
	if err := f.AddField("pi", 3.5); err != nil {
		return err
	}
	if err := f.AddField(1, "first"); err != nil {
		return err
	}
	return f.Document("String helpers").AddModule("strs", strs{})
}

func (mathx) LuaMethods(m ir.ModuleMethods) error {
	if err := m.AddFunction("add", func(a, b int) int { return a + b }); err != nil {
		return err
	}
	if err := m.AddMethod("half_pi", func(self *lua.LTable) float64 {
		return float64(self.RawGetString("pi").(lua.LNumber)) / 2
	}); err != nil {
		return err
	}
	return m.AddMetaFunction(ir.MetaCall, func(self *lua.LTable, x int) int { return x + 1 })
}

type strs struct{}

func (strs) LuaFields(ir.ModuleFields) error { return nil }

func (strs) LuaMethods(m ir.ModuleMethods) error {
	return m.AddFunction("upper", strings.ToUpper)
}

type loop struct{}

func (loop) LuaFields(f ir.ModuleFields) error  { return f.AddModule("again", loop{}) }
func (loop) LuaMethods(ir.ModuleMethods) error { return nil }

// newRuntime returns a runtime with counter and mathx bound.
func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := New()
	t.Cleanup(rt.Close)
	if err := rt.RegisterClass(&counter{}); err != nil {
		t.Fatalf("RegisterClass() error = %v", err)
	}
	if err := rt.RegisterModule("mathx", mathx{}); err != nil {
		t.Fatalf("RegisterModule() error = %v", err)
	}
	return rt
}

// run executes src and fails the test on error.
func run(t *testing.T, rt *Runtime, src string) {
	t.Helper()
	if err := rt.DoString(context.Background(), src); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
}

// global returns the string form of a global.
func global(rt *Runtime, name string) string {
	return rt.Global(name).String()
}
