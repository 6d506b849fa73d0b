package luals

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/broady/luadecl/luagen/ir"
)

type Color int

func (Color) LuaType() ir.Type { return ir.EnumOf("Color", "Red", "Green", "Blue") }

type Greeter struct {
	Name string
}

func (g *Greeter) LuaDoc() string { return "Greets people" }

func (g *Greeter) LuaFields(f ir.ClassFields) {
	f.Document("The greeting target").AddFieldMethodGetSet("name",
		func(g *Greeter) string { return g.Name },
		func(g *Greeter, v string) { g.Name = v })
	f.AddField("version", 2)
	f.AddMetaField(ir.MetaName, "Greeter")
}

func (g *Greeter) LuaMethods(m ir.ClassMethods) {
	m.Document("Create a greeter").AddFunctionWith("new",
		func(name string) *Greeter { return &Greeter{Name: name} },
		func(fb *ir.FunctionBuilder) {
			fb.Param(0, func(p *ir.ParamBuilder) { p.Name("name").Doc("Who to greet") })
		})
	m.AddMethod("greet", func(g *Greeter) string { return "hello " + g.Name })
	m.AddMetaMethod(ir.MetaToString, func(g *Greeter) string { return g.Name })
}

type Stats struct{}

func (Stats) LuaDoc() string { return "Runtime statistics" }

func (Stats) LuaFields(f ir.ModuleFields) error {
	if err := f.Document("Number of calls").AddField("count", 0); err != nil {
		return err
	}
	if err := f.AddField("tags", []string{}); err != nil {
		return err
	}
	return f.Document("Inner helpers").AddModule("inner", Inner{})
}

func (Stats) LuaMethods(m ir.ModuleMethods) error {
	if err := m.AddFunction("reset", func() {}); err != nil {
		return err
	}
	return m.AddMethod("total", func(self *lua.LTable) int { return 0 })
}

type Inner struct{}

func (Inner) LuaFields(f ir.ModuleFields) error { return f.AddField("a-b", true) }

func (Inner) LuaMethods(m ir.ModuleMethods) error {
	return m.AddMetaFunction(ir.MetaCall, func() string { return "" })
}

type Empty struct{}

func (Empty) LuaFields(ir.ModuleFields) error   { return nil }
func (Empty) LuaMethods(ir.ModuleMethods) error { return nil }

// fullDefinitions exercises every root entry kind in one group.
func fullDefinitions() *ir.DefinitionsBuilder {
	return ir.NewDefinitions().
		Define("init", ir.NewDefinition().
			Register(Color(0), "Primary colors").
			Register(&Greeter{}, "A class").
			Value("default_greeter", ir.Optional(ir.ClassOf(&Greeter{})), "The default").
			Alias("Palette", ir.Map(ir.String(), Color(0).LuaType())).
			Alias("Pair", ir.Tuple(ir.String(), ir.Function(
				[]ir.Param{{Name: "x", Type: ir.Number()}},
				[]ir.Return{{Type: ir.Boolean()}},
			))).
			Value("my-value", ir.Array(ir.Union(ir.String(), ir.Integer()))).
			FunctionWith("greet", func(name string, times ...int) (string, error) { return name, nil },
				func(fb *ir.FunctionBuilder) {
					fb.Param(0, func(p *ir.ParamBuilder) { p.Name("name") })
				}, "Greets someone").
			Module("stats", Stats{}).
			Module("empty", Empty{})).
		Define("empty", ir.NewDefinition())
}
