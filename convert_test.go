package luadecl

import (
	"reflect"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestToLua(t *testing.T) {
	type tagged struct {
		Name   string `schema:"name"`
		Hidden string `schema:"-"`
		Count  int
		secret int
	}

	tests := []struct {
		name  string
		value any
		check func(lua.LValue) bool
	}{
		{"nil", nil, func(lv lua.LValue) bool { return lv == lua.LNil }},
		{"bool", true, func(lv lua.LValue) bool { return lv == lua.LTrue }},
		{"int", 42, func(lv lua.LValue) bool { return lv == lua.LNumber(42) }},
		{"uint", uint8(7), func(lv lua.LValue) bool { return lv == lua.LNumber(7) }},
		{"float", 1.5, func(lv lua.LValue) bool { return lv == lua.LNumber(1.5) }},
		{"string", "s", func(lv lua.LValue) bool { return lv == lua.LString("s") }},
		{"bytes", []byte("raw"), func(lv lua.LValue) bool { return lv == lua.LString("raw") }},
		{"nil pointer", (*int)(nil), func(lv lua.LValue) bool { return lv == lua.LNil }},
		{"pointer", ptr(3), func(lv lua.LValue) bool { return lv == lua.LNumber(3) }},
		{"lua value", lua.LString("x"), func(lv lua.LValue) bool { return lv == lua.LString("x") }},
		{"slice", []string{"a", "b"}, func(lv lua.LValue) bool {
			tbl := lv.(*lua.LTable)
			return tbl.Len() == 2 && tbl.RawGetInt(2) == lua.LString("b")
		}},
		{"map", map[string]int{"a": 1}, func(lv lua.LValue) bool {
			return lv.(*lua.LTable).RawGetString("a") == lua.LNumber(1)
		}},
		{"set", map[string]struct{}{"only": {}}, func(lv lua.LValue) bool {
			tbl := lv.(*lua.LTable)
			return tbl.Len() == 1 && tbl.RawGetInt(1) == lua.LString("only")
		}},
		{"struct", tagged{Name: "n", Hidden: "h", Count: 2, secret: 1}, func(lv lua.LValue) bool {
			tbl := lv.(*lua.LTable)
			return tbl.RawGetString("name") == lua.LString("n") &&
				tbl.RawGetString("Hidden") == lua.LNil &&
				tbl.RawGetString("Count") == lua.LNumber(2) &&
				tbl.RawGetString("secret") == lua.LNil
		}},
		{"function", func() int { return 1 }, func(lv lua.LValue) bool {
			_, ok := lv.(*lua.LFunction)
			return ok
		}},
		{"channel", make(chan int), func(lv lua.LValue) bool {
			_, ok := lv.(*lua.LUserData)
			return ok
		}},
	}

	rt := New()
	defer rt.Close()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lv, err := rt.toLua(rt.L, reflect.ValueOf(tt.value))
			if err != nil {
				t.Fatalf("toLua() error = %v", err)
			}
			if !tt.check(lv) {
				t.Errorf("toLua(%v) = %v", tt.value, lv)
			}
		})
	}
}

func TestFromLua(t *testing.T) {
	rt := New()
	defer rt.Close()

	tbl := rt.L.NewTable()
	tbl.Append(lua.LString("a"))
	tbl.Append(lua.LString("b"))

	dict := rt.L.NewTable()
	dict.RawSetString("x", lua.LNumber(1))

	tests := []struct {
		name    string
		lv      lua.LValue
		typ     reflect.Type
		want    any
		wantErr string
	}{
		{"int", lua.LNumber(3), reflect.TypeFor[int](), 3, ""},
		{"float to int", lua.LNumber(3.5), reflect.TypeFor[int](), nil, "no integer representation"},
		{"negative uint", lua.LNumber(-1), reflect.TypeFor[uint](), nil, "not a valid uint"},
		{"string", lua.LString("s"), reflect.TypeFor[string](), "s", ""},
		{"number as string", lua.LNumber(2), reflect.TypeFor[string](), "2", ""},
		{"string as int", lua.LString("2"), reflect.TypeFor[int](), nil, "type mismatch"},
		{"nil bool", lua.LNil, reflect.TypeFor[bool](), false, ""},
		{"nil int", lua.LNil, reflect.TypeFor[int](), nil, "type mismatch"},
		{"bytes", lua.LString("raw"), reflect.TypeFor[[]byte](), []byte("raw"), ""},
		{"slice", tbl, reflect.TypeFor[[]string](), []string{"a", "b"}, ""},
		{"array", tbl, reflect.TypeFor[[2]string](), [2]string{"a", "b"}, ""},
		{"set", tbl, reflect.TypeFor[map[string]struct{}](), map[string]struct{}{"a": {}, "b": {}}, ""},
		{"map", dict, reflect.TypeFor[map[string]int](), map[string]int{"x": 1}, ""},
		{"pointer", lua.LNumber(4), reflect.TypeFor[*int](), ptr(4), ""},
		{"any table", tbl, reflect.TypeFor[any](), []any{"a", "b"}, ""},
		{"any dict", dict, reflect.TypeFor[any](), map[string]any{"x": float64(1)}, ""},
		{"lua value", tbl, reflect.TypeFor[lua.LValue](), lua.LValue(tbl), ""},
		{"table", tbl, reflect.TypeFor[*lua.LTable](), tbl, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := rt.fromLua(rt.L, tt.lv, tt.typ)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("fromLua() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("fromLua() error = %v", err)
			}
			if v.Type() != tt.typ {
				t.Errorf("type = %s, want %s", v.Type(), tt.typ)
			}
			if !reflect.DeepEqual(v.Interface(), tt.want) {
				t.Errorf("fromLua() = %#v, want %#v", v.Interface(), tt.want)
			}
		})
	}
}

func TestFromLua_UserData(t *testing.T) {
	rt := newRuntime(t)
	c := &counter{N: 2}
	ud, err := rt.NewUserData(c)
	if err != nil {
		t.Fatal(err)
	}

	v, err := rt.fromLua(rt.L, ud, reflect.TypeFor[*counter]())
	if err != nil || v.Interface() != c {
		t.Errorf("fromLua(*counter) = %v, %v", v, err)
	}
	v, err = rt.fromLua(rt.L, ud, reflect.TypeFor[counter]())
	if err != nil || v.Interface().(counter).N != 2 {
		t.Errorf("fromLua(counter) = %v, %v", v, err)
	}
	if _, err := rt.fromLua(rt.L, ud, reflect.TypeFor[string]()); err == nil {
		t.Error("expected mismatch for userdata as string")
	}
}

func ptr[T any](v T) *T { return &v }
