package luadecl

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	lua "github.com/yuin/gopher-lua"

	"github.com/broady/luadecl/luagen/ir"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

var (
	lvalueType = reflect.TypeFor[lua.LValue]()
	moduleType = reflect.TypeFor[ir.Module]()
)

// errMismatch reports a Lua value of the wrong type for a Go type.
var errMismatch = errors.New("type mismatch")

// toLua converts a Go value to a Lua value.
//
// Registered classes become userdata, modules become bound tables, structs
// become tables keyed like ir.FieldName, sets (map[K]struct{}) become
// arrays, and functions are bound like SetGlobalFunction. Other values
// without a Lua equivalent become plain userdata.
func (r *Runtime) toLua(L *lua.LState, v reflect.Value) (lua.LValue, error) {
	if !v.IsValid() {
		return lua.LNil, nil
	}
	t := v.Type()

	if t.Implements(lvalueType) {
		if isNil(v) {
			return lua.LNil, nil
		}
		return v.Interface().(lua.LValue), nil
	}
	if c := r.classFor(t); c != nil {
		if isNil(v) {
			return lua.LNil, nil
		}
		return c.newUserData(L, v.Interface()), nil
	}
	if t.Kind() != reflect.Interface && t.Implements(moduleType) {
		if isNil(v) {
			return lua.LNil, nil
		}
		m := v.Interface().(ir.Module)
		return r.bindModule(L, m, t.String(), ir.Ancestry{})
	}
	if t.Kind() != reflect.Interface && t.Implements(errorType) {
		if isNil(v) {
			return lua.LNil, nil
		}
		return lua.LString(v.Interface().(error).Error()), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return lua.LBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return lua.LNumber(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(v.Float()), nil
	case reflect.String:
		return lua.LString(v.String()), nil
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return lua.LNil, nil
		}
		return r.toLua(L, v.Elem())
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return lua.LString(b), nil
		}
		if t.Kind() == reflect.Slice && v.IsNil() {
			return lua.LNil, nil
		}
		tbl := L.CreateTable(v.Len(), 0)
		for i := 0; i < v.Len(); i++ {
			lv, err := r.toLua(L, v.Index(i))
			if err != nil {
				return lua.LNil, fmt.Errorf("index %d: %w", i, err)
			}
			tbl.RawSetInt(i+1, lv)
		}
		return tbl, nil
	case reflect.Map:
		if v.IsNil() {
			return lua.LNil, nil
		}
		set := isSet(t)
		tbl := L.NewTable()
		iter := v.MapRange()
		for iter.Next() {
			k, err := r.toLua(L, iter.Key())
			if err != nil {
				return lua.LNil, err
			}
			if set {
				tbl.Append(k)
				continue
			}
			val, err := r.toLua(L, iter.Value())
			if err != nil {
				return lua.LNil, fmt.Errorf("key %s: %w", k, err)
			}
			tbl.RawSet(k, val)
		}
		return tbl, nil
	case reflect.Struct:
		tbl := L.NewTable()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, ok := ir.FieldName(f)
			if !ok {
				continue
			}
			lv, err := r.toLua(L, v.Field(i))
			if err != nil {
				return lua.LNil, fmt.Errorf("field %s: %w", name, err)
			}
			tbl.RawSetString(name, lv)
		}
		return tbl, nil
	case reflect.Func:
		if v.IsNil() {
			return lua.LNil, nil
		}
		return L.NewFunction(r.wrap(&CallInfo{Name: t.String(), Kind: KindFunction}, v.Interface())), nil
	}

	ud := L.NewUserData()
	ud.Value = v.Interface()
	return ud, nil
}

// fromLua converts lv to a value of type t.
func (r *Runtime) fromLua(L *lua.LState, lv lua.LValue, t reflect.Type) (reflect.Value, error) {
	if lt := reflect.TypeOf(lv); (t.Kind() != reflect.Interface || t == lvalueType) && lt.AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(reflect.ValueOf(lv))
		return out, nil
	}
	if ud, ok := lv.(*lua.LUserData); ok && ud.Value != nil {
		uv := reflect.ValueOf(ud.Value)
		if uv.Type().AssignableTo(t) {
			out := reflect.New(t).Elem()
			out.Set(uv)
			return out, nil
		}
		if uv.Kind() == reflect.Pointer && !uv.IsNil() && uv.Type().Elem().AssignableTo(t) {
			out := reflect.New(t).Elem()
			out.Set(uv.Elem())
			return out, nil
		}
	}

	if lv == lua.LNil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Interface, reflect.Bool:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, errMismatch
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return reflect.Value{}, errMismatch
		}
		if g := toGo(lv); g != nil {
			out.Set(reflect.ValueOf(g))
		}
		return out, nil

	case reflect.Bool:
		b, ok := lv.(lua.LBool)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		out.SetBool(bool(b))
		return out, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		f := float64(n)
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return reflect.Value{}, fmt.Errorf("number %v has no integer representation", f)
		}
		if out.OverflowInt(int64(f)) {
			return reflect.Value{}, fmt.Errorf("number %v overflows %s", f, t)
		}
		out.SetInt(int64(f))
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		f := float64(n)
		if f != math.Trunc(f) || f < 0 || math.IsInf(f, 0) {
			return reflect.Value{}, fmt.Errorf("number %v is not a valid %s", f, t)
		}
		if out.OverflowUint(uint64(f)) {
			return reflect.Value{}, fmt.Errorf("number %v overflows %s", f, t)
		}
		out.SetUint(uint64(f))
		return out, nil

	case reflect.Float32, reflect.Float64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		out.SetFloat(float64(n))
		return out, nil

	case reflect.String:
		switch s := lv.(type) {
		case lua.LString:
			out.SetString(string(s))
		case lua.LNumber:
			out.SetString(s.String())
		default:
			return reflect.Value{}, errMismatch
		}
		return out, nil

	case reflect.Pointer:
		inner, err := r.fromLua(L, lv, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil

	case reflect.Slice:
		if s, ok := lv.(lua.LString); ok && t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(t), nil
		}
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		n := tbl.Len()
		out = reflect.MakeSlice(t, n, n)
		for i := 0; i < n; i++ {
			elem, err := r.fromLua(L, tbl.RawGetInt(i+1), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("index %d: %w", i+1, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil

	case reflect.Array:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		for i := 0; i < t.Len(); i++ {
			elem, err := r.fromLua(L, tbl.RawGetInt(i+1), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("index %d: %w", i+1, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil

	case reflect.Map:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		return r.tableToMap(L, tbl, t)

	case reflect.Struct:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		return decodeStruct(tbl, t)

	case reflect.Func:
		fn, ok := lv.(*lua.LFunction)
		if !ok {
			return reflect.Value{}, errMismatch
		}
		return r.bridge(L, fn, t), nil
	}
	return reflect.Value{}, errMismatch
}

func (r *Runtime) tableToMap(L *lua.LState, tbl *lua.LTable, t reflect.Type) (reflect.Value, error) {
	m := reflect.MakeMap(t)
	if isSet(t) {
		for i := 1; i <= tbl.Len(); i++ {
			k, err := r.fromLua(L, tbl.RawGetInt(i), t.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			m.SetMapIndex(k, reflect.Zero(t.Elem()))
		}
		return m, nil
	}

	var firstErr error
	tbl.ForEach(func(lk, lv lua.LValue) {
		if firstErr != nil {
			return
		}
		k, err := r.fromLua(L, lk, t.Key())
		if err != nil {
			firstErr = fmt.Errorf("key %s: %w", lk, err)
			return
		}
		v, err := r.fromLua(L, lv, t.Elem())
		if err != nil {
			firstErr = fmt.Errorf("key %s: %w", lk, err)
			return
		}
		m.SetMapIndex(k, v)
	})
	if firstErr != nil {
		return reflect.Value{}, firstErr
	}
	return m, nil
}

// decodeStruct fills a struct of type t from tbl with the schema decoder
// and validates it. Nested tables use dotted keys and arrays of tables use
// zero-based indexes, e.g. "items.0.name".
func decodeStruct(tbl *lua.LTable, t reflect.Type) (reflect.Value, error) {
	values := make(map[string][]string)
	flattenTable(tbl, "", values)

	ptr := reflect.New(t)
	if err := schemaDecoder.Decode(ptr.Interface(), values); err != nil {
		return reflect.Value{}, err
	}
	if err := validate.Struct(ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func flattenTable(tbl *lua.LTable, prefix string, out map[string][]string) {
	tbl.ForEach(func(k, v lua.LValue) {
		var key string
		switch k := k.(type) {
		case lua.LString:
			key = prefix + string(k)
		case lua.LNumber:
			key = prefix + k.String()
		default:
			return
		}

		nested, ok := v.(*lua.LTable)
		if !ok {
			if isScalar(v) {
				out[key] = append(out[key], v.String())
			}
			return
		}
		if n := nested.Len(); n > 0 {
			for i := 1; i <= n; i++ {
				elem := nested.RawGetInt(i)
				if et, ok := elem.(*lua.LTable); ok {
					flattenTable(et, key+"."+strconv.Itoa(i-1)+".", out)
				} else if isScalar(elem) {
					out[key] = append(out[key], elem.String())
				}
			}
			return
		}
		flattenTable(nested, key+".", out)
	})
}

func isScalar(v lua.LValue) bool {
	switch v.(type) {
	case lua.LString, lua.LNumber, lua.LBool:
		return true
	}
	return false
}

// toGo converts lv for an untyped (any) parameter. Arrays become []any,
// other tables map[string]any.
func toGo(lv lua.LValue) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LUserData:
		return v.Value
	case *lua.LTable:
		if n := v.Len(); n > 0 {
			arr := make([]any, n)
			for i := range arr {
				arr[i] = toGo(v.RawGetInt(i + 1))
			}
			return arr
		}
		m := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			m[k.String()] = toGo(val)
		})
		return m
	}
	return lv
}

// bridge returns a Go function of type ft that calls the Lua function fn.
// When ft ends in an error result, Lua errors and conversion failures are
// returned there; otherwise they panic.
func (r *Runtime) bridge(L *lua.LState, fn *lua.LFunction, ft reflect.Type) reflect.Value {
	returnsErr := ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType
	nret := ft.NumOut()
	if returnsErr {
		nret--
	}

	return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		out := make([]reflect.Value, ft.NumOut())
		for i := range out {
			out[i] = reflect.Zero(ft.Out(i))
		}
		fail := func(err error) []reflect.Value {
			if !returnsErr {
				panic(err)
			}
			out[len(out)-1] = reflect.ValueOf(&err).Elem()
			return out
		}

		args := make([]lua.LValue, 0, len(in))
		for i, v := range in {
			if ft.IsVariadic() && i == len(in)-1 {
				for j := 0; j < v.Len(); j++ {
					lv, err := r.toLua(L, v.Index(j))
					if err != nil {
						return fail(err)
					}
					args = append(args, lv)
				}
				continue
			}
			lv, err := r.toLua(L, v)
			if err != nil {
				return fail(err)
			}
			args = append(args, lv)
		}

		if err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
			return fail(err)
		}
		rets := make([]lua.LValue, nret)
		for i := range rets {
			rets[i] = L.Get(i - nret)
		}
		L.Pop(nret)

		for i, lv := range rets {
			v, err := r.fromLua(L, lv, ft.Out(i))
			if err != nil {
				return fail(fmt.Errorf("result %d: %w", i+1, err))
			}
			out[i] = v
		}
		return out
	})
}

func isSet(t reflect.Type) bool {
	return t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
