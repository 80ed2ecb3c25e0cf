package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/flowstate/hook"
)

// eventToTable builds the single table argument a Lua hook receives.
func eventToTable(L *lua.LState, e hook.TransitionEvent) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("event", lua.LString(e.Event))
	t.RawSetString("from", lua.LString(e.From))
	t.RawSetString("to", lua.LString(e.To))

	data := L.NewTable()
	for i, v := range e.Data {
		data.RawSetInt(i+1, toLuaValue(L, v))
	}
	t.RawSetString("data", data)
	return t
}

// toLuaValue converts a Go value to a Lua value. Unsupported types are
// rendered as their string form rather than dropped, so hook payloads stay
// inspectable from scripts.
func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLuaValue(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLuaValue(L, item))
		}
		return t
	case lua.LValue:
		return val
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
