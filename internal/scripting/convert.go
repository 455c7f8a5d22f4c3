package scripting

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// ToLua converts a plain Go value into a Lua value owned by L.
// Supported: nil, bool, string, int, int64, float64, []string, []int, []any,
// map[string]any, map[string]int, and map[string]string. Map keys are inserted
// in sorted order.
//
// Postcondition: Returns an error for any other type.
func ToLua(L *lua.LState, v any) (lua.LValue, error) {
	switch x := v.(type) {
	case nil:
		return lua.LNil, nil
	case lua.LValue:
		return x, nil
	case bool:
		return lua.LBool(x), nil
	case string:
		return lua.LString(x), nil
	case int:
		return lua.LNumber(x), nil
	case int64:
		return lua.LNumber(x), nil
	case float64:
		return lua.LNumber(x), nil
	case []string:
		t := L.NewTable()
		for _, s := range x {
			t.Append(lua.LString(s))
		}
		return t, nil
	case []int:
		t := L.NewTable()
		for _, n := range x {
			t.Append(lua.LNumber(n))
		}
		return t, nil
	case []any:
		t := L.NewTable()
		for i, e := range x {
			lv, err := ToLua(L, e)
			if err != nil {
				return lua.LNil, fmt.Errorf("[%d]: %w", i, err)
			}
			t.Append(lv)
		}
		return t, nil
	case map[string]any:
		t := L.NewTable()
		for _, k := range sortedKeys(x) {
			lv, err := ToLua(L, x[k])
			if err != nil {
				return lua.LNil, fmt.Errorf("%s: %w", k, err)
			}
			t.RawSetString(k, lv)
		}
		return t, nil
	case map[string]int:
		t := L.NewTable()
		for _, k := range sortedKeys(x) {
			t.RawSetString(k, lua.LNumber(x[k]))
		}
		return t, nil
	case map[string]string:
		t := L.NewTable()
		for _, k := range sortedKeys(x) {
			t.RawSetString(k, lua.LString(x[k]))
		}
		return t, nil
	default:
		return lua.LNil, fmt.Errorf("scripting: unsupported value type %T", v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
