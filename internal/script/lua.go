package script

import (
	"context"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/shaiso/flowrequests/internal/steps"
)

const (
	luaGlobalTableIndex = -2
	luaArrayTableIndex  = -3
	luaMapTableIndex    = -3
	luaGlobalTableName  = "_G"
)

// Глобальные библиотеки, недоступные скриптам.
var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// LuaRunner выполняет Lua скрипты code узлов.
//
// Скрипт — это chunk, который видит глобальные таблицы params, steps и env
// и возвращает output узла:
//
//	local total = 0
//	for _, item in ipairs(steps.fetch.output.items) do
//	    total = total + item.price
//	end
//	return { total = total, currency = params.currency }
//
// Каждый вызов получает новое состояние Lua без io, os и загрузчиков модулей.
type LuaRunner struct{}

// NewLuaRunner создаёт LuaRunner.
func NewLuaRunner() *LuaRunner {
	return &LuaRunner{}
}

// Run выполняет скрипт.
func (r *LuaRunner) Run(ctx context.Context, script *steps.Script) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	L := lua.NewState()
	setupSandbox(L)

	setGlobal(L, "params", script.Params)
	setGlobal(L, "steps", script.Steps)
	setGlobal(L, "env", script.Env)

	if err := lua.LoadString(L, script.Source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	if err := L.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	result := luaToGo(L, -1)
	L.Pop(1)
	return result, nil
}

func setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func setGlobal(L *lua.State, name string, value map[string]any) {
	if value == nil {
		value = map[string]any{}
	}
	goToLua(L, value)
	L.SetGlobal(name)
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaArrayTableIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaMapTableIndex)
	}
}

func luaNumberToGo(L *lua.State, index int) any {
	num, _ := L.ToNumber(index)
	if num == float64(int(num)) {
		return int(num)
	}
	return num
}

func luaToGo(L *lua.State, index int) any {
	switch L.TypeOf(index) {
	case lua.TypeNil:
		return nil
	case lua.TypeBoolean:
		return L.ToBoolean(index)
	case lua.TypeNumber:
		return luaNumberToGo(L, index)
	case lua.TypeString:
		s, _ := L.ToString(index)
		return s
	case lua.TypeTable:
		return luaTableToAny(L, index)
	default:
		return nil
	}
}

// luaTableToAny превращает таблицу в []any (ключи 1..n) или map[string]any.
func luaTableToAny(L *lua.State, index int) any {
	isArray := true
	length := 0

	L.PushNil()
	for L.Next(index - 1) {
		if L.TypeOf(-2) != lua.TypeNumber {
			isArray = false
			L.Pop(2)
			break
		}
		length++
		L.Pop(1)
	}

	if isArray && length > 0 {
		return convertLuaArray(L, index, length)
	}

	result := map[string]any{}
	L.PushNil()
	for L.Next(index - 1) {
		var key string
		if L.TypeOf(-2) == lua.TypeString {
			key, _ = L.ToString(-2)
		} else {
			key = fmt.Sprintf("%v", luaToGo(L, -2))
		}
		result[key] = luaToGo(L, -1)
		L.Pop(1)
	}

	return result
}

func convertLuaArray(L *lua.State, index, length int) []any {
	arr := make([]any, length)
	absIndex := index
	if index < 0 {
		absIndex = L.Top() + index + 1
	}
	for i := 1; i <= length; i++ {
		L.RawGetInt(absIndex, i)
		arr[i-1] = luaToGo(L, -1)
		L.Pop(1)
	}
	return arr
}
