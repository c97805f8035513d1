package steps

import (
	"errors"
	"strconv"

	"github.com/shaiso/flowrequests/internal/engine"
)

// Ошибки встроенных узлов.
var (
	// ErrInvalidConfig — невалидные настройки узла.
	ErrInvalidConfig = errors.New("invalid node settings")

	// ErrHTTPRequest — запрос не дошёл до сервера или ответ не прочитан.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrUnknownOperator — неизвестный оператор сравнения.
	ErrUnknownOperator = errors.New("unknown comparison operator")

	// ErrInvalidSource — источник loop не является массивом.
	ErrInvalidSource = errors.New("loop source is not an array")

	// ErrStepCancelled — выполнение узла отменено.
	ErrStepCancelled = errors.New("node execution cancelled")
)

// GetConfigString извлекает строковое значение из настроек.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из настроек.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i
			}
		}
	}
	return 0
}

// KeyValues приводит список пар [{key, value}] или map к map.
//
// Редактор хранит заголовки и тело запроса как список пар.
// Пары с пустым ключом пропускаются, при повторе ключа побеждает последняя.
func KeyValues(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case []any:
		out := make(map[string]any, len(val))
		for _, item := range val {
			pair, ok := item.(map[string]any)
			if !ok {
				continue
			}
			key, _ := pair["key"].(string)
			if key == "" {
				continue
			}
			out[key] = pair["value"]
		}
		return out
	default:
		return nil
	}
}

// ResolveKeyValues приводит v к map, как KeyValues, и разрешает выражения
// в значениях. Список пар разрешается в порядке объявления, поэтому вызовы
// генератора дают одинаковые значения на одинаковых ключах.
func ResolveKeyValues(in *engine.NodeInput, v any) (map[string]any, error) {
	pairs, ok := v.([]any)
	if !ok {
		kv := KeyValues(v)
		if kv == nil {
			return nil, nil
		}
		resolved, err := in.Resolve(kv)
		if err != nil {
			return nil, err
		}
		return resolved.(map[string]any), nil
	}

	out := make(map[string]any, len(pairs))
	for _, item := range pairs {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, _ := pair["key"].(string)
		if key == "" {
			continue
		}
		value, err := in.Resolve(pair["value"])
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}
