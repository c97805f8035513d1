package engine

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"

	// statePrefix — префикс старого формата выражений.
	statePrefix = "this.state."

	// generatorPrefix — необязательное имя генератора в вызове ("faker.person.firstName()").
	generatorPrefix = "faker."
)

// Пространства имён выражений:
//
//	{{ steps.fetch.output.body.id }}  — запись шага (input, output, currentItem)
//	{{ envData.baseUrl }}             — значение окружения (алиас: env)
//	{{ request.userId }}              — контекст запроса
//	{{ person.firstName() }}          — вызов генератора синтетических данных
//
// Префикс "this.state." допускается и отбрасывается.

// Render подставляет все выражения в строку.
//
// Текст вне {{ }} переносится без изменений. Строковые значения
// подставляются как есть, остальные сериализуются в JSON.
func Render(tmpl string, state *State) (string, error) {
	if !strings.Contains(tmpl, openDelim) {
		return tmpl, nil
	}

	var buf strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			buf.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			return "", fmt.Errorf("%w: unclosed %q in %q", ErrInvalidExpression, openDelim, tmpl)
		}
		end += start + len(openDelim)

		buf.WriteString(rest[:start])
		expr := strings.TrimSpace(rest[start+len(openDelim) : end])

		value, err := Lookup(expr, state)
		if err != nil {
			return "", err
		}
		buf.WriteString(stringify(value))

		rest = rest[end+len(closeDelim):]
	}

	return buf.String(), nil
}

// Evaluate разрешает строку.
//
// Если строка целиком состоит из одного выражения, возвращается
// значение без преобразования в строку (число, объект, массив).
// Иначе работает как Render.
func Evaluate(tmpl string, state *State) (any, error) {
	if expr, ok := singleExpression(tmpl); ok {
		return Lookup(expr, state)
	}
	return Render(tmpl, state)
}

// RenderValue разрешает произвольное значение.
// Рекурсивно обрабатывает map и slice. Ключи map обходятся по возрастанию:
// генератор последовательный, и порядок вызовов должен быть одинаковым.
func RenderValue(value any, state *State) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Evaluate(v, state)

	case map[string]any:
		result := make(map[string]any, len(v))
		for _, key := range slices.Sorted(maps.Keys(v)) {
			rendered, err := RenderValue(v[key], state)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, state)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for _, key := range slices.Sorted(maps.Keys(v)) {
			rendered, err := Render(v[key], state)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	default:
		// Для остальных типов (int, float, bool) возвращаем как есть
		return value, nil
	}
}

// Lookup разрешает выражение без фигурных скобок.
func Lookup(expr string, state *State) (any, error) {
	expr = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expr), statePrefix))
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	if state == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedExpression, expr)
	}

	if call, ok := strings.CutSuffix(expr, "()"); ok {
		return callGenerator(call, state)
	}

	root, path, _ := strings.Cut(expr, ".")
	switch root {
	case "steps":
		name, rest, _ := strings.Cut(path, ".")
		rec, ok := state.Step(name)
		if !ok {
			return nil, fmt.Errorf("%w: step %q has no record", ErrUnresolvedExpression, name)
		}
		return lookupPath(recordValue(rec), rest, expr)

	case "envData", "env":
		return lookupPath(state.Env(), path, expr)

	case "request":
		return lookupPath(state.Request(), path, expr)

	default:
		return nil, fmt.Errorf("%w: unknown namespace %q", ErrInvalidExpression, root)
	}
}

// IsExpression возвращает true, если строка содержит выражение
// или выглядит как путь в состоянии.
func IsExpression(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, openDelim) {
		return true
	}
	for _, prefix := range []string{statePrefix, "steps.", "envData.", "env."} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// singleExpression проверяет, что строка — ровно одно выражение "{{ ... }}".
func singleExpression(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, openDelim) || !strings.HasSuffix(s, closeDelim) {
		return "", false
	}
	inner := s[len(openDelim) : len(s)-len(closeDelim)]
	if strings.Contains(inner, openDelim) || strings.Contains(inner, closeDelim) {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

func callGenerator(call string, state *State) (any, error) {
	call = strings.TrimPrefix(call, generatorPrefix)

	gen := state.Generator()
	if gen == nil {
		return nil, fmt.Errorf("%w: %s()", ErrNoGenerator, call)
	}
	dot := strings.LastIndex(call, ".")
	if dot <= 0 || dot == len(call)-1 {
		return nil, fmt.Errorf("%w: generator call must be category.method(), got %s()", ErrInvalidExpression, call)
	}
	return gen.Call(call[:dot], call[dot+1:])
}

// recordValue представляет запись шага как JSON-объект.
func recordValue(rec StepRecord) map[string]any {
	v := map[string]any{
		"input":  rec.Input,
		"output": rec.Output,
	}
	if rec.CurrentItem != nil {
		v["currentItem"] = rec.CurrentItem
	}
	return v
}

// lookupPath ищет путь в значении через gjson.
// Пустой путь возвращает значение целиком.
func lookupPath(value any, path, expr string) (any, error) {
	if path == "" {
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvedExpression, expr, err)
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedExpression, expr)
	}
	return res.Value(), nil
}

// stringify приводит значение к строке для подстановки в текст.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
