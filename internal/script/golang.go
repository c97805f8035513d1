package script

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/shaiso/flowrequests/internal/steps"
)

// goEntryPoint — функция, которую должен объявить Go скрипт.
const goEntryPoint = "Node"

// Пакеты стандартной библиотеки, доступные Go скриптам.
// os, net, io/ioutil и прочий ввод-вывод не экспортируются.
var goAllowedPackages = []string{
	"bytes", "encoding/base64", "encoding/json", "errors", "fmt", "math",
	"regexp", "sort", "strconv", "strings", "time", "unicode", "unicode/utf8",
}

// GoRunner выполняет Go скрипты code узлов через интерпретатор yaegi.
//
// Скрипт объявляет функцию Node:
//
//	import "strings"
//
//	func Node(params, steps, env map[string]any) (any, error) {
//	    return strings.ToUpper(params["name"].(string)), nil
//	}
//
// Второй результат (error) необязателен.
type GoRunner struct {
	symbols interp.Exports
}

// NewGoRunner создаёт GoRunner с ограниченным набором пакетов.
func NewGoRunner() *GoRunner {
	allowed := make(map[string]bool, len(goAllowedPackages))
	for _, p := range goAllowedPackages {
		allowed[p] = true
	}

	symbols := make(interp.Exports)
	for key, syms := range stdlib.Symbols {
		// ключи вида "encoding/json/json"
		path := key[:strings.LastIndex(key, "/")]
		if allowed[path] {
			symbols[key] = syms
		}
	}

	return &GoRunner{symbols: symbols}
}

// Run выполняет скрипт.
func (r *GoRunner) Run(ctx context.Context, script *steps.Script) (any, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(r.symbols); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	if _, err := i.EvalWithContext(ctx, script.Source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	fn, err := i.Eval(goEntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: script must define func %s(params, steps, env map[string]any) any: %v",
			ErrLoad, goEntryPoint, err)
	}

	return invokeEntryPoint(fn, script)
}

// invokeEntryPoint вызывает Node и разбирает результат (any[, error]).
func invokeEntryPoint(fn reflect.Value, script *steps.Script) (result any, err error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s is not a function", ErrLoad, goEntryPoint)
	}
	if fn.Type().NumIn() != 3 {
		return nil, fmt.Errorf("%w: %s must take (params, steps, env map[string]any)", ErrLoad, goEntryPoint)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", ErrExecution, rec)
		}
	}()

	args := []reflect.Value{
		reflect.ValueOf(orEmpty(script.Params)),
		reflect.ValueOf(orEmpty(script.Steps)),
		reflect.ValueOf(orEmpty(script.Env)),
	}

	out := fn.Call(args)
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if !out[1].IsNil() {
			if e, ok := out[1].Interface().(error); ok && e != nil {
				return nil, fmt.Errorf("%w: %v", ErrExecution, e)
			}
		}
		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("%w: %s must return (any[, error])", ErrLoad, goEntryPoint)
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
