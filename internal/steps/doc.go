// Package steps содержит встроенные узлы workflow.
//
// # Обзор
//
// Каждый узел реализует engine.Node:
//
//	type Node interface {
//	    Config() engine.NodeConfig
//	    Execute(ctx context.Context, in *engine.NodeInput) (engine.Result, error)
//	}
//
// Узел сам разрешает выражения в тех настройках, которые ему нужны
// (in.Resolve, in.StringSetting). Ошибку достаточно вернуть: Engine
// запишет её в output шага и продолжит run.
//
// # Registry
//
// Registry реализует engine.Resolver для встроенных типов:
//
//	registry := steps.DefaultRegistry(steps.Options{Scripts: runner})
//	eng := engine.New(engine.Config{Builtins: registry})
//
// # Типы узлов
//
//   - start     (start.go)     — якорь, пустой output
//   - api       (http.go)      — HTTP запрос, output — тело ответа
//   - condition (condition.go) — сравнение и Divert в success/fail
//   - loop      (loop.go)      — дочерний run на каждый элемент source
//   - code      (code.go)      — скрипт через ScriptRunner
//
// # Обработка ошибок
//
//	var (
//	    ErrInvalidConfig   // неверные настройки
//	    ErrHTTPRequest     // запрос не выполнен
//	    ErrUnknownOperator // оператор condition
//	    ErrInvalidSource   // source loop не массив
//	    ErrStepCancelled   // context cancelled
//	)
//
// HTTP статус >= 400 возвращается как engine.NodeExecutionError.
package steps
