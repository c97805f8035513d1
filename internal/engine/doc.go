// Package engine содержит интерпретатор workflow.
//
// Включает:
//   - engine.go     — обход последовательности узлов (курсор, ветвления, запись шагов)
//   - state.go      — состояние выполнения (StepRecord, env, request, генератор)
//   - node.go       — контракт узла (Node, NodeConfig, NodeInput, Result)
//   - expression.go — подстановка выражений {{ steps.x.output }}
//   - validate.go   — валидация workflow на стороне вызывающего
//
// Engine не знает о конкретных типах узлов: встроенные узлы и плагины
// приходят через Resolver. Ошибки узлов никогда не прерывают run,
// они записываются в output соответствующего шага.
package engine
