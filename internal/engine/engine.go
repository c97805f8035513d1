package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/flowrequests/internal/domain"
)

const tracerName = "github.com/shaiso/flowrequests/internal/engine"

// Observer получает события выполнения узлов (метрики).
type Observer interface {
	NodeExecuted(nodeType string, duration time.Duration, failed bool)
}

// Engine — интерпретатор workflow.
//
// Engine обходит последовательность узлов сверху вниз:
//   - Разрешает тип узла (встроенные → плагины)
//   - Вызывает Execute и записывает StepRecord {input: request, output}
//   - При Divert переводит курсор в голову вложенной последовательности
//
// Узлы выполняются строго по одному. Ошибки узлов записываются
// в output и не прерывают run.
type Engine struct {
	builtins  Resolver
	custom    Resolver
	generator GeneratorFactory
	observer  Observer
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Config — конфигурация Engine.
type Config struct {
	// Builtins — встроенные узлы (start, api, condition, loop, code).
	Builtins Resolver

	// Custom — реестр плагинов (опционально).
	// Используется, если Builtins не знает тип.
	Custom Resolver

	// Generator создаёт генератор синтетических данных на каждый run
	// (опционально; без него вызовы вида person.firstName() дают ошибку).
	Generator GeneratorFactory

	// Observer — получатель метрик (опционально).
	Observer Observer

	// Tracer (опционально; по умолчанию otel.Tracer).
	Tracer trace.Tracer

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Engine{
		builtins:  cfg.Builtins,
		custom:    cfg.Custom,
		generator: cfg.Generator,
		observer:  cfg.Observer,
		tracer:    tracer,
		logger:    logger,
	}
}

// Process выполняет workflow и возвращает итоговое состояние.
//
// Process всегда возвращает полное состояние, даже если все узлы упали.
// Агрегированного признака успеха нет: результат нужно смотреть по шагам.
func (e *Engine) Process(ctx context.Context, wf *domain.Workflow, request any) *State {
	var gen Generator
	if e.generator != nil {
		gen = e.generator()
	}

	var (
		nodes domain.Sequence
		env   map[string]any
	)
	if wf != nil {
		nodes = wf.Nodes
		env = domain.EnvMap(wf.EnvData)
	}

	state := NewState(env, request, gen)

	ctx, span := e.tracer.Start(ctx, "workflow.process",
		trace.WithAttributes(attribute.Int("workflow.nodes", len(nodes))),
	)
	defer span.End()

	e.run(ctx, nodes, state)

	span.SetAttributes(attribute.Int("workflow.steps", state.Len()))
	return state
}

// RunChild выполняет seq в дочернем состоянии parent.
// Родительское состояние не меняется: слияние делает вызывающий.
func (e *Engine) RunChild(ctx context.Context, seq domain.Sequence, parent *State) *State {
	child := parent.child()
	e.run(ctx, seq, child)
	return child
}

// run — основной цикл интерпретатора.
func (e *Engine) run(ctx context.Context, seq domain.Sequence, state *State) {
	cur, idx := seq, 0

	for idx < len(cur) {
		def := cur[idx]

		result := e.execute(ctx, def, state)

		if result.IsDivert() {
			// Узел-развилка получает пустой output, курсор уходит во вложенную
			// последовательность и в исходную уже не возвращается.
			e.record(state, def, map[string]any{})
			cur, idx = result.Sequence(), 0
			continue
		}

		e.record(state, def, result.Output())
		idx++
	}
}

// record записывает StepRecord для узла.
func (e *Engine) record(state *State, def domain.NodeDef, output any) {
	rec := StepRecord{
		Input:  state.Request(),
		Output: output,
	}

	// currentItem выставляется loop во время итераций и должен пережить
	// финальную запись шага.
	if def.Type == domain.NodeTypeLoop {
		if prev, ok := state.Step(def.Name); ok {
			rec.CurrentItem = prev.CurrentItem
		}
	}

	state.SetStep(def.Name, rec)
}

// execute выполняет один узел и понижает ошибки до output.
func (e *Engine) execute(ctx context.Context, def domain.NodeDef, state *State) Result {
	logger := e.logger.With("node", def.Name, "type", def.Type)

	ctx, span := e.tracer.Start(ctx, "node "+def.Type,
		trace.WithAttributes(
			attribute.String("node.name", def.Name),
			attribute.String("node.type", def.Type),
		),
	)
	defer span.End()

	start := time.Now()

	result, err := e.invoke(ctx, def, state)
	duration := time.Since(start)

	if e.observer != nil {
		e.observer.NodeExecuted(def.Type, duration, err != nil)
	}

	if err != nil {
		logger.Warn("node failed", "duration", duration, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Continue(ErrorOutput(err))
	}

	span.SetAttributes(attribute.Bool("node.divert", result.IsDivert()))
	logger.Debug("node finished", "duration", duration, "divert", result.IsDivert())

	return result
}

// invoke разрешает узел и вызывает Execute с восстановлением после паники.
func (e *Engine) invoke(ctx context.Context, def domain.NodeDef, state *State) (result Result, err error) {
	node, err := e.resolve(def.Type)
	if err != nil {
		return Result{}, err
	}

	in := &NodeInput{
		Name:     def.Name,
		Type:     def.Type,
		Settings: def.Settings,
		Steps:    state.Steps(),
		State:    state,
		Runner:   e,
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNodePanic, r)
		}
	}()

	e.logger.Debug("node started", "node", def.Name, "type", def.Type)

	return node.Execute(ctx, in)
}

// resolve ищет реализацию: сначала встроенные узлы, затем плагины.
func (e *Engine) resolve(nodeType string) (Node, error) {
	if e.builtins != nil {
		node, err := e.builtins.Resolve(nodeType)
		if err == nil {
			return node, nil
		}
		if !errors.Is(err, ErrNodeNotFound) {
			return nil, &NodeResolutionError{Type: nodeType, Err: err}
		}
	}

	if e.custom != nil {
		node, err := e.custom.Resolve(nodeType)
		if err == nil {
			return node, nil
		}
		var resErr *NodeResolutionError
		if errors.As(err, &resErr) {
			return nil, resErr
		}
		return nil, &NodeResolutionError{Type: nodeType, Err: err}
	}

	return nil, &NodeResolutionError{Type: nodeType}
}

// Resolve разрешает тип узла так же, как при выполнении.
// Используется Validate и каталогом узлов.
func (e *Engine) Resolve(nodeType string) (Node, error) {
	return e.resolve(nodeType)
}
