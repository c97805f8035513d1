package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
)

// LoopNode — цикл по массиву (тип "loop").
//
// Настройки:
//
//	{
//	    "source": "{{ steps.fetch.output.items }}",  // или "[1,2,3]", или массив
//	    "nodes":  [...]
//	}
//
// Для каждого элемента по порядку:
//  1. currentItem записывается в запись шага loop
//  2. nodes выполняются дочерним run (state.steps доступны)
//  3. шаги дочернего run сливаются в родительский state
//
// Итерации строго последовательные. Вложенная последовательность
// полностью выполняется внутри узла, поэтому результат — обычный output.
type LoopNode struct{}

// NewLoopNode создаёт LoopNode.
func NewLoopNode() *LoopNode {
	return &LoopNode{}
}

// Config возвращает описание узла.
func (n *LoopNode) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "Loop",
		Type:        domain.NodeTypeLoop,
		Description: "Loop node",
		Properties: []engine.Property{
			{Name: "source", Type: "string", Label: "Loop", Required: true, Default: "[1,2,3]"},
			{Name: "nodes", Type: "sequence", Label: "Nodes"},
		},
	}
}

// Execute выполняет nodes для каждого элемента source.
func (n *LoopNode) Execute(ctx context.Context, in *engine.NodeInput) (engine.Result, error) {
	items, err := n.source(in)
	if err != nil {
		return engine.Result{}, err
	}

	nodes, err := domain.SequenceFrom(in.Settings["nodes"])
	if err != nil {
		return engine.Result{}, fmt.Errorf("%w: nodes: %v", ErrInvalidConfig, err)
	}

	if in.Runner == nil {
		return engine.Result{}, fmt.Errorf("%w: loop requires a sequence runner", ErrInvalidConfig)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return engine.Result{}, fmt.Errorf("%w: iteration %d: %v", ErrStepCancelled, i, err)
		}

		rec, _ := in.State.Step(in.Name)
		rec.Input = in.State.Request()
		rec.CurrentItem = item
		in.State.SetStep(in.Name, rec)

		child := in.Runner.RunChild(ctx, nodes, in.State)
		in.State.Merge(child)
	}

	return engine.Continue(map[string]any{"iterations": len(items)}), nil
}

// source разрешает source в массив.
// Строка разрешается как выражение, текстовый результат парсится как JSON.
func (n *LoopNode) source(in *engine.NodeInput) ([]any, error) {
	raw, ok := in.Setting("source")
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: loop: source is required", ErrInvalidConfig)
	}

	value, err := in.Resolve(raw)
	if err != nil {
		return nil, err
	}

	if s, ok := value.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		value = parsed
	}

	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidSource, value)
	}
	return items, nil
}
