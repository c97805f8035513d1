package steps

import (
	"context"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
)

// StartNode — якорь последовательности. Ничего не делает.
type StartNode struct{}

// NewStartNode создаёт StartNode.
func NewStartNode() *StartNode {
	return &StartNode{}
}

// Config возвращает описание узла.
func (n *StartNode) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "Start",
		Type:        domain.NodeTypeStart,
		Description: "Start node",
	}
}

// Execute возвращает пустой output.
func (n *StartNode) Execute(context.Context, *engine.NodeInput) (engine.Result, error) {
	return engine.Continue(map[string]any{}), nil
}
