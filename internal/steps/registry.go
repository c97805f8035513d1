package steps

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/shaiso/flowrequests/internal/engine"
)

// Registry — реестр встроенных узлов.
//
// Реализует engine.Resolver: тип узла → engine.Node.
// Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]engine.Node
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]engine.Node),
	}
}

// Options — зависимости встроенных узлов.
type Options struct {
	// HTTPClient для api (опционально).
	HTTPClient *http.Client

	// Scripts — исполнитель code (опционально; без него code
	// возвращает {ok: true}).
	Scripts ScriptRunner
}

// DefaultRegistry создаёт реестр со всеми встроенными узлами.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()

	r.Register(NewStartNode())
	r.Register(NewHTTPNode(opts.HTTPClient))
	r.Register(NewConditionNode())
	r.Register(NewLoopNode())
	r.Register(NewCodeNode(opts.Scripts))

	return r
}

// Register регистрирует узел по Config().Type.
// Если узел с таким типом уже существует, он будет перезаписан.
func (r *Registry) Register(node engine.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.Config().Type] = node
}

// Resolve реализует engine.Resolver.
// Возвращает ошибку, оборачивающую engine.ErrNodeNotFound, если тип неизвестен.
func (r *Registry) Resolve(nodeType string) (engine.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[nodeType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", engine.ErrNodeNotFound, nodeType)
	}

	return node, nil
}

// Has проверяет, зарегистрирован ли тип.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.nodes[nodeType]
	return exists
}

// Types возвращает список всех зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.nodes))
	for t := range r.nodes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Configs возвращает описания узлов, отсортированные по типу.
func (r *Registry) Configs() []engine.NodeConfig {
	types := r.Types()

	r.mu.RLock()
	defer r.mu.RUnlock()

	configs := make([]engine.NodeConfig, 0, len(types))
	for _, t := range types {
		if node, ok := r.nodes[t]; ok {
			configs = append(configs, node.Config())
		}
	}
	return configs
}

// Count возвращает количество зарегистрированных узлов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Unregister удаляет узел из реестра.
func (r *Registry) Unregister(nodeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, nodeType)
}
