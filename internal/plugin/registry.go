package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
)

// Ошибки плагинов.
var (
	// ErrNotLinked — Linker не знает реализацию по дескриптору.
	ErrNotLinked = errors.New("plugin is not linked")

	// ErrInvalidDescriptor — дескриптор без exposed name.
	ErrInvalidDescriptor = errors.New("invalid plugin descriptor")
)

// Descriptor — где лежит реализация плагина и под каким именем она экспортирована.
type Descriptor struct {
	LocationReference string `json:"location_reference"`
	ExposedName       string `json:"exposed_name"`
}

// FromDomain возвращает дескрипторы включённых плагинов.
func FromDomain(plugins []domain.PluginDescriptor) []Descriptor {
	out := make([]Descriptor, 0, len(plugins))
	for _, p := range plugins {
		if !p.Enabled {
			continue
		}
		out = append(out, Descriptor{
			LocationReference: p.LocationReference,
			ExposedName:       p.ExposedName,
		})
	}
	return out
}

// Factory создаёт новый экземпляр узла плагина.
type Factory func() engine.Node

// Linker связывает дескриптор с реализацией в процессе.
//
// Это граница транспорта плагинов: как код доставляется и загружается,
// решает реализация Linker. Registry использует только контракт.
type Linker interface {
	Link(d Descriptor) (Factory, error)
}

// Registry — реестр пользовательских узлов.
//
// Реализует engine.Resolver: перебирает дескрипторы, связывает их через
// Linker и выбирает реализацию, чей Config().Type совпадает с запрошенным
// типом. Найденные фабрики кэшируются. Потокобезопасен.
type Registry struct {
	linker      Linker
	descriptors []Descriptor

	mu     sync.Mutex
	byType map[string]Factory
	linked map[Descriptor]Factory
}

// NewRegistry создаёт реестр для набора дескрипторов.
func NewRegistry(linker Linker, descriptors []Descriptor) *Registry {
	return &Registry{
		linker:      linker,
		descriptors: descriptors,
		byType:      make(map[string]Factory),
		linked:      make(map[Descriptor]Factory),
	}
}

// Resolve реализует engine.Resolver.
//
// Ошибка всегда *engine.NodeResolutionError: неизвестный тип и сбой
// связывания одинаково локальны для узла.
func (r *Registry) Resolve(nodeType string) (engine.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if factory, ok := r.byType[nodeType]; ok {
		return factory(), nil
	}

	var linkErrs []error
	for _, d := range r.descriptors {
		factory, err := r.link(d)
		if err != nil {
			linkErrs = append(linkErrs, err)
			continue
		}

		node := factory()
		if node.Config().Type != nodeType {
			continue
		}

		r.byType[nodeType] = factory
		return node, nil
	}

	if len(linkErrs) > 0 {
		return nil, &engine.NodeResolutionError{
			Type: nodeType,
			Err:  fmt.Errorf("%w: %w", engine.ErrNodeNotFound, errors.Join(linkErrs...)),
		}
	}
	return nil, &engine.NodeResolutionError{Type: nodeType}
}

// Configs возвращает описания всех связываемых плагинов, отсортированные по типу.
// Дескрипторы, которые не удалось связать, пропускаются.
func (r *Registry) Configs() []engine.NodeConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	var configs []engine.NodeConfig
	seen := make(map[string]bool)
	for _, d := range r.descriptors {
		factory, err := r.link(d)
		if err != nil {
			continue
		}
		cfg := factory().Config()
		if seen[cfg.Type] {
			continue
		}
		seen[cfg.Type] = true
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Type < configs[j].Type })
	return configs
}

// link связывает дескриптор (с кэшем). Вызывается под r.mu.
func (r *Registry) link(d Descriptor) (Factory, error) {
	if factory, ok := r.linked[d]; ok {
		return factory, nil
	}
	if d.ExposedName == "" {
		return nil, fmt.Errorf("%w: empty exposed name (%s)", ErrInvalidDescriptor, d.LocationReference)
	}
	if r.linker == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotLinked, d.ExposedName)
	}

	factory, err := r.linker.Link(d)
	if err != nil {
		return nil, err
	}
	r.linked[d] = factory
	return factory, nil
}

// StaticLinker связывает плагины, скомпилированные в бинарник.
// Дескриптор находится по ExposedName, LocationReference игнорируется.
type StaticLinker struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewStaticLinker создаёт пустой StaticLinker.
func NewStaticLinker() *StaticLinker {
	return &StaticLinker{factories: make(map[string]Factory)}
}

// Register регистрирует фабрику под exposed name.
func (l *StaticLinker) Register(exposedName string, factory Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[exposedName] = factory
}

// Link реализует Linker.
func (l *StaticLinker) Link(d Descriptor) (Factory, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	factory, ok := l.factories[d.ExposedName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLinked, d.ExposedName)
	}
	return factory, nil
}

// Names возвращает зарегистрированные exposed names.
func (l *StaticLinker) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.factories))
	for n := range l.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
