package runner

import (
	"log/slog"
	"net/http"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
	"github.com/shaiso/flowrequests/internal/fakedata"
	"github.com/shaiso/flowrequests/internal/plugin"
	"github.com/shaiso/flowrequests/internal/script"
	"github.com/shaiso/flowrequests/internal/steps"
)

// EngineFactory собирает engine.Engine для одного run.
//
// Встроенные узлы и Linker общие. Реестр плагинов строится заново
// из текущих включённых дескрипторов, генератор данных создаётся
// на каждый run с фиксированным seed.
type EngineFactory struct {
	builtins *steps.Registry
	linker   plugin.Linker
	seed     uint64
	observer engine.Observer
	logger   *slog.Logger
}

// FactoryConfig — конфигурация EngineFactory.
type FactoryConfig struct {
	// HTTPClient для api узлов (опционально).
	HTTPClient *http.Client

	// Linker плагинов (опционально; без него плагины не разрешаются).
	Linker plugin.Linker

	// Seed генератора синтетических данных (0 — fakedata.DefaultSeed).
	Seed uint64

	// Observer — получатель метрик узлов (опционально).
	Observer engine.Observer

	Logger *slog.Logger
}

// NewEngineFactory создаёт фабрику со встроенными узлами и исполнителями кода.
func NewEngineFactory(cfg FactoryConfig) *EngineFactory {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EngineFactory{
		builtins: steps.DefaultRegistry(steps.Options{
			HTTPClient: cfg.HTTPClient,
			Scripts:    script.NewRouter(),
		}),
		linker:   cfg.Linker,
		seed:     cfg.Seed,
		observer: cfg.Observer,
		logger:   logger,
	}
}

// Build создаёт Engine с плагинами из descriptors (выключенные пропускаются).
// nil logger — логгер фабрики.
func (f *EngineFactory) Build(descriptors []domain.PluginDescriptor, logger *slog.Logger) *engine.Engine {
	if logger == nil {
		logger = f.logger
	}
	seed := f.seed
	return engine.New(engine.Config{
		Builtins:  f.builtins,
		Custom:    f.Plugins(descriptors),
		Generator: func() engine.Generator { return fakedata.New(seed) },
		Observer:  f.observer,
		Logger:    logger,
	})
}

// Plugins возвращает реестр плагинов для descriptors.
func (f *EngineFactory) Plugins(descriptors []domain.PluginDescriptor) *plugin.Registry {
	return plugin.NewRegistry(f.linker, plugin.FromDomain(descriptors))
}

// Catalog возвращает описания встроенных узлов и плагинов.
func (f *EngineFactory) Catalog(descriptors []domain.PluginDescriptor) []engine.NodeConfig {
	return append(f.builtins.Configs(), f.Plugins(descriptors).Configs()...)
}
