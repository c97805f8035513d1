package cli

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
	"github.com/shaiso/flowrequests/internal/plugins"
	"github.com/shaiso/flowrequests/internal/runner"
)

// ExecOptions — параметры локального выполнения.
type ExecOptions struct {
	// Env — пары KEY=VALUE поверх envData workflow.
	Env []string

	// Request — контекст запроса в JSON.
	Request string

	// Seed генератора синтетических данных (0 — значение по умолчанию).
	Seed uint64

	// Strict — валидировать workflow перед выполнением.
	Strict bool

	// HTTPClient для api узлов и плагинов (опционально).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// ExecLocal выполняет workflow в процессе со встроенными узлами
// и всеми статически связанными плагинами.
//
// Ошибка возвращается только для некорректных параметров или
// (при Strict) невалидного workflow. Ошибки узлов остаются в State.
func ExecLocal(ctx context.Context, wf *domain.Workflow, opts ExecOptions) (*engine.State, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := ParseEnv(wf, opts.Env); err != nil {
		return nil, err
	}
	request, err := ParseRequest(opts.Request)
	if err != nil {
		return nil, err
	}

	linker := plugins.Linker(plugins.Options{HTTPClient: opts.HTTPClient, Logger: logger})

	descriptors := make([]domain.PluginDescriptor, 0)
	for _, name := range linker.Names() {
		descriptors = append(descriptors, domain.PluginDescriptor{ExposedName: name, Enabled: true})
	}

	factory := runner.NewEngineFactory(runner.FactoryConfig{
		HTTPClient: opts.HTTPClient,
		Linker:     linker,
		Seed:       opts.Seed,
		Logger:     logger,
	})
	eng := factory.Build(descriptors, logger)

	if opts.Strict {
		if err := engine.Validate(wf, eng); err != nil {
			return nil, err
		}
	}

	return eng.Process(ctx, wf, request), nil
}
