package script

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shaiso/flowrequests/internal/steps"
)

// Ошибки выполнения скриптов.
var (
	// ErrUnsupportedLanguage — для языка нет исполнителя.
	ErrUnsupportedLanguage = errors.New("unsupported script language")

	// ErrLoad — скрипт не компилируется.
	ErrLoad = errors.New("script load error")

	// ErrExecution — ошибка во время выполнения скрипта.
	ErrExecution = errors.New("script execution error")
)

// Router выбирает исполнителя по языку скрипта.
// Реализует steps.ScriptRunner.
type Router struct {
	runners map[string]steps.ScriptRunner
}

// NewRouter создаёт Router с Lua и Go исполнителями.
func NewRouter() *Router {
	return &Router{
		runners: map[string]steps.ScriptRunner{
			steps.LanguageLua: NewLuaRunner(),
			steps.LanguageGo:  NewGoRunner(),
		},
	}
}

// Register добавляет или заменяет исполнителя языка.
func (r *Router) Register(language string, runner steps.ScriptRunner) {
	r.runners[language] = runner
}

// Languages возвращает поддерживаемые языки.
func (r *Router) Languages() []string {
	langs := make([]string, 0, len(r.runners))
	for l := range r.runners {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Run выполняет скрипт исполнителем его языка.
func (r *Router) Run(ctx context.Context, script *steps.Script) (any, error) {
	runner, ok := r.runners[script.Language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, script.Language)
	}
	return runner.Run(ctx, script)
}
