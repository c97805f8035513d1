package steps

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
)

// Языки code узла.
const (
	LanguageLua = "lua"
	LanguageGo  = "go"
)

// Script — скрипт code узла, готовый к выполнению.
type Script struct {
	// Language — язык скрипта ("lua" по умолчанию).
	Language string

	// Source — исходный код (уже декодированный из base64).
	Source string

	// Params — настройки params с разрешёнными выражениями.
	Params map[string]any

	// Steps — записи шагов на момент вызова (name → {input, output}).
	Steps map[string]any

	// Env — значения окружения.
	Env map[string]any
}

// ScriptRunner выполняет скрипт в песочнице и возвращает output.
type ScriptRunner interface {
	Run(ctx context.Context, script *Script) (any, error)
}

// CodeNode — пользовательский скрипт (тип "code").
//
// Настройки:
//
//	{
//	    "code":     "<base64>",
//	    "language": "lua",
//	    "params":   {"limit": "{{ envData.limit }}"}
//	}
//
// Без ScriptRunner узел только подтверждает вызов: {ok: true}.
type CodeNode struct {
	runner ScriptRunner
}

// NewCodeNode создаёт CodeNode. runner может быть nil.
func NewCodeNode(runner ScriptRunner) *CodeNode {
	return &CodeNode{runner: runner}
}

// Config возвращает описание узла.
func (n *CodeNode) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "Code",
		Type:        domain.NodeTypeCode,
		Description: "Run a sandboxed script",
		Properties: []engine.Property{
			{
				Name:        "code",
				Type:        "string",
				Label:       "Code",
				Required:    true,
				Description: "Base64 encoded script. Lua scripts return the node output, Go scripts define func Node(params, steps, env map[string]any) any.",
			},
			{Name: "language", Type: "string", Label: "Language", Default: LanguageLua},
			{Name: "params", Type: "list", Label: "Params"},
		},
	}
}

// Execute выполняет скрипт.
func (n *CodeNode) Execute(ctx context.Context, in *engine.NodeInput) (engine.Result, error) {
	if n.runner == nil {
		return engine.Continue(map[string]any{"ok": true}), nil
	}

	script, err := n.buildScript(in)
	if err != nil {
		return engine.Result{}, err
	}

	out, err := n.runner.Run(ctx, script)
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Continue(out), nil
}

// buildScript декодирует код и разрешает params.
func (n *CodeNode) buildScript(in *engine.NodeInput) (*Script, error) {
	encoded := strings.TrimSpace(GetConfigString(in.Settings, "code"))
	if encoded == "" {
		return nil, fmt.Errorf("%w: code: code is required", ErrInvalidConfig)
	}

	source, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: code: not base64: %v", ErrInvalidConfig, err)
	}

	language := strings.ToLower(GetConfigString(in.Settings, "language"))
	if language == "" {
		language = LanguageLua
	}

	params, err := ResolveKeyValues(in, in.Settings["params"])
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}

	steps := make(map[string]any, len(in.Steps))
	for name, rec := range in.Steps {
		steps[name] = map[string]any{
			"input":  rec.Input,
			"output": rec.Output,
		}
	}

	var env map[string]any
	if in.State != nil {
		env = in.State.Env()
	}

	return &Script{
		Language: language,
		Source:   string(source),
		Params:   params,
		Steps:    steps,
		Env:      env,
	}, nil
}
