package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/flowrequests/internal/domain"
)

// ErrInvalidWorkflowFile — файл не содержит workflow.
var ErrInvalidWorkflowFile = errors.New("invalid workflow file")

// LoadWorkflow читает workflow из файла JSON или YAML.
// Без имени в файле workflow получает имя файла без расширения.
func LoadWorkflow(path string) (*domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	wf, err := ParseWorkflow(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return wf, nil
}

// ParseWorkflow разбирает workflow.
//
// Документ — объект {name, nodes, envData} либо массив узлов.
// JSON разбирается encoding/json, остальное как YAML.
func ParseWorkflow(data []byte) (*domain.Workflow, error) {
	if json.Valid(data) {
		return parseJSON(data)
	}
	return parseYAML(data)
}

func parseJSON(data []byte) (*domain.Workflow, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var nodes domain.Sequence
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflowFile, err)
		}
		return &domain.Workflow{Nodes: nodes}, nil
	}

	var wf domain.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflowFile, err)
	}
	return &wf, nil
}

func parseYAML(data []byte) (*domain.Workflow, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflowFile, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidWorkflowFile)
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var nodes domain.Sequence
		if err := root.Decode(&nodes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflowFile, err)
		}
		return &domain.Workflow{Nodes: nodes}, nil

	case yaml.MappingNode:
		var wf domain.Workflow
		if err := root.Decode(&wf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflowFile, err)
		}
		return &wf, nil
	}

	return nil, fmt.Errorf("%w: expected a mapping or a node list", ErrInvalidWorkflowFile)
}

// ParseEnv применяет пары KEY=VALUE к envData workflow.
// Значение, которое разбирается как JSON, подставляется как JSON,
// иначе как строка. Существующие ключи перезаписываются.
func ParseEnv(wf *domain.Workflow, pairs []string) error {
	for _, kv := range pairs {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid env format %q, expected KEY=VALUE", kv)
		}

		var value any = raw
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			value = parsed
		}

		replaced := false
		for i := range wf.EnvData {
			if wf.EnvData[i].Key == key {
				wf.EnvData[i].Value = value
				replaced = true
			}
		}
		if !replaced {
			wf.EnvData = append(wf.EnvData, domain.EnvVar{Key: key, Value: value})
		}
	}
	return nil
}

// ParseRequest разбирает JSON контекста запроса. Пустая строка — nil.
func ParseRequest(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	var request any
	if err := json.Unmarshal([]byte(s), &request); err != nil {
		return nil, fmt.Errorf("invalid --request JSON: %w", err)
	}
	return request, nil
}

// workflowBody — тело запроса создания/замены workflow.
func workflowBody(wf *domain.Workflow) map[string]any {
	body := map[string]any{
		"name":  wf.Name,
		"nodes": wf.Nodes,
	}
	if len(wf.EnvData) > 0 {
		body["envData"] = wf.EnvData
	}
	return body
}
