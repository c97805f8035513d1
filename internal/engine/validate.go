package engine

import (
	"errors"
	"fmt"

	"github.com/shaiso/flowrequests/internal/domain"
)

// requiredSettings — обязательные настройки встроенных узлов.
var requiredSettings = map[string][]string{
	domain.NodeTypeAPI:       {"url"},
	domain.NodeTypeCondition: {"operator"},
	domain.NodeTypeLoop:      {"source"},
}

// Validate выполняет валидацию workflow до запуска.
//
// Engine её не вызывает: она нужна API и CLI, чтобы отклонить
// заведомо некорректный workflow. Проверяет:
// - Наличие узлов
// - Имена и типы узлов
// - Разрешимость типов через resolver (если resolver не nil)
// - Уникальность имён в пределах одной последовательности
// - Обязательные настройки и вложенные последовательности condition/loop
func Validate(wf *domain.Workflow, resolver Resolver) error {
	if wf == nil || len(wf.Nodes) == 0 {
		return ErrEmptyWorkflow
	}
	return validateSequence(wf.Nodes, resolver, "")
}

// validateSequence валидирует одну последовательность и рекурсивно вложенные.
// path — путь родителя для сообщений об ошибках ("check.success").
func validateSequence(seq domain.Sequence, resolver Resolver, path string) error {
	names := make(map[string]bool, len(seq))

	for i := range seq {
		node := &seq[i]

		if err := ValidateNode(node, resolver); err != nil {
			return err
		}

		if names[node.Name] {
			return NewValidationError(node.Name, "name",
				fmt.Sprintf("duplicate node name%s: %s", inPath(path), node.Name), ErrDuplicateNodeName)
		}
		names[node.Name] = true

		for _, key := range domain.NestedKeys(node.Type) {
			nested, err := domain.SequenceFrom(node.Settings[key])
			if err != nil {
				return NewValidationError(node.Name, key,
					fmt.Sprintf("settings.%s is not a node sequence", key), err)
			}
			if err := validateSequence(nested, resolver, joinPath(path, node.Name+"."+key)); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateNode валидирует один узел без вложенных последовательностей.
func ValidateNode(node *domain.NodeDef, resolver Resolver) error {
	if node.Name == "" {
		return NewValidationError("", "name", "node has empty name", ErrEmptyNodeName)
	}

	if node.Type == "" {
		return NewValidationError(node.Name, "type", "node has empty type", ErrEmptyNodeType)
	}

	if resolver != nil {
		if _, err := resolver.Resolve(node.Type); err != nil {
			if errors.Is(err, ErrNodeNotFound) {
				return NewValidationError(node.Name, "type",
					fmt.Sprintf("unknown node type: %s", node.Type), ErrUnknownNodeType)
			}
			return NewValidationError(node.Name, "type", err.Error(), err)
		}
	}

	for _, key := range requiredSettings[node.Type] {
		if v, ok := node.Settings[key]; !ok || v == nil || v == "" {
			return NewValidationError(node.Name, key,
				fmt.Sprintf("missing settings.%s", key), ErrMissingSetting)
		}
	}

	return nil
}

func inPath(path string) string {
	if path == "" {
		return ""
	}
	return " in " + path
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
