package engine

import (
	"errors"
	"fmt"
)

// Ошибки выполнения узлов.
var (
	// ErrNodeNotFound — тип узла не найден ни среди встроенных, ни среди плагинов.
	ErrNodeNotFound = errors.New("node type not found")

	// ErrNodePanic — реализация узла запаниковала.
	ErrNodePanic = errors.New("node panicked")
)

// Ошибки выражений.
var (
	// ErrUnresolvedExpression — путь в выражении не найден в состоянии.
	ErrUnresolvedExpression = errors.New("unresolved expression")

	// ErrInvalidExpression — выражение синтаксически некорректно.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrNoGenerator — вызов генератора без настроенного генератора.
	ErrNoGenerator = errors.New("data generator is not configured")
)

// Ошибки валидации workflow.
var (
	// ErrEmptyWorkflow — workflow не содержит узлов.
	ErrEmptyWorkflow = errors.New("workflow has no nodes")

	// ErrEmptyNodeName — узел не имеет имени.
	ErrEmptyNodeName = errors.New("node has empty name")

	// ErrEmptyNodeType — узел не имеет типа.
	ErrEmptyNodeType = errors.New("node has empty type")

	// ErrUnknownNodeType — тип узла не разрешается.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrDuplicateNodeName — несколько узлов с одинаковым именем в одной последовательности.
	ErrDuplicateNodeName = errors.New("duplicate node name")

	// ErrMissingSetting — у узла нет обязательной настройки.
	ErrMissingSetting = errors.New("missing node setting")
)

// NodeExecutionError — ошибка транспортного уровня с ответом.
//
// Узел возвращает её, когда у сбоя есть статус и тело ответа
// (HTTP 4xx/5xx). В записи шага превращается в {error:{status,data}}.
type NodeExecutionError struct {
	Status int
	Data   any
	Err    error
}

// Error реализует интерфейс error.
func (e *NodeExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("node execution failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("node execution failed with status %d", e.Status)
}

// Unwrap возвращает базовую ошибку.
func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// NodeResolutionError — тип узла не удалось разрешить.
// Ошибка локальна для узла: run продолжается.
type NodeResolutionError struct {
	Type string
	Err  error
}

// Error реализует интерфейс error.
func (e *NodeResolutionError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrNodeNotFound) {
		return fmt.Sprintf("resolve node type %q: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("node type %q not found", e.Type)
}

// Unwrap возвращает базовую ошибку (по умолчанию ErrNodeNotFound).
func (e *NodeResolutionError) Unwrap() error {
	if e.Err == nil {
		return ErrNodeNotFound
	}
	return e.Err
}

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Node    string // имя узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Node != "" {
		return "node " + e.Node + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(node, field, message string, err error) *ValidationError {
	return &ValidationError{
		Node:    node,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// ErrorOutput превращает ошибку узла в output записи шага.
//
//	NodeExecutionError → {"error": {"status": 404, "data": ...}}
//	остальные          → {"error": {"message": "..."}}
func ErrorOutput(err error) map[string]any {
	var execErr *NodeExecutionError
	if errors.As(err, &execErr) {
		return map[string]any{
			"error": map[string]any{
				"status": execErr.Status,
				"data":   execErr.Data,
			},
		}
	}
	return map[string]any{
		"error": map[string]any{
			"message": err.Error(),
		},
	}
}

// IsErrorOutput возвращает true, если output — понижённая ошибка узла.
func IsErrorOutput(output any) bool {
	m, ok := output.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	_, ok = m["error"].(map[string]any)
	return ok
}
