package domain

import (
	"time"

	"github.com/google/uuid"
)

// Встроенные типы узлов.
const (
	NodeTypeStart     = "start"
	NodeTypeAPI       = "api"
	NodeTypeCondition = "condition"
	NodeTypeLoop      = "loop"
	NodeTypeCode      = "code"
)

// Workflow — сохранённое определение рабочего процесса.
//
// Workflow — это "программа" для движка: упорядоченная последовательность
// узлов плюс значения окружения, которые подставляются в выражения
// вида {{ envData.key }}.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя (например, "create-user", "sync-todos").
	Name string `json:"name"`

	// Nodes — узлы верхнего уровня.
	// Ветвления выражаются вложенными последовательностями в settings узлов,
	// а не рёбрами графа.
	Nodes Sequence `json:"nodes" yaml:"nodes"`

	// EnvData — значения окружения в порядке объявления.
	// При дубликатах ключей побеждает последнее значение.
	EnvData []EnvVar `json:"envData,omitempty" yaml:"envData,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// Sequence — упорядоченный список узлов.
//
// Вложенная последовательность принадлежит settings родительского узла
// и никогда не разделяется между родителями.
type Sequence []NodeDef

// NodeDef — определение одного шага.
type NodeDef struct {
	// Type — тип узла: "start", "api", "condition", "loop", "code"
	// или имя типа, объявленного плагином.
	Type string `json:"type" yaml:"type"`

	// Name — имя узла. Под этим именем записывается StepRecord,
	// поэтому оно должно быть уникальным в рамках последовательности.
	Name string `json:"name" yaml:"name"`

	// Settings — настройки узла (зависят от типа).
	//
	// Оригинальный формат использует ключ "setting", поэтому при
	// декодировании принимаются оба варианта (см. UnmarshalJSON).
	Settings map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// EnvVar — одно значение окружения.
type EnvVar struct {
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

// EnvMap сворачивает список значений окружения в map.
// При повторе ключа побеждает последнее значение.
func EnvMap(vars []EnvVar) map[string]any {
	env := make(map[string]any, len(vars))
	for _, v := range vars {
		env[v.Key] = v.Value
	}
	return env
}

// NestedKeys возвращает ключи settings, содержащие вложенные
// последовательности для данного типа узла.
func NestedKeys(nodeType string) []string {
	switch nodeType {
	case NodeTypeCondition:
		return []string{"success", "fail"}
	case NodeTypeLoop:
		return []string{"nodes"}
	default:
		return nil
	}
}
