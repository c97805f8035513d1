package engine

import (
	"context"

	"github.com/shaiso/flowrequests/internal/domain"
)

// Node — контракт узла. Реализуется встроенными узлами и плагинами.
type Node interface {
	// Config возвращает описание узла для редактора.
	// На выполнение не влияет.
	Config() NodeConfig

	// Execute выполняет узел.
	// Ошибка не прерывает run: Engine записывает её в output шага.
	Execute(ctx context.Context, in *NodeInput) (Result, error)
}

// NodeConfig — описание узла.
type NodeConfig struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Properties  []Property `json:"properties,omitempty"`
}

// Property — настраиваемое свойство узла.
type Property struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, boolean, list, sequence
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Resolver разрешает тип узла в реализацию.
// Если тип неизвестен, возвращает ошибку, оборачивающую ErrNodeNotFound.
type Resolver interface {
	Resolve(nodeType string) (Node, error)
}

// ResolverFunc — адаптер функции к Resolver.
type ResolverFunc func(nodeType string) (Node, error)

// Resolve реализует Resolver.
func (f ResolverFunc) Resolve(nodeType string) (Node, error) {
	return f(nodeType)
}

// SequenceRunner выполняет вложенную последовательность в дочернем состоянии.
// Используется loop: каждая итерация — отдельный дочерний run.
type SequenceRunner interface {
	RunChild(ctx context.Context, seq domain.Sequence, parent *State) *State
}

// NodeInput — вход узла.
type NodeInput struct {
	// Name — имя узла.
	Name string

	// Type — тип узла.
	Type string

	// Settings — настройки как есть, без подстановки выражений.
	// Узел сам решает, какие поля разрешать.
	Settings map[string]any

	// Steps — снимок записей шагов на момент вызова.
	Steps map[string]StepRecord

	// State — состояние run. Узел читает его через Resolve/Lookup.
	// Писать в него может только loop (currentItem и слияние итераций).
	State *State

	// Runner — исполнитель вложенных последовательностей.
	Runner SequenceRunner
}

// Resolve подставляет выражения в значение (рекурсивно для map и slice).
func (in *NodeInput) Resolve(value any) (any, error) {
	return RenderValue(value, in.State)
}

// Lookup разрешает путь без фигурных скобок ("steps.a.output.id").
func (in *NodeInput) Lookup(path string) (any, error) {
	return Lookup(path, in.State)
}

// Setting возвращает настройку по ключу.
func (in *NodeInput) Setting(key string) (any, bool) {
	if in.Settings == nil {
		return nil, false
	}
	v, ok := in.Settings[key]
	return v, ok
}

// StringSetting возвращает строковую настройку с подставленными выражениями.
func (in *NodeInput) StringSetting(key string) (string, error) {
	v, ok := in.Setting(key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return stringify(v), nil
	}
	return Render(s, in.State)
}

// Result — результат узла: продолжить с output или уйти во вложенную
// последовательность.
type Result struct {
	output any
	seq    domain.Sequence
	divert bool
}

// Continue возвращает результат с output; курсор переходит к следующему узлу.
func Continue(output any) Result {
	return Result{output: output}
}

// Divert переводит курсор в голову seq.
// Исходная последовательность после этого не продолжается.
func Divert(seq domain.Sequence) Result {
	return Result{seq: seq, divert: true}
}

// Output возвращает output (для Continue).
func (r Result) Output() any {
	return r.output
}

// IsDivert возвращает true для Divert.
func (r Result) IsDivert() bool {
	return r.divert
}

// Sequence возвращает последовательность (для Divert).
func (r Result) Sequence() domain.Sequence {
	return r.seq
}
