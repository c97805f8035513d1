package engine

import (
	"encoding/json"
	"maps"
)

// StepRecord — запись о выполнении одного узла.
type StepRecord struct {
	// Input — контекст запроса run (копируется без изменений).
	Input any `json:"input"`

	// Output — результат узла или {error:{...}}.
	Output any `json:"output"`

	// CurrentItem — текущий элемент итерации (только у loop).
	CurrentItem any `json:"currentItem,omitempty"`
}

// Generator — детерминированный генератор синтетических данных.
// Выражение {{ person.firstName() }} превращается в Call("person", "firstName").
type Generator interface {
	Call(category, method string) (any, error)
}

// GeneratorFactory создаёт свежий генератор для каждого run,
// чтобы одинаковые run давали одинаковые значения.
type GeneratorFactory func() Generator

// State — состояние одного run.
//
// Принадлежит ровно одному активному Engine. Дочерний run (итерация loop)
// получает собственный State и сливается обратно после завершения,
// поэтому блокировки не нужны.
type State struct {
	steps     map[string]StepRecord
	order     []string
	env       map[string]any
	request   any
	generator Generator
}

// NewState создаёт состояние с пустыми записями шагов.
func NewState(env map[string]any, request any, generator Generator) *State {
	if env == nil {
		env = make(map[string]any)
	}
	return &State{
		steps:     make(map[string]StepRecord),
		env:       env,
		request:   request,
		generator: generator,
	}
}

// child создаёт состояние для дочернего run.
// Записи шагов копируются, env, request и генератор общие: тело loop
// намеренно видит envData родителя, а не пустой список.
func (s *State) child() *State {
	c := &State{
		steps:     make(map[string]StepRecord, len(s.steps)),
		order:     make([]string, 0, len(s.order)),
		env:       s.env,
		request:   s.request,
		generator: s.generator,
	}
	c.Merge(s)
	return c
}

// Step возвращает запись шага по имени.
func (s *State) Step(name string) (StepRecord, bool) {
	rec, ok := s.steps[name]
	return rec, ok
}

// SetStep записывает шаг. При повторе имени запись перезаписывается,
// позиция в Order остаётся прежней.
func (s *State) SetStep(name string, rec StepRecord) {
	if _, ok := s.steps[name]; !ok {
		s.order = append(s.order, name)
	}
	s.steps[name] = rec
}

// Steps возвращает копию записей шагов.
func (s *State) Steps() map[string]StepRecord {
	return maps.Clone(s.steps)
}

// Order возвращает имена шагов в порядке первой записи.
func (s *State) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len возвращает количество записей шагов.
func (s *State) Len() int {
	return len(s.steps)
}

// Merge переносит записи другого состояния в текущее.
// Совпадающие имена перезаписываются.
func (s *State) Merge(other *State) {
	for _, name := range other.order {
		s.SetStep(name, other.steps[name])
	}
}

// Env возвращает значения окружения.
func (s *State) Env() map[string]any {
	return s.env
}

// Request возвращает контекст запроса.
func (s *State) Request() any {
	return s.request
}

// Generator возвращает генератор синтетических данных (может быть nil).
func (s *State) Generator() Generator {
	return s.generator
}

// StepsMap возвращает записи в виде map[string]any для сохранения.
func (s *State) StepsMap() map[string]any {
	out := make(map[string]any, len(s.steps))
	for name, rec := range s.steps {
		out[name] = rec
	}
	return out
}

// MarshalJSON сериализует состояние в формат ответа API.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Steps   map[string]StepRecord `json:"steps"`
		EnvData map[string]any        `json:"envData"`
		Request any                   `json:"request,omitempty"`
	}{
		Steps:   s.steps,
		EnvData: s.env,
		Request: s.request,
	})
}
