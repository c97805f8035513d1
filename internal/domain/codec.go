package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSequence — значение settings не является последовательностью узлов.
var ErrInvalidSequence = errors.New("invalid node sequence")

// nodeDefWire — формат узла на проводе.
// Редактор сохраняет настройки под ключом "setting", API — под "settings".
type nodeDefWire struct {
	Type     string         `json:"type" yaml:"type"`
	Name     string         `json:"name" yaml:"name"`
	Settings map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
	Setting  map[string]any `json:"setting,omitempty" yaml:"setting,omitempty"`
}

func (w nodeDefWire) toNodeDef() NodeDef {
	settings := w.Settings
	if settings == nil {
		settings = w.Setting
	}
	return NodeDef{Type: w.Type, Name: w.Name, Settings: settings}
}

// UnmarshalJSON принимает и "settings", и "setting".
func (n *NodeDef) UnmarshalJSON(data []byte) error {
	var wire nodeDefWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*n = wire.toNodeDef()
	return nil
}

// UnmarshalYAML принимает и "settings", и "setting".
func (n *NodeDef) UnmarshalYAML(value *yaml.Node) error {
	var wire nodeDefWire
	if err := value.Decode(&wire); err != nil {
		return err
	}
	*n = wire.toNodeDef()
	return nil
}

// SequenceFrom приводит значение из settings к Sequence.
//
// После декодирования JSON вложенные последовательности приходят как []any
// из map[string]any, поэтому они перекодируются через JSON.
// nil означает пустую последовательность.
func SequenceFrom(value any) (Sequence, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Sequence:
		return v, nil
	case []NodeDef:
		return Sequence(v), nil
	case []any, []map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
		}
		var seq Sequence
		if err := json.Unmarshal(raw, &seq); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidSequence, value)
	}
}
