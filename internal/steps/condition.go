package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
)

// Типы операндов condition.
const (
	OperandExpression = "expression"
	OperandRaw        = "raw"
)

// ConditionNode — ветвление (тип "condition").
//
// Настройки:
//
//	{
//	    "left":     {"type": "expression", "value": "steps.fetch.output.total"},
//	    "right":    {"type": "raw", "value": "10"},
//	    "operator": ">=",
//	    "success":  [...],
//	    "fail":     [...]
//	}
//
// Операнд может быть и простым значением: строка, похожая на выражение
// ({{ ... }}, steps., envData., this.state.), разрешается, остальное
// берётся как есть.
//
// Сравнение: если оба операнда — числа, сравниваются числа.
// Иначе сравниваются строки: == и != — точное совпадение,
// <, >, <=, >= — лексикографический порядок.
//
// Результат — Divert в success или fail.
type ConditionNode struct{}

// NewConditionNode создаёт ConditionNode.
func NewConditionNode() *ConditionNode {
	return &ConditionNode{}
}

// Config возвращает описание узла.
func (n *ConditionNode) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "Condition",
		Type:        domain.NodeTypeCondition,
		Description: "Branch on a comparison",
		Properties: []engine.Property{
			{Name: "left", Type: "string", Label: "Left", Required: true},
			{Name: "operator", Type: "string", Label: "Operator", Required: true, Default: "=="},
			{Name: "right", Type: "string", Label: "Right", Required: true},
			{Name: "success", Type: "sequence", Label: "On success"},
			{Name: "fail", Type: "sequence", Label: "On fail"},
		},
	}
}

// Execute сравнивает операнды и уходит в нужную ветку.
func (n *ConditionNode) Execute(_ context.Context, in *engine.NodeInput) (engine.Result, error) {
	left, err := resolveOperand(in, in.Settings["left"])
	if err != nil {
		return engine.Result{}, fmt.Errorf("left operand: %w", err)
	}

	right, err := resolveOperand(in, in.Settings["right"])
	if err != nil {
		return engine.Result{}, fmt.Errorf("right operand: %w", err)
	}

	ok, err := Compare(left, right, GetConfigString(in.Settings, "operator"))
	if err != nil {
		return engine.Result{}, err
	}

	branch := "fail"
	if ok {
		branch = "success"
	}

	seq, err := domain.SequenceFrom(in.Settings[branch])
	if err != nil {
		return engine.Result{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, branch, err)
	}

	return engine.Divert(seq), nil
}

// resolveOperand разрешает операнд condition.
func resolveOperand(in *engine.NodeInput, operand any) (any, error) {
	switch op := operand.(type) {
	case map[string]any:
		value := op["value"]
		if GetConfigString(op, "type") == OperandExpression {
			if s, ok := value.(string); ok {
				return resolveExpression(in, s)
			}
		}
		return value, nil

	case string:
		if engine.IsExpression(op) {
			return resolveExpression(in, op)
		}
		return op, nil

	default:
		return op, nil
	}
}

// resolveExpression разрешает и "{{ steps.a.output }}", и "steps.a.output".
func resolveExpression(in *engine.NodeInput, expr string) (any, error) {
	if strings.Contains(expr, "{{") {
		return in.Resolve(expr)
	}
	return in.Lookup(expr)
}

// Compare сравнивает два значения оператором ==, !=, >, <, >=, <=.
func Compare(left, right any, operator string) (bool, error) {
	if l, lok := toNumber(left); lok {
		if r, rok := toNumber(right); rok {
			return compareOrdered(l, r, operator)
		}
	}
	return compareOrdered(toText(left), toText(right), operator)
}

func compareOrdered[T float64 | string](l, r T, operator string) (bool, error) {
	switch strings.TrimSpace(operator) {
	case "==", "===":
		return l == r, nil
	case "!=", "!==":
		return l != r, nil
	case ">":
		return l > r, nil
	case "<":
		return l < r, nil
	case ">=":
		return l >= r, nil
	case "<=":
		return l <= r, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, operator)
	}
}

// toNumber пытается привести значение к числу.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toText приводит значение к строке для сравнения.
func toText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
