// Package rules evaluates discount and autosale conditions against computed operands.
package rules

import (
	"strings"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/shopspring/decimal"
)

type Operator int

const (
	OpUnknown Operator = iota
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpEQ
)

func ParseOperator(s string) Operator {
	switch strings.TrimSpace(s) {
	case ">":
		return OpGT
	case ">=":
		return OpGTE
	case "<":
		return OpLT
	case "<=":
		return OpLTE
	case "=", "==":
		return OpEQ
	default:
		return OpUnknown
	}
}

// Value is a scalar operand, numeric or textual.
type Value struct {
	num   decimal.Decimal
	str   string
	isNum bool
}

func Int(n int) Value {
	return Value{num: decimal.NewFromInt(int64(n)), isNum: true}
}

func Int64(n int64) Value {
	return Value{num: decimal.NewFromInt(n), isNum: true}
}

func Decimal(d decimal.Decimal) Value {
	return Value{num: d, isNum: true}
}

func String(s string) Value {
	return Value{str: s}
}

func (v Value) IsNumeric() bool { return v.isNum }

func (v Value) Decimal() decimal.Decimal { return v.num }

func (v Value) String() string {
	if v.isNum {
		return v.num.String()
	}
	return v.str
}

// Operands is the map conditions are evaluated against.
type Operands map[string]Value

// Evaluate reports whether all conditions hold. A missing operand rejects the rule;
// an unknown operator is skipped.
func Evaluate(conditions []domain.Condition, operands Operands) bool {
	for _, c := range conditions {
		operand, ok := operands[c.Operand]
		if !ok {
			return false
		}
		op := ParseOperator(c.Operator)
		if op == OpUnknown {
			continue
		}
		if !compare(operand, op, c.Value) {
			return false
		}
	}
	return true
}

func compare(operand Value, op Operator, raw string) bool {
	raw = strings.TrimSpace(raw)
	if operand.isNum {
		if value, err := decimal.NewFromString(raw); err == nil {
			return holds(operand.num.Cmp(value), op)
		}
	}
	return holds(strings.Compare(operand.String(), raw), op)
}

func holds(cmp int, op Operator) bool {
	switch op {
	case OpGT:
		return cmp > 0
	case OpGTE:
		return cmp >= 0
	case OpLT:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	case OpEQ:
		return cmp == 0
	}
	return true
}
