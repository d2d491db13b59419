package rules

import (
	"testing"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/stretchr/testify/assert"
)

func cond(operand, operator, value string) domain.Condition {
	return domain.Condition{Operand: operand, Operator: operator, Value: value}
}

func TestEvaluate(t *testing.T) {
	operands := Operands{
		"nb_pers":   Int(12),
		"nb_nights": Int(3),
		"season":    Int(2),
		"label":     String("school"),
	}

	testCases := []struct {
		name       string
		conditions []domain.Condition
		expected   bool
	}{
		{"empty rule", nil, true},
		{"greater than", []domain.Condition{cond("nb_pers", ">", "10")}, true},
		{"greater or equal boundary", []domain.Condition{cond("nb_pers", ">=", "12")}, true},
		{"lower than fails", []domain.Condition{cond("nb_nights", "<", "3")}, false},
		{"lower or equal", []domain.Condition{cond("nb_nights", "<=", "3")}, true},
		{"equality", []domain.Condition{cond("season", "=", "2")}, true},
		{"numeric not lexical", []domain.Condition{cond("nb_pers", ">", "9")}, true},
		{"decimal value", []domain.Condition{cond("nb_nights", "<", "3.5")}, true},
		{"string equality", []domain.Condition{cond("label", "=", "school")}, true},
		{"string mismatch", []domain.Condition{cond("label", "=", "camp")}, false},
		{"conjunction fails on second", []domain.Condition{cond("nb_pers", ">", "10"), cond("season", "=", "1")}, false},
		{"unknown operator skipped", []domain.Condition{cond("nb_pers", "~", "1"), cond("season", "=", "2")}, true},
		{"missing operand rejects", []domain.Condition{cond("count_booking_24", ">", "0")}, false},
		{"missing operand rejects even with unknown operator", []domain.Condition{cond("unknown", "~", "0")}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Evaluate(tc.conditions, operands))
		})
	}
}

func TestEvaluate_MissingOperandAlwaysFalse(t *testing.T) {
	operators := []string{">", ">=", "<", "<=", "=", "?"}
	for _, op := range operators {
		for _, value := range []string{"0", "-1", "abc", ""} {
			conditions := []domain.Condition{cond("nb_pers", ">=", "0"), cond("absent", op, value)}
			assert.False(t, Evaluate(conditions, Operands{"nb_pers": Int(1)}), "op=%s value=%s", op, value)
		}
	}
}

func TestEvaluate_NoDynamicEvaluation(t *testing.T) {
	// значение с "кодом" сравнивается как обычная строка
	operands := Operands{"label": String("x")}
	conditions := []domain.Condition{cond("label", "=", "x || true")}
	assert.False(t, Evaluate(conditions, operands))
}

func TestParseOperator(t *testing.T) {
	assert.Equal(t, OpEQ, ParseOperator("="))
	assert.Equal(t, OpEQ, ParseOperator("=="))
	assert.Equal(t, OpGTE, ParseOperator(" >= "))
	assert.Equal(t, OpUnknown, ParseOperator("<>"))
}
