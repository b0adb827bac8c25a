package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		formula  string
		bindings map[string]float64
		want     float64
		wantErr  string
	}{
		{name: "constant", formula: "42", want: 42},
		{name: "addition", formula: "1 + 2.5", want: 3.5},
		{name: "precedence", formula: "2 + 3 * 4", want: 14},
		{name: "parentheses", formula: "(2 + 3) * 4", want: 20},
		{name: "power", formula: "2 ** 6", want: 64},
		{name: "power is right associative", formula: "2 ** 3 ** 2", want: 512},
		{name: "unary minus", formula: "-3 + 5", want: 2},
		{name: "max", formula: "max(1, 2)", want: 2},
		{name: "min", formula: "min(1, 2)", want: 1},
		{name: "nested calls", formula: "max(min(5, 3), 2)", want: 3},
		{
			name:     "variables",
			formula:  "{a} + {b}",
			bindings: map[string]float64{"a": 1, "b": 2},
			want:     3,
		},
		{
			name:     "score lanes",
			formula:  "max({best_score_before_finish}, 0.5 * {best_score_no_deadline})",
			bindings: map[string]float64{"best_score_before_finish": 4, "best_score_no_deadline": 10},
			want:     5,
		},
		{name: "unknown variable", formula: "{nope} + 1", wantErr: "unknown variable"},
		{name: "unknown identifier", formula: "nope + 1", wantErr: "unknown identifier"},
		{name: "division by zero", formula: "1 / 0", wantErr: "division by zero"},
		{name: "unterminated variable", formula: "{a + 1", wantErr: "unterminated"},
		{name: "trailing garbage", formula: "1 + 2 )", wantErr: "unexpected"},
		{name: "empty formula", formula: "", wantErr: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.formula, tt.bindings)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.IsType(t, &FormulaError{}, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
