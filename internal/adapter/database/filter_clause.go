package database

import (
	"fmt"

	"github.com/diillson/calorie-api-go/internal/domain/filter"
	"gorm.io/gorm/clause"
)

// Colunas de cada campo filtrável
var (
	userColumns = map[string]string{
		"email":                  "email",
		"name":                   "name",
		"surname":                "surname",
		"role":                   "role",
		"expectedCaloriesPerDay": "expected_calories_per_day",
	}
	recordColumns = map[string]string{
		"userEmail":        "user_email",
		"date":             "date",
		"time":             "time",
		"text":             "text",
		"numberOfCalories": "number_of_calories",
	}
)

// group envolve uma expressão lógica em parênteses
type group struct {
	op    string
	left  clause.Expression
	right clause.Expression
}

func (g group) Build(builder clause.Builder) {
	builder.WriteByte('(')
	g.left.Build(builder)
	builder.WriteString(" " + g.op + " ")
	g.right.Build(builder)
	builder.WriteByte(')')
}

// filterClause converte a árvore de predicados em uma expressão GORM
// parametrizada; nenhum valor é concatenado no SQL
func filterClause(e filter.Expr, columns map[string]string) (clause.Expression, error) {
	switch n := e.(type) {
	case filter.Comparison:
		name, ok := columns[n.Field]
		if !ok {
			return nil, fmt.Errorf("campo sem coluna mapeada: %s", n.Field)
		}
		column := clause.Column{Name: name}
		value := n.Value.Interface()

		switch n.Op {
		case filter.OpEq:
			return clause.Eq{Column: column, Value: value}, nil
		case filter.OpNe:
			return clause.Neq{Column: column, Value: value}, nil
		case filter.OpGt:
			return clause.Gt{Column: column, Value: value}, nil
		case filter.OpLt:
			return clause.Lt{Column: column, Value: value}, nil
		}
		return nil, fmt.Errorf("operador desconhecido: %s", n.Op)

	case filter.Logical:
		left, err := filterClause(n.Left, columns)
		if err != nil {
			return nil, err
		}
		right, err := filterClause(n.Right, columns)
		if err != nil {
			return nil, err
		}
		op := "AND"
		if n.Op == filter.Or {
			op = "OR"
		}
		return group{op: op, left: left, right: right}, nil
	}

	return nil, fmt.Errorf("nó de filtro desconhecido: %T", e)
}
