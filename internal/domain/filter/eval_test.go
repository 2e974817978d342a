package filter

// Eval avalia em memória a expressão sobre os valores de uma linha; nil aceita tudo.
// Valores inteiros podem ser int ou int64.
func Eval(e Expr, row map[string]interface{}) bool {
	switch n := e.(type) {
	case nil:
		return true
	case Logical:
		if n.Op == And {
			return Eval(n.Left, row) && Eval(n.Right, row)
		}
		return Eval(n.Left, row) || Eval(n.Right, row)
	case Comparison:
		return compare(n, row[n.Field])
	}
	return false
}

func compare(c Comparison, actual interface{}) bool {
	var cmp int

	switch c.Value.Kind {
	case KindInt:
		var v int64
		switch a := actual.(type) {
		case int:
			v = int64(a)
		case int64:
			v = a
		default:
			return false
		}
		switch {
		case v < c.Value.Int:
			cmp = -1
		case v > c.Value.Int:
			cmp = 1
		}
	default:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		switch {
		case s < c.Value.Str:
			cmp = -1
		case s > c.Value.Str:
			cmp = 1
		}
	}

	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	}
	return false
}
