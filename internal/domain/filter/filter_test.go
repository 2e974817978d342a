package filter

import (
	"net/http"
	"testing"

	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Comparisons(t *testing.T) {
	e, err := Parse(`numberOfCalories gt 300`, RecordFields)
	require.NoError(t, err)
	assert.Equal(t, Comparison{Field: "numberOfCalories", Op: OpGt, Value: Value{Kind: KindInt, Int: 300}}, e)

	e, err = Parse(`role EQ "moderator"`, UserFields)
	require.NoError(t, err)
	assert.Equal(t, Comparison{Field: "role", Op: OpEq, Value: Value{Kind: KindString, Str: "moderator"}}, e)

	e, err = Parse(`text eq 'mac and cheese'`, RecordFields)
	require.NoError(t, err)
	assert.Equal(t, "mac and cheese", e.(Comparison).Value.Str)

	e, err = Parse(`email ne ana@example.com`, UserFields)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", e.(Comparison).Value.Str)
}

func TestParse_Precedence(t *testing.T) {
	t.Run("and binds tighter than or", func(t *testing.T) {
		e, err := Parse(`date eq "2020-01-01" or date eq "2020-01-02" and numberOfCalories lt 100`, RecordFields)
		require.NoError(t, err)

		root, ok := e.(Logical)
		require.True(t, ok)
		assert.Equal(t, Or, root.Op)
		assert.IsType(t, Comparison{}, root.Left)
		right, ok := root.Right.(Logical)
		require.True(t, ok)
		assert.Equal(t, And, right.Op)
	})

	t.Run("parentheses override", func(t *testing.T) {
		e, err := Parse(`(date eq "2020-01-01" OR date eq "2020-01-02") AND numberOfCalories lt 100`, RecordFields)
		require.NoError(t, err)

		root := e.(Logical)
		assert.Equal(t, And, root.Op)
		assert.Equal(t, Or, root.Left.(Logical).Op)
	})

	t.Run("left associative", func(t *testing.T) {
		e, err := Parse(`name eq a or name eq b or name eq c`, UserFields)
		require.NoError(t, err)

		root := e.(Logical)
		assert.Equal(t, "c", root.Right.(Comparison).Value.Str)
		assert.Equal(t, "a", root.Left.(Logical).Left.(Comparison).Value.Str)
	})
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown field":          `password eq "x"`,
		"injection attempt":      `email eq "a" or 1=1 --`,
		"unbalanced open":        `(role eq "user"`,
		"unbalanced close":       `role eq "user")`,
		"missing operator":       `role`,
		"bad operator":           `role like "u%"`,
		"missing value":          `role eq`,
		"keyword as value":       `role eq and`,
		"integer field":          `expectedCaloriesPerDay lt lots`,
		"dangling and":           `role eq user and`,
		"string as field":        `"role" eq user`,
		"unterminated string":    `role eq "user`,
		"empty parentheses":      `()`,
		"trailing tokens":        `role eq user admin`,
		"field names exact case": `Role eq user`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(input, UserFields)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apierrors.StatusOf(err))
		})
	}
}

func TestParse_Empty(t *testing.T) {
	e, err := Parse("   ", RecordFields)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.True(t, Eval(e, map[string]interface{}{}))
}

func TestParse_DepthLimit(t *testing.T) {
	input := ""
	for i := 0; i < maxDepth+1; i++ {
		input += "("
	}
	input += `role eq user`
	for i := 0; i < maxDepth+1; i++ {
		input += ")"
	}

	_, err := Parse(input, UserFields)
	assert.Error(t, err)
}

func TestEval(t *testing.T) {
	rows := []map[string]interface{}{
		{"numberOfCalories": 200},
		{"numberOfCalories": 350},
		{"numberOfCalories": 999},
	}

	e, err := Parse(`numberOfCalories gt 300`, RecordFields)
	require.NoError(t, err)

	var kept []int
	for _, row := range rows {
		if Eval(e, row) {
			kept = append(kept, row["numberOfCalories"].(int))
		}
	}
	assert.Equal(t, []int{350, 999}, kept)

	users := []map[string]interface{}{
		{"role": "moderator", "expectedCaloriesPerDay": int64(1500)},
		{"role": "moderator", "expectedCaloriesPerDay": int64(2500)},
		{"role": "user", "expectedCaloriesPerDay": int64(1500)},
	}
	e, err = Parse(`role eq "moderator" and expectedCaloriesPerDay lt 2000`, UserFields)
	require.NoError(t, err)

	matches := 0
	for _, u := range users {
		if Eval(e, u) {
			matches++
			assert.Equal(t, "moderator", u["role"])
			assert.Equal(t, int64(1500), u["expectedCaloriesPerDay"])
		}
	}
	assert.Equal(t, 1, matches)
}
