package parser_test

import (
	"testing"

	"github.com/mna/pvm/lang/ast"
	"github.com/mna/pvm/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	cases := []struct {
		desc string
		in   string
	}{
		{"assign int", "x = 10"},
		{"assign expr", "x = 10; y = 20; print(x + y)"},
		{"if else", "x = 5; if x > 0: print(\"pos\"); else: print(\"neg\")"},
		{"while loop", "i = 0; while i < 3: print(i); i = i + 1"},
		{"nested call args", "print(1, 2, 3)"},
		{"unary", "x = -1; y = not true"},
		{"parens", "x = (1 + 2) * 3"},
		{"logical", "x = true and false or not true"},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			prog, err := parser.Parse(c.in)
			require.NoError(t, err)
			assert.NotEmpty(t, prog.Stmts)
		})
	}
}

func TestParseAssignShape(t *testing.T) {
	prog, err := parser.Parse("x = 1 + 2")
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)

	assign, ok := prog.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Name)

	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	_, xok := bin.X.(*ast.IntLit)
	_, yok := bin.Y.(*ast.IntLit)
	assert.True(t, xok)
	assert.True(t, yok)
}

func TestParseIfElseShape(t *testing.T) {
	prog, err := parser.Parse(`x = 5; if x > 0: print("pos"); else: print("neg")`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)

	ifStmt, ok := prog.Stmts[1].(*ast.IfStmt)
	require.True(t, ok)
	assert.Len(t, ifStmt.Then, 1)
	assert.Len(t, ifStmt.Else, 1)
}

func TestParseWhileShape(t *testing.T) {
	prog, err := parser.Parse("i = 0; while i < 3: print(i); i = i + 1")
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)

	whileStmt, ok := prog.Stmts[1].(*ast.WhileStmt)
	require.True(t, ok)
	require.Len(t, whileStmt.Body, 2, "both print(i) and i = i + 1 belong to the loop body")

	_, firstIsExpr := whileStmt.Body[0].(*ast.ExprStmt)
	assert.True(t, firstIsExpr)
	second, secondIsAssign := whileStmt.Body[1].(*ast.AssignStmt)
	require.True(t, secondIsAssign)
	assert.Equal(t, "i", second.Name)
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3): the outer node is ADD.
	prog, err := parser.Parse("x = 1 + 2 * 3")
	require.NoError(t, err)
	assign := prog.Stmts[0].(*ast.AssignStmt)
	bin := assign.Value.(*ast.BinaryExpr)

	_, isMulOnRight := bin.Y.(*ast.BinaryExpr)
	assert.True(t, isMulOnRight, "expected 2*3 to bind tighter than +")
	_, leftIsLit := bin.X.(*ast.IntLit)
	assert.True(t, leftIsLit)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
	}{
		{"missing rhs", "x ="},
		{"missing colon", "if x print(1)"},
		{"unclosed paren", "x = (1 + 2"},
		{"unexpected token", "+ 1"},
		{"unclosed call", "print(1, 2"},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := parser.Parse(c.in)
			assert.Error(t, err)
		})
	}
}
