package solver

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallProblem() *Problem {
	p := NewProblem("cover", Minimize)
	a := p.AddBinary("open_0", 0.7)
	b := p.AddBinary("open_1", 0.9)
	s := p.AddBinary("serve_0", 0)
	p.AddConstraint("cover_0", []Term{{Var: a, Coef: 1}, {Var: b, Coef: 1}, {Var: s, Coef: -1}}, GreaterEq, 0)
	p.AddConstraint("service", []Term{{Var: s, Coef: 100}}, GreaterEq, 90)
	return p
}

func TestProblemValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, smallProblem().Validate())
}

func TestProblemValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(p *Problem)
		wantErr string
	}{
		{"no vars", func(p *Problem) { p.Vars = nil; p.Constraints = nil }, "no variables"},
		{"bad var name", func(p *Problem) { p.Vars[0].Name = "1open" }, "invalid variable name"},
		{"duplicate name", func(p *Problem) { p.Vars[1].Name = "open_0" }, "duplicate name"},
		{"row shares var name", func(p *Problem) { p.Constraints[0].Name = "serve_0" }, "duplicate name"},
		{"bad operator", func(p *Problem) { p.Constraints[0].Op = "=>" }, "unknown operator"},
		{"term out of range", func(p *Problem) { p.Constraints[1].Terms[0].Var = 7 }, "references variable 7"},
		{"inverted bounds", func(p *Problem) { p.Vars[0].Lower = 2 }, "lower bound above upper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := smallProblem()
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSolutionValue(t *testing.T) {
	t.Parallel()

	sol := &Solution{Values: []float64{0.9999, 0.0001, 0.5}}
	assert.True(t, sol.IsSet(0))
	assert.False(t, sol.IsSet(1))
	assert.False(t, sol.IsSet(2))
	assert.Zero(t, sol.Value(10))

	var nilSol *Solution
	assert.Zero(t, nilSol.Value(0))
}

func TestWriteLP(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, smallProblem()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "\\* cover *\\\nMinimize\n"))
	assert.Contains(t, out, " obj: + 0.7 open_0 + 0.9 open_1 + 0 serve_0\n")
	assert.Contains(t, out, " cover_0: + 1 open_0 + 1 open_1 - 1 serve_0 >= 0\n")
	assert.Contains(t, out, " service: + 100 serve_0 >= 90\n")
	assert.Contains(t, out, "Binaries\n open_0 open_1 serve_0\n")
	assert.True(t, strings.HasSuffix(out, "End\n"))
	assert.NotContains(t, out, "Bounds")
}

func TestWriteLP_WrapsLongRows(t *testing.T) {
	t.Parallel()

	p := NewProblem("wide", Maximize)
	var terms []Term
	for i := 0; i < 20; i++ {
		terms = append(terms, Term{Var: p.AddBinary(varName(i), 1), Coef: 1})
	}
	p.AddConstraint("limit", terms, LessEq, 3)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, p))
	for _, line := range strings.Split(buf.String(), "\n") {
		assert.Less(t, len(line), 255)
	}
	assert.Contains(t, buf.String(), "Maximize\n")
	assert.Contains(t, buf.String(), "<= 3\n")
}

func TestWriteLP_ContinuousBounds(t *testing.T) {
	t.Parallel()

	p := NewProblem("mixed", Minimize)
	p.Vars = append(p.Vars, Var{Name: "x", Kind: Continuous, Lower: 0, Upper: 2.5, Obj: 1})
	p.AddBinary("y", 2)
	p.AddConstraint("c", []Term{{Var: 0, Coef: 1}, {Var: 1, Coef: 1}}, GreaterEq, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, p))
	assert.Contains(t, buf.String(), "Bounds\n 0 <= x <= 2.5\n")
	assert.Contains(t, buf.String(), "Binaries\n y\n")
}

func TestWriteLP_InvalidProblem(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteLP(&buf, NewProblem("empty", Minimize))
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestNew(t *testing.T) {
	t.Parallel()

	s, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, "cbc", s.Name())

	s, err = New(Options{Backend: "glpk", Path: "/opt/glpsol"})
	require.NoError(t, err)
	assert.Equal(t, "glpk", s.Name())

	_, err = New(Options{Backend: "gurobi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func varName(i int) string {
	return "x_" + strings.Repeat("a", 20) + "_" + string(rune('a'+i))
}
