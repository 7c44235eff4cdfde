package solver

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// GLPK runs the glpsol command line solver.
type GLPK struct {
	bin       string
	timeLimit time.Duration
	tempDir   string
}

// GLPKOption configures a GLPK backend.
type GLPKOption func(*GLPK)

// WithGLPKTimeLimit passes --tmlim to glpsol.
func WithGLPKTimeLimit(d time.Duration) GLPKOption {
	return func(g *GLPK) { g.timeLimit = d }
}

// WithGLPKTempDir sets where model and solution files are written.
func WithGLPKTempDir(dir string) GLPKOption {
	return func(g *GLPK) { g.tempDir = dir }
}

// NewGLPK creates a GLPK backend using the binary at bin ("glpsol" when empty).
func NewGLPK(bin string, opts ...GLPKOption) *GLPK {
	if bin == "" {
		bin = "glpsol"
	}
	g := &GLPK{bin: bin}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements Solver.
func (g *GLPK) Name() string { return "glpk" }

// Solve implements Solver.
func (g *GLPK) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	ws, err := newWorkspace(g.tempDir, "glpk")
	if err != nil {
		return nil, err
	}
	defer ws.cleanup()

	lpPath, err := ws.writeLP(p)
	if err != nil {
		return nil, err
	}
	solPath := ws.path("model.sol")

	args := []string{"--lp", lpPath, "--write", solPath}
	if g.timeLimit > 0 {
		args = append(args, "--tmlim", strconv.Itoa(int(g.timeLimit.Seconds())))
	}

	if _, err := runProcess(ctx, "glpk", g.bin, args...); err != nil {
		return nil, err
	}

	f, err := os.Open(solPath)
	if err != nil {
		return nil, eris.Wrap(err, "glpk: open solution file")
	}
	defer f.Close() //nolint:errcheck

	return ParseGLPKSolution(f, p)
}

// ParseGLPKSolution reads a glpsol plain-text MIP solution:
//
//	c comment lines
//	s mip ROWS COLS STATUS OBJ
//	i ROW VALUE
//	j COL VALUE
//	e o f
//
// Columns are numbered from 1 in order of first appearance in the LP file,
// which WriteLP makes equal to declaration order.
func ParseGLPKSolution(r io.Reader, p *Problem) (*Solution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	sol := &Solution{Status: StatusNotSolved, Values: make([]float64, len(p.Vars))}
	var sawHeader bool

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "s":
			if len(fields) < 6 {
				return nil, eris.Errorf("glpk: malformed status line %q", sc.Text())
			}
			if fields[1] != "mip" {
				return nil, eris.Errorf("glpk: expected mip solution, got %q", fields[1])
			}
			sawHeader = true
			sol.Status = glpkStatus(fields[4])
			if v, err := strconv.ParseFloat(fields[5], 64); err == nil {
				sol.Objective = v
			}
		case "j":
			if len(fields) < 3 {
				return nil, eris.Errorf("glpk: malformed column line %q", sc.Text())
			}
			col, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, eris.Wrapf(err, "glpk: parse column number %q", fields[1])
			}
			if col < 1 || col > len(p.Vars) {
				return nil, eris.Errorf("glpk: column %d outside 1..%d", col, len(p.Vars))
			}
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, eris.Wrapf(err, "glpk: parse value of column %d", col)
			}
			sol.Values[col-1] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "glpk: read solution")
	}
	if !sawHeader {
		return nil, eris.New("glpk: solution file has no status line")
	}
	return sol, nil
}

func glpkStatus(code string) Status {
	switch code {
	case "o":
		return StatusOptimal
	case "n":
		return StatusInfeasible
	default:
		// "f" is feasible but unproven, "u" undefined; neither is usable.
		return StatusNotSolved
	}
}
