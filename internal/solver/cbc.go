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

// CBC runs the COIN-OR CBC command line solver.
type CBC struct {
	bin       string
	threads   int
	timeLimit time.Duration
	tempDir   string
}

// CBCOption configures a CBC backend.
type CBCOption func(*CBC)

// WithCBCThreads sets the number of threads CBC may use.
func WithCBCThreads(n int) CBCOption {
	return func(c *CBC) { c.threads = n }
}

// WithCBCTimeLimit passes a wall-clock limit to CBC itself, in addition to
// the context deadline.
func WithCBCTimeLimit(d time.Duration) CBCOption {
	return func(c *CBC) { c.timeLimit = d }
}

// WithCBCTempDir sets where model and solution files are written.
func WithCBCTempDir(dir string) CBCOption {
	return func(c *CBC) { c.tempDir = dir }
}

// NewCBC creates a CBC backend using the binary at bin ("cbc" when empty).
func NewCBC(bin string, opts ...CBCOption) *CBC {
	if bin == "" {
		bin = "cbc"
	}
	c := &CBC{bin: bin}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Solver.
func (c *CBC) Name() string { return "cbc" }

// Solve implements Solver.
func (c *CBC) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	ws, err := newWorkspace(c.tempDir, "cbc")
	if err != nil {
		return nil, err
	}
	defer ws.cleanup()

	lpPath, err := ws.writeLP(p)
	if err != nil {
		return nil, err
	}
	solPath := ws.path("model.sol")

	args := []string{lpPath}
	if c.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(c.threads))
	}
	if c.timeLimit > 0 {
		args = append(args, "-sec", strconv.Itoa(int(c.timeLimit.Seconds())))
	}
	args = append(args, "-timeMode", "elapsed", "-solve", "-solu", solPath)

	if _, err := runProcess(ctx, "cbc", c.bin, args...); err != nil {
		return nil, err
	}

	f, err := os.Open(solPath)
	if err != nil {
		return nil, eris.Wrap(err, "cbc: open solution file")
	}
	defer f.Close() //nolint:errcheck

	return ParseCBCSolution(f, p)
}

// ParseCBCSolution reads a CBC solution file. The first line carries the
// status and objective; each following line is "index name value reduced",
// optionally prefixed by "**" for rows or columns CBC flags as infeasible.
// Variables CBC leaves out are zero.
func ParseCBCSolution(r io.Reader, p *Problem) (*Solution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, eris.Wrap(err, "cbc: read solution")
		}
		return nil, eris.New("cbc: empty solution file")
	}

	header := strings.TrimSpace(sc.Text())
	sol := &Solution{
		Status: cbcStatus(header),
		Values: make([]float64, len(p.Vars)),
	}
	if i := strings.Index(header, "objective value"); i >= 0 {
		fields := strings.Fields(header[i+len("objective value"):])
		if len(fields) > 0 {
			if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
				sol.Objective = v
			}
		}
	}

	index := p.VarIndex()
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		vi, ok := index[fields[1]]
		if !ok {
			// Row activity lines share the format; skip anything that is not a column.
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "cbc: parse value of %s", fields[1])
		}
		sol.Values[vi] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "cbc: read solution")
	}
	return sol, nil
}

func cbcStatus(header string) Status {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return StatusOptimal
	case strings.Contains(lower, "infeasible"):
		return StatusInfeasible
	case strings.Contains(lower, "unbounded"):
		return StatusUnbounded
	default:
		return StatusNotSolved
	}
}
