package solver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/resilience"
)

// waitDelay bounds how long a killed solver may hold its output pipes open.
const waitDelay = 2 * time.Second

// ErrTimeout is returned when a solve is cut short by its context deadline.
var ErrTimeout = eris.New("solver: timed out")

// workspace is a scratch directory holding the model and solution files of
// one solve.
type workspace struct {
	dir string
}

func newWorkspace(tempDir, prefix string) (*workspace, error) {
	dir, err := os.MkdirTemp(tempDir, prefix+"-*")
	if err != nil {
		return nil, eris.Wrap(err, "solver: create workspace")
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) writeLP(p *Problem) (string, error) {
	path := w.path("model.lp")
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "solver: create lp file")
	}
	if err := WriteLP(f, p); err != nil {
		f.Close() //nolint:errcheck
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "solver: close lp file")
	}
	return path, nil
}

func (w *workspace) cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		zap.L().Warn("solver: failed to remove workspace", zap.String("dir", w.dir), zap.Error(err))
	}
}

// runProcess executes a solver binary and maps context expiry onto
// ErrTimeout. The process is killed when ctx is done.
func runProcess(ctx context.Context, backend, bin string, args ...string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	zap.L().Debug("solver: process finished",
		zap.String("backend", backend),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if eris.Is(ctxErr, context.DeadlineExceeded) {
			return out.Bytes(), eris.Wrapf(ErrTimeout, "%s: deadline exceeded after %s", backend, time.Since(start).Round(time.Millisecond))
		}
		return out.Bytes(), eris.Wrapf(ctxErr, "%s: solve cancelled", backend)
	}
	if err != nil {
		wrapped := eris.Wrapf(err, "%s: run %s: %s", backend, bin, tail(out.String(), 400))
		if killedBySignal(err) {
			return out.Bytes(), resilience.Transient(wrapped)
		}
		return out.Bytes(), wrapped
	}
	return out.Bytes(), nil
}

// killedBySignal reports whether the process was terminated by a signal,
// typically the OOM killer.
func killedBySignal(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}

// tail returns at most n trailing bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
