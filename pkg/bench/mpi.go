package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/jianzi123/slow-node/pkg/hostfile"
	"github.com/jianzi123/slow-node/pkg/log"
	"github.com/jianzi123/slow-node/pkg/types"
	"github.com/rs/zerolog"
)

// MPIInvoker launches the benchmark binary through an MPI launcher over a
// temporary hostfile. Raw output is captured in memory for parsing and
// mirrored to a per-test log file in the run directory.
type MPIInvoker struct {
	cfg    types.BenchmarkConfig
	runDir string
	seq    int
	logger zerolog.Logger
}

func NewMPIInvoker(cfg types.BenchmarkConfig, runDir string) *MPIInvoker {
	return &MPIInvoker{
		cfg:    cfg,
		runDir: runDir,
		logger: log.WithComponent("mpi"),
	}
}

func (m *MPIInvoker) Invoke(ctx context.Context, nodes []string, procsPerNode int) ([]byte, int, error) {
	m.seq++

	hostfilePath := filepath.Join(m.runDir, fmt.Sprintf("hostfile_temp_%dnodes.txt", len(nodes)))
	if err := hostfile.WriteSubset(hostfilePath, nodes, procsPerNode); err != nil {
		return nil, -1, err
	}
	defer os.Remove(hostfilePath)

	args := m.buildArgs(hostfilePath, len(nodes)*procsPerNode)
	m.logger.Debug().Str("launcher", m.cfg.Launcher).Strs("args", args).Msg("launching benchmark")

	cmd := exec.CommandContext(ctx, m.cfg.Launcher, args...)
	output, err := cmd.CombinedOutput()

	m.writeTestLog(output, len(nodes))

	if err != nil {
		if ctx.Err() != nil {
			return output, -1, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The benchmark ran and exited nonzero; that is a result,
			// not an invocation error.
			return output, exitErr.ExitCode(), nil
		}
		return output, -1, fmt.Errorf("failed to launch benchmark: %w", err)
	}

	return output, 0, nil
}

func (m *MPIInvoker) buildArgs(hostfilePath string, totalProcs int) []string {
	args := []string{
		"--allow-run-as-root",
		"--hostfile", hostfilePath,
		"-np", strconv.Itoa(totalProcs),
		"--bind-to", "none",
		"--map-by", "slot",
		"-mca", "pml", "ob1",
		"-mca", "btl", "^openib",
	}

	for _, env := range m.cfg.Env {
		args = append(args, "-x", env)
	}

	args = append(args, m.cfg.Command)
	args = append(args, m.cfg.Args...)
	return args
}

// writeTestLog mirrors the raw output into the run directory so a failed
// parse can be investigated after the run.
func (m *MPIInvoker) writeTestLog(output []byte, nodeCount int) {
	path := filepath.Join(m.runDir, fmt.Sprintf("bench_%03d_%dnodes.log", m.seq, nodeCount))
	if err := os.WriteFile(path, output, 0o644); err != nil {
		m.logger.Warn().Err(err).Str("path", path).Msg("failed to write benchmark log")
	}
}
