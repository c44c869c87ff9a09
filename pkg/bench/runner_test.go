package bench

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ncclOutput fabricates one benchmark perf row with the given bus bandwidth.
func ncclOutput(busbw float64) []byte {
	return []byte(fmt.Sprintf("  1073741824     268435456     float     sum   8912.3  120.47  %.2f\n", busbw))
}

type fakeResponse struct {
	output   []byte
	exitCode int
	err      error
}

// fakeInvoker replays queued responses and records every node subset it was
// asked to test.
type fakeInvoker struct {
	responses []fakeResponse
	calls     [][]string
}

func (f *fakeInvoker) Invoke(_ context.Context, nodes []string, _ int) ([]byte, int, error) {
	f.calls = append(f.calls, append([]string(nil), nodes...))
	if len(f.responses) == 0 {
		return nil, -1, errors.New("unexpected benchmark invocation")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp.output, resp.exitCode, resp.err
}

// blockingInvoker never returns until the context expires.
type blockingInvoker struct{}

func (blockingInvoker) Invoke(ctx context.Context, _ []string, _ int) ([]byte, int, error) {
	<-ctx.Done()
	return nil, -1, ctx.Err()
}

func threshold(v float64) *float64 { return &v }

func TestEvaluateVerdictAgainstThreshold(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{output: ncclOutput(225.0)},
		{output: ncclOutput(80.0)},
	}}
	runner := NewRunner(invoker, 8, time.Minute, threshold(200))

	good := runner.Evaluate(context.Background(), []string{"node-001", "node-002"}, "pair_1")
	assert.True(t, good.IsGood)
	assert.True(t, good.Success)
	require.NotNil(t, good.BandwidthGBps)
	assert.InDelta(t, 225.0, *good.BandwidthGBps, 1e-9)

	bad := runner.Evaluate(context.Background(), []string{"node-001", "node-003"}, "pair_2")
	assert.False(t, bad.IsGood)
	assert.True(t, bad.Success, "slow but clean runs still count as process success")
}

func TestEvaluateUnparseableOutputIsBad(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{output: []byte("job started\njob finished\n"), exitCode: 0},
	}}
	runner := NewRunner(invoker, 8, time.Minute, nil)

	result := runner.Evaluate(context.Background(), []string{"node-001"}, "single_node_depth0")
	assert.False(t, result.IsGood)
	assert.True(t, result.Success)
	assert.Nil(t, result.BandwidthGBps)
	assert.Empty(t, result.Error)
}

func TestEvaluateWithoutThresholdFallsBackToProcessOutcome(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{output: ncclOutput(10.0), exitCode: 0},
		{output: ncclOutput(10.0), exitCode: 1},
	}}
	runner := NewRunner(invoker, 8, time.Minute, nil)

	clean := runner.Evaluate(context.Background(), []string{"node-001"}, "t1")
	assert.True(t, clean.IsGood, "no threshold set, clean exit wins")

	failed := runner.Evaluate(context.Background(), []string{"node-001"}, "t2")
	assert.False(t, failed.IsGood)
	assert.False(t, failed.Success)
	assert.Equal(t, 1, failed.ReturnCode)
}

func TestEvaluateExecError(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{exitCode: -1, err: errors.New("failed to launch benchmark: exec: \"mpirun\": executable file not found in $PATH")},
	}}
	runner := NewRunner(invoker, 8, time.Minute, threshold(200))

	result := runner.Evaluate(context.Background(), []string{"node-001"}, "group_depth0")
	assert.False(t, result.IsGood)
	assert.Contains(t, result.Error, "mpirun")
	assert.Nil(t, result.BandwidthGBps)
}

func TestEvaluateTimeout(t *testing.T) {
	runner := NewRunner(blockingInvoker{}, 8, 10*time.Millisecond, threshold(200))

	result := runner.Evaluate(context.Background(), []string{"node-001", "node-002"}, "group_depth0")
	assert.False(t, result.IsGood)
	assert.Contains(t, result.Error, "timed out after 10ms")
}

func TestHistoryGrowsByOnePerInvocation(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{output: ncclOutput(225.0)},
		{exitCode: -1, err: errors.New("launch failed")},
		{output: []byte("garbage")},
	}}
	runner := NewRunner(invoker, 8, time.Minute, threshold(200))

	runner.Evaluate(context.Background(), []string{"a", "b"}, "t1")
	runner.Evaluate(context.Background(), []string{"a"}, "t2")
	runner.Evaluate(context.Background(), []string{"b"}, "t3")

	history := runner.History()
	require.Len(t, history, 3)
	assert.Equal(t, 3, runner.TestCount())

	// Entries keep invocation order and their labels.
	assert.Equal(t, "t1", history[0].TestName)
	assert.Equal(t, "t2", history[1].TestName)
	assert.Equal(t, "t3", history[2].TestName)

	// The returned slice is a copy, not a window into runner state.
	history[0].TestName = "mutated"
	assert.Equal(t, "t1", runner.History()[0].TestName)
}

func TestCalibrate(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{output: ncclOutput(250.0)},
	}}
	runner := NewRunner(invoker, 8, time.Minute, nil)

	runner.Calibrate(context.Background(), []string{"node-001", "node-002", "node-003", "node-004"})

	require.NotNil(t, runner.Threshold())
	assert.InDelta(t, 200.0, *runner.Threshold(), 1e-9)

	// Baseline runs on the first two nodes only and lands in history.
	require.Len(t, invoker.calls, 1)
	assert.Equal(t, []string{"node-001", "node-002"}, invoker.calls[0])
	require.Equal(t, 1, runner.TestCount())
	assert.Equal(t, "baseline", runner.History()[0].TestName)
}

func TestCalibrateKeepsExplicitThreshold(t *testing.T) {
	invoker := &fakeInvoker{}
	runner := NewRunner(invoker, 8, time.Minute, threshold(180))

	runner.Calibrate(context.Background(), []string{"node-001", "node-002"})

	assert.Empty(t, invoker.calls, "explicit threshold means no baseline run")
	assert.InDelta(t, 180.0, *runner.Threshold(), 1e-9)
}

func TestCalibrateBaselineFailure(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{output: []byte("no usable output"), exitCode: 1},
	}}
	runner := NewRunner(invoker, 8, time.Minute, nil)

	runner.Calibrate(context.Background(), []string{"node-001", "node-002"})

	assert.Nil(t, runner.Threshold(), "failed baseline leaves threshold unset")
	assert.Equal(t, 1, runner.TestCount(), "the failed baseline still lands in history")
}

func TestCalibrateSingleNodeRoster(t *testing.T) {
	invoker := &fakeInvoker{responses: []fakeResponse{
		{output: ncclOutput(100.0)},
	}}
	runner := NewRunner(invoker, 8, time.Minute, nil)

	runner.Calibrate(context.Background(), []string{"node-001"})

	require.Len(t, invoker.calls, 1)
	assert.Equal(t, []string{"node-001"}, invoker.calls[0])
	require.NotNil(t, runner.Threshold())
	assert.InDelta(t, 80.0, *runner.Threshold(), 1e-9)
}
