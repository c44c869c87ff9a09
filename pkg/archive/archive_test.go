package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jianzi123/slow-node/pkg/types"
)

func testReport(runID string, ts time.Time, bad ...string) *types.Report {
	return &types.Report{
		RunID:      runID,
		Timestamp:  ts,
		Mode:       types.ModeBisection,
		TotalNodes: 8,
		TotalTests: 5,
		BadNodes:   bad,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	arch, err := Open(t.TempDir())
	require.NoError(t, err)
	defer arch.Close()

	rep := testReport("run-1", time.Now().UTC().Truncate(time.Second), "node-003")
	require.NoError(t, arch.Put(rep))

	loaded, err := arch.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, loaded.RunID)
	assert.Equal(t, rep.BadNodes, loaded.BadNodes)
	assert.Equal(t, rep.TotalNodes, loaded.TotalNodes)
}

func TestGetMissingRun(t *testing.T) {
	arch, err := Open(t.TempDir())
	require.NoError(t, err)
	defer arch.Close()

	_, err = arch.Get("no-such-run")
	assert.ErrorContains(t, err, "not found")
}

func TestPutRejectsEmptyRunID(t *testing.T) {
	arch, err := Open(t.TempDir())
	require.NoError(t, err)
	defer arch.Close()

	err = arch.Put(&types.Report{})
	assert.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	arch, err := Open(t.TempDir())
	require.NoError(t, err)
	defer arch.Close()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, arch.Put(testReport("run-old", base)))
	require.NoError(t, arch.Put(testReport("run-new", base.Add(2*time.Hour), "node-001")))
	require.NoError(t, arch.Put(testReport("run-mid", base.Add(time.Hour))))

	summaries, err := arch.List()
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "run-new", summaries[0].RunID)
	assert.Equal(t, "run-mid", summaries[1].RunID)
	assert.Equal(t, "run-old", summaries[2].RunID)
	assert.Equal(t, []string{"node-001"}, summaries[0].BadNodes)
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	arch, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, arch.Put(testReport("run-1", time.Now())))
	require.NoError(t, arch.Close())

	arch, err = Open(dir)
	require.NoError(t, err)
	defer arch.Close()

	loaded, err := arch.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
}

func TestPutOverwritesSameRun(t *testing.T) {
	arch, err := Open(t.TempDir())
	require.NoError(t, err)
	defer arch.Close()

	require.NoError(t, arch.Put(testReport("run-1", time.Now())))
	require.NoError(t, arch.Put(testReport("run-1", time.Now(), "node-007")))

	loaded, err := arch.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"node-007"}, loaded.BadNodes)

	summaries, err := arch.List()
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}
