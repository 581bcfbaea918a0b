package activity

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"figures/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilesystemClient(t *testing.T) *FilesystemClient {
	t.Helper()
	client, err := NewFilesystemClient(models.FilesystemActivityConfiguration{Directory: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sendRunActivity(t *testing.T, client *FilesystemClient, action, worker, siteID, message string, ts time.Time) {
	t.Helper()
	err := client.Send(models.Activity{
		Message: message,
		Filter: models.LogFilter{
			Fields: map[string]string{
				"action":      action,
				"object_type": ObjectWorkerRun,
				"worker_name": worker,
				"site_id":     siteID,
				"date_for":    "2024-03-01",
			},
			Timestamp: strconv.FormatInt(ts.UnixNano(), 10),
		},
		Object: map[string]any{"processed": 3},
	})
	require.NoError(t, err)
}

func TestFilesystemSendAndSearch(t *testing.T) {
	client := newTestFilesystemClient(t)
	sendRunActivity(t, client, PipelineRunDone, "DailyMetrics", "1", "Pipeline run completed", time.Now())

	results, err := client.Search(map[string][]string{"action": {PipelineRunDone}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, PipelineRunDone, r["action"])
	assert.Equal(t, ObjectWorkerRun, r["object_type"])
	assert.Equal(t, "DailyMetrics", r["worker_name"])
	assert.Equal(t, "1", r["site_id"])
	assert.Equal(t, "2024-03-01", r["date_for"])
	assert.Equal(t, "Pipeline run completed", r["message"])
	assert.NotEmpty(t, r["timestamp"])

	obj, ok := r["object"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, obj["processed"], 0)
}

func TestFilesystemSendWithoutPayloadType(t *testing.T) {
	client := newTestFilesystemClient(t)
	err := client.Send(models.Activity{
		Message: "Operator logged in",
		Filter: NewLogFilter(map[string]string{
			"action":      OperatorLoggedIn,
			"object_type": ObjectOperator,
			"operator_id": "7",
		}),
		Object: map[string]any{"password": "secret"},
	})
	require.NoError(t, err)

	results, err := client.Search(map[string][]string{"operator_id": {"7"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotContains(t, results[0], "object")
}

func TestFilesystemSendRejectsBadTimestamp(t *testing.T) {
	client := newTestFilesystemClient(t)
	err := client.Send(models.Activity{
		Message: "x",
		Filter:  models.LogFilter{Fields: map[string]string{"action": PopulateRequested}, Timestamp: "yesterday"},
	})
	assert.Error(t, err)
}

func TestFilesystemSearchWithORCriteria(t *testing.T) {
	client := newTestFilesystemClient(t)
	now := time.Now()
	sendRunActivity(t, client, PipelineRunDone, "DailyMetrics", "1", "done", now)
	sendRunActivity(t, client, PipelineRunFailed, "DailyMetrics", "2", "failed", now.Add(-time.Second))
	sendRunActivity(t, client, PipelineRunStarted, "Populate", "1", "started", now.Add(-2*time.Second))

	results, err := client.Search(map[string][]string{"action": {PipelineRunDone, PipelineRunFailed}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, PipelineRunDone, results[0]["action"])
	assert.Equal(t, PipelineRunFailed, results[1]["action"])

	results, err = client.Search(map[string][]string{"site_id": {"1"}, "worker_name": {"Populate"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, PipelineRunStarted, results[0]["action"])
}

func TestFilesystemCountByDay(t *testing.T) {
	client := newTestFilesystemClient(t)
	today := time.Now()
	sendRunActivity(t, client, PipelineRunDone, "DailyMetrics", "1", "one", today)
	sendRunActivity(t, client, PipelineRunDone, "DailyMetrics", "1", "two", today.Add(-time.Minute))
	sendRunActivity(t, client, PipelineRunFailed, "DailyMetrics", "1", "three", today.AddDate(0, 0, -1))

	points, err := client.CountByDay(map[string][]string{}, 7)
	require.NoError(t, err)

	var total int64
	for _, p := range points {
		total += p.Count
	}
	assert.Equal(t, int64(3), total, "points: %+v", points)

	points, err = client.CountByDay(map[string][]string{"action": {PipelineRunFailed}}, 7)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(1), points[0].Count)
}

func TestFilesystemSearchRespectsTimeWindow(t *testing.T) {
	client := newTestFilesystemClient(t)
	sendRunActivity(t, client, PipelineRunDone, "DailyMetrics", "9", "old", time.Now().AddDate(0, 0, -60))
	sendRunActivity(t, client, PipelineRunDone, "DailyMetrics", "1", "new", time.Now())

	results, err := client.Search(map[string][]string{"action": {PipelineRunDone}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0]["site_id"])
}

func TestFilesystemOutdatedIndexIsArchived(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "activity.bleve")

	index, err := bleve.New(dir, buildIndexMapping())
	require.NoError(t, err)
	require.NoError(t, index.SetInternal(schemaVersionKey, []byte("0")))
	require.NoError(t, index.Index("0", FilesystemActivityEntry{
		Message:    "Pipeline run completed",
		Timestamp:  time.Now(),
		Action:     PipelineRunDone,
		ObjectType: ObjectWorkerRun,
		SiteID:     "1",
	}))
	require.NoError(t, index.Close())

	client, err := NewFilesystemClient(models.FilesystemActivityConfiguration{Directory: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	storedVersion, err := client.index.GetInternal(schemaVersionKey)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, string(storedVersion))

	results, err := client.Search(map[string][]string{})
	require.NoError(t, err)
	assert.Empty(t, results)

	archived, err := filepath.Glob(filepath.Join(parent, "activity.bleve.v0-*"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}
