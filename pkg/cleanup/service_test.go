package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/test/util"
)

func setupService(t *testing.T) (*Service, *store.Store, *pgxpool.Pool) {
	t.Helper()
	pool := util.SetupTestDatabase(t)
	st, err := store.New(pool)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		RawRetentionDays: 90,
		LogRetentionDays: 365,
		JobRetentionDays: 30,
		CleanupInterval:  1 * time.Hour,
	}
	return NewService(cfg, st), st, pool
}

func stageRawContact(ctx context.Context, t *testing.T, st *store.Store, syncID, upstreamID string) int64 {
	t.Helper()
	inserted, err := st.InsertRawBatch(ctx, models.EntityContacts, []models.RawRecord{{
		SyncID:     syncID,
		UpstreamID: upstreamID,
		Payload:    []byte(`{}`),
		APIPage:    1,
		FetchedAt:  time.Now().UTC(),
	}})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	rows, err := st.SelectPendingRaw(ctx, models.EntityContacts, []string{syncID}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0].ID
}

func TestService_PurgesOldProcessedRaw(t *testing.T) {
	svc, st, pool := setupService(t)
	ctx := context.Background()

	oldID := stageRawContact(ctx, t, st, "sync-old", "1")
	recentID := stageRawContact(ctx, t, st, "sync-recent", "2")
	stageRawContact(ctx, t, st, "sync-pending", "3")

	require.NoError(t, st.MarkRawProcessed(ctx, models.EntityContacts, oldID))
	require.NoError(t, st.MarkRawProcessed(ctx, models.EntityContacts, recentID))
	_, err := pool.Exec(ctx,
		`UPDATE raw_contacts SET processed_at = now() - interval '100 days' WHERE id = $1`, oldID)
	require.NoError(t, err)

	svc.runAll(ctx)

	counts, err := st.RawStatusCounts(ctx, models.EntityContacts, "")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.ProcessingProcessed], "only the recent processed row survives")
	assert.Equal(t, 1, counts[models.ProcessingPending], "pending rows are never purged")
}

func TestService_PurgesOldRunLogs(t *testing.T) {
	svc, st, pool := setupService(t)
	ctx := context.Background()

	mkLog := func(syncID string, status models.RunStatus) {
		require.NoError(t, st.CreateExtractLog(ctx, &models.ExtractLog{
			SyncID:     syncID,
			EntityType: models.EntityContacts,
			Status:     status,
			StartedAt:  time.Now().UTC(),
			Metadata:   map[string]any{},
		}))
	}
	mkLog("sync-ancient", models.RunStatusCompleted)
	mkLog("sync-fresh", models.RunStatusCompleted)
	mkLog("sync-stuck", models.RunStatusRunning)

	_, err := pool.Exec(ctx,
		`UPDATE extract_logs SET completed_at = now() - interval '400 days' WHERE sync_id = 'sync-ancient'`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`UPDATE extract_logs SET completed_at = now() WHERE sync_id = 'sync-fresh'`)
	require.NoError(t, err)

	require.NoError(t, st.UpsertCheckpoint(ctx, &models.SyncCheckpoint{
		SyncID:     "sync-ancient",
		EntityType: models.EntityContacts,
		Status:     models.RunStatusCompleted,
	}))
	require.NoError(t, st.UpsertCheckpoint(ctx, &models.SyncCheckpoint{
		SyncID:     "sync-fresh",
		EntityType: models.EntityContacts,
		Status:     models.RunStatusCompleted,
	}))
	_, err = pool.Exec(ctx,
		`UPDATE sync_checkpoints SET updated_at = now() - interval '400 days' WHERE sync_id = 'sync-ancient'`)
	require.NoError(t, err)

	svc.runAll(ctx)

	_, err = st.GetExtractLog(ctx, "sync-ancient")
	assert.ErrorIs(t, err, store.ErrNotFound)

	fresh, err := st.GetExtractLog(ctx, "sync-fresh")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, fresh.Status)

	// A log with no completed_at is not terminal and survives, old or not
	stuck, err := st.GetExtractLog(ctx, "sync-stuck")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, stuck.Status)

	_, err = st.GetCheckpoint(ctx, "sync-ancient", models.EntityContacts)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetCheckpoint(ctx, "sync-fresh", models.EntityContacts)
	require.NoError(t, err)
}

func TestService_PurgesOldFinishedJobs(t *testing.T) {
	svc, st, pool := setupService(t)
	ctx := context.Background()

	mkJob := func(id string) {
		require.NoError(t, st.EnqueueJob(ctx, &models.SyncJob{
			ID:         id,
			JobType:    models.JobTypeExtract,
			EntityType: models.EntityContacts,
		}))
	}
	mkJob("job-ancient")
	mkJob("job-fresh")
	mkJob("job-waiting")

	require.NoError(t, st.FinishJob(ctx, "job-ancient", models.JobStatusCompleted, nil))
	require.NoError(t, st.FinishJob(ctx, "job-fresh", models.JobStatusCompleted, nil))
	_, err := pool.Exec(ctx,
		`UPDATE sync_jobs SET completed_at = now() - interval '60 days' WHERE id = 'job-ancient'`)
	require.NoError(t, err)

	svc.runAll(ctx)

	_, err = st.GetJob(ctx, "job-ancient")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.GetJob(ctx, "job-fresh")
	require.NoError(t, err)

	// Queued work is never purged
	waiting, err := st.GetJob(ctx, "job-waiting")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, waiting.Status)
}

func TestService_StartStop(t *testing.T) {
	svc, _, _ := setupService(t)

	svc.Start(context.Background())
	svc.Stop()

	// Stop without Start is a no-op
	fresh := NewService(config.DefaultRetentionConfig(), svc.store)
	fresh.Stop()
}
