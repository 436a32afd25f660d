package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/testutil"
)

// 同じ event_id の再記録は no-op になること。
// Kafkaの再配信(at-least-once)をここで吸収します。
func TestAuditRecordDeduplicatesByEventID(t *testing.T) {
	db, _, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	auditRepo := repositories.NewAuditRepository(db)

	event, err := events.NewEvent(models.EventTaskCreated, 10, 1, map[string]string{"title": "買い物"})
	require.NoError(t, err)

	recorded, err := auditRepo.Record(event)
	require.NoError(t, err)
	assert.True(t, recorded, "First delivery must be recorded")

	recorded, err = auditRepo.Record(event)
	require.NoError(t, err)
	assert.False(t, recorded, "Redelivery of the same event_id must be a no-op")

	entries, err := auditRepo.ListByUser(1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "Redelivery must not create a second row")
	assert.Equal(t, event.EventID, entries[0].EventID)
	assert.Equal(t, models.EventTaskCreated, entries[0].EventType)
	assert.Equal(t, 10, entries[0].TaskID)
}

func TestAuditListByUserScopesToUser(t *testing.T) {
	db, _, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	auditRepo := repositories.NewAuditRepository(db)

	mine, err := events.NewEvent(models.EventTaskCompleted, 11, 1, nil)
	require.NoError(t, err)
	theirs, err := events.NewEvent(models.EventTaskCompleted, 12, 2, nil)
	require.NoError(t, err)

	for _, e := range []*models.Event{mine, theirs} {
		recorded, err := auditRepo.Record(e)
		require.NoError(t, err)
		require.True(t, recorded)
	}

	entries, err := auditRepo.ListByUser(1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, mine.EventID, entries[0].EventID)
	assert.Equal(t, 1, entries[0].UserID)
}
