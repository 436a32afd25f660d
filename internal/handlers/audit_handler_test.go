package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/testutil"
)

func recordAuditEvent(t *testing.T, auditRepo *repositories.AuditRepository, eventType string, taskID, userID int) *models.Event {
	event, err := events.NewEvent(eventType, taskID, userID, nil)
	require.NoError(t, err)
	recorded, err := auditRepo.Record(event)
	require.NoError(t, err)
	require.True(t, recorded)
	return event
}

func TestGetAudit_ReturnsOwnHistory(t *testing.T) {
	db, router, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	token, err := testutil.LoginAndGetToken(t, router, "normal_user@example.com", "password123")
	require.NoError(t, err)

	auditRepo := repositories.NewAuditRepository(db)
	recordAuditEvent(t, auditRepo, models.EventTaskCreated, 10, 1)
	recordAuditEvent(t, auditRepo, models.EventTaskCompleted, 10, 1)
	recordAuditEvent(t, auditRepo, models.EventTaskCreated, 20, 2) // 他ユーザー

	req, _ := http.NewRequest("GET", "/api/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entries []models.AuditEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2, "Only the caller's events must be returned")
	for _, entry := range entries {
		assert.Equal(t, 1, entry.UserID)
	}
}

func TestGetAudit_LimitAndValidation(t *testing.T) {
	db, router, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	token, err := testutil.LoginAndGetToken(t, router, "normal_user@example.com", "password123")
	require.NoError(t, err)

	auditRepo := repositories.NewAuditRepository(db)
	recordAuditEvent(t, auditRepo, models.EventTaskCreated, 10, 1)
	recordAuditEvent(t, auditRepo, models.EventTaskCompleted, 10, 1)

	req, _ := http.NewRequest("GET", "/api/audit?limit=1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.AuditEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	req, _ = http.NewRequest("GET", "/api/audit?limit=zero", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
