package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal/backend/internal/domain/sync"
	"github.com/portal/backend/internal/interfaces/http/dto"
)

type mockLogRepo struct {
	entries []*sync.CustomerSyncLog
	rows    []sync.SummaryRow
}

func (m *mockLogRepo) Append(ctx context.Context, entry *sync.CustomerSyncLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLogRepo) FindByCorrelation(ctx context.Context, correlationID string) ([]*sync.CustomerSyncLog, error) {
	var out []*sync.CustomerSyncLog
	for _, e := range m.entries {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLogRepo) Summarize(ctx context.Context, period sync.SummaryPeriod) ([]sync.SummaryRow, error) {
	return m.rows, nil
}

func (m *mockLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockConflictRepo struct {
	conflicts []*sync.SyncConflict
}

func (m *mockConflictRepo) Save(ctx context.Context, conflict *sync.SyncConflict) error {
	m.conflicts = append(m.conflicts, conflict)
	return nil
}

func (m *mockConflictRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*sync.SyncConflict, error) {
	var out []*sync.SyncConflict
	for _, c := range m.conflicts {
		if c.CustomerID != nil && *c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func setupSyncRouter(logs sync.LogRepository, conflicts sync.ConflictRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewSyncHandler(logs, conflicts)
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestSyncHandler_GetByCorrelation(t *testing.T) {
	logs := &mockLogRepo{}
	correlationID := uuid.NewString()

	first, err := sync.NewSyncLog(sync.OpIdentification, sync.LogStatusSuccess, correlationID)
	require.NoError(t, err)
	second, err := sync.NewSyncLog(sync.OpUpdate, sync.LogStatusSuccess, correlationID)
	require.NoError(t, err)
	other, err := sync.NewSyncLog(sync.OpCreate, sync.LogStatusError, uuid.NewString())
	require.NoError(t, err)
	logs.entries = []*sync.CustomerSyncLog{first, second, other}

	engine := setupSyncRouter(logs, &mockConflictRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/logs/"+correlationID, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestSyncHandler_GetSummary(t *testing.T) {
	t.Run("returns grouped counts", func(t *testing.T) {
		logs := &mockLogRepo{rows: []sync.SummaryRow{
			{OperationType: sync.OpUpdate, Status: sync.LogStatusSuccess, Count: 12},
			{OperationType: sync.OpCreate, Status: sync.LogStatusError, Count: 2},
		}}
		engine := setupSyncRouter(logs, &mockConflictRepo{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/summary", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		rows, ok := data["rows"].([]any)
		require.True(t, ok)
		assert.Len(t, rows, 2)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		engine := setupSyncRouter(&mockLogRepo{}, &mockConflictRepo{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/summary?from=2026-02-10&to=2026-02-01", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandler_GetConflicts(t *testing.T) {
	customerID := uuid.New()
	conflict, err := sync.NewResolvedConflict(
		sync.ConflictTypeCustomerData,
		sync.FieldSnapshot{"email": "old@example.com"},
		sync.FieldSnapshot{"email": "new@example.com"},
		[]string{"email"},
		"overwritten from 1C during import",
		"import",
	)
	require.NoError(t, err)
	conflict.CustomerID = &customerID

	repo := &mockConflictRepo{conflicts: []*sync.SyncConflict{conflict}}
	engine := setupSyncRouter(&mockLogRepo{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+customerID.String()+"/conflicts", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	row, ok := data[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "customer_data", row["conflict_type"])
	assert.Equal(t, []any{"email"}, row["conflicting_fields"])
}
