package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/ledgerlink/backend/internal/application/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

// MockBulkService is a mock implementation of BulkService
type MockBulkService struct {
	mock.Mock
}

func (m *MockBulkService) RunOrderBulk(ctx context.Context, jobID string, since time.Time, emit appsync.EmitFunc) (appsync.BulkStats, error) {
	args := m.Called(ctx, jobID, since, emit)
	return args.Get(0).(appsync.BulkStats), args.Error(1)
}

func (m *MockBulkService) RunContactBulk(ctx context.Context, jobID string, emit appsync.EmitFunc) (appsync.BulkStats, error) {
	args := m.Called(ctx, jobID, emit)
	return args.Get(0).(appsync.BulkStats), args.Error(1)
}

func (m *MockBulkService) RunProductBulk(ctx context.Context, jobID string, emit appsync.EmitFunc) (appsync.BulkStats, error) {
	args := m.Called(ctx, jobID, emit)
	return args.Get(0).(appsync.BulkStats), args.Error(1)
}

func (m *MockBulkService) CancelJob(jobID string) bool {
	args := m.Called(jobID)
	return args.Bool(0)
}

func newBulkRouter(bulk BulkService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewBulkSyncHandler(bulk, zap.NewNop())
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func decodeEvents(t *testing.T, body *bytes.Buffer) []appsync.BulkEvent {
	t.Helper()
	var events []appsync.BulkEvent
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		var event appsync.BulkEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}
	return events
}

func TestBulkSyncHandler_BulkSyncOrders(t *testing.T) {
	t.Run("streams progress and terminal events", func(t *testing.T) {
		bulk := new(MockBulkService)
		bulk.On("RunOrderBulk", mock.Anything, "job-1", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				emit := args.Get(3).(appsync.EmitFunc)
				emit(appsync.BulkEvent{Type: appsync.BulkEventProgress, JobID: "job-1",
					Stats: appsync.BulkStats{Processed: 25, Synced: 20, Skipped: 5}})
				emit(appsync.BulkEvent{Type: appsync.BulkEventDone, JobID: "job-1",
					Stats: appsync.BulkStats{Processed: 30, Synced: 24, Skipped: 6}})
			}).
			Return(appsync.BulkStats{Processed: 30, Synced: 24, Skipped: 6}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/bulk",
			strings.NewReader(`{"job_id":"job-1"}`))
		req.Header.Set("Content-Type", "application/json")
		newBulkRouter(bulk).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
		assert.Equal(t, "job-1", w.Header().Get("X-Sync-Job-ID"))

		events := decodeEvents(t, w.Body)
		require.Len(t, events, 2)
		assert.Equal(t, appsync.BulkEventProgress, events[0].Type)
		assert.Equal(t, appsync.BulkEventDone, events[1].Type)
		assert.Equal(t, 30, events[1].Stats.Processed)
	})

	t.Run("assigns a job id when absent", func(t *testing.T) {
		bulk := new(MockBulkService)
		bulk.On("RunOrderBulk", mock.Anything, mock.MatchedBy(func(id string) bool {
			return id != ""
		}), mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				emit := args.Get(3).(appsync.EmitFunc)
				emit(appsync.BulkEvent{Type: appsync.BulkEventDone, JobID: args.String(1)})
			}).
			Return(appsync.BulkStats{}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/bulk", nil)
		newBulkRouter(bulk).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Sync-Job-ID"))
	})

	t.Run("passes the requested starting point through", func(t *testing.T) {
		since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		bulk := new(MockBulkService)
		bulk.On("RunOrderBulk", mock.Anything, mock.Anything, since, mock.Anything).
			Run(func(args mock.Arguments) {
				emit := args.Get(3).(appsync.EmitFunc)
				emit(appsync.BulkEvent{Type: appsync.BulkEventDone})
			}).
			Return(appsync.BulkStats{}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/bulk",
			strings.NewReader(`{"since":"2026-02-01T00:00:00Z"}`))
		req.Header.Set("Content-Type", "application/json")
		newBulkRouter(bulk).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		bulk.AssertExpectations(t)
	})

	t.Run("duplicate job id yields 409 before any event", func(t *testing.T) {
		bulk := new(MockBulkService)
		bulk.On("RunOrderBulk", mock.Anything, "job-1", mock.Anything, mock.Anything).
			Return(appsync.BulkStats{}, shared.ErrAlreadyExists)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/bulk",
			strings.NewReader(`{"job_id":"job-1"}`))
		req.Header.Set("Content-Type", "application/json")
		newBulkRouter(bulk).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeConflict, resp.Error.Code)
	})

	t.Run("stream outlives the server write timeout", func(t *testing.T) {
		bulk := new(MockBulkService)
		bulk.On("RunOrderBulk", mock.Anything, "job-slow", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				emit := args.Get(3).(appsync.EmitFunc)
				for i := 1; i <= 6; i++ {
					time.Sleep(150 * time.Millisecond)
					emit(appsync.BulkEvent{Type: appsync.BulkEventProgress, JobID: "job-slow",
						Stats: appsync.BulkStats{Processed: i}})
				}
				emit(appsync.BulkEvent{Type: appsync.BulkEventDone, JobID: "job-slow",
					Stats: appsync.BulkStats{Processed: 6}})
			}).
			Return(appsync.BulkStats{Processed: 6}, nil)

		// The run lasts ~900ms against a 400ms write timeout; only the
		// per-event deadline reset keeps the connection alive until the
		// terminal event.
		srv := httptest.NewUnstartedServer(newBulkRouter(bulk))
		srv.Config.WriteTimeout = 400 * time.Millisecond
		srv.Start()
		defer srv.Close()

		resp, err := srv.Client().Post(srv.URL+"/api/v1/sync/orders/bulk", "application/json",
			strings.NewReader(`{"job_id":"job-slow"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		var events []appsync.BulkEvent
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			var event appsync.BulkEvent
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
			events = append(events, event)
		}
		require.NoError(t, scanner.Err())
		require.Len(t, events, 7)
		assert.Equal(t, appsync.BulkEventDone, events[len(events)-1].Type)
		assert.Equal(t, 6, events[len(events)-1].Stats.Processed)
	})

	t.Run("canceled run ends with the canceled event", func(t *testing.T) {
		bulk := new(MockBulkService)
		bulk.On("RunOrderBulk", mock.Anything, "job-2", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				emit := args.Get(3).(appsync.EmitFunc)
				emit(appsync.BulkEvent{Type: appsync.BulkEventCanceled, JobID: "job-2",
					Stats: appsync.BulkStats{Processed: 10}})
			}).
			Return(appsync.BulkStats{Processed: 10}, appsync.ErrJobCanceled)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/bulk",
			strings.NewReader(`{"job_id":"job-2"}`))
		req.Header.Set("Content-Type", "application/json")
		newBulkRouter(bulk).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		events := decodeEvents(t, w.Body)
		require.Len(t, events, 1)
		assert.Equal(t, appsync.BulkEventCanceled, events[0].Type)
	})
}

func TestBulkSyncHandler_BulkSyncContacts(t *testing.T) {
	bulk := new(MockBulkService)
	bulk.On("RunContactBulk", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			emit := args.Get(2).(appsync.EmitFunc)
			emit(appsync.BulkEvent{Type: appsync.BulkEventDone,
				Stats: appsync.BulkStats{Processed: 3, Synced: 3}})
		}).
		Return(appsync.BulkStats{Processed: 3, Synced: 3}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/contacts/bulk", nil)
	newBulkRouter(bulk).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	events := decodeEvents(t, w.Body)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].Stats.Synced)
}

func TestBulkSyncHandler_CancelJob(t *testing.T) {
	t.Run("cancels a running job", func(t *testing.T) {
		bulk := new(MockBulkService)
		bulk.On("CancelJob", "job-1").Return(true)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/sync/jobs/job-1", nil)
		newBulkRouter(bulk).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, true, data["canceled"])
	})

	t.Run("unknown job yields 404", func(t *testing.T) {
		bulk := new(MockBulkService)
		bulk.On("CancelJob", "job-x").Return(false)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/sync/jobs/job-x", nil)
		newBulkRouter(bulk).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
