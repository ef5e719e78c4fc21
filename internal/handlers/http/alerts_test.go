package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	handlers "github.com/Nazarious-ucu/nightjet-alerts/internal/handlers/http"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/memory"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/alerts"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) RunCycle(ctx context.Context, trigger string) (models.CheckReport, error) {
	args := m.Called(ctx, trigger)
	report, _ := args.Get(0).(models.CheckReport)
	return report, args.Error(1)
}

type failingService struct {
	err error
}

func (f *failingService) Create(context.Context, models.AlertInput) (models.Alert, error) {
	return models.Alert{}, f.err
}

func (f *failingService) List(context.Context) ([]models.Alert, error) { return nil, f.err }

func (f *failingService) Delete(context.Context, string) error { return f.err }

func setupRouter(svc interface {
	Create(ctx context.Context, in models.AlertInput) (models.Alert, error)
	List(ctx context.Context) ([]models.Alert, error)
	Delete(ctx context.Context, id string) error
}, checker *mockChecker,
) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers.NewHandler(svc, checker, "http", zerolog.Nop()).Register(r)
	return r
}

func newService() *alerts.Service {
	return alerts.NewService(memory.NewAlertRepository(zerolog.Nop()), time.UTC)
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validBody = `{"email":"a@x.com","trainNumber":"470","from":"8101003","to":"8100001","date":"15082024"}`

func TestCreateEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "missing body",
			body:     "",
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Missing required fields"}`,
		},
		{
			name:     "missing train",
			body:     `{"email":"a@x.com","from":"8101003","to":"8100001","date":"15082024"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Missing required fields"}`,
		},
		{
			name:     "bad email",
			body:     `{"email":"nope","trainNumber":"470","from":"8101003","to":"8100001","date":"15082024"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Missing required fields"}`,
		},
		{
			name:     "impossible date",
			body:     `{"email":"a@x.com","trainNumber":"470","from":"8101003","to":"8100001","date":"31022024"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Date must be a valid DDMMYYYY date"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService()
			r := setupRouter(svc, &mockChecker{})

			w := do(r, http.MethodPost, "/alerts", tc.body)
			assert.Equal(t, tc.wantCode, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())

			list, err := svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreateListDeleteFlow(t *testing.T) {
	r := setupRouter(newService(), &mockChecker{})

	w := do(r, http.MethodPost, "/alerts", validBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "470", created.TrainNumber)
	assert.Equal(t, "15082024", created.Date)
	assert.True(t, created.CreatedAt.Equal(created.LastChecked))

	w = do(r, http.MethodGet, "/alerts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	w = do(r, http.MethodDelete, "/alerts/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/alerts", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDeleteUnknownAlert(t *testing.T) {
	svc := newService()
	r := setupRouter(svc, &mockChecker{})
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/alerts", validBody).Code)

	w := do(r, http.MethodDelete, "/alerts/unknown-id", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Alert not found"}`, w.Body.String())

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStoreFailures(t *testing.T) {
	r := setupRouter(&failingService{err: &models.PersistenceError{Op: "x", Err: errors.New("db down")}}, &mockChecker{})

	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/alerts", validBody).Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/alerts", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodDelete, "/alerts/a1", "").Code)
}

func TestCheckEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		report   models.CheckReport
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "success",
			report:   models.CheckReport{Due: 3, Checked: 3, Notified: 2, Failed: 1},
			wantCode: http.StatusOK,
			wantBody: `{"message":"Alerts checked successfully","due":3,"checked":3,"notified":2,"failed":1}`,
		},
		{
			name:     "cycle already running",
			err:      models.ErrCycleInProgress,
			wantCode: http.StatusConflict,
			wantBody: `{"error":"Check already in progress"}`,
		},
		{
			name:     "store unreadable",
			err:      &models.PersistenceError{Op: "list alerts", Err: errors.New("db down")},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Failed to check alerts"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checker := &mockChecker{}
			checker.On("RunCycle", mock.Anything, "http").Return(tc.report, tc.err).Once()
			t.Cleanup(func() { checker.AssertExpectations(t) })

			w := do(setupRouter(newService(), checker), http.MethodGet, "/alerts/check", "")
			assert.Equal(t, tc.wantCode, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}
}

func TestCheckEndpoint_ClientHangUpDoesNotCancelCycle(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())

	var cycleErr error
	checker := &mockChecker{}
	checker.On("RunCycle", mock.Anything, "http").
		Run(func(args mock.Arguments) {
			cancel()
			cycleErr = args.Get(0).(context.Context).Err()
		}).
		Return(models.CheckReport{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/alerts/check", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()
	setupRouter(newService(), checker).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, cycleErr)
	checker.AssertExpectations(t)
}
