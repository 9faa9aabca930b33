package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hse-ops/hazard-report-api/internal/models"
	"github.com/hse-ops/hazard-report-api/internal/service"
	"github.com/hse-ops/hazard-report-api/pkg/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *service.AuthService, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reportSvc := service.NewReportService(&reportRepoStub{}, &statusLogStub{}, &uploaderStub{}, nil, nil)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	tasks := service.NewExportTaskStore(time.Hour)
	exportSvc := service.NewExportService(&exportSourceStub{}, store, tasks, service.ExportRunConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	exportSvc.Start(ctx)

	orderStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	authSvc := newTestAuthService(t)
	metricsSvc := service.NewMetricsService()

	r := gin.New()
	RegisterRoutes(r, "/api", Handlers{
		Reports: NewReportHandler(reportSvc, metricsSvc),
		Exports: NewExportHandler(exportSvc, metricsSvc),
		Auth:    NewAuthHandler(authSvc),
		Orders:  NewOrderHandler(service.NewOrderService(orderStore, nil)),
		Metrics: NewMetricsHandler(metricsSvc),
	}, authSvc, nil)

	return r, authSvc, func() {
		cancel()
		exportSvc.Stop()
	}
}

func TestRoutesExportPrecedesReportID(t *testing.T) {
	r, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/export?format=csv", nil))

	// Hitting the :id route instead would be a 400 for the non-numeric id.
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestRoutesAdminRequiresToken(t *testing.T) {
	r, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/reports/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/reports/1", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutesAdminAcceptsValidToken(t *testing.T) {
	r, authSvc, cleanup := newTestRouter(t)
	defer cleanup()

	resp, err := authSvc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesHealth(t *testing.T) {
	r, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesMetricsExposed(t *testing.T) {
	r, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}

func TestRoutesOrdersList(t *testing.T) {
	r, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}
