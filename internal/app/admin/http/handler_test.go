package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/devkapilbansal/watchstream/internal/app/healthwatch"
	"github.com/devkapilbansal/watchstream/internal/pkg/bootstrap"
	"github.com/devkapilbansal/watchstream/internal/pkg/log"
	"github.com/devkapilbansal/watchstream/internal/pkg/stats"
)

func testWatcher(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) *healthwatch.Watcher {
	t.Helper()
	w := healthwatch.NewWatcher("payments", nil, log.MockLogger, stats.NewMockScope("test"))
	payload, err := proto.Marshal(&healthpb.HealthCheckResponse{Status: status})
	require.NoError(t, err)
	require.NoError(t, w.OnMessageReceived(nil, payload))
	return w
}

func TestAdminServer_DefaultHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/", nil)
	assert.NoError(t, err)

	rr := httptest.NewRecorder()
	handler := defaultHandler([]Handler{{
		"/foo",
		"does nothing",
		http.HandlerFunc(nil),
	}})

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "admin commands are:\n  /foo: does nothing\n", rr.Body.String())
}

func TestAdminServer_DefaultHandler_NotFound(t *testing.T) {
	req, err := http.NewRequest("GET", "/not-implemented", nil)
	assert.NoError(t, err)

	rr := httptest.NewRecorder()
	handler := defaultHandler([]Handler{{
		"/foo",
		"does nothing",
		http.HandlerFunc(nil),
	}})

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "404 page not found\n", rr.Body.String())
}

func TestAdminServer_ConfigDumpHandler(t *testing.T) {
	for _, url := range []string{"/server_info", "/server_info/"} {
		req, err := http.NewRequest("GET", url, nil)
		assert.NoError(t, err)
		rr := httptest.NewRecorder()
		handler := configDumpHandler(&bootstrap.Config{
			Target:  bootstrap.Address{Address: "127.0.0.1", Port: 9991},
			Service: "payments",
		})

		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"address": "127.0.0.1"`)
		assert.Contains(t, rr.Body.String(), `"service": "payments"`)
	}
}

func TestAdminServer_WatchStatusHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/watch_status", nil)
	assert.NoError(t, err)
	rr := httptest.NewRecorder()
	handler := watchStatusHandler(testWatcher(t, healthpb.HealthCheckResponse_SERVING))

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"service": "payments"`)
	assert.Contains(t, rr.Body.String(), `"status": "SERVING"`)
}

func TestAdminServer_ReadyHandler(t *testing.T) {
	tests := []struct {
		name   string
		status healthpb.HealthCheckResponse_ServingStatus
		want   int
	}{
		{"serving means ready", healthpb.HealthCheckResponse_SERVING, http.StatusOK},
		{"not serving means unavailable", healthpb.HealthCheckResponse_NOT_SERVING, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", "/ready", nil)
			assert.NoError(t, err)
			rr := httptest.NewRecorder()
			handler := readyHandler(testWatcher(t, tt.status))

			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestAdminServer_ReadyHandler_OnlyGet(t *testing.T) {
	req, err := http.NewRequest("POST", "/ready", nil)
	assert.NoError(t, err)
	rr := httptest.NewRecorder()
	handler := readyHandler(testWatcher(t, healthpb.HealthCheckResponse_SERVING))

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAdminServer_LogLevelHandler(t *testing.T) {
	logger := log.New("info", nil)

	req, err := http.NewRequest("POST", "/log_level/debug", nil)
	assert.NoError(t, err)
	rr := httptest.NewRecorder()
	handler := logLevelHandler(logger)

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Current log level: debug\n", rr.Body.String())
	assert.Equal(t, "debug", logger.GetLevel())

	req, err = http.NewRequest("POST", "/log_level", nil)
	assert.NoError(t, err)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Current log level: debug\n", rr.Body.String())
}

func TestAdminServer_LogLevelHandler_InvalidLevel(t *testing.T) {
	req, err := http.NewRequest("POST", "/log_level/loud", nil)
	assert.NoError(t, err)
	rr := httptest.NewRecorder()
	handler := logLevelHandler(log.New("info", nil))

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid log level: loud\n", rr.Body.String())
}

func TestAdminServer_LogLevelHandler_OnlyPost(t *testing.T) {
	req, err := http.NewRequest("GET", "/log_level/debug", nil)
	assert.NoError(t, err)
	rr := httptest.NewRecorder()
	handler := logLevelHandler(log.New("info", nil))

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGetParam(t *testing.T) {
	assert.Equal(t, "debug", getParam("/log_level/debug"))
	assert.Equal(t, "", getParam("/log_level"))
}

func TestRegisterHandlersServesIndex(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux, &bootstrap.Config{}, testWatcher(t, healthpb.HealthCheckResponse_SERVING), log.MockLogger)

	req, err := http.NewRequest("GET", "/", nil)
	assert.NoError(t, err)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	for _, pattern := range []string{"/log_level", "/ready", "/server_info", "/watch_status"} {
		assert.True(t, strings.Contains(rr.Body.String(), pattern))
	}
}
