package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Domenick1991/discope/api"
	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/api/planning_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHandlers() Handlers {
	return Handlers{
		Bookings: api.NewBookingHandler(nil, nil),
		Centers:  api.NewCenterHandler(nil),
		Planning: planning_api.NewServer(nil, nil),
	}
}

func TestNewServers_Routes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, swaggerFile), []byte(`{"swagger":"2.0"}`), 0o644))

	cfg := &config.Config{
		HTTP: config.HTTPConfig{Address: ":0", SwaggerDir: dir},
		GRPC: config.GRPCConfig{Address: ":0"},
	}
	s, err := newServers(cfg, testHandlers(), zap.NewNop())
	require.NoError(t, err)
	handler := s.httpServer.Handler

	tests := []struct {
		name   string
		method string
		path   string
		code   int
	}{
		{"healthz through gateway", http.MethodGet, "/healthz", http.StatusOK},
		{"rest invalid id", http.MethodGet, "/api/bookings/abc", http.StatusBadRequest},
		{"centers invalid id", http.MethodGet, "/api/centers/0/rental-units", http.StatusBadRequest},
		{"swagger file", http.MethodGet, "/swagger/" + swaggerFile, http.StatusOK},
		{"unknown rest route", http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestNewServers_WithoutSwagger(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: ":0"}, GRPC: config.GRPCConfig{Address: ":0"}}
	s, err := newServers(cfg, testHandlers(), zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/"+swaggerFile, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger("production"))
	assert.NotNil(t, NewLogger("development"))
}
