package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubBlobs struct{ err error }

func (s stubBlobs) HealthCheck(context.Context) error { return s.err }

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthLive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Dependencies{})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/live").Code)
}

func TestHealthReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		deps Dependencies
		want int
	}{
		{"all up", Dependencies{DB: stubPinger{}, Blobs: stubBlobs{}}, http.StatusOK},
		{"postgres down", Dependencies{DB: stubPinger{err: errors.New("refused")}, Blobs: stubBlobs{}}, http.StatusServiceUnavailable},
		{"blob store down", Dependencies{DB: stubPinger{}, Blobs: stubBlobs{err: errors.New("enoent")}}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(NewRouter(tc.deps), http.MethodGet, "/health/ready")
			assert.Equal(t, tc.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "refused")
		})
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Dependencies{})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/metrics").Code)
}
