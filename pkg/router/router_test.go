package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-pipeline/internal/logging"
)

func TestMatchWildcardRoute(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		params  []string
		ok      bool
	}{
		{"/api/v1/runs/abc", "/api/v1/runs/*", []string{"abc"}, true},
		{"/api/v1/runs/abc/series", "/api/v1/runs/*/series", []string{"abc"}, true},
		{"/api/v1/runs/abc/trends", "/api/v1/runs/*/series", nil, false},
		{"/api/v1/runs/abc/series", "/api/v1/runs/*", []string{"abc/series"}, true},
		{"/api/v1/runs/", "/api/v1/runs/*", nil, false},
		{"/api/v1/runs", "/api/v1/runs/*", nil, false},
		{"/a/1/b/2", "/a/*/b/*", []string{"1", "2"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.pattern, func(t *testing.T) {
			params, ok := matchWildcardRoute(tt.path, tt.pattern)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.params, params)
		})
	}
}

func echoParam(name string) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name + ":" + Param(r, 0)))
	}
}

func serve(r *Router, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouterDispatch(t *testing.T) {
	r := New(nil)
	r.GET("/items", echoParam("list"))
	r.POST("/items", echoParam("create"))
	r.GET("/items/*/parts", echoParam("parts"))
	r.GET("/items/*", echoParam("item"))
	r.DELETE("/items/*", echoParam("delete"))

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/items", http.StatusOK, "list:"},
		{http.MethodPost, "/items", http.StatusOK, "create:"},
		{http.MethodGet, "/items/7", http.StatusOK, "item:7"},
		{http.MethodDelete, "/items/7", http.StatusOK, "delete:7"},
		{http.MethodGet, "/items/7/parts", http.StatusOK, "parts:7"},
		{http.MethodPut, "/items", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/items/7/parts", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nothing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(r, tt.method, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}

	assert.Len(t, r.Routes(), 5)
	assert.True(t, r.Paths()["/items/*"])
}

func TestRouterHandle(t *testing.T) {
	r := New(nil)
	r.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	assert.Equal(t, http.StatusTeapot, serve(r, http.MethodGet, "/static/x.js").Code)
}

func TestRouterRequestID(t *testing.T) {
	var buf bytes.Buffer
	r := New(logging.NewWriter(&buf, "json", "info"))
	var seen string
	r.GET("/ping", func(w http.ResponseWriter, req *http.Request) {
		seen = logging.RequestID(req.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "/ping", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
}

func TestServer(t *testing.T) {
	r := New(nil)
	srv := r.Server(":0", 0, 0)
	assert.Equal(t, ":0", srv.Addr)
	assert.Same(t, r, srv.Handler)
}
