package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, baseURL string) *httptest.Server {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "out/index.json", []byte(`{"instrumentations":[]}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "out/instrumentations/jdbc-0123456789ab.json", []byte(`{"id":"jdbc"}`), 0o644))

	h, err := NewHandler(Options{Fs: fs, OutputDir: "out", BaseURL: baseURL})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServesUnderBasePath(t *testing.T) {
	srv := newTestServer(t, "/data")

	resp, body := get(t, srv.URL+"/data/index.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"instrumentations":[]}`, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, revalidate, resp.Header.Get("Cache-Control"))

	resp, _ = get(t, srv.URL+"/data/instrumentations/jdbc-0123456789ab.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, immutableCache, resp.Header.Get("Cache-Control"))

	resp, _ = get(t, srv.URL+"/data/versions/9.9.9.json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/index.json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAbsoluteBaseURLMountsAtPath(t *testing.T) {
	srv := newTestServer(t, "https://example.com/assets/data")

	resp, _ := get(t, srv.URL+"/assets/data/index.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPreflightAndHealth(t *testing.T) {
	srv := newTestServer(t, "")

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/index.json", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "GET")

	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, _ = get(t, srv.URL+"/index.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMountPath(t *testing.T) {
	tests := map[string]string{
		"":                        "/",
		"/data":                   "/data",
		"https://example.com":     "/",
		"https://example.com/d/x": "/d/x",
		"data":                    "/data",
	}
	for in, want := range tests {
		got, err := mountPath(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
