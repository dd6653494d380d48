package core_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cdnlocal/internal/core"
	"cdnlocal/pkg/auth"

	"github.com/stretchr/testify/require"
)

// NewTestServer creates a Server backed by a temporary base directory and
// returns it along with an httptest.Server wrapping its handler.
func NewTestServer(t *testing.T) (*core.Server, *httptest.Server, string) {
	t.Helper()

	base := t.TempDir()

	srv, err := core.NewServer(core.NewConfig(
		core.WithSettings(testSettings(base)),
		core.WithSecret(testSecret),
		core.WithSiteURL("https://www.example.com"),
	))
	require.NoError(t, err, "NewServer error")

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	return srv, httpSrv, base
}

type RequestOption func(*http.Request)

func WithContent(body []byte) RequestOption {
	return func(req *http.Request) {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.Header.Set("Content-Type", "application/octet-stream")
	}
}

func WithHeader(key string, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

func Anonymous() RequestOption {
	return func(req *http.Request) {
		req.Header.Del("Authorization")
	}
}

func DoMethod(t *testing.T, method string, url string, opts ...RequestOption) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, url, nil)
	require.NoError(t, err, "creating "+method+" request")
	req.SetBasicAuth(auth.DefaultAccessKeyID, auth.DefaultSecretAccessKey)
	for _, opt := range opts {
		opt(req)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoErrorf(t, err, "%s %s error", method, url)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v), "decoding response")
	return v
}

func TestServerRequiresAuthentication(t *testing.T) {
	t.Parallel()

	_, httpSrv, _ := NewTestServer(t)

	resp := DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/avatars", Anonymous())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/schemes", Anonymous())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/healthz", Anonymous())
	require.Equal(t, http.StatusOK, resp.StatusCode, "health check is public")
}

func TestServerAcceptsBearerToken(t *testing.T) {
	t.Parallel()

	_, httpSrv, _ := NewTestServer(t)

	token, err := auth.NewJWTAuthEngine(testSecret).IssueToken("deployer", "editor", time.Minute)
	require.NoError(t, err)

	resp := DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/avatars",
		Anonymous(), WithHeader("Authorization", auth.BearerPrefix+token))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestServerBucketAndObjectLifecycle(t *testing.T) {
	t.Parallel()

	_, httpSrv, base := NewTestServer(t)
	bucketURL := httpSrv.URL + "/buckets/avatars"
	objectURL := bucketURL + "/objects/me.png"

	resp := DoMethod(t, http.MethodPut, bucketURL)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.DirExists(t, filepath.Join(base, "avatars"))

	resp = DoMethod(t, http.MethodHead, objectURL)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = DoMethod(t, http.MethodPut, objectURL, WithContent([]byte("png bytes")))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data, err := os.ReadFile(filepath.Join(base, "avatars", "me.png"))
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(data))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1, "upload spool must not be left behind")

	resp = DoMethod(t, http.MethodHead, objectURL)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, objectURL+"/path")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	path := decode[core.PathResponse](t, resp)
	require.Equal(t, filepath.Join(base, "avatars", "me.png"), path.Path)

	resp = DoMethod(t, http.MethodDelete, bucketURL)
	require.Equal(t, http.StatusConflict, resp.StatusCode, "non-empty bucket is refused")
	errResp := decode[core.ErrorResponse](t, resp)
	require.Equal(t, "BucketDeleteFailed", errResp.Kind)

	resp = DoMethod(t, http.MethodDelete, objectURL)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = DoMethod(t, http.MethodDelete, objectURL)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, objectURL+"/path")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = DoMethod(t, http.MethodDelete, bucketURL)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoDirExists(t, filepath.Join(base, "avatars"))
}

func TestServerRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	_, httpSrv, _ := NewTestServer(t)

	resp := DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/AB")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/avatars")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/avatars/objects/..", WithContent([]byte("x")))
	require.NotEqual(t, http.StatusCreated, resp.StatusCode)

	resp = DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/avatars/objects/a%2Fb", WithContent([]byte("x")))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "encoded slashes must not escape the bucket")
}

func TestServerUploadEscapedFilename(t *testing.T) {
	t.Parallel()

	_, httpSrv, base := NewTestServer(t)

	resp := DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/docs")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/docs/objects/annual%20report.pdf", WithContent([]byte("pdf")))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.FileExists(t, filepath.Join(base, "docs", "annual report.pdf"))

	// Names are taken literally on every route, including DELETE.
	for _, tc := range []struct{ route, stored string }{
		{"a+b.txt", "a+b.txt"},
		{"100%25.txt", "100%.txt"},
		{"annual%20report.pdf", "annual report.pdf"},
	} {
		objectURL := httpSrv.URL + "/buckets/docs/objects/" + tc.route

		resp = DoMethod(t, http.MethodPut, objectURL, WithContent([]byte("x")))
		require.Equalf(t, http.StatusCreated, resp.StatusCode, "PUT %s", tc.route)
		require.FileExists(t, filepath.Join(base, "docs", tc.stored))

		resp = DoMethod(t, http.MethodHead, objectURL)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "HEAD %s", tc.route)

		resp = DoMethod(t, http.MethodDelete, objectURL)
		require.Equalf(t, http.StatusNoContent, resp.StatusCode, "DELETE %s", tc.route)
		require.NoFileExists(t, filepath.Join(base, "docs", tc.stored))
	}
}

func TestServerObjectRoutesStayInsideBase(t *testing.T) {
	t.Parallel()

	_, httpSrv, base := NewTestServer(t)

	victim := filepath.Join(filepath.Dir(base), "victim.txt")
	require.NoError(t, os.WriteFile(victim, []byte("keep"), 0o644))

	resp := DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/bkt")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	objects := httpSrv.URL + "/buckets/bkt/objects/"

	resp = DoMethod(t, http.MethodDelete, objects+"..%252F..%252Fvictim.txt")
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "double-encoded names are literal")

	resp = DoMethod(t, http.MethodDelete, objects+"a%2F..%2F..%2Fvictim.txt")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = DoMethod(t, http.MethodHead, objects+"a%2F..%2F..%2Fvictim.txt")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, objects+"a%2F..%2F..%2Fvictim.txt/path")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, objects+"..%252Fvictim.txt/path")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = DoMethod(t, http.MethodDelete, httpSrv.URL+"/buckets/..%252F/objects/victim.txt")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.FileExists(t, victim)
}

func TestServerURLs(t *testing.T) {
	t.Parallel()

	_, httpSrv, _ := NewTestServer(t)

	resp := DoMethod(t, http.MethodGet, httpSrv.URL+"/urls/crop?object=Photo.JPG&bucket=avatars&width=100&height=100")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[core.URLResponse](t, resp)
	require.Equal(t, "http://img.example.com/crop/100/100/avatars/photo.jpg", got.URL)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/urls/serve?object=Photo.JPG&bucket=avatars&download=true",
		WithHeader("X-Forwarded-Proto", "https"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[core.URLResponse](t, resp)
	require.Equal(t, "https://secure.example.com/serve/avatars/photo.jpg?dl=1", got.URL)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/urls/serve-zipped?ids=1,2,3&hash=abc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[core.URLResponse](t, resp)
	require.Equal(t, "http://img.example.com/zip/1,2,3/abc", got.URL)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/urls/expiring?object=doc.pdf&bucket=private&expires=3600")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[core.URLResponse](t, resp)
	require.True(t, strings.HasPrefix(got.URL, "http://img.example.com/serve?token="), got.URL)
	require.True(t, strings.HasSuffix(got.URL, "&dl=0"), got.URL)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/urls/placeholder?width=wide")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/urls/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerSchemes(t *testing.T) {
	t.Parallel()

	_, httpSrv, _ := NewTestServer(t)

	resp := DoMethod(t, http.MethodGet, httpSrv.URL+"/schemes", WithHeader("X-Forwarded-Proto", "https"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	schemes := decode[core.SchemesResponse](t, resp)
	require.True(t, schemes.Secure)
	require.Len(t, schemes.Schemes, 8)
	require.Equal(t, "https://secure.example.com/serve/{{bucket}}/{{filename}}{{extension}}", schemes.Schemes[0].Scheme)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/schemes.html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "blank-avatar")
	require.Contains(t, string(body), "{{width}}")
}

func TestServerMetrics(t *testing.T) {
	t.Parallel()

	_, httpSrv, _ := NewTestServer(t)

	resp := DoMethod(t, http.MethodPut, httpSrv.URL+"/buckets/avatars")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = DoMethod(t, http.MethodDelete, httpSrv.URL+"/buckets/missing")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/metrics", Anonymous())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	require.Contains(t, text, `cdnlocal_storage_operations_total{operation="create_bucket",result="ok"} 1`)
	require.Contains(t, text, `cdnlocal_storage_operations_total{operation="destroy_bucket",result="BucketDeleteFailed"} 1`)
	require.Contains(t, text, "cdnlocal_http_request_duration_seconds")
}
