package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minio/minio-go/v7/pkg/s3utils"

	"cdnlocal/internal/ui"
	"cdnlocal/internal/urls"
	"cdnlocal/pkg/auth"
	storageapi "cdnlocal/pkg/storage"
)

// Server exposes a Driver over an authenticated admin HTTP API.
type Server struct {
	driver        *Driver
	authenticator auth.AuthEngine
	metrics       *Metrics
}

// NewServer builds the Driver from cfg. Without an explicit authenticator,
// bearer tokens signed with the driver secret and the default basic
// credentials are accepted.
func NewServer(cfg Config) (*Server, error) {
	driver, err := New(cfg)
	if err != nil {
		return nil, err
	}

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = auth.NewCompoundAuthEngine(
			auth.NewJWTAuthEngine(cfg.Secret),
			auth.NewBasicAuthEngine(),
		)
	}

	return &Server{
		driver:        driver,
		authenticator: authenticator,
		metrics:       NewMetrics(),
	}, nil
}

func (s *Server) Driver() *Driver {
	return s.driver
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// pathParam returns a decoded route parameter. chi matches on the raw path
// when the request carries escaped characters, so the value may still be
// escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func validBucket(bucket string) error {
	return s3utils.CheckValidBucketName(bucket)
}

func validFilename(filename string) error {
	if err := s3utils.CheckValidObjectName(filename); err != nil {
		return err
	}
	if strings.Contains(filename, "/") || filename == "." || filename == ".." {
		return errors.New("object name must be a single path segment")
	}
	return nil
}

func validObject(bucket string, filename string) error {
	if err := validBucket(bucket); err != nil {
		return err
	}
	return validFilename(filename)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBucketPut(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string) {
	if err := validBucket(bucket); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.driver.CreateBucket(ctx, bucket)
	s.metrics.ObserveOperation("create_bucket", err)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BucketResponse{Bucket: bucket})
}

func (s *Server) handleBucketDelete(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string) {
	if err := validBucket(bucket); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.driver.DestroyBucket(ctx, bucket)
	s.metrics.ObserveOperation("destroy_bucket", err)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleObjectPut spools the body into a transient file inside the base
// directory and hands it to CreateObject, which moves it into place.
func (s *Server) handleObjectPut(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string, filename string) {
	if err := validObject(bucket, filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmp, err := os.CreateTemp(s.driver.Paths().Base(), ".upload-*")
	if err != nil {
		err = &storageapi.Error{Kind: storageapi.ObjectWriteFailed, Message: "failed to spool upload", Err: err}
		s.metrics.ObserveOperation("create_object", err)
		writeStorageError(w, err)
		return
	}
	tmpPath := tmp.Name()
	defer func() {
		// Gone after a successful move.
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("Failed to remove upload spool", "path", tmpPath, "error", rmErr)
		}
	}()

	_, copyErr := io.Copy(tmp, r.Body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	err = s.driver.CreateObject(ctx, bucket, filename, tmpPath)
	s.metrics.ObserveOperation("create_object", err)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ObjectResponse{Bucket: bucket, Filename: filename})
}

func (s *Server) handleObjectHead(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string, filename string) {
	if err := validObject(bucket, filename); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if s.driver.ObjectExists(ctx, bucket, filename) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// handleObjectDelete takes the route parameters literally. DestroyObject
// decodes its identifiers once more, so they are escaped again first and the
// object removed is exactly the one PUT stored under the same name.
func (s *Server) handleObjectDelete(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string, filename string) {
	if err := validObject(bucket, filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.driver.DestroyObject(ctx, url.QueryEscape(bucket), url.QueryEscape(filename))
	s.metrics.ObserveOperation("destroy_object", err)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleObjectPath(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string, filename string) {
	if err := validObject(bucket, filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.driver.ObjectLocalPath(ctx, bucket, filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Bucket: bucket, Filename: filename, Path: p})
}

// urlQuery reads the integer and duration parameters of GET /urls/{scheme}.
type urlQuery struct {
	values url.Values
	err    error
}

func (q *urlQuery) str(name string) string {
	return q.values.Get(name)
}

func (q *urlQuery) boolean(name string) bool {
	v := q.values.Get(name)
	if v == "" || q.err != nil {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.err = fmt.Errorf("invalid %s: %q", name, v)
	}
	return b
}

func (q *urlQuery) integer(name string) int {
	v := q.values.Get(name)
	if v == "" || q.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.err = fmt.Errorf("invalid %s: %q", name, v)
	}
	return n
}

// duration accepts Go durations ("90s", "1h") or a bare number of seconds.
func (q *urlQuery) duration(name string) time.Duration {
	v := q.values.Get(name)
	if v == "" || q.err != nil {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		q.err = fmt.Errorf("invalid %s: %q", name, v)
	}
	return d
}

func (q *urlQuery) list(name string) []string {
	v := q.values.Get(name)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func (s *Server) handleURL(ctx context.Context, w http.ResponseWriter, r *http.Request, scheme string) {
	q := &urlQuery{values: r.URL.Query()}

	var (
		rendered string
		err      error
	)
	switch scheme {
	case urls.SchemeServe:
		rendered = s.driver.URLServe(ctx, q.str("object"), q.str("bucket"), q.boolean("download"))
	case urls.SchemeServeRaw:
		rendered = s.driver.URLServeRaw(ctx, q.str("object"), q.str("bucket"))
	case urls.SchemeServeZipped:
		rendered = s.driver.URLServeZipped(ctx, q.list("ids"), q.str("hash"), q.str("filename"))
	case urls.SchemeCrop:
		rendered = s.driver.URLCrop(ctx, q.str("object"), q.str("bucket"), q.integer("width"), q.integer("height"))
	case urls.SchemeScale:
		rendered = s.driver.URLScale(ctx, q.str("object"), q.str("bucket"), q.integer("width"), q.integer("height"))
	case urls.SchemePlaceholder:
		rendered = s.driver.URLPlaceholder(ctx, q.integer("width"), q.integer("height"), q.integer("border"))
	case urls.SchemeBlankAvatar:
		rendered = s.driver.URLBlankAvatar(ctx, q.integer("width"), q.integer("height"), q.str("sex"))
	case urls.SchemeExpiring:
		expires := q.duration("expires")
		download := q.boolean("download")
		if q.err == nil {
			rendered, err = s.driver.URLExpiring(ctx, q.str("object"), q.str("bucket"), expires, download)
		}
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown URL scheme %q", scheme))
		return
	}

	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err.Error())
		return
	}
	if err != nil {
		writeStorageError(w, err)
		return
	}

	s.metrics.ObserveURL(scheme)
	writeJSON(w, http.StatusOK, URLResponse{Scheme: scheme, URL: rendered})
}

func (s *Server) handleSchemes(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SchemesResponse{
		Secure:  s.driver.IsSecure(ctx),
		Schemes: s.driver.Schemes(ctx),
	})
}

func (s *Server) handleSchemesPage(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	named := s.driver.Schemes(ctx)
	schemes := make([]ui.Scheme, 0, len(named))
	for _, n := range named {
		schemes = append(schemes, ui.Scheme{Name: n.Name, Template: n.Scheme, Processing: n.Processing})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.SchemesPage(schemes).Render(ctx, w); err != nil {
		slog.Error("Render schemes page", "error", err)
	}
}
